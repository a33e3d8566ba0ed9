package bundle

// Calculation is the derived pricing of a bundle, optionally against a
// cart. It is recomputed on every evaluation and never cached.
type Calculation struct {
	BundleID          string   `json:"bundle_id"`
	BundleName        string   `json:"bundle_name"`
	OriginalTotal     int64    `json:"original_total"`
	DiscountedTotal   int64    `json:"discounted_total"`
	Savings           int64    `json:"savings"`
	SavingsPercentage int      `json:"savings_percentage"`
	Qualifies         bool     `json:"qualifies"`
	MissingProducts   []string `json:"missing_products,omitempty"`
	MissingCount      int      `json:"missing_count,omitempty"`
}

// Calculate prices b on its own. The discounted total is clamped to
// [0, OriginalTotal], so Savings is never negative.
func Calculate(b Bundle) Calculation {
	var original int64
	for _, p := range b.Products {
		original += p.Price
	}

	var discounted int64
	switch b.DiscountType {
	case DiscountPercentage:
		discounted = original - (original*b.DiscountValue+50)/100
	case DiscountFixed:
		discounted = original - b.DiscountValue
	case DiscountPrice:
		discounted = b.DiscountValue
	default:
		discounted = original
	}
	if discounted < 0 {
		discounted = 0
	}
	if discounted > original {
		discounted = original
	}

	savings := original - discounted
	pct := 0
	if original > 0 {
		pct = int((savings*100 + original/2) / original)
	}

	return Calculation{
		BundleID:          b.ID,
		BundleName:        b.Name,
		OriginalTotal:     original,
		DiscountedTotal:   discounted,
		Savings:           savings,
		SavingsPercentage: pct,
	}
}

// CheckQualification prices b and decides whether a cart holding
// cartProductIDs qualifies: every required product must be present and, if
// MinProducts is set, at least that many bundle products. A cart holding
// none of the bundle's products never qualifies. Price fields are
// filled either way so callers can show what completing the bundle saves.
func CheckQualification(b Bundle, cartProductIDs []string) Calculation {
	calc := Calculate(b)

	inCart := make(map[string]bool, len(cartProductIDs))
	for _, id := range cartProductIDs {
		inCart[id] = true
	}

	present := 0
	var missing []string
	for _, p := range b.Products {
		if inCart[p.ProductID] {
			present++
			continue
		}
		if p.Required {
			name := p.Name
			if name == "" {
				name = p.ProductID
			}
			missing = append(missing, name)
		}
	}

	shortfall := 0
	if need := max(b.MinProducts, 1); present < need {
		shortfall = need - present
	}

	calc.MissingProducts = missing
	calc.MissingCount = max(len(missing), shortfall)
	calc.Qualifies = calc.MissingCount == 0
	return calc
}

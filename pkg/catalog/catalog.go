package catalog

import (
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	internalcatalog "github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/clock"
)

// Snapshot is one validated, read-only view of promo codes and bundles.
type Snapshot = internalcatalog.Snapshot

// Document is the serialized form of a catalog.
type Document = internalcatalog.Document

// Source loads a fresh snapshot.
type Source = internalcatalog.Source

// Holder keeps the current snapshot and refreshes it from a Source.
type Holder = internalcatalog.Holder

// FileSource reads a catalog JSON file.
type FileSource = internalcatalog.FileSource

// PromoCode is a promotional code definition.
type PromoCode = promo.Code

// PromoType is the kind of discount a promo code grants.
type PromoType = promo.Type

const (
	PromoPercentage   = promo.TypePercentage
	PromoFixed        = promo.TypeFixed
	PromoFreeShipping = promo.TypeFreeShipping
	PromoBuyXGetY     = promo.TypeBuyXGetY
	PromoBundle       = promo.TypeBundle
)

// Bundle is a named set of products sold together at a discount.
type Bundle = bundle.Bundle

// BundleProduct is one product in a Bundle.
type BundleProduct = bundle.Product

// BundleDiscountType says how a bundle's price is derived.
type BundleDiscountType = bundle.DiscountType

const (
	BundlePercentage = bundle.DiscountPercentage
	BundleFixed      = bundle.DiscountFixed
	BundlePrice      = bundle.DiscountPrice
)

// NewSnapshot validates doc and builds a Snapshot from it.
func NewSnapshot(doc Document, c clock.Clock) (*Snapshot, error) {
	if c == nil {
		c = clock.NewReal()
	}
	return internalcatalog.NewSnapshot(doc, c.Now())
}

// NewFileSource creates a Source reading path on every load.
func NewFileSource(path string, c clock.Clock) *FileSource {
	return internalcatalog.NewFileSource(path, c)
}

// NewHolder creates a Holder with no snapshot loaded.
func NewHolder(source Source, logger *zap.Logger) *Holder {
	return internalcatalog.NewHolder(source, logger)
}

// NewStaticHolder creates a Holder that always serves snap.
func NewStaticHolder(snap *Snapshot) *Holder {
	return internalcatalog.NewStaticHolder(snap)
}

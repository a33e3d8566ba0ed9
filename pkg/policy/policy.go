package policy

import (
	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/cart"
	"github.com/SmitUplenchwar2687/Tollgate/internal/events"
	internalpolicy "github.com/SmitUplenchwar2687/Tollgate/internal/policy"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
)

// Service evaluates admission, promo codes and bundles for one request.
type Service = internalpolicy.Service

// Config configures a Service.
type Config = internalpolicy.Config

// Request is the input to Service.Evaluate.
type Request = internalpolicy.Request

// Result is the outcome of Service.Evaluate.
type Result = internalpolicy.Result

// Status classifies a Result.
type Status = internalpolicy.Status

// Admitter makes admission decisions. *admission.Policy implements it.
type Admitter = internalpolicy.Admitter

const (
	StatusOK            = internalpolicy.StatusOK
	StatusRateLimited   = internalpolicy.StatusRateLimited
	StatusInvalidInput  = internalpolicy.StatusInvalidInput
	StatusInternalError = internalpolicy.StatusInternalError
)

// LineItem is one product line in a cart. Prices are in cents.
type LineItem = cart.LineItem

// PromoResult is the outcome of validating a promo code.
type PromoResult = promo.Result

// BundleCalculation is a priced bundle, with qualification details.
type BundleCalculation = bundle.Calculation

// Event is published once per evaluation.
type Event = events.Event

// Publisher receives evaluation events.
type Publisher = events.Publisher

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	return internalpolicy.NewService(cfg)
}

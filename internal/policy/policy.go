// Package policy composes admission control, promo validation and bundle
// resolution into one call per inbound request.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/cart"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/events"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
)

// Status classifies a Result.
type Status string

const (
	StatusOK            Status = "ok"
	StatusRateLimited   Status = "rate_limited"
	StatusInvalidInput  Status = "invalid_input"
	StatusInternalError Status = "internal_error"
)

// DefaultSuggestionLimit caps bundle suggestions when a request leaves
// SuggestionLimit at zero.
const DefaultSuggestionLimit = 3

const msgInternal = "Something went wrong while pricing your cart. Please try again."

// Admitter makes admission decisions. *admission.Policy implements it.
type Admitter interface {
	Check(ctx context.Context, identifier string, limit admission.Limit) (admission.Decision, error)
}

// Request is one inbound evaluation.
type Request struct {
	Identifier      string
	Route           string
	Limit           admission.Limit
	Items           []cart.LineItem
	PromoCode       string
	UserUsageCount  int
	SuggestionLimit int
}

// Result is the composed outcome. Only Status, Message and Admission are
// set unless Status is StatusOK.
type Result struct {
	Status         Status               `json:"status"`
	Message        string               `json:"message,omitempty"`
	Admission      admission.Decision   `json:"admission"`
	RetryAfter     int                  `json:"retry_after,omitempty"`
	Subtotal       int64                `json:"subtotal"`
	Promo          *promo.Result        `json:"promo,omitempty"`
	Bundle         *bundle.Calculation  `json:"bundle,omitempty"`
	Suggestions    []bundle.Calculation `json:"suggestions,omitempty"`
	Discount       int64                `json:"discount"`
	Total          int64                `json:"total"`
	FreeShipping   bool                 `json:"free_shipping,omitempty"`
	CatalogVersion string               `json:"catalog_version,omitempty"`
}

// Config holds the Service's collaborators. Admitter is required.
type Config struct {
	Admitter  Admitter
	Clock     clock.Clock
	Logger    *zap.Logger
	Publisher events.Publisher
}

// Service evaluates requests. It is safe for concurrent use.
type Service struct {
	admitter  Admitter
	evaluator *promo.Evaluator
	resolver  *bundle.Resolver
	clock     clock.Clock
	logger    *zap.Logger
	publisher events.Publisher
}

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Admitter == nil {
		return nil, fmt.Errorf("policy: admitter is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	return &Service{
		admitter:  cfg.Admitter,
		evaluator: promo.NewEvaluator(cfg.Clock),
		resolver:  bundle.NewResolver(cfg.Clock),
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
	}, nil
}

// Evaluate runs admission and, only if admitted, prices req.Items against
// snap. It never returns an error: failures are reported through
// Result.Status so callers can tell a denial from a broken system.
// A nil snap is treated as an empty catalog.
func (s *Service) Evaluate(ctx context.Context, req Request, snap *catalog.Snapshot) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("policy evaluation panicked",
				zap.String("identifier", req.Identifier),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			res = Result{Status: StatusInternalError, Message: msgInternal, Admission: res.Admission}
		}
		s.publish(ctx, req, res)
	}()

	decision, err := s.admitter.Check(ctx, req.Identifier, req.Limit)
	if err != nil {
		if errors.Is(err, admission.ErrInvalidIdentifier) {
			return Result{Status: StatusInvalidInput, Message: err.Error()}
		}
		s.logger.Error("admission check failed", zap.String("identifier", req.Identifier), zap.Error(err))
		return Result{Status: StatusInternalError, Message: msgInternal}
	}
	if !decision.Allowed {
		retry := decision.RetryAfterSeconds()
		return Result{
			Status:     StatusRateLimited,
			Message:    fmt.Sprintf("Too many requests. Please try again in %d seconds.", retry),
			Admission:  decision,
			RetryAfter: retry,
		}
	}

	if err := cart.Validate(req.Items); err != nil {
		return Result{Status: StatusInvalidInput, Message: err.Error(), Admission: decision}
	}
	if req.UserUsageCount < 0 {
		return Result{Status: StatusInvalidInput, Message: promo.ErrInvalidUsage.Error(), Admission: decision}
	}

	res, err = s.price(req, snap)
	if err != nil {
		s.logger.Error("pricing failed", zap.String("identifier", req.Identifier), zap.Error(err))
		return Result{Status: StatusInternalError, Message: msgInternal, Admission: decision}
	}
	res.Admission = decision
	return res
}

func (s *Service) price(req Request, snap *catalog.Snapshot) (Result, error) {
	var (
		promos  *promo.Catalog
		bundles []bundle.Bundle
		version string
	)
	if snap != nil {
		promos, bundles, version = snap.Promos, snap.Bundles, snap.Version
	}

	res := Result{
		Status:         StatusOK,
		Subtotal:       cart.Subtotal(req.Items),
		CatalogVersion: version,
	}

	if code := strings.TrimSpace(req.PromoCode); code != "" {
		pr, err := s.evaluator.Validate(promos, code, req.Items, req.UserUsageCount)
		if err != nil {
			return Result{}, err
		}
		res.Promo = &pr
		res.Message = pr.Message
		if pr.Valid {
			res.Discount += pr.Discount
			res.FreeShipping = pr.FreeShipping
		}
	}

	ids := cart.ProductIDs(req.Items)
	if best := s.resolver.FindBest(ids, bundles); best != nil {
		res.Bundle = best
		res.Discount += best.Savings
	}
	limit := req.SuggestionLimit
	if limit == 0 {
		limit = DefaultSuggestionLimit
	}
	res.Suggestions = s.resolver.Suggest(ids, bundles, limit)

	if res.Discount > res.Subtotal {
		res.Discount = res.Subtotal
	}
	res.Total = res.Subtotal - res.Discount
	return res, nil
}

func (s *Service) publish(ctx context.Context, req Request, res Result) {
	e := events.New(events.TypeEvaluation, s.clock.Now())
	e.Identifier = req.Identifier
	e.Route = req.Route
	e.Status = string(res.Status)
	e.Allowed = res.Admission.Allowed
	e.Remaining = res.Admission.Remaining
	e.PromoCode = promo.Normalize(req.PromoCode)
	e.Discount = res.Discount
	if res.Bundle != nil {
		e.BundleID = res.Bundle.BundleID
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("failed to publish evaluation event", zap.String("event_id", e.ID), zap.Error(err))
	}
}

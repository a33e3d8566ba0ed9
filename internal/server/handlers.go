package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/cart"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/policy"
)

type quoteRequest struct {
	Items           []cart.LineItem `json:"items"`
	PromoCode       string          `json:"promo_code"`
	UserUsageCount  int             `json:"user_usage_count"`
	SuggestionLimit int             `json:"suggestion_limit"`
}

type promoRequest struct {
	Code           string          `json:"code"`
	Items          []cart.LineItem `json:"items"`
	UserUsageCount int             `json:"user_usage_count"`
}

type bundlesRequest struct {
	ProductIDs []string `json:"product_ids"`
	Limit      int      `json:"limit"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"time":   s.clock.Now().UTC(),
	}
	if snap := s.catalog.Current(); snap != nil {
		body["catalog_version"] = snap.Version
	} else {
		body["status"] = "degraded"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleQuote(c *gin.Context) {
	var req quoteRequest
	if !s.bind(c, &req) {
		return
	}
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	res := s.evaluate(c, snap, req.Items, req.PromoCode, req.UserUsageCount, req.SuggestionLimit)
	if !s.writeFailure(c, res) {
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePromo(c *gin.Context) {
	var req promoRequest
	if !s.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "code is required", RequestID: c.GetString(ctxRequestID)})
		return
	}
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	res := s.evaluate(c, snap, req.Items, req.Code, req.UserUsageCount, 0)
	if !s.writeFailure(c, res) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":         res.Promo.Valid,
		"discount":      res.Promo.Discount,
		"message":       res.Promo.Message,
		"reason":        res.Promo.Reason,
		"free_shipping": res.Promo.FreeShipping,
		"subtotal":      res.Subtotal,
	})
}

func (s *Server) handleBestBundle(c *gin.Context) {
	var req bundlesRequest
	if !s.bind(c, &req) {
		return
	}
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	items := make([]cart.LineItem, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		items = append(items, cart.LineItem{ProductID: id, Quantity: 1})
	}
	limit := req.Limit
	if limit <= 0 {
		limit = policy.DefaultSuggestionLimit
	}

	res := s.evaluate(c, snap, items, "", 0, limit)
	if !s.writeFailure(c, res) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"best":        res.Bundle,
		"suggestions": res.Suggestions,
	})
}

func (s *Server) handleListBundles(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	active := s.resolver.Active(snap.Bundles)
	out := make([]bundle.Calculation, 0, len(active))
	for _, b := range active {
		out = append(out, bundle.Calculate(b))
	}
	c.JSON(http.StatusOK, gin.H{"bundles": out})
}

func (s *Server) evaluate(c *gin.Context, snap *catalog.Snapshot, items []cart.LineItem, code string, usage, suggestions int) policy.Result {
	route := c.GetString(ctxRoute)
	return s.service.Evaluate(c.Request.Context(), policy.Request{
		Identifier:      c.GetString(ctxIdentifier),
		Route:           route,
		Limit:           s.limits(route),
		Items:           items,
		PromoCode:       code,
		UserUsageCount:  usage,
		SuggestionLimit: suggestions,
	}, snap)
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "Invalid request format",
			Details:   err.Error(),
			RequestID: c.GetString(ctxRequestID),
		})
		return false
	}
	return true
}

func (s *Server) snapshot(c *gin.Context) (*catalog.Snapshot, bool) {
	snap := s.catalog.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error:     "catalog not loaded",
			RequestID: c.GetString(ctxRequestID),
		})
		return nil, false
	}
	return snap, true
}

// writeFailure sets the rate-limit headers and, for any non-OK result,
// writes the error response. It reports whether the caller should go on
// to write a success body.
func (s *Server) writeFailure(c *gin.Context, res policy.Result) bool {
	setRateLimitHeaders(c, res.Admission)

	switch res.Status {
	case policy.StatusOK:
		return true
	case policy.StatusRateLimited:
		c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       res.Message,
			"retry_after": res.RetryAfter,
			"reset_in_ms": res.Admission.ResetInMs,
		})
	case policy.StatusInvalidInput:
		c.JSON(http.StatusBadRequest, errorResponse{Error: res.Message, RequestID: c.GetString(ctxRequestID)})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: res.Message, RequestID: c.GetString(ctxRequestID)})
	}
	return false
}

// admit runs a bare admission check for routes that do no pricing.
func (s *Server) admit(c *gin.Context) {
	route := c.GetString(ctxRoute)
	d, err := s.admitter.Check(c.Request.Context(), c.GetString(ctxIdentifier), s.limits(route))
	if err != nil {
		s.logger.Error("admission check failed", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error", RequestID: c.GetString(ctxRequestID)})
		return
	}
	setRateLimitHeaders(c, d)
	if !d.Allowed {
		c.Header("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many requests. Please try again in " + strconv.Itoa(d.RetryAfterSeconds()) + " seconds.",
			"retry_after": d.RetryAfterSeconds(),
			"reset_in_ms": d.ResetInMs,
		})
		return
	}
	c.Next()
}

func setRateLimitHeaders(c *gin.Context, d admission.Decision) {
	if d.Limit == 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

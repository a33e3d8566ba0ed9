package server

import (
	"go.uber.org/zap"

	internalserver "github.com/SmitUplenchwar2687/Tollgate/internal/server"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/policy"
)

// Server is the Tollgate HTTP server.
type Server = internalserver.Server

// Options configures optional server features.
type Options = internalserver.Options

// LimitFunc returns the admission limit for a route.
type LimitFunc = internalserver.LimitFunc

// Hub manages WebSocket clients and broadcasts evaluation events.
type Hub = internalserver.Hub

const (
	RouteQuote   = internalserver.RouteQuote
	RoutePromo   = internalserver.RoutePromo
	RouteBundles = internalserver.RouteBundles
)

// New creates a new Tollgate server. admitter must be the one backing svc.
func New(addr string, svc *policy.Service, admitter policy.Admitter, holder *catalog.Holder, limits LimitFunc, opts Options) *Server {
	return internalserver.New(addr, svc, admitter, holder, limits, opts)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return internalserver.NewHub(logger)
}

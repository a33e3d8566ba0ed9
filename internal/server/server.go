// Package server exposes the policy service over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/policy"
	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
)

// Route names, used in admission identifiers and as limit keys.
const (
	RouteQuote   = "quote"
	RoutePromo   = "promo"
	RouteBundles = "bundles"
)

// LimitFunc returns the admission limit for a route.
type LimitFunc func(route string) admission.Limit

// Options holds optional collaborators.
type Options struct {
	Hub      *Hub
	Recorder *recorder.Recorder
	Logger   *zap.Logger
	Clock    clock.Clock
}

// Server is the Tollgate HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	service    *policy.Service
	admitter   policy.Admitter
	catalog    *catalog.Holder
	resolver   *bundle.Resolver
	limits     LimitFunc
	clock      clock.Clock
	logger     *zap.Logger
	hub        *Hub
	recorder   *recorder.Recorder
}

// New creates a server. admitter must be the same one backing svc so that
// every route shares one set of counters.
func New(addr string, svc *policy.Service, admitter policy.Admitter, holder *catalog.Holder, limits LimitFunc, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewReal()
	}

	s := &Server{
		service:  svc,
		admitter: admitter,
		catalog:  holder,
		resolver: bundle.NewResolver(opts.Clock),
		limits:   limits,
		clock:    opts.Clock,
		logger:   opts.Logger,
		hub:      opts.Hub,
		recorder: opts.Recorder,
	}
	s.engine = s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/quote", s.identify(RouteQuote), s.handleQuote)
		v1.POST("/promo/validate", s.identify(RoutePromo), s.handlePromo)
		v1.POST("/bundles/best", s.identify(RouteBundles), s.handleBestBundle)
		v1.GET("/bundles", s.identify(RouteBundles), s.admit, s.handleListBundles)
	}

	if s.hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			s.hub.HandleWebSocket(c.Writer, c.Request)
		})
	}
	return r
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.logger.Info("tollgate server listening", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and disconnects websocket
// clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.hub != nil {
		_ = s.hub.Close()
	}
	return err
}

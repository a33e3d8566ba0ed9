package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
)

// gin context keys.
const (
	ctxRequestID  = "request_id"
	ctxRoute      = "route"
	ctxIdentifier = "identifier"
)

const headerRequestID = "X-Request-ID"

// requestID propagates an inbound X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// accessLog writes one line per request.
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if id := c.GetString(ctxIdentifier); id != "" {
			fields = append(fields, zap.String("identifier", id))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status == http.StatusTooManyRequests:
			logger.Info("request rate limited", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

// recovery turns a handler panic into a 500 instead of a dropped connection.
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		logger.Error("handler panicked",
			zap.Any("panic", err),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Error:     "internal error",
			RequestID: c.GetString(ctxRequestID),
		})
	})
}

// identify derives the admission identifier for route and, when recording
// is enabled, captures the request.
func (s *Server) identify(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := route + ":" + clientAddress(c.Request)
		c.Set(ctxRoute, route)
		c.Set(ctxIdentifier, id)

		if s.recorder != nil {
			err := s.recorder.Record(recorder.TrafficRecord{
				Timestamp: s.clock.Now(),
				Key:       id,
				Route:     route,
				Method:    c.Request.Method,
				Path:      c.Request.URL.Path,
				Metadata: map[string]string{
					"user_agent": c.Request.UserAgent(),
					"request_id": c.GetString(ctxRequestID),
				},
			})
			if err != nil {
				s.logger.Warn("record error", zap.Error(err))
			}
		}
		c.Next()
	}
}

// clientAddress picks the caller's address: the first X-Forwarded-For hop,
// then X-Real-IP, then the connection's remote host.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

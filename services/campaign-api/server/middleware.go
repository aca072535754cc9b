package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/pkg/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	loggerKey       = "logger"
	unmatchedRoute  = "unmatched"
)

// quietRoutes are left out of the access log; probes and scrapes would drown it.
var quietRoutes = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// RequestID reuses the caller's X-Request-ID or mints one, echoes it back and
// stores a logger tagged with it on the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Set(requestIDKey, rid)
		c.Set(loggerKey, logx.L().With("rid", rid))
		c.Next()
	}
}

// Observability records request metrics and the access log line once the
// handler has finished.
func Observability() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		lat := time.Since(start).Seconds()
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, route).Observe(lat)

		if quietRoutes[route] {
			return
		}
		reqLogger(c).Infow("http_access",
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", lat,
			"client_ip", c.ClientIP(),
		)
	}
}

// reqLogger returns the request-scoped logger, or the global one outside the
// RequestID middleware.
func reqLogger(c *gin.Context) *zap.SugaredLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.SugaredLogger); ok {
			return l
		}
	}
	return logx.L()
}

package httpcontroller

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = echo.HeaderXRequestID

// requestIDKey is the echo context key holding the request id.
const requestIDKey = "request_id"

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.RequestIDMiddleware())
	s.Echo.Use(s.MetricsMiddleware())
	s.Echo.Use(s.RequestLoggerMiddleware())
	s.Echo.Use(s.GzipMiddleware())
	s.Echo.Use(s.CacheControlMiddleware())
}

// RequestIDMiddleware assigns a short request id unless the client sent
// one, echoes it back and attaches it to the request context so loader and
// navigation logs carry it as trace_id.
func (s *Server) RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()[:8]
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(RequestIDHeader, id)
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
			return next(c)
		}
	}
}

// requestID returns the id assigned by RequestIDMiddleware.
func requestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// MetricsMiddleware records request counts and latency per route pattern.
// Unmatched paths are folded into one label value to bound cardinality.
func (s *Server) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := s.dashboardMetrics()
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				code = statusCode(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RecordHTTPRequest(c.Request().Method, path, code, time.Since(start).Seconds())
			return err
		}
	}
}

// RequestLoggerMiddleware logs each request at debug level, and at warn
// level for server errors.
func (s *Server) RequestLoggerMiddleware() echo.MiddlewareFunc {
	reqLog := s.log.Module("request")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				code = statusCode(err)
			}
			fields := []logger.Field{
				logger.String("request_id", requestID(c)),
				logger.String("method", c.Request().Method),
				logger.String("uri", c.Request().RequestURI),
				logger.Int("status", code),
				logger.Int64("bytes_out", c.Response().Size),
				logger.Duration("latency", time.Since(start)),
				logger.String("client_ip", c.RealIP()),
			}
			if code >= http.StatusInternalServerError {
				reqLog.Warn("request failed", append(fields, logger.Error(err))...)
			} else {
				reqLog.Debug("request", fields...)
			}
			return err
		}
	}
}

// GzipMiddleware configures Gzip compression for the server
func (s *Server) GzipMiddleware() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     6,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	})
}

// CacheControlMiddleware disables caching for pages and API responses;
// they reflect the data source at request time.
func (s *Server) CacheControlMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			switch {
			case path == "/" || strings.HasPrefix(path, "/api/"):
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
			case path == "/healthz":
				c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
			}
			c.Response().Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
			return next(c)
		}
	}
}

// statusCode extracts the HTTP status an error will be rendered with.
func statusCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// Package httpcontroller serves the dashboard pages and the JSON API.
package httpcontroller

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/dashboard"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/navigation"
	"github.com/villedieurio/evened-web/internal/observability"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// shutdownTimeout bounds graceful shutdown once the serve context ends.
const shutdownTimeout = 10 * time.Second

// Server encapsulates the echo instance and what the handlers need.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	loader   navigation.Loader
	metrics  *observability.Metrics
	log      logger.Logger
	options  dashboard.Options
	renderer *TemplateRenderer
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics enables request and render metrics. /metrics is served only
// when telemetry is enabled in the settings as well.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides time.Now for relative timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the server and registers every route. Nothing listens until
// Start.
func New(settings *conf.Settings, l navigation.Loader, opts ...Option) (*Server, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("httpcontroller").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Server{
		Echo:     echo.New(),
		Settings: settings,
		loader:   l,
		log:      logger.NewNopLogger(),
		options:  dashboard.OptionsFromSettings(settings),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Module("http")

	if err := s.initializeServer(); err != nil {
		return nil, err
	}
	return s, nil
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() error {
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Debug = s.Settings.WebServer.Debug
	s.initLogger()

	if err := s.setupTemplateRenderer(); err != nil {
		return err
	}

	s.Echo.HTTPErrorHandler = s.errorHandler
	s.configureMiddleware()
	s.initRoutes()
	return nil
}

// initLogger routes echo's own logger through the structured logger.
func (s *Server) initLogger() {
	s.Echo.Logger.SetOutput(&echoLogAdapter{log: s.log.Module("echo")})
	if s.Settings.WebServer.Debug {
		s.Echo.Logger.SetLevel(gommonlog.DEBUG)
	} else {
		s.Echo.Logger.SetLevel(gommonlog.WARN)
	}
}

// Start listens on the configured port until ctx is done, then shuts the
// server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := ":" + s.Settings.WebServer.Port
	errChan := make(chan error, 1)

	go func() {
		errChan <- s.Echo.Start(addr)
	}()

	s.log.Info("HTTP server started", logger.String("addr", addr))

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryNetwork).
			Context("addr", addr).
			Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	return nil
}

// recorder returns the operation recorder for per request controllers.
func (s *Server) recorder() metrics.Recorder {
	return s.metrics.Recorder()
}

// dashboardMetrics returns the HTTP and render collectors, or nil.
func (s *Server) dashboardMetrics() *metrics.DashboardMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Dashboard
}

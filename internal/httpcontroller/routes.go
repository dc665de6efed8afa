package httpcontroller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/villedieurio/evened-web/internal/dashboard"
	"github.com/villedieurio/evened-web/internal/loader"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/navigation"
)

// initRoutes initializes the routes for the server.
func (s *Server) initRoutes() {
	s.Echo.GET("/", s.handleIndex)
	s.Echo.GET("/healthz", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/feed", s.handleFeed)
	api.GET("/sessions/:id", s.handleSession)

	if s.Settings.Telemetry.Enabled && s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler(s.log.Module("metrics"))))
		s.log.Debug("metrics endpoint enabled", logger.String("path", "/metrics"))
	}
}

// handleIndex renders the feed or a session from the query string. Every
// request gets its own navigation controller; a failed session load falls
// back to the feed with the failure in the status area, so the page is
// always served with 200.
func (s *Server) handleIndex(c echo.Context) error {
	ctx := c.Request().Context()
	nav := navigation.New(s.loader,
		navigation.WithLogger(s.log.WithContext(ctx)),
		navigation.WithRecorder(s.recorder()))

	if err := nav.PopState(ctx, c.QueryString()); err != nil {
		s.log.Debug("page rendered with load failure",
			logger.String("request_id", requestID(c)),
			logger.Error(err))
	}

	snap := nav.Snapshot()
	page := dashboard.BuildPage(snap, s.options.WithQuery(nav.Params()), s.now())
	return c.Render(http.StatusOK, PageTemplate, page)
}

// handleFeed serves the sorted and filtered session list.
func (s *Server) handleFeed(c echo.Context) error {
	doc, err := s.loader.Feed(c.Request().Context())
	if err != nil {
		return s.HandleError(c, err, "failed to load feed", loadErrorStatus(err))
	}
	opts := s.options.WithQuery(c.QueryParams())
	return c.JSON(http.StatusOK, dashboard.BuildFeed(doc, opts, s.now()))
}

// sessionResponse is the session view plus load metadata.
type sessionResponse struct {
	*dashboard.SessionView
	Timeseries loader.TimeseriesState `json:"timeseries"`
	LoadedAt   time.Time              `json:"loaded_at"`
}

// handleSession serves one session's rendered panels.
func (s *Server) handleSession(c echo.Context) error {
	id := c.Param("id")
	sess, err := s.loader.Load(c.Request().Context(), id)
	if err != nil {
		status := loadErrorStatus(err)
		message := "failed to load session"
		if status == http.StatusNotFound {
			message = "session not found"
		}
		return s.HandleError(c, err, message, status)
	}

	opts := s.options.WithQuery(c.QueryParams())
	return c.JSON(http.StatusOK, sessionResponse{
		SessionView: dashboard.BuildSession(sess, opts),
		Timeseries:  sess.TimeseriesState,
		LoadedAt:    sess.LoadedAt,
	})
}

// handleHealth reports liveness. It does not touch the data source.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Settings.Version,
	})
}

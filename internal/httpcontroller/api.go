package httpcontroller

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // matches the server log entry
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.New().String()[:8],
	}
}

// HandleError logs err under a fresh correlation id and writes it as an
// ErrorResponse.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("request_id", requestID(c)),
		logger.String("path", c.Request().URL.Path),
		logger.Int("code", code),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		s.log.Error(message, fields...)
	} else {
		s.log.Info(message, fields...)
	}

	return c.JSON(code, resp)
}

// loadErrorStatus maps a loader failure to the status the API answers with.
// The data source sits behind the server, so its failures are gateway
// errors rather than internal ones.
func loadErrorStatus(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// errorHandler renders errors escaping handlers: JSON under /api/, plain
// text elsewhere.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusCode(err)
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	var werr error
	switch {
	case strings.HasPrefix(c.Request().URL.Path, "/api/"):
		werr = s.HandleError(c, err, message, code)
	case c.Request().Method == http.MethodHead:
		werr = c.NoContent(code)
	default:
		if code >= http.StatusInternalServerError {
			s.log.Error("request failed",
				logger.String("request_id", requestID(c)),
				logger.String("path", c.Request().URL.Path),
				logger.Error(err))
		}
		werr = c.String(code, message)
	}
	if werr != nil {
		s.log.Debug("writing error response failed", logger.Error(werr))
	}
}

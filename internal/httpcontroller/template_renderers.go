package httpcontroller

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// ViewsFs holds the page templates.
//
//go:embed views/*.html
var ViewsFs embed.FS

// PageTemplate is the template rendering a dashboard.Page.
const PageTemplate = "index"

// TemplateRenderer is a custom HTML template renderer for Echo framework.
// It is also used directly by the render command.
type TemplateRenderer struct {
	templates *template.Template
	log       logger.Logger
	metrics   *metrics.DashboardMetrics
}

// NewTemplateRenderer parses the embedded templates. m may be nil.
func NewTemplateRenderer(log logger.Logger, m *metrics.DashboardMetrics) (*TemplateRenderer, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	tmpl, err := template.New("").Funcs(templateFunctions()).ParseFS(ViewsFs, "views/*.html")
	if err != nil {
		return nil, errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryRender).
			Context("operation", "parse_templates").
			Build()
	}
	return &TemplateRenderer{templates: tmpl, log: log.Module("render"), metrics: m}, nil
}

// Render implements echo.Renderer.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return t.Execute(w, name, data)
}

// Execute renders template name into a buffer first so a failing template
// never leaves a partial page on w.
func (t *TemplateRenderer) Execute(w io.Writer, name string, data any) error {
	start := time.Now()

	var buf bytes.Buffer
	err := t.templates.ExecuteTemplate(&buf, name, data)
	if t.metrics != nil {
		t.metrics.RecordTemplateRender(name, time.Since(start).Seconds(), err)
	}
	if err != nil {
		t.log.Error("template execution failed", logger.String("template", name), logger.Error(err))
		return errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryRender).
			Context("template", name).
			Build()
	}

	if _, err := buf.WriteTo(w); err != nil {
		t.log.Debug("writing template result failed", logger.Error(err))
		return err
	}
	return nil
}

// setupTemplateRenderer configures the template renderer for the server
func (s *Server) setupTemplateRenderer() error {
	r, err := NewTemplateRenderer(s.log, s.dashboardMetrics())
	if err != nil {
		return err
	}
	s.renderer = r
	s.Echo.Renderer = r
	return nil
}

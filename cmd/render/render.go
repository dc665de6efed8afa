// Package render implements the render command: it builds a dashboard page
// offline, exactly as the server would for the same query, and writes it as
// HTML or plain text.
package render

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"time"

	"github.com/k3a/html2text"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/villedieurio/evened-web/internal/app"
	"github.com/villedieurio/evened-web/internal/dashboard"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/httpcontroller"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/navigation"
)

// Output formats.
const (
	FormatHTML = "html"
	FormatText = "text"
)

// Options control one render.
type Options struct {
	SessionID string
	Format    string
	// Query holds view refinements as URL query parameters.
	Query url.Values
	View  dashboard.Options
}

// Command creates the render command.
func Command(ctx *app.Context) *cobra.Command {
	var (
		opts   Options
		output string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the feed or a session page to a file",
		Long:  "Render the dashboard page for the feed, or for one session with --session, as HTML or plain text.",
		Example: `  evened render --session 2024-02-01_forest -o forest.html
  evened render --format text --sort species`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Query = viewQuery(cmd)
			opts.View = dashboard.OptionsFromSettings(ctx.Settings)

			l, err := ctx.NewLoader()
			if err != nil {
				return err
			}

			renderer, err := httpcontroller.NewTemplateRenderer(ctx.Logger, nil)
			if err != nil {
				return err
			}
			render := func(w io.Writer) error {
				return Render(cmd.Context(), l, renderer, opts, w, ctx.Logger, time.Now())
			}

			if output == "" {
				return render(cmd.OutOrStdout())
			}
			return WriteFile(afero.NewOsFs(), output, render)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.SessionID, "session", "", "Session id to render; the feed when empty")
	flags.StringVar(&opts.Format, "format", FormatHTML, "Output format: html or text")
	flags.StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	flags.String("metric", "", "Rank top species by count or duration")
	flags.String("query", "", "Only keep events matching this text")
	flags.Bool("only-detected", false, "Only keep events with public detections")
	flags.Bool("only-multi", false, "Only keep events with several species")
	flags.String("sort", "", "Feed order: newest, duration, species or detections")
	flags.String("feed-query", "", "Only list sessions matching this text")

	return cmd
}

// viewFlags maps view flags to the query parameters the server reads.
var viewFlags = map[string]string{
	"metric":        dashboard.ParamMetric,
	"query":         dashboard.ParamEventQuery,
	"only-detected": dashboard.ParamOnlyDetected,
	"only-multi":    dashboard.ParamOnlyMulti,
	"sort":          dashboard.ParamFeedSort,
	"feed-query":    dashboard.ParamFeedQuery,
}

// viewQuery turns the view flags set on the command line into query
// parameters. Unset flags are left out so configured defaults apply.
func viewQuery(cmd *cobra.Command) url.Values {
	q := url.Values{}
	for name, param := range viewFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		q.Set(param, f.Value.String())
	}
	return q
}

// WriteFile creates path on fs, passes it to write and closes it. A failed
// close is reported like a failed write.
func WriteFile(fs afero.Fs, path string, write func(io.Writer) error) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return outputError(err, path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			cerr = outputError(cerr, path)
			if err == nil {
				err = cerr
			} else {
				err = errors.Join(err, cerr)
			}
		}
	}()
	return write(f)
}

func outputError(err error, path string) error {
	return errors.New(err).
		Component("render").
		Category(errors.CategoryFileIO).
		Context("output", path).
		Build()
}

// Render navigates to the requested view and writes the page. A session
// that fails to load is rendered as the feed with the failure in the status
// line, like in the browser, and the load error is returned after the page
// is written.
func Render(ctx context.Context, l navigation.Loader, r *httpcontroller.TemplateRenderer, opts Options, w io.Writer, log logger.Logger, now time.Time) error {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.Module("render")

	if opts.Format != FormatHTML && opts.Format != FormatText {
		return errors.Newf("unknown format %q", opts.Format).
			Component("render").
			Category(errors.CategoryValidation).
			Context("format", opts.Format).
			Build()
	}

	nav := navigation.New(l, navigation.WithLogger(log))
	var loadErr error
	if opts.SessionID != "" {
		loadErr = nav.Select(ctx, opts.SessionID)
	} else {
		loadErr = nav.Home(ctx)
	}
	if loadErr != nil {
		log.Warn("rendering with load failure", logger.Error(loadErr))
	}

	page := dashboard.BuildPage(nav.Snapshot(), opts.View.WithQuery(opts.Query), now)
	if opts.Format == FormatText && page.Session != nil {
		// the chart drawing has no text form; its note is kept
		page.Session.Chart.Labels = nil
	}

	var buf bytes.Buffer
	if err := r.Execute(&buf, httpcontroller.PageTemplate, page); err != nil {
		return err
	}

	out := buf.Bytes()
	if opts.Format == FormatText {
		out = []byte(html2text.HTML2TextWithOptions(buf.String(), html2text.WithUnixLineBreaks(), html2text.WithLinksInnerText()) + "\n")
	}
	if _, err := w.Write(out); err != nil {
		return errors.New(err).
			Component("render").
			Category(errors.CategoryFileIO).
			Build()
	}

	log.Debug("page rendered",
		logger.String("state", string(page.State)),
		logger.String("format", opts.Format),
		logger.Int("bytes", len(out)))
	return loadErr
}

package render

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villedieurio/evened-web/internal/dashboard"
	"github.com/villedieurio/evened-web/internal/datasource"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/httpcontroller"
	"github.com/villedieurio/evened-web/internal/loader"
)

const testFeed = `{
  "updated_at": "2024-05-02T08:00:00Z",
  "sessions": [
    {
      "session_id": "s1",
      "title": "Forest edge",
      "start_time": "2024-02-01T10:00:00",
      "paths": {"session": "s1/session.json", "events": "s1/events.csv", "detections": "s1/detections.csv", "timeseries": "s1/timeseries.csv"}
    }
  ]
}`

const testSummary = `{"session": {"title": "Forest edge"}, "recorder": {"device": "AudioMoth", "version": "1.8"}, "stats_public": {"events_count": 1}}`

const testEvents = `event_id,start_time,end_time,duration_s,public_detections_count,public_species_unique,public_top_species_by_count,public_top_species_by_duration,public_total_duration_s
ev-1,2024-02-01T10:00:00,2024-02-01T10:00:12,12,2,1,American Crow,American Crow,4
`

const testDetections = `species_code,common_name,confidence,detection_duration_s,is_public
amecro,American Crow,0.9,2,true
`

const testTimeseries = `timestamp,rms_p95,threshold
2024-02-01T10:00:00,0.1,0.2
`

var testNow = time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC)

func newTestLoader(t *testing.T) *loader.Loader {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/feed.json":         testFeed,
		"/s1/session.json":   testSummary,
		"/s1/events.csv":     testEvents,
		"/s1/detections.csv": testDetections,
		"/s1/timeseries.csv": testTimeseries,
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return loader.New(datasource.NewDirFs(fs, "/"), "feed.json")
}

func newRenderer(t *testing.T) *httpcontroller.TemplateRenderer {
	t.Helper()
	r, err := httpcontroller.NewTemplateRenderer(nil, nil)
	require.NoError(t, err)
	return r
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opts        Options
		contains    []string
		notContains []string
	}{
		{
			name:     "feed as html",
			opts:     Options{Format: FormatHTML},
			contains: []string{"<!DOCTYPE html>", "Evened — Sessions", "/?session=s1"},
		},
		{
			name:     "session as html",
			opts:     Options{SessionID: "s1", Format: FormatHTML},
			contains: []string{"Evened — Forest edge", "AudioMoth • v1.8", "<svg", "American Crow"},
		},
		{
			name:        "session as text",
			opts:        Options{SessionID: "s1", Format: FormatText},
			contains:    []string{"Evened — Forest edge", "American Crow", "1 / 1 events", "1 points"},
			notContains: []string{"<svg", "<td>", "font-family"},
		},
		{
			name:     "event filter from query",
			opts:     Options{SessionID: "s1", Format: FormatText, Query: url.Values{dashboard.ParamEventQuery: {"nothing"}}},
			contains: []string{"0 / 1 events", "No events."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.opts.View = dashboard.DefaultOptions()
			var buf bytes.Buffer
			err := Render(t.Context(), newTestLoader(t), newRenderer(t), tt.opts, &buf, nil, testNow)

			require.NoError(t, err)
			out := buf.String()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestRenderUnknownSessionWritesFeed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := Options{SessionID: "nope", Format: FormatHTML, View: dashboard.DefaultOptions()}

	err := Render(t.Context(), newTestLoader(t), newRenderer(t), opts, &buf, nil, testNow)

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, buf.String(), "Error: ")
	assert.Contains(t, buf.String(), "Evened — Sessions")
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := Options{Format: "pdf", View: dashboard.DefaultOptions()}

	err := Render(t.Context(), newTestLoader(t), newRenderer(t), opts, &buf, nil, testNow)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, buf.Len())
}

func TestViewQuery(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "render"}
	cmd.Flags().String("metric", "", "")
	cmd.Flags().String("query", "", "")
	cmd.Flags().Bool("only-detected", false, "")
	cmd.Flags().Bool("only-multi", false, "")
	cmd.Flags().String("sort", "", "")
	cmd.Flags().String("feed-query", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--metric", "duration", "--only-detected"}))

	q := viewQuery(cmd)

	assert.Equal(t, url.Values{
		dashboard.ParamMetric:       {"duration"},
		dashboard.ParamOnlyDetected: {"true"},
	}, q)
	assert.False(t, strings.Contains(q.Encode(), dashboard.ParamFeedSort))
}

// closeFailFs hands out files whose Close fails after closing the real file.
type closeFailFs struct{ afero.Fs }

type closeFailFile struct{ afero.File }

func (fs closeFailFs) Create(name string) (afero.File, error) {
	f, err := fs.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return closeFailFile{f}, nil
}

func (f closeFailFile) Close() error {
	_ = f.File.Close()
	return errors.NewStd("no space left on device")
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	err := WriteFile(fs, "out/page.html", func(w io.Writer) error {
		_, err := io.WriteString(w, "<html></html>")
		return err
	})

	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "out/page.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestWriteFileReportsCloseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		writeErr error
	}{
		{"write succeeded", nil},
		{"write failed", errors.NewStd("session not found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := WriteFile(closeFailFs{afero.NewMemMapFs()}, "page.html", func(w io.Writer) error {
				_, _ = io.WriteString(w, "<html>")
				return tt.writeErr
			})

			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
			assert.Contains(t, err.Error(), "no space left on device")
			if tt.writeErr != nil {
				assert.True(t, errors.Is(err, tt.writeErr))
			}
		})
	}
}

func TestWriteFileCreateError(t *testing.T) {
	t.Parallel()

	called := false
	err := WriteFile(afero.NewReadOnlyFs(afero.NewMemMapFs()), "page.html", func(io.Writer) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.False(t, called)
}

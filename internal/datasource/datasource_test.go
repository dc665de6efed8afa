package datasource

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/httpclient"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		feedPath string
		ref      string
		want     string
	}{
		{"feed at root", "feed.json", "s1/session.json", "s1/session.json"},
		{"feed in subdirectory", "data/feed.json", "s1/events.csv", "data/s1/events.csv"},
		{"dot segments", "data/feed.json", "./s1/../s2/events.csv", "data/s2/events.csv"},
		{"rooted ref unchanged", "data/feed.json", "/other/events.csv", "/other/events.csv"},
		{"absolute URL ref unchanged", "data/feed.json", "https://cdn.example.org/a.csv", "https://cdn.example.org/a.csv"},
		{"absolute feed URL", "https://example.org/evened/feed.json", "s1/session.json", "https://example.org/evened/s1/session.json"},
		{"empty ref", "data/feed.json", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(tt.feedPath, tt.ref))
		})
	}
}

func newMemDir(t *testing.T, files map[string]string) (*Dir, *metrics.TestRecorder) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	rec := metrics.NewTestRecorder()
	return NewDirFs(fs, "/mem", WithRecorder(rec)), rec
}

func TestDirFetch(t *testing.T) {
	t.Parallel()

	dir, rec := newMemDir(t, map[string]string{
		"/feed.json":          `{"sessions": []}`,
		"/s1/events.csv":      "event_id\nev-1\n",
		"/s1/nested/file.txt": "x",
	})

	data, err := dir.Fetch(t.Context(), "feed.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessions": []}`, string(data))

	data, err = dir.Fetch(t.Context(), "./s1/../s1/events.csv")
	require.NoError(t, err)
	assert.Equal(t, "event_id\nev-1\n", string(data))

	assert.Equal(t, 2, rec.OperationCount(metrics.OpFetchDir, metrics.StatusSuccess))
	assert.Equal(t, 2, rec.DurationCount(metrics.OpFetchDir))
}

func TestDirFetchErrors(t *testing.T) {
	t.Parallel()

	dir, rec := newMemDir(t, map[string]string{"/s1/events.csv": "x"})

	tests := []struct {
		name     string
		path     string
		category errors.ErrorCategory
	}{
		{"missing file", "s1/detections.csv", errors.CategoryFileIO},
		{"directory", "s1", errors.CategoryFileIO},
		{"url", "https://example.org/feed.json", errors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := dir.Fetch(t.Context(), tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.CategoryOf(err))
		})
	}

	t.Cleanup(func() {
		assert.Equal(t, 3, rec.OperationCount(metrics.OpFetchDir, metrics.StatusError))
		assert.Equal(t, 2, rec.ErrorCount(metrics.OpFetchDir, string(errors.CategoryFileIO)))
	})
}

func TestDirFetchCanceledContext(t *testing.T) {
	t.Parallel()

	dir, _ := newMemDir(t, map[string]string{"/feed.json": "{}"})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := dir.Fetch(ctx, "feed.json")

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestDirCannotEscapeRoot(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/secret.txt", []byte("secret"), 0o644))
	require.NoError(t, afero.WriteFile(base, "/data/feed.json", []byte("{}"), 0o644))
	dir := NewDirFs(afero.NewBasePathFs(base, "/data"), "/data")

	_, err := dir.Fetch(t.Context(), "../secret.txt")
	require.Error(t, err)

	data, err := dir.Fetch(t.Context(), "feed.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func newMockedHTTP(t *testing.T, baseURL string) (*HTTP, *metrics.TestRecorder) {
	t.Helper()
	client := httpclient.New(&httpclient.Config{DefaultTimeout: 5 * time.Second})
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	rec := metrics.NewTestRecorder()
	src, err := NewHTTP(baseURL, client, WithRecorder(rec))
	require.NoError(t, err)
	return src, rec
}

// httpmock activation swaps the client's transport, so these tests do not
// run in parallel with each other.
func TestHTTPFetch(t *testing.T) {
	src, rec := newMockedHTTP(t, "https://data.example.org/evened")

	httpmock.RegisterResponder(http.MethodGet, "https://data.example.org/evened/s1/session.json",
		httpmock.NewStringResponder(http.StatusOK, `{"session": {}}`))

	data, err := src.Fetch(t.Context(), "s1/session.json")

	require.NoError(t, err)
	assert.JSONEq(t, `{"session": {}}`, string(data))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, 1, rec.OperationCount(metrics.OpFetchHTTP, metrics.StatusSuccess))
}

func TestHTTPFetchStatusError(t *testing.T) {
	src, rec := newMockedHTTP(t, "https://data.example.org/evened/")

	httpmock.RegisterResponder(http.MethodGet, "https://data.example.org/evened/s1/timeseries.csv",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	_, err := src.Fetch(t.Context(), "s1/timeseries.csv")

	require.Error(t, err)
	assert.Equal(t, "HTTP 404 s1/timeseries.csv", err.Error())
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Equal(t, 1, rec.ErrorCount(metrics.OpFetchHTTP, string(errors.CategoryNetwork)))
}

func TestHTTPFetchTransportError(t *testing.T) {
	src, _ := newMockedHTTP(t, "https://data.example.org/")

	httpmock.RegisterResponder(http.MethodGet, "https://data.example.org/feed.json",
		httpmock.NewErrorResponder(assert.AnError))

	_, err := src.Fetch(t.Context(), "feed.json")

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewHTTPRejectsRelativeBase(t *testing.T) {
	t.Parallel()

	_, err := NewHTTP("data/evened", nil)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNew(t *testing.T) {
	t.Parallel()

	dir, err := New(&conf.SourceSettings{Type: conf.SourceTypeDir, Path: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "dir", dir.Name())

	remote, err := New(&conf.SourceSettings{Type: conf.SourceTypeHTTP, BaseURL: "http://localhost:9000/", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "http", remote.Name())

	_, err = New(&conf.SourceSettings{Type: "ftp"})
	require.Error(t, err)
}

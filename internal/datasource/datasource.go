// Package datasource fetches feed and session files by path, from a local
// directory or from a web server.
package datasource

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/httpclient"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// MaxFileSize bounds the size of a single fetched file.
const MaxFileSize = 64 << 20

// Source returns the bytes stored at a path.
type Source interface {
	// Fetch returns the content at p. p is relative to the source root.
	Fetch(ctx context.Context, p string) ([]byte, error)
	// Name identifies the source kind in logs and metrics.
	Name() string
}

type options struct {
	log      logger.Logger
	recorder metrics.Recorder
}

// Option configures a Source.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = metrics.OrNop(r)
	}
}

func applyOptions(opts []Option) options {
	o := options{
		log:      logger.NewNopLogger(),
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.Module("datasource")
	return o
}

// New builds the Source described by settings.
func New(settings *conf.SourceSettings, opts ...Option) (Source, error) {
	switch settings.Type {
	case conf.SourceTypeDir, "":
		return NewDir(settings.Path, opts...), nil
	case conf.SourceTypeHTTP:
		client := httpclient.New(&httpclient.Config{
			DefaultTimeout: settings.Timeout,
			UserAgent:      settings.UserAgent,
			RateLimit:      settings.RateLimit,
		})
		return NewHTTP(settings.BaseURL, client, opts...)
	default:
		return nil, errors.Newf("unknown source type %q", settings.Type).
			Component("datasource").
			Category(errors.CategoryConfiguration).
			Context("source_type", settings.Type).
			Build()
	}
}

// Resolve resolves ref against the directory of the feed document at
// feedPath. Absolute URLs and rooted paths are returned unchanged.
func Resolve(feedPath, ref string) string {
	if ref == "" || isAbsoluteURL(ref) || strings.HasPrefix(ref, "/") {
		return ref
	}
	if isAbsoluteURL(feedPath) {
		base, err := url.Parse(feedPath)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return base.ResolveReference(r).String()
	}
	return path.Join(path.Dir(feedPath), ref)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// record reports the outcome of one fetch.
func record(r metrics.Recorder, op, source string, start time.Time, size int, err error) {
	r.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		r.RecordOperation(op, metrics.StatusError)
		r.RecordError(op, string(errors.CategoryOf(err)))
		return
	}
	r.RecordOperation(op, metrics.StatusSuccess)
	if sr, ok := r.(metrics.SizeRecorder); ok {
		sr.RecordFetchSize(source, size)
	}
}

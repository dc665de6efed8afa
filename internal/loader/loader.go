// Package loader fetches and assembles everything the dashboard shows for
// one session: the feed entry, the summary document, the events and
// detections tables and the optional timeseries.
package loader

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/villedieurio/evened-web/internal/csvtable"
	"github.com/villedieurio/evened-web/internal/datasource"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/events"
	"github.com/villedieurio/evened-web/internal/feed"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
	"github.com/villedieurio/evened-web/internal/session"
	"github.com/villedieurio/evened-web/internal/species"
	"github.com/villedieurio/evened-web/internal/timeseries"
)

// DefaultFeedPath is the feed document path used when none is configured.
const DefaultFeedPath = "feed.json"

// TimeseriesState tells whether a session's chart has data.
type TimeseriesState string

const (
	// TimeseriesLoaded means the table was fetched and parsed.
	TimeseriesLoaded TimeseriesState = "loaded"
	// TimeseriesAbsent means the feed entry names no timeseries file.
	TimeseriesAbsent TimeseriesState = "absent"
	// TimeseriesUnavailable means the fetch failed; the chart shows no data.
	TimeseriesUnavailable TimeseriesState = "unavailable"
)

// Session is a fully loaded session. It is never handed out partially built.
type Session struct {
	ID         string
	Entry      feed.Entry
	Summary    *session.Summary
	Events     []events.Event
	Detections []species.Detection
	// Species holds the public per-species aggregates in encounter order.
	Species         []species.Summary
	Timeseries      []timeseries.Point
	TimeseriesState TimeseriesState
	LoadedAt        time.Time
}

// SummaryHook receives a session summary as soon as it parses, before the
// tables arrive.
type SummaryHook func(id string, summary *session.Summary)

// Loader loads feeds and sessions from a datasource.Source.
type Loader struct {
	src         datasource.Source
	feedPath    string
	timeout     time.Duration
	log         logger.Logger
	recorder    metrics.Recorder
	summaryHook SummaryHook
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(l *Loader) {
		l.recorder = metrics.OrNop(r)
	}
}

// WithTimeout bounds a whole Load or Feed call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithSummaryHook registers fn for progressive display.
func WithSummaryHook(fn SummaryHook) Option {
	return func(l *Loader) {
		l.summaryHook = fn
	}
}

// New returns a Loader reading the feed document at feedPath from src.
func New(src datasource.Source, feedPath string, opts ...Option) *Loader {
	if feedPath == "" {
		feedPath = DefaultFeedPath
	}
	l := &Loader{
		src:      src,
		feedPath: feedPath,
		log:      logger.NewNopLogger(),
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Module("loader")
	return l
}

// FeedPath returns the configured feed document path.
func (l *Loader) FeedPath() string {
	return l.feedPath
}

func (l *Loader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

// Feed fetches and parses the feed document.
func (l *Loader) Feed(ctx context.Context) (doc *feed.Document, err error) {
	start := time.Now()
	defer func() { l.observe(metrics.OpFeedLoad, start, err) }()

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	data, err := l.src.Fetch(ctx, l.feedPath)
	if err != nil {
		return nil, err
	}
	return feed.Parse(data)
}

// Load fetches session id. The summary is fetched first; the events and
// detections tables are then fetched concurrently with the optional
// timeseries. A missing or failing timeseries never fails the load.
func (l *Loader) Load(ctx context.Context, id string) (s *Session, err error) {
	start := time.Now()
	defer func() { l.observe(metrics.OpSessionLoad, start, err) }()

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	doc, err := l.Feed(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := doc.Find(id)
	if !ok || id == "" {
		return nil, errors.Newf("session %q not found", id).
			Component("loader").
			Category(errors.CategoryNotFound).
			Context("session_id", id).
			Build()
	}
	if err := validatePaths(&entry); err != nil {
		return nil, err
	}

	resolve := func(ref string) string { return datasource.Resolve(l.feedPath, ref) }

	summaryData, err := l.src.Fetch(ctx, resolve(entry.Paths.Session))
	if err != nil {
		return nil, err
	}
	summary, err := session.ParseSummary(summaryData)
	if err != nil {
		return nil, err
	}
	if l.summaryHook != nil {
		l.summaryHook(id, summary)
	}

	var (
		evs        []events.Event
		dets       []species.Detection
		points     []timeseries.Point
		tsState    = TimeseriesAbsent
		g, gctx    = errgroup.WithContext(ctx)
		eventsPath = resolve(entry.Paths.Events)
		detsPath   = resolve(entry.Paths.Detections)
	)

	g.Go(func() error {
		data, err := l.src.Fetch(gctx, eventsPath)
		if err != nil {
			return err
		}
		evs = events.FromRecords(csvtable.Parse(string(data)))
		return nil
	})
	g.Go(func() error {
		data, err := l.src.Fetch(gctx, detsPath)
		if err != nil {
			return err
		}
		dets = species.DetectionsFromRecords(csvtable.Parse(string(data)))
		return nil
	})
	if entry.Paths.Timeseries != "" {
		tsPath := resolve(entry.Paths.Timeseries)
		g.Go(func() error {
			points, tsState = l.loadTimeseries(gctx, id, tsPath)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s = &Session{
		ID:              id,
		Entry:           entry,
		Summary:         summary,
		Events:          evs,
		Detections:      dets,
		Species:         species.Aggregate(dets),
		Timeseries:      points,
		TimeseriesState: tsState,
		LoadedAt:        time.Now(),
	}

	l.log.Info("session loaded",
		logger.String("session_id", id),
		logger.Int("events", len(evs)),
		logger.Int("detections", len(dets)),
		logger.Int("species", len(s.Species)),
		logger.String("timeseries", string(tsState)),
		logger.Duration("elapsed", time.Since(start)),
		logger.Time("loaded_at", s.LoadedAt))

	return s, nil
}

func (l *Loader) loadTimeseries(ctx context.Context, id, p string) ([]timeseries.Point, TimeseriesState) {
	data, err := l.src.Fetch(ctx, p)
	if err != nil {
		l.recorder.RecordOperation(metrics.OpTimeseriesLoad, metrics.StatusMissing)
		l.log.Debug("timeseries unavailable, chart disabled",
			logger.String("session_id", id),
			logger.String("path", p),
			logger.Error(err))
		return nil, TimeseriesUnavailable
	}
	l.recorder.RecordOperation(metrics.OpTimeseriesLoad, metrics.StatusSuccess)
	return timeseries.FromRecords(csvtable.Parse(string(data))), TimeseriesLoaded
}

func validatePaths(entry *feed.Entry) error {
	required := []struct{ name, value string }{
		{"session", entry.Paths.Session},
		{"events", entry.Paths.Events},
		{"detections", entry.Paths.Detections},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.Newf("session %q has no %s path", entry.SessionID, r.name).
				Component("loader").
				Category(errors.CategoryFileParsing).
				Context("session_id", entry.SessionID).
				Context("path", r.name).
				Build()
		}
	}
	return nil
}

func (l *Loader) observe(op string, start time.Time, err error) {
	l.recorder.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		l.recorder.RecordOperation(op, metrics.StatusError)
		l.recorder.RecordError(op, string(errors.CategoryOf(err)))
		return
	}
	l.recorder.RecordOperation(op, metrics.StatusSuccess)
}

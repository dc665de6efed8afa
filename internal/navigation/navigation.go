// Package navigation implements the feed/session view state machine.
//
// The controller owns the state. The URL query is only its serialization:
// ?session=<id> selects a session, no parameter shows the feed. Every load
// is tagged with a sequence number and completions of superseded loads are
// dropped, so the newest navigation always wins.
package navigation

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/feed"
	"github.com/villedieurio/evened-web/internal/loader"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// SessionParam is the URL query parameter holding the session id.
const SessionParam = "session"

// State is a view state.
type State string

const (
	// StateFeed lists all sessions.
	StateFeed State = "FEED"
	// StateSession shows one session.
	StateSession State = "SESSION"
)

// Loader is what the controller needs from the session loader.
type Loader interface {
	Feed(ctx context.Context) (*feed.Document, error)
	Load(ctx context.Context, id string) (*loader.Session, error)
}

// Snapshot is a consistent view of the controller for rendering.
type Snapshot struct {
	State     State
	SessionID string
	// Status is a user visible message, set when a load failed.
	Status  string
	Feed    *feed.Document
	Session *loader.Session
	URL     string
}

// Controller mediates view transitions. Safe for concurrent use.
type Controller struct {
	loader   Loader
	basePath string
	log      logger.Logger
	recorder metrics.Recorder

	mu        sync.Mutex
	seq       uint64
	state     State
	sessionID string
	status    string
	params    url.Values
	feedDoc   *feed.Document
	session   *loader.Session
	history   []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Controller) {
		c.recorder = metrics.OrNop(r)
	}
}

// WithBasePath sets the path URL renders query strings onto. Default "/".
func WithBasePath(p string) Option {
	return func(c *Controller) {
		if p != "" {
			c.basePath = p
		}
	}
}

// New returns a controller in the FEED state. Nothing is loaded until the
// first transition.
func New(l Loader, opts ...Option) *Controller {
	c := &Controller{
		loader:   l,
		basePath: "/",
		log:      logger.NewNopLogger(),
		recorder: metrics.NopRecorder{},
		state:    StateFeed,
		params:   url.Values{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Module("navigation")
	return c
}

// Select shows session id and pushes its URL. Refinement parameters of the
// previous view are dropped.
func (c *Controller) Select(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set(SessionParam, id)
	return c.navigate(ctx, params, true)
}

// Home shows the feed and pushes the bare URL.
func (c *Controller) Home(ctx context.Context) error {
	return c.navigate(ctx, url.Values{}, true)
}

// PopState re-derives the state from a URL query string, as after browser
// back/forward or when a bookmarked URL is opened. Other parameters are kept.
func (c *Controller) PopState(ctx context.Context, rawQuery string) error {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		c.log.Debug("ignoring malformed query", logger.String("query", rawQuery), logger.Error(err))
		params = url.Values{}
	}
	return c.navigate(ctx, params, false)
}

// Back pops the newest history entry and restores the one before it. It
// reports false when there is nothing to go back to.
func (c *Controller) Back(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if len(c.history) < 2 {
		c.mu.Unlock()
		return false, nil
	}
	c.history = c.history[:len(c.history)-1]
	prev := c.history[len(c.history)-1]
	c.mu.Unlock()

	u, err := url.Parse(prev)
	if err != nil {
		return true, err
	}
	return true, c.PopState(ctx, u.RawQuery)
}

// navigate enters the state described by params. The returned error is the
// load failure, if any; the controller itself is always left consistent.
func (c *Controller) navigate(ctx context.Context, params url.Values, push bool) error {
	start := time.Now()
	id := params.Get(SessionParam)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.params = params
	c.status = ""
	c.session = nil
	if id != "" {
		c.state, c.sessionID = StateSession, id
	} else {
		c.state, c.sessionID = StateFeed, ""
		params.Del(SessionParam)
	}
	if push {
		c.history = append(c.history, c.urlLocked())
	}
	c.mu.Unlock()

	var err error
	if id != "" {
		err = c.enterSession(ctx, seq, id)
	} else {
		err = c.enterFeed(ctx, seq, "")
	}

	c.recorder.RecordDuration(metrics.OpNavigation, time.Since(start).Seconds())
	switch {
	case errors.Is(err, errStale):
		c.recorder.RecordOperation(metrics.OpNavigation, metrics.StatusStale)
		return nil
	case err != nil:
		c.recorder.RecordOperation(metrics.OpNavigation, metrics.StatusError)
		c.recorder.RecordError(metrics.OpNavigation, string(errors.CategoryOf(err)))
		return err
	default:
		c.recorder.RecordOperation(metrics.OpNavigation, metrics.StatusSuccess)
		return nil
	}
}

var errStale = errors.NewStd("superseded by a newer navigation")

func (c *Controller) enterSession(ctx context.Context, seq uint64, id string) error {
	s, err := c.loader.Load(ctx, id)

	c.mu.Lock()
	if latest := c.seq; seq != latest {
		c.mu.Unlock()
		c.log.Debug("discarding stale session load",
			logger.String("session_id", id),
			logger.Uint64("seq", seq),
			logger.Uint64("latest", latest))
		return errStale
	}
	if err == nil {
		c.session = s
		c.mu.Unlock()
		return nil
	}

	// fall back to the feed with the failure in the status area
	status := StatusMessage(err)
	c.state, c.sessionID, c.session = StateFeed, "", nil
	c.params.Del(SessionParam)
	c.mu.Unlock()

	c.log.Warn("session load failed, showing feed",
		logger.String("session_id", id),
		logger.String("category", string(errors.CategoryOf(err))),
		logger.Error(err))

	if ferr := c.enterFeed(ctx, seq, status); ferr != nil && !errors.Is(ferr, errStale) {
		return errors.Join(err, ferr)
	}
	return err
}

func (c *Controller) enterFeed(ctx context.Context, seq uint64, status string) error {
	doc, err := c.loader.Feed(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return errStale
	}
	c.status = status
	if err != nil {
		c.feedDoc = nil
		c.status = joinStatus(status, StatusMessage(err))
		return err
	}
	c.feedDoc = doc
	return nil
}

// StatusMessage renders err for the status area.
func StatusMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		msg = "unknown error"
	}
	return "Error: " + msg
}

func joinStatus(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " / " + b
	}
}

// State returns the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// URL renders the current state as a relative URL.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urlLocked()
}

func (c *Controller) urlLocked() string {
	params := url.Values{}
	for k, v := range c.params {
		if k != SessionParam {
			params[k] = slices.Clone(v)
		}
	}
	if c.state == StateSession {
		params.Set(SessionParam, c.sessionID)
	}
	if len(params) == 0 {
		return c.basePath
	}
	return c.basePath + "?" + params.Encode()
}

// Params returns a copy of the current query parameters.
func (c *Controller) Params() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := url.Values{}
	for k, v := range c.params {
		out[k] = slices.Clone(v)
	}
	return out
}

// History returns the pushed URLs, oldest first.
func (c *Controller) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:     c.state,
		SessionID: c.sessionID,
		Status:    c.status,
		Feed:      c.feedDoc,
		Session:   c.session,
		URL:       c.urlLocked(),
	}
}

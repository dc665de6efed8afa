// Package dashboard turns loaded feed and session data into the view models
// rendered by the HTML templates, the JSON API and the CLI.
package dashboard

import (
	"net/url"
	"time"

	"github.com/villedieurio/evened-web/internal/events"
	"github.com/villedieurio/evened-web/internal/feed"
	"github.com/villedieurio/evened-web/internal/format"
	"github.com/villedieurio/evened-web/internal/loader"
	"github.com/villedieurio/evened-web/internal/navigation"
	"github.com/villedieurio/evened-web/internal/session"
	"github.com/villedieurio/evened-web/internal/species"
)

// DefaultAppName prefixes page titles.
const DefaultAppName = "Evened"

// TruncationNote is shown below an events table cut at events.MaxRows.
const TruncationNote = "Display limited to 600 rows (refine the filter to narrow down)."

// KPI is one headline number.
type KPI struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Header is the session page header.
type Header struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	DevicePill string `json:"device_pill"`
	ParamsPill string `json:"params_pill"`
}

// SpeciesRow is one row of the top species table.
type SpeciesRow struct {
	Rank          int    `json:"rank"`
	CommonName    string `json:"common_name"`
	SpeciesCode   string `json:"species_code"`
	Detections    string `json:"detections"`
	Duration      string `json:"duration"`
	ConfidenceMax string `json:"confidence_max"`
}

// EventRow is one row of the events table.
type EventRow struct {
	Index         int    `json:"index"`
	EventID       string `json:"event_id"`
	TimeRange     string `json:"time_range"`
	Duration      string `json:"duration"`
	Detections    string `json:"detections"`
	SpeciesUnique string `json:"species_unique"`
	// TopSpecies is empty when the event has no public species.
	TopSpecies    string `json:"top_species,omitempty"`
	TotalDuration string `json:"total_duration"`
}

// EventsTable is the filtered events table.
type EventsTable struct {
	Rows       []EventRow   `json:"rows"`
	CountLabel string       `json:"count_label"`
	Filtered   int          `json:"filtered"`
	Total      int          `json:"total"`
	Truncated  bool         `json:"truncated"`
	Note       string       `json:"note,omitempty"`
	Query      events.Query `json:"-"`
}

// SessionView is everything shown for one session.
type SessionView struct {
	ID            string       `json:"session_id"`
	Header        Header       `json:"header"`
	KPIs          []KPI        `json:"kpis"`
	Species       []SpeciesRow `json:"top_species"`
	SpeciesMetric string       `json:"species_metric"`
	Events        EventsTable  `json:"events"`
	Chart         Chart        `json:"chart"`
}

// FeedCard summarizes one session in the feed list.
type FeedCard struct {
	SessionID  string   `json:"session_id"`
	Title      string   `json:"title"`
	TimeRange  string   `json:"time_range"`
	Location   string   `json:"location,omitempty"`
	Duration   string   `json:"duration"`
	Events     string   `json:"events"`
	Species    string   `json:"species"`
	Detections string   `json:"detections"`
	TopSpecies []string `json:"top_species"`
	Href       string   `json:"href"`
}

// FeedView is the session list.
type FeedView struct {
	Cards           []FeedCard `json:"sessions"`
	Count           int        `json:"count"`
	Total           int        `json:"total"`
	Sort            string     `json:"sort"`
	Query           string     `json:"query,omitempty"`
	UpdatedAt       string     `json:"updated_at,omitempty"`
	UpdatedRelative string     `json:"updated_relative,omitempty"`
}

// Page is a complete dashboard page.
type Page struct {
	Title   string           `json:"title"`
	State   navigation.State `json:"state"`
	Status  string           `json:"status,omitempty"`
	URL     string           `json:"url"`
	Feed    *FeedView        `json:"feed,omitempty"`
	Session *SessionView     `json:"session,omitempty"`
	Options Options          `json:"-"`
}

// BuildHeader renders the session header. The title falls back to
// "Session", the device to "Device" and unknown parameters to "?".
func BuildHeader(appName string, s *session.Summary) Header {
	title := s.Title()
	if title == "" {
		title = "Session"
	}
	subtitle := s.Info.StartTime + " → " + s.Info.EndTime
	if s.Info.LocationName != "" {
		subtitle += " • " + s.Info.LocationName
	}

	device := s.Recorder.Device
	if device == "" {
		device = "Device"
	}
	version := s.Recorder.Version
	if version == "" {
		version = "?"
	}

	thr := "thr ?"
	if v, ok := s.Param("threshold"); ok {
		thr = "thr " + v
	}
	minEvent := "minEvent ?"
	if v, ok := s.Param("min_event_duration_s"); ok {
		minEvent = "minEvent " + v + "s"
	}

	return Header{
		Title:      appName + " — " + title,
		Subtitle:   subtitle,
		DevicePill: device + " • v" + version,
		ParamsPill: thr + " • " + minEvent,
	}
}

// BuildKPIs renders the headline numbers from the preferred statistics and
// records blocks.
func BuildKPIs(s *session.Summary) []KPI {
	return []KPI{
		{"Total duration", format.Seconds(s.Stat("duration_total_s"))},
		{"Events", format.Number(s.Stat("events_count"), 0)},
		{"Active time", format.Seconds(s.Stat("active_time_s"))},
		{"Active ratio", format.Percent(s.Stat("active_ratio"), 1)},
		{"Detections (public)", format.Number(s.Stat("detections_count"), 0)},
		{"Species (public)", format.Number(s.Stat("species_unique_count"), 0)},
		{"Max event", format.Seconds(s.Stat("event_duration_max_s"))},
		{"Max confidence", format.Number(s.Record("highest_confidence"), 4)},
	}
}

// BuildSpecies renders the n first species by metric.
func BuildSpecies(list []species.Summary, metric string, n int) []SpeciesRow {
	top := species.Top(list, metric, n)
	rows := make([]SpeciesRow, len(top))
	for i, s := range top {
		rows[i] = SpeciesRow{
			Rank:          i + 1,
			CommonName:    s.CommonName,
			SpeciesCode:   s.SpeciesCode,
			Detections:    format.Number(float64(s.Detections), 0),
			Duration:      format.Seconds(s.DurationS),
			ConfidenceMax: format.Number(s.ConfidenceMax, 4),
		}
	}
	return rows
}

// BuildEvents filters and renders the events table.
func BuildEvents(all []events.Event, q events.Query) EventsTable {
	res := events.Filter(all, q)
	t := EventsTable{
		Rows:       make([]EventRow, len(res.Rows)),
		CountLabel: res.CountLabel(),
		Filtered:   res.Filtered,
		Total:      res.Total,
		Truncated:  res.Truncated(),
		Query:      q,
	}
	for i := range res.Rows {
		e := &res.Rows[i]
		t.Rows[i] = EventRow{
			Index:         i + 1,
			EventID:       e.EventID,
			TimeRange:     format.Clock(e.StartTime) + " → " + format.Clock(e.EndTime),
			Duration:      format.Seconds(e.DurationS),
			Detections:    format.Number(e.PublicDetectionsCount, 0),
			SpeciesUnique: format.Number(e.PublicSpeciesUnique, 0),
			TopSpecies:    e.PublicTopSpeciesByCount,
			TotalDuration: format.Seconds(e.PublicTotalDurationS),
		}
	}
	if t.Truncated {
		t.Note = TruncationNote
	}
	return t
}

// BuildSession renders a loaded session.
func BuildSession(s *loader.Session, o Options) *SessionView {
	return &SessionView{
		ID:            s.ID,
		Header:        BuildHeader(o.AppName, s.Summary),
		KPIs:          BuildKPIs(s.Summary),
		Species:       BuildSpecies(s.Species, o.SpeciesMetric, o.TopSpecies),
		SpeciesMetric: normalizeMetric(o.SpeciesMetric),
		Events:        BuildEvents(s.Events, o.Events),
		Chart:         BuildChart(s.Timeseries),
	}
}

// BuildFeed sorts, filters and renders the feed.
func BuildFeed(doc *feed.Document, o Options, now time.Time) *FeedView {
	mode := feed.NormalizeSort(o.FeedSort)
	entries := feed.Apply(doc.Sessions, mode, o.FeedQuery)

	v := &FeedView{
		Cards:     make([]FeedCard, len(entries)),
		Count:     len(entries),
		Total:     len(doc.Sessions),
		Sort:      mode,
		Query:     o.FeedQuery,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.UpdatedAt != "" {
		v.UpdatedRelative = format.Relative(format.ParseTime(doc.UpdatedAt), now)
	}
	for i := range entries {
		v.Cards[i] = buildCard(&entries[i])
	}
	return v
}

func buildCard(e *feed.Entry) FeedCard {
	title := e.Title
	if title == "" {
		title = e.SessionID
	}
	top := make([]string, 0, len(e.TopSpeciesPublic))
	for _, s := range e.TopSpeciesPublic {
		name := s.CommonName
		if name == "" {
			name = s.SpeciesCode
		}
		top = append(top, name)
	}
	return FeedCard{
		SessionID:  e.SessionID,
		Title:      title,
		TimeRange:  e.StartTime + " → " + e.EndTime,
		Location:   e.LocationName,
		Duration:   format.Seconds(e.KPIsPublic.DurationTotalS),
		Events:     format.Number(e.KPIsPublic.EventsCount, 0),
		Species:    format.Number(e.KPIsPublic.SpeciesUniqueCount, 0),
		Detections: format.Number(e.KPIsPublic.DetectionsCount, 0),
		TopSpecies: top,
		Href:       SessionHref(e.SessionID),
	}
}

// SessionHref links to a session page.
func SessionHref(id string) string {
	return "/?" + url.Values{navigation.SessionParam: {id}}.Encode()
}

// BuildPage renders a navigation snapshot.
func BuildPage(snap navigation.Snapshot, o Options, now time.Time) *Page {
	p := &Page{
		Title:   o.AppName,
		State:   snap.State,
		Status:  snap.Status,
		URL:     snap.URL,
		Options: o,
	}
	switch {
	case snap.State == navigation.StateSession && snap.Session != nil:
		p.Session = BuildSession(snap.Session, o)
		p.Title = p.Session.Header.Title
	case snap.Feed != nil:
		p.Feed = BuildFeed(snap.Feed, o, now)
		p.Title = o.AppName + " — Sessions"
	}
	return p
}

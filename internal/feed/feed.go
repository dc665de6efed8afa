// Package feed parses the session feed document and sorts and filters its
// entries.
package feed

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/villedieurio/evened-web/internal/errors"
)

// Sort modes.
const (
	SortNewest     = "newest"
	SortDuration   = "duration"
	SortSpecies    = "species"
	SortDetections = "detections"
)

// SortModes lists the accepted sort modes, default first.
var SortModes = []string{SortNewest, SortDuration, SortSpecies, SortDetections}

// Document is the feed listing all sessions.
type Document struct {
	UpdatedAt string  `json:"updated_at,omitempty"`
	Sessions  []Entry `json:"sessions"`
}

// Entry summarizes one session.
type Entry struct {
	SessionID        string       `json:"session_id"`
	Title            string       `json:"title"`
	StartTime        string       `json:"start_time"`
	EndTime          string       `json:"end_time"`
	LocationName     string       `json:"location_name"`
	KPIsPublic       KPIs         `json:"kpis_public"`
	TopSpeciesPublic []TopSpecies `json:"top_species_public"`
	Paths            Paths        `json:"paths"`
}

// KPIs are the public headline numbers of a session. Missing values decode
// as 0.
type KPIs struct {
	DurationTotalS     float64 `json:"duration_total_s"`
	EventsCount        float64 `json:"events_count"`
	SpeciesUniqueCount float64 `json:"species_unique_count"`
	DetectionsCount    float64 `json:"detections_count"`
}

// TopSpecies is one entry of a session's bounded top species list.
type TopSpecies struct {
	SpeciesCode string  `json:"species_code"`
	CommonName  string  `json:"common_name"`
	Detections  float64 `json:"detections,omitempty"`
}

// Paths locate a session's files, relative to the feed document.
type Paths struct {
	Session    string `json:"session"`
	Events     string `json:"events"`
	Detections string `json:"detections"`
	Timeseries string `json:"timeseries,omitempty"`
}

// Parse decodes a feed document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(err).
			Component("feed").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_feed").
			Build()
	}
	if doc.Sessions == nil {
		doc.Sessions = []Entry{}
	}
	return &doc, nil
}

// Find returns the entry for sessionID.
func (d *Document) Find(sessionID string) (Entry, bool) {
	for i := range d.Sessions {
		if d.Sessions[i].SessionID == sessionID {
			return d.Sessions[i], true
		}
	}
	return Entry{}, false
}

// NormalizeSort maps unknown modes to SortNewest.
func NormalizeSort(mode string) string {
	if slices.Contains(SortModes, mode) {
		return mode
	}
	return SortNewest
}

// Apply returns a copy of entries sorted by mode, descending, keeping only
// those matching query. Unknown modes sort by newest.
func Apply(entries []Entry, mode, query string) []Entry {
	out := slices.Clone(entries)
	Sort(out, mode)
	return Filter(out, query)
}

// Sort sorts entries in place, descending by mode. The sort is stable.
func Sort(entries []Entry, mode string) {
	switch NormalizeSort(mode) {
	case SortDuration:
		sortByNumber(entries, func(e *Entry) float64 { return e.KPIsPublic.DurationTotalS })
	case SortSpecies:
		sortByNumber(entries, func(e *Entry) float64 { return e.KPIsPublic.SpeciesUniqueCount })
	case SortDetections:
		sortByNumber(entries, func(e *Entry) float64 { return e.KPIsPublic.DetectionsCount })
	default:
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return strings.Compare(b.StartTime, a.StartTime)
		})
	}
}

func sortByNumber(entries []Entry, key func(*Entry) float64) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		ka, kb := key(&a), key(&b)
		switch {
		case ka > kb:
			return -1
		case ka < kb:
			return 1
		default:
			return 0
		}
	})
}

// Filter keeps the entries whose session id, title, location or top species
// names and codes contain query, case-insensitively. An empty query keeps
// everything.
func Filter(entries []Entry, query string) []Entry {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for i := range entries {
		if strings.Contains(entries[i].haystack(), needle) {
			out = append(out, entries[i])
		}
	}
	return out
}

func (e *Entry) haystack() string {
	parts := []string{e.SessionID, e.Title, e.LocationName}
	for _, s := range e.TopSpeciesPublic {
		parts = append(parts, s.CommonName, s.SpeciesCode)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

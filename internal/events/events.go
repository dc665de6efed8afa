// Package events filters a session's event table.
package events

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/villedieurio/evened-web/internal/csvtable"
)

// MaxRows is the number of matching events rendered at most.
const MaxRows = 600

// Event is one row of a session's events table.
type Event struct {
	EventID                    string  `json:"event_id"`
	StartTime                  string  `json:"start_time"`
	EndTime                    string  `json:"end_time"`
	DurationS                  float64 `json:"duration_s"`
	PublicDetectionsCount      float64 `json:"public_detections_count"`
	PublicSpeciesUnique        float64 `json:"public_species_unique"`
	PublicTopSpeciesByCount    string  `json:"public_top_species_by_count"`
	PublicTopSpeciesByDuration string  `json:"public_top_species_by_duration"`
	PublicTotalDurationS       float64 `json:"public_total_duration_s"`
}

// Query holds the event table refinements. All set predicates must hold.
type Query struct {
	Text         string
	OnlyDetected bool
	OnlyMulti    bool
}

// Result is a filtered event table.
type Result struct {
	// Rows holds at most MaxRows matches in source order.
	Rows []Event
	// Filtered is the number of matches before truncation.
	Filtered int
	Total    int
}

// Truncated reports whether matches were left out of Rows.
func (r Result) Truncated() bool {
	return r.Filtered > len(r.Rows)
}

// CountLabel renders "filtered / total events".
func (r Result) CountLabel() string {
	return fmt.Sprintf("%d / %d events", r.Filtered, r.Total)
}

// Matches reports whether e satisfies q.
func (q Query) Matches(e *Event) bool {
	if q.OnlyDetected && !(e.PublicDetectionsCount > 0) {
		return false
	}
	if q.OnlyMulti && !(e.PublicSpeciesUnique >= 2) {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return true
	}
	return strings.Contains(e.haystack(), needle)
}

func (e *Event) haystack() string {
	return strings.ToLower(strings.Join([]string{
		e.EventID,
		e.PublicTopSpeciesByCount,
		e.PublicTopSpeciesByDuration,
		numberString(e.PublicSpeciesUnique),
		numberString(e.PublicDetectionsCount),
	}, " "))
}

// Filter returns the events matching q in source order, keeping at most
// MaxRows of them.
func Filter(all []Event, q Query) Result {
	res := Result{Total: len(all), Rows: []Event{}}
	for i := range all {
		if !q.Matches(&all[i]) {
			continue
		}
		res.Filtered++
		if len(res.Rows) < MaxRows {
			res.Rows = append(res.Rows, all[i])
		}
	}
	return res
}

// FromRecords maps events table rows. An empty duration_s is 0 and an
// unparsable one NaN; the public counts and total fall back to 0.
func FromRecords(records []csvtable.Record) []Event {
	out := make([]Event, 0, len(records))
	for _, r := range records {
		out = append(out, Event{
			EventID:                    r["event_id"],
			StartTime:                  r["start_time"],
			EndTime:                    r["end_time"],
			DurationS:                  parseDuration(r["duration_s"]),
			PublicDetectionsCount:      parseOrZero(r["public_detections_count"]),
			PublicSpeciesUnique:        parseOrZero(r["public_species_unique"]),
			PublicTopSpeciesByCount:    r["public_top_species_by_count"],
			PublicTopSpeciesByDuration: r["public_top_species_by_duration"],
			PublicTotalDurationS:       parseOrZero(r["public_total_duration_s"]),
		})
	}
	return out
}

func parseDuration(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parseOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

func numberString(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

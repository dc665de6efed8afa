// Package species aggregates per-species statistics from detection records.
package species

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/villedieurio/evened-web/internal/csvtable"
)

// NoCall is the species code the classifier emits for "no species".
const NoCall = "nocall"

// DefaultTopN is the number of species shown in the top species table.
const DefaultTopN = 12

// Sort metrics.
const (
	MetricCount    = "count"
	MetricDuration = "duration"
)

// Detection is one row of a session's detections table. Numeric fields are
// NaN when empty or unparsable.
type Detection struct {
	SpeciesCode        string
	CommonName         string
	Confidence         float64
	DetectionDurationS float64
	TStartS            float64
	TEndS              float64
	IsPublic           any
}

// Summary holds the aggregate statistics of one species.
type Summary struct {
	SpeciesCode   string  `json:"species_code"`
	CommonName    string  `json:"common_name"`
	Detections    int     `json:"detections"`
	DurationS     float64 `json:"duration_s"`
	ConfidenceMax float64 `json:"confidence_max"`
}

// Truthy reports whether v is one of the accepted spellings of true: a
// native true, or "true", "1" or "yes" in any case. Everything else is false.
func Truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(b) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

// Duration returns the detection length: detection_duration_s when finite,
// else t_end_s - t_start_s when finite, else 0.
func (d *Detection) Duration() float64 {
	if finite(d.DetectionDurationS) {
		return d.DetectionDurationS
	}
	if span := d.TEndS - d.TStartS; finite(span) {
		return span
	}
	return 0
}

// Aggregate reduces detections to one Summary per public species code other
// than NoCall, in order of first encounter.
func Aggregate(dets []Detection) []Summary {
	index := make(map[string]int)
	var out []Summary

	for i := range dets {
		d := &dets[i]
		if !Truthy(d.IsPublic) {
			continue
		}
		code := d.SpeciesCode
		if code == "" || code == NoCall {
			continue
		}

		pos, ok := index[code]
		if !ok {
			name := d.CommonName
			if name == "" {
				name = code
			}
			out = append(out, Summary{SpeciesCode: code, CommonName: name})
			pos = len(out) - 1
			index[code] = pos
		}

		s := &out[pos]
		s.Detections++
		s.DurationS += d.Duration()
		conf := d.Confidence
		if !finite(conf) {
			conf = 0
		}
		s.ConfidenceMax = math.Max(s.ConfidenceMax, conf)
	}

	return out
}

// SortByDetections sorts list by detection count, descending. Ties keep
// their relative order.
func SortByDetections(list []Summary) {
	slices.SortStableFunc(list, func(a, b Summary) int {
		return b.Detections - a.Detections
	})
}

// SortByDuration sorts list by summed duration, descending. Ties keep their
// relative order.
func SortByDuration(list []Summary) {
	slices.SortStableFunc(list, func(a, b Summary) int {
		switch {
		case a.DurationS > b.DurationS:
			return -1
		case a.DurationS < b.DurationS:
			return 1
		default:
			return 0
		}
	})
}

// Sort sorts list by metric. Any metric other than MetricDuration sorts by
// detection count.
func Sort(list []Summary, metric string) {
	if metric == MetricDuration {
		SortByDuration(list)
		return
	}
	SortByDetections(list)
}

// Top returns a sorted copy of list truncated to n entries.
func Top(list []Summary, metric string, n int) []Summary {
	out := slices.Clone(list)
	Sort(out, metric)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DetectionsFromRecords maps detections table rows.
func DetectionsFromRecords(records []csvtable.Record) []Detection {
	out := make([]Detection, 0, len(records))
	for _, r := range records {
		out = append(out, Detection{
			SpeciesCode:        r["species_code"],
			CommonName:         r["common_name"],
			Confidence:         ParseFloat(r["confidence"]),
			DetectionDurationS: ParseFloat(r["detection_duration_s"]),
			TStartS:            ParseFloat(r["t_start_s"]),
			TEndS:              ParseFloat(r["t_end_s"]),
			IsPublic:           r["is_public"],
		})
	}
	return out
}

// ParseFloat parses s strictly, returning NaN when s is empty or invalid.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

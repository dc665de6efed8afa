// Package timeseries maps the optional per-session level timeseries table.
package timeseries

import (
	"strconv"

	"github.com/villedieurio/evened-web/internal/csvtable"
	"github.com/villedieurio/evened-web/internal/format"
)

// Series labels.
const (
	LabelLevel     = "rms_p95"
	LabelThreshold = "threshold"
)

// Point is one timeseries sample.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Level     float64 `json:"rms_p95"`
	Threshold float64 `json:"threshold"`
}

// FromRecords maps timeseries rows. Level is rms_p95 when set, else
// rms_mean when set, else 0; an empty threshold is 0. Unparsable values are
// 0 so a chart always receives finite data.
func FromRecords(records []csvtable.Record) []Point {
	out := make([]Point, 0, len(records))
	for _, r := range records {
		level := r["rms_p95"]
		if level == "" {
			level = r["rms_mean"]
		}
		out = append(out, Point{
			Timestamp: r["timestamp"],
			Level:     parse(level),
			Threshold: parse(r["threshold"]),
		})
	}
	return out
}

// Labels returns the hh:mm:ss part of each timestamp.
func Labels(points []Point) []string {
	out := make([]string, len(points))
	for i := range points {
		out[i] = format.Clock(points[i].Timestamp)
	}
	return out
}

// Levels returns the level values.
func Levels(points []Point) []float64 {
	out := make([]float64, len(points))
	for i := range points {
		out[i] = points[i].Level
	}
	return out
}

// Thresholds returns the threshold values.
func Thresholds(points []Point) []float64 {
	out := make([]float64, len(points))
	for i := range points {
		out[i] = points[i].Threshold
	}
	return out
}

func parse(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !format.IsFinite(f) {
		return 0
	}
	return f
}

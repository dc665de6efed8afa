// Package session reads the per-session summary document.
//
// Summary files come from several exporter versions and their statistic
// blocks are loosely typed, so the document is kept as a jason object and
// read through typed accessors. The public variants of the statistic and
// record blocks win over the unrestricted ones when present.
package session

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/antonholmquist/jason"

	"github.com/villedieurio/evened-web/internal/errors"
)

// Block names in the summary document.
const (
	BlockStats         = "stats"
	BlockStatsPublic   = "stats_public"
	BlockRecords       = "records"
	BlockRecordsPublic = "records_public"
)

// Info is the session block of the summary.
type Info struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	LocationName string `json:"location_name,omitempty"`
}

// Recorder is the recorder block. Version is kept as written, numbers
// included.
type Recorder struct {
	Device  string `json:"device"`
	Version string `json:"version"`
}

// Summary is a parsed session summary.
type Summary struct {
	Info     Info
	Recorder Recorder

	root    *jason.Object
	stats   *jason.Object
	records *jason.Object

	statsBlock   string
	recordsBlock string
}

// ParseSummary decodes a summary document. The session block is required.
func ParseSummary(data []byte) (*Summary, error) {
	root, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_summary").
			Build()
	}

	sess, err := root.GetObject("session")
	if err != nil {
		return nil, errors.Newf("summary has no session object").
			Component("session").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_summary").
			Build()
	}

	s := &Summary{root: root}
	s.Info = Info{
		SessionID:    text(sess, "session_id"),
		Title:        text(sess, "title"),
		StartTime:    text(sess, "start_time"),
		EndTime:      text(sess, "end_time"),
		LocationName: text(sess, "location", "name"),
	}
	s.Recorder = Recorder{
		Device:  text(root, "recorder", "device"),
		Version: text(root, "recorder", "version"),
	}
	s.stats, s.statsBlock = preferred(root, BlockStatsPublic, BlockStats)
	s.records, s.recordsBlock = preferred(root, BlockRecordsPublic, BlockRecords)

	return s, nil
}

// preferred returns the first of the named blocks that is present and not
// null, with its name.
func preferred(root *jason.Object, names ...string) (*jason.Object, string) {
	for _, name := range names {
		v, err := root.GetValue(name)
		if err != nil || v.Null() == nil {
			continue
		}
		obj, err := v.Object()
		if err != nil {
			// present but not an object: nothing readable, still preferred
			return nil, name
		}
		return obj, name
	}
	return nil, ""
}

// Stat returns a number from the preferred statistics block, NaN when
// absent or not numeric.
func (s *Summary) Stat(key string) float64 {
	return number(s.stats, key)
}

// Record returns a number from the preferred records block, NaN when absent
// or not numeric.
func (s *Summary) Record(key string) float64 {
	return number(s.records, key)
}

// StatsBlock names the statistics block in use, "" when there is none.
func (s *Summary) StatsBlock() string {
	return s.statsBlock
}

// RecordsBlock names the records block in use, "" when there is none.
func (s *Summary) RecordsBlock() string {
	return s.recordsBlock
}

// Param returns a params entry rendered as text. ok is false when the entry
// is missing or null.
func (s *Summary) Param(key string) (value string, ok bool) {
	v, err := s.root.GetValue("params", key)
	if err != nil || v.Null() == nil {
		return "", false
	}
	return render(v), true
}

// Title returns the session title.
func (s *Summary) Title() string {
	return s.Info.Title
}

func text(obj *jason.Object, keys ...string) string {
	if obj == nil {
		return ""
	}
	v, err := obj.GetValue(keys...)
	if err != nil || v.Null() == nil {
		return ""
	}
	return render(v)
}

func render(v *jason.Value) string {
	switch x := v.Interface().(type) {
	case string:
		return x
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := v.Marshal()
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func number(obj *jason.Object, key string) float64 {
	if obj == nil {
		return math.NaN()
	}
	v, err := obj.GetValue(key)
	if err != nil {
		return math.NaN()
	}
	if f, err := v.Float64(); err == nil {
		return f
	}
	if str, err := v.String(); err == nil {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

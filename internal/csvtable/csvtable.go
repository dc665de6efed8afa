// Package csvtable parses the small comma separated tables exported next to
// each session (events, detections, timeseries).
//
// The parser is line oriented and permissive: a quoted field never spans
// lines, a missing field maps to "" and surplus fields are ignored. A quote
// left open at the end of a line takes the rest of that line literally.
package csvtable

import (
	"regexp"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Record maps a trimmed header name to a trimmed field value.
type Record map[string]string

// Get returns the value for key, or "" when the column is absent.
func (r Record) Get(key string) string {
	return r[key]
}

// Table is a parsed table with its header in column order.
type Table struct {
	Header  []string
	Records []Record
}

// Column returns the values of one column in record order.
func (t *Table) Column(name string) []string {
	out := make([]string, len(t.Records))
	for i, rec := range t.Records {
		out[i] = rec[name]
	}
	return out
}

// Parse returns the data records of text. Header-only or empty input yields
// an empty slice.
func Parse(text string) []Record {
	return ParseTable(text).Records
}

// ParseTable parses text into a Table.
func ParseTable(text string) *Table {
	table := &Table{Records: []Record{}}

	text = strings.TrimSpace(text)
	if text == "" {
		return table
	}

	lines := lineBreak.Split(text, -1)
	header := SplitLine(lines[0])
	table.Header = make([]string, len(header))
	for i, h := range header {
		table.Header[i] = strings.TrimSpace(h)
	}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := SplitLine(line)
		rec := make(Record, len(table.Header))
		for j, name := range table.Header {
			value := ""
			if j < len(fields) {
				value = strings.TrimSpace(fields[j])
			}
			rec[name] = value
		}
		table.Records = append(table.Records, rec)
	}

	return table
}

// SplitLine splits one line into raw, untrimmed fields. A `"` toggles quoted
// mode, `""` inside quotes is a literal quote and commas inside quotes are
// data.
func SplitLine(line string) []string {
	var (
		out []string
		cur strings.Builder
		inQ bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQ && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQ = !inQ
		case c == ',' && !inQ:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	return append(out, cur.String())
}

// Package format turns numbers and timestamps into dashboard display strings.
// Every helper is total: NaN and infinities render as Placeholder.
package format

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/dustin/go-humanize"
)

// Placeholder is rendered for missing or non-finite values.
const Placeholder = "—"

// IsFinite reports whether x is neither NaN nor an infinity.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Seconds renders a duration given in seconds, rounded half up to whole
// seconds: "1h 01m", "1m 30s" or "45s".
func Seconds(x float64) string {
	if !IsFinite(x) {
		return Placeholder
	}

	// hours stay float64: finite inputs may exceed the int64 range
	sec := math.Floor(x + 0.5)
	h := math.Floor(sec / 3600)
	m := int64(math.Floor(math.Mod(sec, 3600) / 60))
	r := int64(math.Mod(sec, 60))

	switch {
	case h > 0:
		return fmt.Sprintf("%.0fh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, r)
	default:
		return fmt.Sprintf("%ds", r)
	}
}

// Number renders x in fixed point with digits decimals. Rounding works on
// the exact binary value of x and exact ties round away from zero, so
// Number(1.115, 2) is "1.11" and Number(-2.5, 0) is "-3".
func Number(x float64, digits int) string {
	if !IsFinite(x) {
		return Placeholder
	}
	if digits < 0 {
		digits = 0
	}
	return new(big.Rat).SetFloat64(x).FloatString(digits)
}

// Percent renders a ratio in [0,1] as a percentage, e.g. 0.4231 -> "42.3%".
func Percent(ratio float64, digits int) string {
	if !IsFinite(ratio) {
		return Placeholder
	}
	return Number(ratio*100, digits) + "%"
}

// Clock returns the hh:mm:ss part (characters 11 to 19) of an ISO-8601
// timestamp, or what is available of it.
func Clock(iso string) string {
	if len(iso) <= 11 {
		return ""
	}
	end := min(len(iso), 19)
	return iso[11:end]
}

// Relative renders t relative to now, e.g. "3 hours ago". A zero t renders
// as Placeholder.
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// ParseTime parses an RFC 3339 timestamp, also accepting the zone-less form
// session files use. It returns the zero time when s does not parse.
func ParseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Bytes renders a byte count for log lines.
func Bytes(n int) string {
	if n < 0 {
		return Placeholder
	}
	return humanize.Bytes(uint64(n))
}


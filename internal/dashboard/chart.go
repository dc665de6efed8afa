package dashboard

import (
	"fmt"
	"html"
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/villedieurio/evened-web/internal/timeseries"
)

// Chart geometry.
const (
	chartWidth   = 800
	chartHeight  = 240
	chartPadLeft = 48
	chartPadTop  = 12
	chartPadBot  = 28
	chartPadR    = 12
	// MaxXTicks is the most x axis labels drawn.
	MaxXTicks = 8
)

// NoDataNote replaces the chart when a session has no timeseries.
const NoDataNote = "No timeseries: chart disabled."

// Series is one labeled line.
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Chart is a line chart over shared x labels. A chart is built per render
// and never reused.
type Chart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
	Note   string   `json:"note"`
}

// Empty reports whether there is nothing to draw.
func (c *Chart) Empty() bool {
	return len(c.Labels) == 0
}

// BuildChart builds the level/threshold chart. No points yields an empty
// chart carrying NoDataNote.
func BuildChart(points []timeseries.Point) Chart {
	if len(points) == 0 {
		return Chart{Labels: []string{}, Series: []Series{}, Note: NoDataNote}
	}
	return Chart{
		Labels: timeseries.Labels(points),
		Series: []Series{
			{Label: timeseries.LabelLevel, Values: timeseries.Levels(points)},
			{Label: timeseries.LabelThreshold, Values: timeseries.Thresholds(points)},
		},
		Note: fmt.Sprintf("%d points", len(points)),
	}
}

var seriesColors = []string{"#2b7bb9", "#d9534f", "#5cb85c", "#f0ad4e"}

// maxValue returns the y axis top. The axis always starts at zero.
func (c *Chart) maxValue() float64 {
	top := 0.0
	for _, s := range c.Series {
		for _, v := range s.Values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) && v > top {
				top = v
			}
		}
	}
	if top == 0 {
		return 1
	}
	return top
}

// tickIndexes picks at most MaxXTicks evenly spaced label positions.
func tickIndexes(n int) []int {
	if n <= 0 {
		return nil
	}
	if n <= MaxXTicks {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, MaxXTicks)
	step := float64(n-1) / float64(MaxXTicks-1)
	for i := range MaxXTicks {
		out = append(out, int(math.Round(float64(i)*step)))
	}
	return out
}

// SVG renders the chart as an inline SVG document. An empty chart renders
// nothing.
func (c *Chart) SVG() template.HTML {
	if c.Empty() {
		return ""
	}

	plotW := float64(chartWidth - chartPadLeft - chartPadR)
	plotH := float64(chartHeight - chartPadTop - chartPadBot)
	top := c.maxValue()
	n := len(c.Labels)

	x := func(i int) float64 {
		if n == 1 {
			return chartPadLeft + plotW/2
		}
		return chartPadLeft + plotW*float64(i)/float64(n-1)
	}
	y := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		return chartPadTop + plotH - plotH*v/top
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" class="chart" role="img">`, chartWidth, chartHeight)

	// y axis: zero, middle and top
	for _, v := range []float64{0, top / 2, top} {
		yy := y(v)
		fmt.Fprintf(&b, `<line x1="%d" y1="%s" x2="%d" y2="%s" class="grid"/>`, chartPadLeft, coord(yy), chartWidth-chartPadR, coord(yy))
		fmt.Fprintf(&b, `<text x="%d" y="%s" class="tick" text-anchor="end">%s</text>`, chartPadLeft-4, coord(yy+4), strconv.FormatFloat(v, 'g', 3, 64))
	}

	for _, i := range tickIndexes(n) {
		fmt.Fprintf(&b, `<text x="%s" y="%d" class="tick" text-anchor="middle">%s</text>`,
			coord(x(i)), chartHeight-8, html.EscapeString(c.Labels[i]))
	}

	for si, s := range c.Series {
		pts := make([]string, 0, len(s.Values))
		for i, v := range s.Values {
			if i >= n {
				break
			}
			pts = append(pts, coord(x(i))+","+coord(y(v)))
		}
		fmt.Fprintf(&b, `<polyline fill="none" stroke="%s" stroke-width="1" points="%s"><title>%s</title></polyline>`,
			seriesColors[si%len(seriesColors)], strings.Join(pts, " "), html.EscapeString(s.Label))
	}

	b.WriteString(`</svg>`)
	return template.HTML(b.String()) //nolint:gosec // every interpolated string is escaped above
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

package httpcontroller

import (
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/villedieurio/evened-web/internal/dashboard"
	"github.com/villedieurio/evened-web/internal/feed"
	"github.com/villedieurio/evened-web/internal/species"
)

// templateFunctions returns the functions available to the page templates.
func templateFunctions() template.FuncMap {
	return template.FuncMap{
		"title":       cases.Title(language.English).String,
		"chartSVG":    chartSVG,
		"sortModes":   func() []string { return feed.SortModes },
		"metrics":     func() []string { return []string{species.MetricCount, species.MetricDuration} },
		"metricLabel": metricLabel,
		"joinNames":   func(names []string) string { return strings.Join(names, ", ") },
	}
}

func chartSVG(c dashboard.Chart) template.HTML {
	return c.SVG()
}

// metricLabel names the species ranking column.
func metricLabel(metric string) string {
	if metric == species.MetricDuration {
		return "Duration"
	}
	return "Detections"
}

package dashboard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/events"
	"github.com/villedieurio/evened-web/internal/feed"
	"github.com/villedieurio/evened-web/internal/species"
)

// Query parameters carrying view refinements.
const (
	ParamEventQuery   = "q"
	ParamOnlyDetected = "only_detected"
	ParamOnlyMulti    = "only_multi"
	ParamMetric       = "metric"
	ParamFeedSort     = "sort"
	ParamFeedQuery    = "fq"
)

// Options are the view refinements applied when building a page.
type Options struct {
	SpeciesMetric string
	TopSpecies    int
	Events        events.Query
	FeedSort      string
	FeedQuery     string
	// AppName prefixes page titles.
	AppName string
}

// DefaultOptions returns the options used when neither configuration nor
// the request sets anything.
func DefaultOptions() Options {
	return Options{
		SpeciesMetric: species.MetricCount,
		TopSpecies:    species.DefaultTopN,
		FeedSort:      feed.SortNewest,
		AppName:       DefaultAppName,
	}
}

// OptionsFromSettings returns the configured defaults.
func OptionsFromSettings(settings *conf.Settings) Options {
	o := DefaultOptions()
	if settings == nil {
		return o
	}
	if settings.Dashboard.SpeciesMetric != "" {
		o.SpeciesMetric = settings.Dashboard.SpeciesMetric
	}
	if settings.Dashboard.TopSpecies > 0 {
		o.TopSpecies = settings.Dashboard.TopSpecies
	}
	if settings.Dashboard.FeedSort != "" {
		o.FeedSort = feed.NormalizeSort(settings.Dashboard.FeedSort)
	}
	if settings.Main.Name != "" {
		o.AppName = settings.Main.Name
	}
	return o
}

// WithQuery returns o refined by the query parameters present in q.
func (o Options) WithQuery(q url.Values) Options {
	if q.Has(ParamMetric) {
		o.SpeciesMetric = normalizeMetric(q.Get(ParamMetric))
	}
	if q.Has(ParamEventQuery) {
		o.Events.Text = strings.TrimSpace(q.Get(ParamEventQuery))
	}
	if q.Has(ParamOnlyDetected) {
		o.Events.OnlyDetected = parseFlag(q.Get(ParamOnlyDetected))
	}
	if q.Has(ParamOnlyMulti) {
		o.Events.OnlyMulti = parseFlag(q.Get(ParamOnlyMulti))
	}
	if q.Has(ParamFeedSort) {
		o.FeedSort = feed.NormalizeSort(q.Get(ParamFeedSort))
	}
	if q.Has(ParamFeedQuery) {
		o.FeedQuery = strings.TrimSpace(q.Get(ParamFeedQuery))
	}
	return o
}

func normalizeMetric(m string) string {
	if m == species.MetricDuration {
		return m
	}
	return species.MetricCount
}

// parseFlag accepts checkbox style values: an empty value (a bare
// parameter) and the usual boolean spellings count as set.
func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "", "on", "yes":
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

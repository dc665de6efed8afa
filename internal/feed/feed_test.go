package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villedieurio/evened-web/internal/errors"
)

const sampleFeed = `{
  "updated_at": "2024-05-02T08:00:00Z",
  "sessions": [
    {
      "session_id": "s-jan",
      "title": "Marsh dawn chorus",
      "start_time": "2024-01-01T10:00:00",
      "end_time": "2024-01-01T12:00:00",
      "location_name": "Lac du Bourget",
      "kpis_public": {"duration_total_s": 7200, "events_count": 40, "species_unique_count": 5, "detections_count": 90},
      "top_species_public": [{"species_code": "comchi", "common_name": "Common Chiffchaff"}],
      "paths": {"session": "s-jan/session.json", "events": "s-jan/events.csv", "detections": "s-jan/detections.csv"}
    },
    {
      "session_id": "s-feb",
      "title": "Forest edge",
      "start_time": "2024-02-01T10:00:00",
      "kpis_public": {"duration_total_s": 3600, "species_unique_count": 9},
      "top_species_public": [{"species_code": "eurrob1", "common_name": "European Robin"}],
      "paths": {"session": "s-feb/session.json", "events": "s-feb/events.csv", "detections": "s-feb/detections.csv", "timeseries": "s-feb/timeseries.csv"}
    },
    {
      "session_id": "s-mar",
      "title": "Night",
      "start_time": "2024-03-01T22:00:00",
      "kpis_public": {"detections_count": 400},
      "paths": {"session": "s-mar/session.json", "events": "s-mar/events.csv", "detections": "s-mar/detections.csv"}
    }
  ]
}`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse([]byte(sampleFeed))
	require.NoError(t, err)
	return doc
}

func sessionIDs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].SessionID
	}
	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	doc := mustParse(t)

	assert.Equal(t, "2024-05-02T08:00:00Z", doc.UpdatedAt)
	require.Len(t, doc.Sessions, 3)
	assert.Equal(t, "Lac du Bourget", doc.Sessions[0].LocationName)
	assert.InDelta(t, 0, doc.Sessions[1].KPIsPublic.DetectionsCount, 0)
	assert.Equal(t, "s-feb/timeseries.csv", doc.Sessions[1].Paths.Timeseries)
	assert.Empty(t, doc.Sessions[0].Paths.Timeseries)
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"sessions": [`))

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestParseEmptySessions(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`{}`))

	require.NoError(t, err)
	assert.NotNil(t, doc.Sessions)
	assert.Empty(t, doc.Sessions)
}

func TestFind(t *testing.T) {
	t.Parallel()

	doc := mustParse(t)

	e, ok := doc.Find("s-feb")
	require.True(t, ok)
	assert.Equal(t, "Forest edge", e.Title)

	_, ok = doc.Find("s-missing")
	assert.False(t, ok)
}

func TestNewestOrdersFebruaryFirst(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{SessionID: "jan", StartTime: "2024-01-01T10:00:00"},
		{SessionID: "feb", StartTime: "2024-02-01T10:00:00"},
	}

	assert.Equal(t, []string{"feb", "jan"}, sessionIDs(Apply(entries, SortNewest, "")))
	assert.Equal(t, "jan", entries[0].SessionID, "input must not be reordered")
}

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mode  string
		query string
		want  []string
	}{
		{"newest", SortNewest, "", []string{"s-mar", "s-feb", "s-jan"}},
		{"unknown mode sorts newest", "alphabetical", "", []string{"s-mar", "s-feb", "s-jan"}},
		{"empty mode sorts newest", "", "", []string{"s-mar", "s-feb", "s-jan"}},
		{"duration", SortDuration, "", []string{"s-jan", "s-feb", "s-mar"}},
		{"species", SortSpecies, "", []string{"s-feb", "s-jan", "s-mar"}},
		{"detections with missing values as zero", SortDetections, "", []string{"s-mar", "s-jan", "s-feb"}},
		{"query on location", SortNewest, "bourget", []string{"s-jan"}},
		{"query on species name", SortNewest, "ROBIN", []string{"s-feb"}},
		{"query on species code", SortNewest, "comchi", []string{"s-jan"}},
		{"query on session id", SortDuration, "s-", []string{"s-jan", "s-feb", "s-mar"}},
		{"no match", SortNewest, "heron", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := mustParse(t)
			assert.Equal(t, tt.want, sessionIDs(Apply(doc.Sessions, tt.mode, tt.query)))
		})
	}
}

func TestSortIsStableForTies(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{SessionID: "a", KPIsPublic: KPIs{SpeciesUniqueCount: 3}},
		{SessionID: "b", KPIsPublic: KPIs{SpeciesUniqueCount: 5}},
		{SessionID: "c", KPIsPublic: KPIs{SpeciesUniqueCount: 3}},
	}

	Sort(entries, SortSpecies)

	assert.Equal(t, []string{"b", "a", "c"}, sessionIDs(entries))
}

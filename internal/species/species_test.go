package species

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villedieurio/evened-web/internal/csvtable"
)

func det(code, name string, conf, dur float64, public any) Detection {
	return Detection{
		SpeciesCode:        code,
		CommonName:         name,
		Confidence:         conf,
		DetectionDurationS: dur,
		TStartS:            math.NaN(),
		TEndS:              math.NaN(),
		IsPublic:           public,
	}
}

func sampleDetections() []Detection {
	return []Detection{
		det("amecro", "American Crow", 0.8, 2, "true"),
		det("norcar", "Northern Cardinal", 0.9, 1.5, "1"),
		det("amecro", "", 0.95, 3, "YES"),
		det("nocall", "No call", 0.99, 10, "true"),
		det("blujay", "Blue Jay", 0.7, 4, "false"),
		det("", "Unknown", 0.5, 1, "true"),
		det("norcar", "Northern Cardinal", math.NaN(), math.NaN(), true),
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"Yes", true},
		{"y", false},
		{"0", false},
		{"", false},
		{nil, false},
		{1, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.in), "Truthy(%#v)", tt.in)
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	got := Aggregate(sampleDetections())

	require.Len(t, got, 2)
	assert.Equal(t, Summary{
		SpeciesCode:   "amecro",
		CommonName:    "American Crow",
		Detections:    2,
		DurationS:     5,
		ConfidenceMax: 0.95,
	}, got[0])
	assert.Equal(t, Summary{
		SpeciesCode:   "norcar",
		CommonName:    "Northern Cardinal",
		Detections:    2,
		DurationS:     1.5,
		ConfidenceMax: 0.9,
	}, got[1])
}

func TestAggregateNameFallsBackToCode(t *testing.T) {
	t.Parallel()

	got := Aggregate([]Detection{det("rewbla", "", 0.6, 1, "true")})

	require.Len(t, got, 1)
	assert.Equal(t, "rewbla", got[0].CommonName)
}

func TestDetectionDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Detection
		want float64
	}{
		{"explicit duration", Detection{DetectionDurationS: 2.5, TStartS: 0, TEndS: 9}, 2.5},
		{"zero explicit duration is kept", Detection{DetectionDurationS: 0, TStartS: 1, TEndS: 4}, 0},
		{"derived from bounds", Detection{DetectionDurationS: math.NaN(), TStartS: 1, TEndS: 4}, 3},
		{"nothing finite", Detection{DetectionDurationS: math.NaN(), TStartS: math.NaN(), TEndS: 4}, 0},
		{"infinite duration", Detection{DetectionDurationS: math.Inf(1), TStartS: math.NaN(), TEndS: math.NaN()}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.d.Duration(), 1e-9)
		})
	}
}

func TestAggregateNeverPropagatesNaN(t *testing.T) {
	t.Parallel()

	got := Aggregate([]Detection{
		det("amecro", "American Crow", math.NaN(), math.NaN(), "true"),
		det("amecro", "American Crow", math.Inf(1), math.Inf(-1), "true"),
	})

	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].DurationS, 0)
	assert.InDelta(t, 0, got[0].ConfidenceMax, 0)
	assert.Equal(t, 2, got[0].Detections)
}

func TestAggregateExclusionIsOrderIndependent(t *testing.T) {
	t.Parallel()

	base := sampleDetections()
	want := totalsByCode(Aggregate(base))

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		perm := slices.Clone(base)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		got := Aggregate(perm)
		for _, s := range got {
			assert.NotEqual(t, NoCall, s.SpeciesCode)
			assert.NotEqual(t, "blujay", s.SpeciesCode)
		}
		assert.Equal(t, want, totalsByCode(got))
	}
}

func TestAggregateScalesLinearlyUnderDuplication(t *testing.T) {
	t.Parallel()

	base := sampleDetections()
	single := Aggregate(base)
	doubled := Aggregate(slices.Concat(base, base))

	require.Len(t, doubled, len(single))
	for i := range single {
		assert.Equal(t, single[i].SpeciesCode, doubled[i].SpeciesCode)
		assert.Equal(t, 2*single[i].Detections, doubled[i].Detections)
		assert.InDelta(t, 2*single[i].DurationS, doubled[i].DurationS, 1e-9)
		assert.InDelta(t, single[i].ConfidenceMax, doubled[i].ConfidenceMax, 0)
	}
}

func TestSortIsStableDescending(t *testing.T) {
	t.Parallel()

	list := []Summary{
		{SpeciesCode: "a", Detections: 1, DurationS: 10},
		{SpeciesCode: "b", Detections: 3, DurationS: 5},
		{SpeciesCode: "c", Detections: 1, DurationS: 10},
		{SpeciesCode: "d", Detections: 3, DurationS: 1},
	}

	byCount := slices.Clone(list)
	Sort(byCount, MetricCount)
	assert.Equal(t, []string{"b", "d", "a", "c"}, codes(byCount))

	byDuration := slices.Clone(list)
	Sort(byDuration, MetricDuration)
	assert.Equal(t, []string{"a", "c", "b", "d"}, codes(byDuration))

	unknown := slices.Clone(list)
	Sort(unknown, "bogus")
	assert.Equal(t, codes(byCount), codes(unknown))
}

func TestTop(t *testing.T) {
	t.Parallel()

	var list []Summary
	for i := range 20 {
		list = append(list, Summary{SpeciesCode: string(rune('a' + i)), Detections: i})
	}

	top := Top(list, MetricCount, DefaultTopN)

	require.Len(t, top, DefaultTopN)
	assert.Equal(t, 19, top[0].Detections)
	assert.Equal(t, 0, list[0].Detections, "input must not be reordered")
	assert.Len(t, Top(list[:3], MetricCount, DefaultTopN), 3)
}

func TestDetectionsFromRecords(t *testing.T) {
	t.Parallel()

	records := csvtable.Parse("species_code,common_name,confidence,t_start_s,t_end_s,is_public\n" +
		"amecro,American Crow,0.81,1.0,3.5,true\n" +
		"norcar,Northern Cardinal,bad,,,false\n")

	dets := DetectionsFromRecords(records)

	require.Len(t, dets, 2)
	assert.Equal(t, "amecro", dets[0].SpeciesCode)
	assert.InDelta(t, 0.81, dets[0].Confidence, 1e-9)
	assert.True(t, math.IsNaN(dets[0].DetectionDurationS))
	assert.InDelta(t, 2.5, dets[0].Duration(), 1e-9)
	assert.True(t, math.IsNaN(dets[1].Confidence))
	assert.False(t, Truthy(dets[1].IsPublic))
}

func totalsByCode(list []Summary) map[string]Summary {
	out := make(map[string]Summary, len(list))
	for _, s := range list {
		out[s.SpeciesCode] = s
	}
	return out
}

func codes(list []Summary) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.SpeciesCode
	}
	return out
}

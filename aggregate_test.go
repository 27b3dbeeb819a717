package carbonmeter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testWindow() Window {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.Add(time.Hour), Step: 15 * time.Minute}
}

func TestWindowGeometry(t *testing.T) {
	window := testWindow()
	assert.NoError(t, window.Validate())
	assert.Equal(t, 4, window.Buckets())

	// partial trailing bucket still counts as a sampling point
	window.End = window.Start.Add(50 * time.Minute)
	assert.Equal(t, 4, window.Buckets())

	i, ok := window.Index(window.Start)
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = window.Index(window.Start.Add(20 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = window.Index(window.Start.Add(-time.Second))
	assert.False(t, ok)
	_, ok = window.Index(window.End)
	assert.False(t, ok)

	assert.Equal(t, window.Start.Add(30*time.Minute), window.BucketTime(2))
}

func TestWindowValidate(t *testing.T) {
	window := testWindow()
	window.Step = 0
	assert.Error(t, window.Validate())

	window = testWindow()
	window.End = window.Start
	assert.Error(t, window.Validate())
}

func TestAggregatorBucketsAndGroups(t *testing.T) {
	window := testWindow()
	agg, err := NewAggregator(window, GroupByKey)
	assert.NoError(t, err)

	energy := EnergyRecord{TotalEnergy: 1, AdjustedEnergy: 1.05}
	carbon := CarbonRecord{Operational: 105, EmbodiedTotal: 3, Total: 108}

	assert.True(t, agg.Add(stubSample("vm-1", window.Start), energy, carbon))
	assert.True(t, agg.Add(stubSample("vm-2", window.Start), energy, carbon))
	assert.True(t, agg.Add(stubSample("vm-1", window.Start.Add(20*time.Minute)), energy, carbon))

	assert.Equal(t, []string{"checkout"}, agg.Groups())

	series := agg.Series("checkout")
	assert.Len(t, series, 4)
	assert.Equal(t, 2, series[0].Samples)
	assert.Equal(t, Energy(2.1), series[0].Energy.AdjustedEnergy)
	assert.Equal(t, 1, series[1].Samples)
	assert.Equal(t, 0, series[2].Samples)
}

func TestAggregatorDeduplicates(t *testing.T) {
	window := testWindow()
	agg, err := NewAggregator(window, nil)
	assert.NoError(t, err)

	sample := stubSample("vm-1", window.Start)
	energy := EnergyRecord{AdjustedEnergy: 1}
	carbon := CarbonRecord{Total: 1}

	assert.True(t, agg.Add(sample, energy, carbon))
	assert.False(t, agg.Add(sample, energy, carbon))
	assert.Equal(t, 1, agg.Dropped())

	// same resource at another timestamp is a distinct identity
	assert.True(t, agg.Add(stubSample("vm-1", window.Start.Add(15*time.Minute)), energy, carbon))

	series := agg.Series("vm-1")
	assert.Equal(t, 1, series[0].Samples)
	assert.Equal(t, 1, series[1].Samples)
}

func TestAggregatorRejectsOutOfWindow(t *testing.T) {
	window := testWindow()
	agg, err := NewAggregator(window, nil)
	assert.NoError(t, err)

	assert.False(t, agg.Add(stubSample("vm-1", window.End), EnergyRecord{}, CarbonRecord{}))
	assert.Equal(t, 1, agg.Dropped())
	assert.Empty(t, agg.Groups())
}

func TestAggregatorMerge(t *testing.T) {
	window := testWindow()
	left, _ := NewAggregator(window, GroupByKey)
	right, _ := NewAggregator(window, GroupByKey)

	energy := EnergyRecord{AdjustedEnergy: 1}
	carbon := CarbonRecord{Total: 10}

	left.Add(stubSample("vm-1", window.Start), energy, carbon)
	right.Add(stubSample("vm-2", window.Start), energy, carbon)
	right.Add(stubSample("vm-3", window.Start.Add(45*time.Minute)), energy, carbon)

	assert.NoError(t, left.Merge(right))

	series := left.Series("checkout")
	assert.Equal(t, 2, series[0].Samples)
	assert.Equal(t, Energy(2), series[0].Energy.AdjustedEnergy)
	assert.Equal(t, 1, series[3].Samples)

	other, _ := NewAggregator(Window{Start: window.Start, End: window.End, Step: 30 * time.Minute}, nil)
	assert.Error(t, left.Merge(other))
}

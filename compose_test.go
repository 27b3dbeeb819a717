package carbonmeter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func composedAggregator(t *testing.T) *Aggregator {
	window := testWindow()
	agg, err := NewAggregator(window, GroupByKey)
	assert.NoError(t, err)

	energy := EnergyRecord{CPUEnergy: 0.8, MemoryEnergy: 0.2, TotalEnergy: 1, AdjustedEnergy: 1.05}
	carbon := CarbonRecord{Operational: 105, EmbodiedCPU: 2, EmbodiedStorage: 1, EmbodiedTotal: 3, Total: 108}

	agg.Add(stubSample("vm-1", window.Start), energy, carbon)
	agg.Add(stubSample("vm-2", window.Start), energy, carbon)
	agg.Add(stubSample("vm-1", window.Start.Add(30*time.Minute)), energy, carbon)
	return agg
}

func TestComposeZeroFillsEmptyBuckets(t *testing.T) {
	agg := composedAggregator(t)

	reports := Composer{}.Compose(agg)
	assert.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, "checkout", report.Group)

	// series length always matches the requested sampling points
	assert.Len(t, report.Timestamps, 4)
	assert.Len(t, report.EnergyKWh, 4)
	assert.Len(t, report.TotalG, 4)

	assert.Equal(t, agg.Window().Start, report.Timestamps[0])
	assert.InDelta(t, 2.1, report.EnergyKWh[0], 1e-9)
	assert.Zero(t, report.EnergyKWh[1])
	assert.InDelta(t, 1.05, report.EnergyKWh[2], 1e-9)
	assert.Zero(t, report.EnergyKWh[3])
}

func TestComposeOmitsEmptyBucketsOnDemand(t *testing.T) {
	agg := composedAggregator(t)

	reports := Composer{Policy: OmitEmptyBuckets}.Compose(agg)
	report := reports[0]

	assert.Len(t, report.Timestamps, 2)
	assert.Equal(t, agg.Window().Start, report.Timestamps[0])
	assert.Equal(t, agg.Window().Start.Add(30*time.Minute), report.Timestamps[1])
}

func TestComposeTotalsEqualBucketSums(t *testing.T) {
	agg := composedAggregator(t)

	for _, report := range (Composer{}).Compose(agg) {
		sumEnergy, sumTotal, sumOperational, sumEmbodied := 0.0, 0.0, 0.0, 0.0
		for i := range report.Timestamps {
			sumEnergy += report.EnergyKWh[i]
			sumTotal += report.TotalG[i]
			sumOperational += report.OperationalG[i]
			sumEmbodied += report.EmbodiedG[i]
		}
		assert.InDelta(t, sumEnergy, report.Totals.EnergyKWh, 1e-9)
		assert.InDelta(t, sumTotal, report.Totals.TotalG, 1e-9)
		assert.InDelta(t, sumOperational, report.Totals.OperationalG, 1e-9)
		assert.InDelta(t, sumEmbodied, report.Totals.EmbodiedG, 1e-9)
		assert.Equal(t, 3, report.Totals.Samples)
	}
}

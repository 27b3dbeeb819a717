package carbonmeter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func runPipeline(t *testing.T, samples []UsageSample, opts ...PipelineOption) *Result {
	pipeline, err := NewPipeline(stubProcessor(), opts...)
	assert.NoError(t, err)

	feed := make(chan UsageSample)
	go func() {
		defer close(feed)
		for _, sample := range samples {
			feed <- sample
		}
	}()

	result, err := pipeline.Run(context.Background(), feed, testWindow(), GroupByKey)
	assert.NoError(t, err)
	return result
}

func TestPipelineRun(t *testing.T) {
	window := testWindow()
	result := runPipeline(t, []UsageSample{
		stubSample("vm-1", window.Start),
		stubSample("vm-2", window.Start),
		stubSample("vm-1", window.Start.Add(30*time.Minute)),
	})

	assert.Equal(t, 3, result.Stats.Processed)
	assert.Zero(t, result.Stats.Skipped)
	assert.Zero(t, result.Stats.Deduped)

	report, found := result.Report("checkout")
	assert.True(t, found)
	assert.InDelta(t, 3*1.05, report.Totals.EnergyKWh, 1e-9)
	assert.InDelta(t, 3*108.0, report.Totals.TotalG, 1e-9)
	assert.Equal(t, 3, report.Totals.Samples)

	_, found = result.Report("payments")
	assert.False(t, found)
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	window := testWindow()
	samples := []UsageSample{
		stubSample("vm-1", window.Start),
		stubSample("vm-2", window.Start.Add(15*time.Minute)),
		stubSample("vm-3", window.Start.Add(45*time.Minute)),
	}

	first := runPipeline(t, samples)
	second := runPipeline(t, samples)

	assert.Equal(t, first.Reports, second.Reports)
	assert.Equal(t, first.Stats, second.Stats)
}

func TestPipelineDeduplicatesOverlappingExports(t *testing.T) {
	window := testWindow()
	duplicated := stubSample("vm-1", window.Start)

	result := runPipeline(t, []UsageSample{
		duplicated,
		duplicated,
		duplicated,
		stubSample("vm-2", window.Start),
	})

	assert.Equal(t, 2, result.Stats.Processed)
	assert.Equal(t, 2, result.Stats.Deduped)

	report, _ := result.Report("checkout")
	assert.Equal(t, 2, report.Totals.Samples)
}

func TestPipelineCountsSkipReasons(t *testing.T) {
	window := testWindow()

	unknownClass := stubSample("vm-1", window.Start)
	unknownClass.InstanceClass = "unknown_class"

	unknownRegion := stubSample("vm-2", window.Start)
	unknownRegion.Region = "nowhere"

	invalid := stubSample("vm-3", window.Start)
	invalid.Duration = 0

	outOfWindow := stubSample("vm-4", window.End.Add(time.Hour))

	result := runPipeline(t, []UsageSample{
		unknownClass,
		unknownRegion,
		invalid,
		outOfWindow,
		stubSample("vm-5", window.Start),
	})

	assert.Equal(t, 1, result.Stats.Processed)
	assert.Equal(t, 4, result.Stats.Skipped)
	assert.Equal(t, 1, result.Stats.Reasons["profile_not_found"])
	assert.Equal(t, 1, result.Stats.Reasons["unknown_grid_intensity"])
	assert.Equal(t, 1, result.Stats.Reasons["invalid_sample"])
	assert.Equal(t, 1, result.Stats.Reasons["out_of_window"])
}

func TestPipelineHonorsWorkerOption(t *testing.T) {
	_, err := NewPipeline(stubProcessor(), WithWorkers(0))
	assert.Error(t, err)

	window := testWindow()
	samples := make([]UsageSample, 0, 100)
	for i := range 100 {
		samples = append(samples, stubSample(string(rune('a'+i%26)), window.Start.Add(time.Duration(i)*time.Second)))
	}

	result := runPipeline(t, samples, WithWorkers(8))
	assert.Equal(t, 100, result.Stats.Processed)
}

func TestPipelineRunStopsOnCanceledContext(t *testing.T) {
	pipeline, err := NewPipeline(stubProcessor())
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := make(chan UsageSample)
	_, err = pipeline.Run(ctx, feed, testWindow(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

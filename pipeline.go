package carbonmeter

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// RunStats counts the outcome of one pipeline run. Recoverable skips
// are surfaced here, never as silent zeros in the aggregates.
type RunStats struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Deduped   int            `json:"deduped"`
	Reasons   map[string]int `json:"skip_reasons,omitempty"`
}

// Result of one pipeline run: the composed reports plus run statistics.
type Result struct {
	Reports []Report `json:"reports"`
	Stats   RunStats `json:"stats"`
}

// Report returns the composed report for a group, or false when the
// group produced no samples.
func (r *Result) Report(group string) (Report, bool) {
	for _, report := range r.Reports {
		if report.Group == group {
			return report, true
		}
	}
	return Report{}, false
}

// Pipeline streams usage samples through the sample processor and
// reduces them into per-bucket, per-group reports. Per-sample work is
// pure and runs on a bounded worker pool; each worker accumulates into
// its own aggregator partition and the partitions are merged at the
// end, so no shared state is updated without ordering guarantees.
type Pipeline struct {
	processor Processor
	composer  Composer
	workers   int
}

type PipelineOption func(p *Pipeline)

// WithWorkers bounds the sample processing concurrency.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithEmptyBucketPolicy overrides the default zero-fill behavior for
// buckets with no contributing samples.
func WithEmptyBucketPolicy(policy EmptyBucketPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.composer.Policy = policy
	}
}

// NewPipeline assembles a pipeline around a fully configured sample
// processor. Configuration problems are fatal here, before any sample
// is processed.
func NewPipeline(processor Processor, opts ...PipelineOption) (*Pipeline, error) {
	if err := processor.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		processor: processor,
		workers:   4,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.workers < 1 {
		return nil, Configf("pipeline needs at least one worker")
	}
	return p, nil
}

// Run consumes samples until the channel closes or the context is
// canceled, then composes the reports. A nil grouping aggregates per
// resource.
func (p *Pipeline) Run(ctx context.Context, samples <-chan UsageSample, window Window, grouping GroupingFunc) (*Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	// The identity filter must see every sample exactly once, so
	// deduplication happens on the dispatch side before the fan-out.
	deduper, err := NewAggregator(window, grouping)
	if err != nil {
		return nil, err
	}

	partitions := make([]*Aggregator, p.workers)
	stats := make([]RunStats, p.workers)
	accepted := make(chan UsageSample)
	deduped := 0

	errg, errgctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		defer close(accepted)
		for {
			select {
			case <-errgctx.Done():
				return errgctx.Err()
			case sample, ok := <-samples:
				if !ok {
					return nil
				}
				if deduper.Seen(sample) {
					deduped++
					continue
				}
				select {
				case <-errgctx.Done():
					return errgctx.Err()
				case accepted <- sample:
				}
			}
		}
	})

	for i := range p.workers {
		partition, err := NewAggregator(window, grouping)
		if err != nil {
			return nil, err
		}
		partitions[i] = partition
		stats[i].Reasons = make(map[string]int)

		errg.Go(func() error {
			for sample := range accepted {
				p.processOne(sample, partition, &stats[i])
			}
			return nil
		})
	}

	if err := errg.Wait(); err != nil {
		return nil, err
	}

	merged := partitions[0]
	total := stats[0]
	for i := 1; i < p.workers; i++ {
		if err := merged.Merge(partitions[i]); err != nil {
			return nil, err
		}
		total.Processed += stats[i].Processed
		total.Skipped += stats[i].Skipped
		for reason, n := range stats[i].Reasons {
			total.Reasons[reason] += n
		}
	}
	total.Deduped = deduped

	return &Result{
		Reports: p.composer.Compose(merged),
		Stats:   total,
	}, nil
}

func (p *Pipeline) processOne(sample UsageSample, partition *Aggregator, stats *RunStats) {
	energy, carbon, err := p.processor.Process(sample)
	if err != nil {
		stats.Skipped++
		stats.Reasons[skipReason(err)]++
		slog.Debug("sample excluded from aggregation",
			"resource", sample.ResourceID,
			"instance_class", sample.InstanceClass,
			"err", err.Error())
		return
	}

	if partition.Add(sample, energy, carbon) {
		stats.Processed++
	} else {
		stats.Skipped++
		stats.Reasons["out_of_window"]++
	}
}

func skipReason(err error) string {
	var profileErr *ProfileNotFoundError
	var intensityErr *UnknownGridIntensityError
	var sampleErr *InvalidSampleError

	switch {
	case errors.As(err, &profileErr):
		return "profile_not_found"
	case errors.As(err, &intensityErr):
		return "unknown_grid_intensity"
	case errors.As(err, &sampleErr):
		return "invalid_sample"
	}
	return "error"
}

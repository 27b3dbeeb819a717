package carbonmeter

import (
	"slices"
	"strings"
	"time"
)

// Window is the queried time horizon partitioned into fixed-width
// buckets of Step duration.
type Window struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Validate checks the window geometry.
func (w Window) Validate() error {
	if w.Step <= 0 {
		return Configf("aggregation step must be positive")
	}
	if !w.End.After(w.Start) {
		return Configf("aggregation window end must be after start")
	}
	return nil
}

// Buckets returns the number of sampling points in the window. Partial
// trailing buckets count as a full point so the output series length
// always equals the requested number of sampling points.
func (w Window) Buckets() int {
	span := w.End.Sub(w.Start)
	n := int(span / w.Step)
	if span%w.Step != 0 {
		n++
	}
	return n
}

// Index returns the bucket index holding t, or false when t falls
// outside the window.
func (w Window) Index(t time.Time) (int, bool) {
	if t.Before(w.Start) || !t.Before(w.End) {
		return 0, false
	}
	return int(t.Sub(w.Start) / w.Step), true
}

// BucketTime returns the start time of the i-th bucket.
func (w Window) BucketTime(i int) time.Time {
	return w.Start.Add(time.Duration(i) * w.Step)
}

// GroupingFunc selects the vertical aggregation key for a sample.
type GroupingFunc func(s UsageSample) string

// GroupByResource aggregates each resource on its own.
func GroupByResource(s UsageSample) string { return s.ResourceID }

// GroupByKey aggregates resources sharing the same logical group
// (application, namespace, partition).
func GroupByKey(s UsageSample) string { return s.GroupKey }

// GroupAll rolls every resource up into a single named total.
func GroupAll(name string) GroupingFunc {
	return func(UsageSample) string { return name }
}

// Bucket is the accumulated state of one (time bucket, group) cell.
// Energy and carbon are extensive quantities so both aggregation axes
// use plain summation, never averaging.
type Bucket struct {
	Energy            EnergyRecord
	Carbon            CarbonRecord
	RequestedCPU      float64
	RequestedMemoryGB float64
	CPUUtilizationPct float64
	Samples           int
}

func (b Bucket) add(s UsageSample, energy EnergyRecord, carbon CarbonRecord) Bucket {
	return Bucket{
		Energy:            b.Energy.Add(energy),
		Carbon:            b.Carbon.Add(carbon),
		RequestedCPU:      b.RequestedCPU + s.VCPUsAllocated,
		RequestedMemoryGB: b.RequestedMemoryGB + s.MemoryRequestedGB,
		CPUUtilizationPct: b.CPUUtilizationPct + s.Utilization(),
		Samples:           b.Samples + 1,
	}
}

func (b Bucket) merge(other Bucket) Bucket {
	return Bucket{
		Energy:            b.Energy.Add(other.Energy),
		Carbon:            b.Carbon.Add(other.Carbon),
		RequestedCPU:      b.RequestedCPU + other.RequestedCPU,
		RequestedMemoryGB: b.RequestedMemoryGB + other.RequestedMemoryGB,
		CPUUtilizationPct: b.CPUUtilizationPct + other.CPUUtilizationPct,
		Samples:           b.Samples + other.Samples,
	}
}

type dedupKey struct {
	resourceID string
	timestamp  int64
}

// Aggregator reduces per-sample records into per-bucket, per-group
// accumulators. It holds at most O(buckets x groups) state. A single
// Aggregator is not safe for concurrent use: concurrent producers each
// own a partition and the partitions are combined with Merge.
type Aggregator struct {
	window   Window
	grouping GroupingFunc
	groups   map[string][]Bucket
	seen     map[dedupKey]struct{}
	dropped  int
}

// NewAggregator builds an aggregator over the given window. A nil
// grouping aggregates per resource.
func NewAggregator(window Window, grouping GroupingFunc) (*Aggregator, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if grouping == nil {
		grouping = GroupByResource
	}
	return &Aggregator{
		window:   window,
		grouping: grouping,
		groups:   make(map[string][]Bucket),
		seen:     make(map[dedupKey]struct{}),
	}, nil
}

// Window returns the aggregation window.
func (a *Aggregator) Window() Window {
	return a.window
}

// Seen marks a (resource, timestamp) identity and reports whether it
// was already marked. Overlapping source exports carry the same
// identity and must only be counted once.
func (a *Aggregator) Seen(s UsageSample) bool {
	key := dedupKey{resourceID: s.ResourceID, timestamp: s.Timestamp.UnixNano()}
	if _, dup := a.seen[key]; dup {
		return true
	}
	a.seen[key] = struct{}{}
	return false
}

// Add accumulates one processed sample into its (bucket, group) cell.
// Samples outside the window or already seen are dropped and reported.
func (a *Aggregator) Add(s UsageSample, energy EnergyRecord, carbon CarbonRecord) bool {
	i, ok := a.window.Index(s.Timestamp)
	if !ok {
		a.dropped++
		return false
	}
	if a.Seen(s) {
		a.dropped++
		return false
	}

	group := a.grouping(s)
	buckets, ok := a.groups[group]
	if !ok {
		buckets = make([]Bucket, a.window.Buckets())
		a.groups[group] = buckets
	}
	buckets[i] = buckets[i].add(s, energy, carbon)
	return true
}

// Dropped returns the number of samples rejected as duplicates or out
// of window.
func (a *Aggregator) Dropped() int {
	return a.dropped
}

// Merge folds another partition into this one. Both partitions must
// cover the same window. Deduplication across partitions is the
// dispatcher's responsibility: Merge only unions the identity sets.
func (a *Aggregator) Merge(other *Aggregator) error {
	if a.window != other.window {
		return Configf("cannot merge aggregators over different windows")
	}
	for group, otherBuckets := range other.groups {
		buckets, ok := a.groups[group]
		if !ok {
			buckets = make([]Bucket, a.window.Buckets())
			a.groups[group] = buckets
		}
		for i, b := range otherBuckets {
			buckets[i] = buckets[i].merge(b)
		}
	}
	for key := range other.seen {
		a.seen[key] = struct{}{}
	}
	a.dropped += other.dropped
	return nil
}

// Groups returns the grouping keys in stable order.
func (a *Aggregator) Groups() []string {
	groups := make([]string, 0, len(a.groups))
	for group := range a.groups {
		groups = append(groups, group)
	}
	slices.SortFunc(groups, strings.Compare)
	return groups
}

// Series returns the bucket series of one group. The slice length is
// always the window's bucket count, empty buckets hold zero values.
func (a *Aggregator) Series(group string) []Bucket {
	return a.groups[group]
}

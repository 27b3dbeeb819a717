// Package telemetry collects usage samples for running workloads from
// a Prometheus compatible backend. All blocking I/O of the query
// service happens here, before the calculation pipeline runs.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/internal/cache"
)

const (
	queryUsedCores = `sum by (pod, app) (rate(container_cpu_usage_seconds_total{%s}[5m]))`
	queryReqCores  = `sum by (pod, app) (kube_pod_container_resource_requests{resource="cpu",%s})`
	queryReqMemory = `sum by (pod, app) (kube_pod_container_resource_requests{resource="memory",%s})`
)

// Client queries a Prometheus backend for the pods in scope and
// normalizes the results into usage samples.
type Client struct {
	api           v1.API
	cache         *cache.Memory
	queryTimeout  time.Duration
	instanceClass string
	region        string
}

type ClientOption func(c *Client)

// WithQueryTimeout bounds every range query.
func WithQueryTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.queryTimeout = d
	}
}

// WithNodeInstanceClass sets the instance class of the cluster nodes,
// used for hardware profile resolution of every pod sample.
func WithNodeInstanceClass(class string) ClientOption {
	return func(c *Client) {
		c.instanceClass = class
	}
}

// WithRegion sets the region hosting the cluster, used for grid
// intensity lookup.
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		c.region = region
	}
}

// WithCacheTTL shields the backend from repeated identical queries.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache.NewMemory(ttl)
	}
}

func NewClient(address string, opts ...ClientOption) (*Client, error) {
	promClient, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	client := &Client{
		api:          v1.NewAPI(promClient),
		queryTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CollectSamples implements the carbonmeter.SampleSource interface.
func (c *Client) CollectSamples(ctx context.Context, q carbonmeter.Query) ([]carbonmeter.UsageSample, error) {
	if c.cache == nil {
		return c.collect(ctx, q)
	}

	key := fmt.Sprintf("%s/%s/%d/%d/%d", q.Scope, q.Target,
		q.Window.Start.Unix(), q.Window.End.Unix(), q.Window.Step)

	v, err := c.cache.GetOrSet(ctx, key, func(ctx context.Context) (any, error) {
		return c.collect(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return v.([]carbonmeter.UsageSample), nil
}

func (c *Client) collect(ctx context.Context, q carbonmeter.Query) ([]carbonmeter.UsageSample, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	selector, err := scopeSelector(q)
	if err != nil {
		return nil, err
	}

	window := v1.Range{Start: q.Window.Start, End: q.Window.End, Step: q.Window.Step}

	used, err := c.queryRange(ctx, fmt.Sprintf(queryUsedCores, selector), window)
	if err != nil {
		return nil, err
	}
	requested, err := c.queryRange(ctx, fmt.Sprintf(queryReqCores, selector), window)
	if err != nil {
		return nil, err
	}
	memory, err := c.queryRange(ctx, fmt.Sprintf(queryReqMemory, selector), window)
	if err != nil {
		return nil, err
	}

	samples := joinMatrices(used, requested, memory, q.Window.Step, c.instanceClass, c.region)

	slog.Debug("telemetry collected",
		"scope", q.Scope,
		"target", q.Target,
		"series", len(requested),
		"samples", len(samples))

	return samples, nil
}

func (c *Client) queryRange(ctx context.Context, query string, window v1.Range) (model.Matrix, error) {
	value, warnings, err := c.api.QueryRange(ctx, query, window)
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}
	if len(warnings) > 0 {
		slog.Warn("prometheus returned warnings", "query", query, "warnings", warnings)
	}

	matrix, ok := value.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %s for range query", value.Type())
	}
	return matrix, nil
}

func scopeSelector(q carbonmeter.Query) (string, error) {
	switch q.Scope {
	case carbonmeter.ScopeCluster:
		return fmt.Sprintf(`cluster=%q`, q.Target), nil
	case carbonmeter.ScopeApplication:
		return fmt.Sprintf(`app=%q`, q.Target), nil
	case carbonmeter.ScopeResource:
		return fmt.Sprintf(`pod=%q`, q.Target), nil
	}
	return "", fmt.Errorf("unsupported query scope %q", q.Scope)
}

// joinMatrices aligns the three series by (pod, timestamp) and builds
// one sample per aligned point. Points missing a core request are
// dropped: without a reservation there is nothing to attribute.
func joinMatrices(used, requested, memory model.Matrix, step time.Duration, instanceClass, region string) []carbonmeter.UsageSample {
	index := func(matrix model.Matrix) map[string]map[int64]float64 {
		byPod := make(map[string]map[int64]float64, len(matrix))
		for _, stream := range matrix {
			pod := string(stream.Metric["pod"])
			points := make(map[int64]float64, len(stream.Values))
			for _, pair := range stream.Values {
				points[pair.Timestamp.Unix()] = float64(pair.Value)
			}
			byPod[pod] = points
		}
		return byPod
	}

	usedByPod := index(used)
	memoryByPod := index(memory)

	var samples []carbonmeter.UsageSample
	for _, stream := range requested {
		pod := string(stream.Metric["pod"])
		app := string(stream.Metric["app"])

		for _, pair := range stream.Values {
			requestedCores := float64(pair.Value)
			if requestedCores <= 0 {
				continue
			}
			ts := pair.Timestamp.Time()

			usedCores := usedByPod[pod][pair.Timestamp.Unix()]
			memoryBytes := memoryByPod[pod][pair.Timestamp.Unix()]

			samples = append(samples, carbonmeter.UsageSample{
				Timestamp:         ts,
				ResourceID:        pod,
				InstanceClass:     instanceClass,
				Region:            region,
				GroupKey:          app,
				CPUUtilizationPct: min(usedCores/requestedCores*100, 100),
				MemoryRequestedGB: memoryBytes / 1e9,
				VCPUsAllocated:    requestedCores,
				Duration:          step,
			})
		}
	}
	return samples
}

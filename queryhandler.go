package carbonmeter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Scope selects the vertical grouping of a query.
type Scope string

const (
	ScopeCluster     Scope = "cluster"
	ScopeApplication Scope = "application"
	ScopeResource    Scope = "resource"
)

// Query describes one report request: a grouping scope, a target
// inside that scope, and a bucketed time window.
type Query struct {
	Scope  Scope
	Target string
	Window Window
}

// Grouping returns the grouping function matching the query scope.
func (q Query) Grouping() GroupingFunc {
	switch q.Scope {
	case ScopeCluster:
		return GroupAll(q.Target)
	case ScopeApplication:
		return GroupByKey
	default:
		return GroupByResource
	}
}

// SampleSource provides the usage samples in scope of a query. All
// blocking I/O happens here, before the pipeline runs.
type SampleSource interface {
	CollectSamples(ctx context.Context, q Query) ([]UsageSample, error)
}

// QueryHandler serves composed carbon/energy reports over HTTP.
type QueryHandler struct {
	source         SampleSource
	pipeline       *Pipeline
	defaultTimeout time.Duration
}

func NewQueryHandler(source SampleSource, pipeline *Pipeline) *QueryHandler {
	return &QueryHandler{
		source:         source,
		pipeline:       pipeline,
		defaultTimeout: 30 * time.Second,
	}
}

type queryResponse struct {
	Reports    []Report `json:"reports"`
	Stats      RunStats `json:"stats"`
	DurationMs int64    `json:"duration_ms"`
}

// ServeHTTP implements the http.Handler interface. It collects the
// samples in scope, runs them through the pipeline and writes the
// composed reports as JSON.
func (handler *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handler.defaultTimeout)
	defer cancel()

	collected, err := handler.source.CollectSamples(ctx, query)
	if err != nil {
		slog.Error("failed to collect usage samples", "scope", query.Scope, "target", query.Target, "err", err.Error())
		http.Error(w, "failed to collect usage samples", http.StatusBadGateway)
		return
	}

	samples := make(chan UsageSample)
	go func() {
		defer close(samples)
		for _, sample := range collected {
			select {
			case <-ctx.Done():
				return
			case samples <- sample:
			}
		}
	}()

	result, err := handler.pipeline.Run(ctx, samples, query.Window, query.Grouping())
	if err != nil {
		slog.Error("pipeline run failed", "scope", query.Scope, "target", query.Target, "err", err.Error())
		http.Error(w, "pipeline run failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(queryResponse{
		Reports:    result.Reports,
		Stats:      result.Stats,
		DurationMs: time.Since(start).Milliseconds(),
	}); err != nil {
		slog.Error("failed to encode report response", "err", err.Error())
		return
	}

	slog.Info("report served",
		"scope", query.Scope,
		"target", query.Target,
		"groups", len(result.Reports),
		"processed", result.Stats.Processed,
		"skipped", result.Stats.Skipped,
		"duration", time.Since(start))
}

func parseQuery(r *http.Request) (Query, error) {
	params := r.URL.Query()

	query := Query{
		Scope:  Scope(params.Get("scope")),
		Target: params.Get("target"),
	}
	switch query.Scope {
	case ScopeCluster, ScopeApplication, ScopeResource:
	case "":
		query.Scope = ScopeResource
	default:
		return Query{}, Configf("unsupported scope %q", query.Scope)
	}

	start, err := time.Parse(time.RFC3339, params.Get("start"))
	if err != nil {
		return Query{}, Configf("invalid start time: %s", err)
	}
	end, err := time.Parse(time.RFC3339, params.Get("end"))
	if err != nil {
		return Query{}, Configf("invalid end time: %s", err)
	}
	step, err := time.ParseDuration(params.Get("step"))
	if err != nil {
		return Query{}, Configf("invalid step: %s", err)
	}

	query.Window = Window{Start: start, End: end, Step: step}
	if err := query.Window.Validate(); err != nil {
		return Query{}, err
	}
	return query, nil
}

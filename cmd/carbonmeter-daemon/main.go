package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/internal/config"
	"github.com/greenops/carbonmeter/internal/finops"
	"github.com/greenops/carbonmeter/internal/logging"
	"github.com/greenops/carbonmeter/model"
)

func main() {
	ctx := context.Background()

	flagConfig := ""
	flagInput := ""
	flagOutput := ""
	flagDate := ""
	flagWorkers := 0
	flagLogLevel := ""
	flagLogFormat := ""
	overrides := make(map[string]string)

	flag.StringVar(&flagConfig, "config", "", "path to the pipeline configuration file")
	flag.StringVar(&flagInput, "input", "", "comma separated list of usage export files")
	flag.StringVar(&flagOutput, "output", "carbon-report.csv", "path of the generated report")
	flag.StringVar(&flagDate, "date", "", "report day (YYYY-MM-DD, defaults to yesterday)")
	flag.IntVar(&flagWorkers, "workers", 4, "sample processing concurrency")
	flag.StringVar(&flagLogLevel, "log.level", "info", "log severity (debug, info, warn, error)")
	flag.StringVar(&flagLogFormat, "log.format", "text", "log format (text, json)")
	flag.Func("set", "configuration override (key=value, repeatable)", func(kv string) error {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return carbonmeter.Configf("override must be key=value, got %q", kv)
		}
		overrides[key] = value
		return nil
	})
	flag.Parse()

	logging.Init(flagLogLevel, flagLogFormat)

	if flagInput == "" {
		slog.Error("no usage export given")
		flag.PrintDefaults()
		os.Exit(1)
	}

	date := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if flagDate != "" {
		parsed, err := time.Parse("2006-01-02", flagDate)
		if err != nil {
			slog.Error("invalid report date", "date", flagDate, "err", err)
			os.Exit(1)
		}
		date = parsed
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		slog.Error("failed to load configuration", "path", flagConfig, "err", err)
		os.Exit(1)
	}
	if err := cfg.Override(overrides); err != nil {
		slog.Error("failed to apply configuration overrides", "err", err)
		os.Exit(1)
	}

	processor, err := cfg.Processor(model.VariantInfrastructure)
	if err != nil {
		slog.Error("invalid pipeline configuration", "err", err)
		os.Exit(1)
	}

	pipeline, err := carbonmeter.NewPipeline(processor, carbonmeter.WithWorkers(flagWorkers))
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		os.Exit(1)
	}

	start := time.Now()
	slog.Info("starting carbon report run", "date", date.Format("2006-01-02"), "output", flagOutput)

	read, err := finops.ReadFiles(strings.Split(flagInput, ","))
	if err != nil {
		slog.Error("failed to read usage exports", "err", err)
		os.Exit(1)
	}
	if len(read.Samples) == 0 {
		slog.Error("no usable rows found in usage exports")
		os.Exit(1)
	}

	// One bucket spanning the whole day yields one report row per
	// resource.
	window := carbonmeter.Window{
		Start: date,
		End:   date.Add(24 * time.Hour),
		Step:  24 * time.Hour,
	}

	samples := make(chan carbonmeter.UsageSample)
	go func() {
		defer close(samples)
		for _, sample := range read.Samples {
			samples <- sample
		}
	}()

	result, err := pipeline.Run(ctx, samples, window, carbonmeter.GroupByResource)
	if err != nil {
		slog.Error("pipeline run failed", "err", err)
		os.Exit(1)
	}

	rows := finops.BuildRows(date, result.Reports, read.Meta, cfg.BuildIntensity())

	out, err := os.Create(flagOutput)
	if err != nil {
		slog.Error("failed to create report file", "path", flagOutput, "err", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := finops.WriteReport(out, rows); err != nil {
		slog.Error("failed to write report", "path", flagOutput, "err", err)
		os.Exit(1)
	}

	totalEnergy, totalCarbon := 0.0, 0.0
	for _, row := range rows {
		totalEnergy += row.EnergyKWh
		totalCarbon += row.TotalG
	}

	slog.Info("carbon report written",
		"path", flagOutput,
		"resources", len(rows),
		"processed", result.Stats.Processed,
		"skipped", result.Stats.Skipped,
		"deduped", result.Stats.Deduped,
		"total_energy_kwh", totalEnergy,
		"total_carbon_kg", carbonmeter.Emissions(totalCarbon).KgCO2eq(),
		"duration", time.Since(start))

	for reason, n := range result.Stats.Reasons {
		slog.Warn("samples excluded from report", "reason", reason, "count", n)
	}
}

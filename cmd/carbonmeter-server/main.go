package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/internal/config"
	"github.com/greenops/carbonmeter/internal/logging"
	"github.com/greenops/carbonmeter/internal/telemetry"
	"github.com/greenops/carbonmeter/model"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}

	flagListen := ""
	flagConfig := ""
	flagPrometheusURL := ""
	flagInstanceClass := ""
	flagRegion := ""
	flagCacheTTL := time.Duration(0)
	flagWorkers := 0
	flagLogLevel := ""
	flagLogFormat := ""
	overrides := make(map[string]string)

	flag.StringVar(&flagListen, "listen", "0.0.0.0:2923", "addr to listen to")
	flag.StringVar(&flagConfig, "config", "", "path to the configuration file")
	flag.StringVar(&flagPrometheusURL, "telemetry.url", "", "prometheus base url to collect usage from")
	flag.StringVar(&flagInstanceClass, "telemetry.instanceclass", "", "instance class of the nodes running the workloads")
	flag.StringVar(&flagRegion, "telemetry.region", "", "region hosting the workloads")
	flag.DurationVar(&flagCacheTTL, "telemetry.cachettl", 5*time.Minute, "how long collected usage is cached")
	flag.IntVar(&flagWorkers, "workers", 4, "number of concurrent sample processors")
	flag.StringVar(&flagLogLevel, "log.level", "info", "log severity (debug, info, warn, error)")
	flag.StringVar(&flagLogFormat, "log.format", "text", "log format (text, json)")
	flag.Func("set", "override a configuration key (key=value, repeatable)", func(s string) error {
		key, value, found := strings.Cut(s, "=")
		if !found {
			return fmt.Errorf("expected key=value, got %q", s)
		}
		overrides[key] = value
		return nil
	})

	flag.Parse()

	logging.Init(flagLogLevel, flagLogFormat)

	if flagPrometheusURL == "" {
		slog.Error("telemetry url is not set")
		flag.PrintDefaults()
		os.Exit(1)
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

	client, err := telemetry.NewClient(flagPrometheusURL,
		telemetry.WithNodeInstanceClass(flagInstanceClass),
		telemetry.WithRegion(flagRegion),
		telemetry.WithCacheTTL(flagCacheTTL),
	)
	if err != nil {
		slog.Error("failed to create telemetry client", "url", flagPrometheusURL, "err", err)
		os.Exit(1)
	}

	processor, err := cfg.Processor(model.VariantApplication)
	if err != nil {
		slog.Error("failed to build processor", "err", err)
		os.Exit(1)
	}

	pipeline, err := carbonmeter.NewPipeline(processor,
		carbonmeter.WithWorkers(flagWorkers),
	)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/report", carbonmeter.NewQueryHandler(client, pipeline))

	slog.Info("starting carbonmeter server", "listen", flagListen)
	if err := http.ListenAndServe(flagListen, mux); err != nil {
		slog.Error("failed to start carbonmeter server", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"scrub/internal/cleaner"
	"scrub/internal/config"
	"scrub/internal/metrics"
	"scrub/internal/metrics/prompush"
)

// main is the entry point for the scrub binary. It loads the run config,
// optionally initializes a metrics backend, executes the cleaning run, and
// writes the report JSON.
func main() {
	var (
		cfgPath           string
		reportPath        string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/sample.json", "run config JSON path")
	flag.StringVar(&reportPath, "report", "", "write the run report JSON to this path (default stdout)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}

	var cfg config.Config
	err = json.NewDecoder(f).Decode(&cfg)
	f.Close()
	if err != nil {
		fatalf("decode config: %v", err)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag overrides config, config overrides env.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = cfg.Runtime.Metrics.Backend
	}
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = cfg.Runtime.Metrics.PushgatewayURL
		}
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		jobName := cfg.Job
		if jobName == "" {
			jobName = "scrub_job"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			if *verbose {
				log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
			}
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("run: source=%s sink=%s chunk=%d workers=%d",
			cfg.Source.Locator, cfg.Sink.Kind,
			cfg.Runtime.EffectiveChunkSize(), cfg.Runtime.Workers)
	}

	report, _, err := cleaner.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	out := os.Stdout
	if reportPath != "" {
		out, err = os.Create(reportPath)
		if err != nil {
			fatalf("create report: %v", err)
		}
		defer out.Close()
	}
	if err := report.WriteJSON(out); err != nil {
		fatalf("write report: %v", err)
	}

	if *verbose {
		log.Printf("completed in %s: %d rows read, %d skipped, %d out",
			time.Since(start).Truncate(time.Millisecond),
			report.RowsRead, report.RowsSkipped, report.RowsOut)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

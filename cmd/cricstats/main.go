package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rzagreb/cricstats/internal/config"
	"github.com/rzagreb/cricstats/internal/database"
	"github.com/rzagreb/cricstats/internal/ingest"
	"github.com/rzagreb/cricstats/internal/metrics"
	"github.com/rzagreb/cricstats/internal/metrics/prompush"
	"github.com/rzagreb/cricstats/internal/report"
)

const usage = `usage: cricstats <command> [flags]

commands:
  init-db   create the schema (idempotent)
  ingest    download an archive and load every match into storage
  report    run a season report and print it as a table

run "cricstats <command> -h" for command flags
`

// main dispatches to one of the subcommands. Each subcommand loads the
// environment config, validates it, and opens its own pool.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init-db":
		err = runInitDB(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// loadConfig reads the environment config and prints validation issues,
// failing when any is an error.
func loadConfig() (config.Config, error) {
	cfg := config.FromEnv()
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		return config.Config{}, fmt.Errorf("configuration is invalid: %s", cfg)
	}
	return cfg, nil
}

func runInitDB(args []string) error {
	fs := flag.NewFlagSet("init-db", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, closeDB, err := database.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer closeDB()

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	log.Printf("database initialized")
	return nil
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	mode := fs.String("mode", "odi_all", fmt.Sprintf("ingest mode (%s)", strings.Join(modeNames(), ", ")))
	workers := fs.Int("workers", 4, "concurrent match-file parsers")
	metricsBackend := fs.String("metrics-backend", "none", "metrics backend to use (pushgateway, none)")
	pushGatewayURL := fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	verbose := fs.Bool("v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupMetrics(*metricsBackend, *pushGatewayURL, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	db, closeDB, err := database.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer closeDB()

	if *verbose {
		log.Printf("ingest: mode=%s workers=%d config=%s", *mode, *workers, cfg)
	}

	start := time.Now()
	ing := ingest.NewIngestor(db, cfg, *workers)
	if err := ing.Run(ctx, *mode); err != nil {
		return err
	}
	log.Printf("ingestion completed in %s (mode=%s)", time.Since(start).Truncate(time.Millisecond), *mode)
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	name := fs.String("name", "", fmt.Sprintf("report to generate (%s)", strings.Join(report.Names(), ", ")))
	season := fs.String("season", "", `season to report on, e.g. "2018/19"`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *season == "" {
		fs.Usage()
		return fmt.Errorf("report: -name and -season are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, closeDB, err := database.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer closeDB()

	res, err := report.Season(ctx, db, *name, *season)
	if err != nil {
		return err
	}
	return report.WriteTable(os.Stdout, res)
}

// setupMetrics picks the metrics backend: flag, then env, then disabled.
func setupMetrics(backendName, gwURL string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("cricstats_ingest", gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v", gwURL, backendName)
		metrics.SetBackend(b)
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func modeNames() []string {
	names := make([]string, 0, len(ingest.Modes))
	for name := range ingest.Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package main implements the datapeek diagnostic binary. It drives the
// built-in self-test harness through the full ingest, query, and
// statistics pipeline and reports per-step results. Interactive use goes
// through the embedding front end, not this binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/selftest"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "datapeek - in-memory CSV analytics engine self-test\n\n")
		fmt.Fprintf(os.Stderr, "Usage: datapeek [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  datapeek\n")
		fmt.Fprintf(os.Stderr, "  datapeek --config /etc/datapeek/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DATAPEEK_MAX_FILE_BYTES          Ingestion size ceiling in bytes\n")
		fmt.Fprintf(os.Stderr, "  DATAPEEK_TABLE_NAME              Virtual table name for queries\n")
		fmt.Fprintf(os.Stderr, "  DATAPEEK_SELFTEST_SETTLE_DELAY   Visualization settle delay\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("datapeek %s (%s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	harness, err := selftest.New(cfg, func(r selftest.StepResult) {
		if r.Status == selftest.StatusRunning {
			log.Printf("selftest: %s ...", r.Name)
		}
	})
	if err != nil {
		log.Fatalf("failed to create self-test harness: %v", err)
	}
	defer harness.Close()

	results := harness.Run(ctx)

	failed := false
	for _, r := range results {
		if r.Status == selftest.StatusFailed {
			failed = true
			log.Printf("selftest: FAIL %s: %s", r.Name, r.Message)
		} else {
			log.Printf("selftest: ok   %s", r.Name)
		}
	}

	if failed {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/engine"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/events"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/store"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/watch"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/yamlio"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "schedule":
		runSchedule(os.Args[2:])
	case "seed":
		runSeed(os.Args[2:])
	case "version":
		fmt.Printf("stomaboard %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// commonOpts are the flags every analytics-running command shares.
type commonOpts struct {
	dbPath     string
	configPath string
	benchPath  string
}

func (o *commonOpts) take(args []string, i int) (int, bool) {
	need := func(name string) string {
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", name)
			os.Exit(1)
		}
		i++
		return args[i]
	}
	switch args[i] {
	case "--db":
		o.dbPath = need("--db")
	case "--config":
		o.configPath = need("--config")
	case "--benchmarks":
		o.benchPath = need("--benchmarks")
	default:
		return i, false
	}
	return i, true
}

func defaultOpts() commonOpts {
	return commonOpts{dbPath: "cases.db", benchPath: "benchmarks.yaml"}
}

// runOnce executes one analytics run against the store, persisting the
// updated benchmark state afterwards.
func runOnce(ctx context.Context, opts commonOpts, bus *events.Bus) (*model.RunReport, error) {
	cfg, err := yamlio.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(opts.dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	prev := engine.Benchmarks{}
	if _, err := yamlio.LoadInto(opts.benchPath, &prev); err != nil {
		return nil, err
	}

	eng := engine.New(cfg, s, bus, time.Local)
	report, next, err := eng.Run(ctx, prev)
	if err != nil {
		return nil, err
	}
	if err := yamlio.AtomicWrite(opts.benchPath, next); err != nil {
		return nil, fmt.Errorf("persist benchmarks: %w", err)
	}
	return report, nil
}

func runAnalyze(args []string) {
	opts := defaultOpts()
	jsonOutput := false
	outPath := ""
	for i := 0; i < len(args); i++ {
		if ni, ok := opts.take(args, i); ok {
			i = ni
			continue
		}
		switch args[i] {
		case "--json":
			jsonOutput = true
		case "--out":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--out requires a value")
				os.Exit(1)
			}
			i++
			outPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: stomaboard analyze [--db path] [--config path] [--benchmarks path] [--json] [--out path]\n", args[i])
			os.Exit(1)
		}
	}

	report, err := runOnce(context.Background(), opts, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	if outPath != "" {
		if err := yamlio.AtomicWrite(outPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			os.Exit(1)
		}
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			os.Exit(1)
		}
		return
	}
	renderReport(os.Stdout, report)
}

func runWatch(args []string) {
	opts := defaultOpts()
	for i := 0; i < len(args); i++ {
		if ni, ok := opts.take(args, i); ok {
			i = ni
			continue
		}
		fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: stomaboard watch [--db path] [--config path] [--benchmarks path]\n", args[i])
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg, err := yamlio.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewBus(64)
	defer bus.Close()
	bus.Subscribe(events.RunCompleted, func(e events.Event) {
		logger.Printf("[engine] run completed categories=%v", e.Data["categories"])
	})
	bus.Subscribe(events.RunFailed, func(e events.Event) {
		logger.Printf("[engine] run failed error=%v", e.Data["error"])
	})

	trigger := func(ctx context.Context) {
		report, err := runOnce(ctx, opts, bus)
		if err != nil {
			logger.Printf("[watch] run error=%v", err)
			return
		}
		renderReport(os.Stdout, report)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One run up front; the watcher only covers subsequent changes.
	trigger(ctx)

	w := watch.New(opts.dbPath, cfg.Watcher, logger, trigger)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}
}

func runSchedule(args []string) {
	opts := defaultOpts()
	spec := "0 * * * *" // hourly
	for i := 0; i < len(args); i++ {
		if ni, ok := opts.take(args, i); ok {
			i = ni
			continue
		}
		switch args[i] {
		case "--cron":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--cron requires a value")
				os.Exit(1)
			}
			i++
			spec = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: stomaboard schedule [--cron spec] [--db path] [--config path] [--benchmarks path]\n", args[i])
			os.Exit(1)
		}
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		report, err := runOnce(ctx, opts, nil)
		if err != nil {
			logger.Printf("[schedule] run error=%v", err)
			return
		}
		logger.Printf("[schedule] run completed overall=%.1f categories=%d",
			report.OverallThroughput, len(report.Categories))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "schedule: invalid cron spec %q: %v\n", spec, err)
		os.Exit(1)
	}

	logger.Printf("[schedule] running %q against %s", spec, opts.dbPath)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

func runSeed(args []string) {
	opts := defaultOpts()
	n := 60
	var seed int64 = 1
	for i := 0; i < len(args); i++ {
		if ni, ok := opts.take(args, i); ok {
			i = ni
			continue
		}
		switch args[i] {
		case "--count":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--count requires a value")
				os.Exit(1)
			}
			i++
			v, err := strconv.Atoi(args[i])
			if err != nil || v <= 0 {
				fmt.Fprintf(os.Stderr, "--count must be a positive integer, got %q\n", args[i])
				os.Exit(1)
			}
			n = v
		case "--seed":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--seed requires a value")
				os.Exit(1)
			}
			i++
			v, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--seed must be an integer, got %q\n", args[i])
				os.Exit(1)
			}
			seed = v
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: stomaboard seed [--count n] [--seed n] [--db path] [--config path]\n", args[i])
			os.Exit(1)
		}
	}

	cfg, err := yamlio.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	s, err := store.Open(opts.dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Seed(context.Background(), cfg, n, seed); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d cases into %s\n", n, opts.dbPath)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `stomaboard %s — Case throughput analytics for dental-lab production

Usage: stomaboard <command> [options]

Commands:
  analyze [flags]    Run analytics once and print the report
                       --db path          case database (default cases.db)
                       --config path      YAML config overlay
                       --benchmarks path  benchmark state file (default benchmarks.yaml)
                       --json             JSON instead of text
                       --out path         also write the report as YAML
  watch [flags]      Re-run analytics whenever the database changes
  schedule [flags]   Run analytics on a cron schedule (--cron spec, default hourly)
  seed [flags]       Populate the database with demo cases (--count, --seed)
  version            Show version
  help               Show this help

`, version)
}

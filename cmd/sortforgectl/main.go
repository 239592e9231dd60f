package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"sortforge/internal/config"
	"sortforge/internal/storage"
	forgeapi "sortforge/pkg/sortforge"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "discoveries":
		return runDiscoveries(ctx, args[1:])
	case "checkpoint":
		return runCheckpoint(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "summary":
		return runSummary(ctx, args[1:])
	case "config":
		return runConfig(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: sortforgectl <init|train|discoveries|checkpoint|history|summary|config> [flags]", msg)
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func newClient(storeKind, dbPath, logLevel string) (*forgeapi.Client, *zap.Logger, error) {
	logger, err := newLogger(logLevel)
	if err != nil {
		return nil, nil, err
	}
	client, err := forgeapi.New(forgeapi.Options{
		StoreKind: storeKind,
		DBPath:    dbPath,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sortforge.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, logger, err := newClient(*storeKind, *dbPath, "info")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	stage := fs.Int("stage", 1, "training stage: 1 syntax, 2 correctness, 3 latency")
	episodes := fs.Int("episodes", 0, "episode budget (0 uses config)")
	seed := fs.Int64("seed", 0, "rng seed (0 uses config)")
	workers := fs.Int("workers", 0, "evaluation worker count (0 uses config)")
	configPath := fs.String("config", "", "optional YAML config path")
	resumeRunID := fs.String("resume", "", "run id of a checkpoint to continue")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sortforge.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, logger, err := newClient(*storeKind, *dbPath, *logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Train(ctx, forgeapi.TrainRequest{
		Stage:       *stage,
		Episodes:    *episodes,
		Seed:        *seed,
		Workers:     *workers,
		ConfigPath:  *configPath,
		ResumeRunID: *resumeRunID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run=%s stage=%d episodes=%d best_reward=%.4f correct=%t\n",
		summary.RunID, summary.Stage, summary.Episodes, summary.BestReward, summary.Correct)
	if summary.BestProgram != "" {
		fmt.Printf("best: %s\n", summary.BestProgram)
	}
	return nil
}

func runDiscoveries(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("discoveries", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	limit := fs.Int("limit", 10, "maximum records to print (0 prints all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sortforge.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("discoveries requires -run-id")
	}

	client, logger, err := newClient(*storeKind, *dbPath, "info")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = client.Close()
	}()

	records, err := client.Discoveries(ctx, forgeapi.DiscoveriesRequest{RunID: *runID, Limit: *limit})
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("episode=%d reward=%.4f correct=%t %s\n", rec.Episode, rec.Reward, rec.Correct, rec.Sequence)
	}
	return nil
}

func runCheckpoint(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkpoint", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sortforge.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("checkpoint requires -run-id")
	}

	client, logger, err := newClient(*storeKind, *dbPath, "info")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = client.Close()
	}()

	checkpoint, err := client.Checkpoint(ctx, *runID)
	if err != nil {
		return err
	}
	fmt.Printf("run=%s stage=%d episode=%d curriculum_index=%d baseline=%.4f\n",
		checkpoint.RunID, checkpoint.Stage, checkpoint.Episode, checkpoint.CurriculumIndex, checkpoint.Baseline)
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	limit := fs.Int("limit", 20, "most recent rewards to print (0 prints all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sortforge.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("history requires -run-id")
	}

	client, logger, err := newClient(*storeKind, *dbPath, "info")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = client.Close()
	}()

	history, err := client.RewardHistory(ctx, *runID, *limit)
	if err != nil {
		return err
	}
	for i, reward := range history {
		fmt.Printf("%d\t%.4f\n", i, reward)
	}
	return nil
}

func runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sortforge.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("summary requires -run-id")
	}

	client, logger, err := newClient(*storeKind, *dbPath, "info")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = client.Close()
	}()

	summary, err := client.Summary(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("run=%s stage=%d episodes=%d best_reward=%.4f solved=%t best=%s\n",
		summary.RunID, summary.Stage, summary.Episodes, summary.BestReward, summary.Solved, summary.BestSequence)
	return nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML config path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

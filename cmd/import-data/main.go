package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/ingest"
	repo "github.com/joseph-ayodele/foodgram/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "data", "directory holding ingredients.{json,csv} and tags.{json,csv}")
		file       = flag.String("file", "", "load a single fixture file instead of a directory")
		workers    = flag.Int("workers", 0, "concurrent writers (defaults to 1 for SQLite, 4 otherwise)")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories")
	)
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := common.NewLogger(cfg.Logging)
	if err != nil {
		printError("Error: building logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		printError("Error: opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close(logger)

	if err := store.Migrate(ctx, logger); err != nil {
		printError("Error: migrating database: %v\n", err)
		os.Exit(1)
	}

	n := *workers
	if n <= 0 {
		n = 4
		if store.Dialect() != "postgres" {
			n = 1
		}
	}
	loader := ingest.NewLoader(
		repo.NewIngredientRepository(store, logger),
		repo.NewTagRepository(store, logger),
		logger,
		ingest.WithWorkers(n),
	)

	if *file != "" {
		res, err := loader.LoadFile(ctx, *file)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		printResult(res)
		return
	}

	results, stats, err := loader.LoadDirectory(ctx, *dir, *skipHidden)
	if err != nil {
		logger.Error("import failed", zap.String("dir", *dir), zap.Error(err))
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Import Results ===")
	for _, res := range results {
		printResult(res)
	}
	fmt.Println(strings.Repeat("-", 22))
	fmt.Printf("files scanned:   %d\n", stats.Scanned)
	fmt.Printf("files matched:   %d\n", stats.Matched)
	fmt.Printf("files loaded:    %d\n", stats.Succeeded)
	fmt.Printf("files failed:    %d\n", stats.Failed)
	fmt.Printf("records created: %d\n", stats.Created)
	fmt.Printf("records present: %d\n", stats.Existing)

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func printResult(res ingest.FileResult) {
	if res.Err != "" {
		fmt.Printf("FAIL %s (%s): %s\n", res.Path, res.Kind, res.Err)
		return
	}
	fmt.Printf("OK   %s (%s): %d records, %d created, %d present\n",
		res.Path, res.Kind, res.Records, res.Created, res.Existing)
}

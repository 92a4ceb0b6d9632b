package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dealsift/internal/config"
	"dealsift/internal/engine"
	"dealsift/internal/extract"
	"dealsift/internal/fetcher"
	"dealsift/internal/locator"
	"dealsift/internal/observability"
	"dealsift/internal/pipeline"
	"dealsift/internal/storage"
	"dealsift/internal/types"
)

var (
	cfgFile       string
	verbose       bool
	outputPath    string
	outputType    string
	fetcherType   string
	maxPages      int
	concurrency   int
	delay         string
	minConfidence int
	checkpoint    string
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "dealsift",
		Short: "dealsift — marketplace listing scraper",
		Long: `dealsift scrapes online-business marketplace listing indexes and extracts
structured deal records from loosely structured listing cards.

Features:
  • Structural container location with a content-driven currency fallback
  • Per-field extraction cascades with confidence scoring and provenance
  • First-seen-wins deduplication across pages and runs
  • Paginated crawling with automatic exhaustion detection
  • HTTP and headless-browser fetching (JS-rendered pages)
  • JSON, JSONL, CSV, PostgreSQL, MongoDB, SQLite output
  • Checkpoint-based pause/resume
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Scrape a paginated listing index",
		Long: `Scrape the given listing index URL page by page, extracting one record per
listing card. Stops when the page budget is spent or the site is exhausted
(consecutive empty pages).`,
		Args: cobra.ExactArgs(1),
		RunE: runScrape,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output: json, jsonl, csv, postgres, mongodb, sqlite")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http, browser")
	cmd.Flags().IntVarP(&maxPages, "max-pages", "m", 0, "maximum pages to scrape (0 = use config)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "number of concurrent page workers (0 = use config)")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between requests")
	cmd.Flags().IntVar(&minConfidence, "min-confidence", 0, "acceptance threshold 0-100 (0 = use config)")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint file for pause/resume")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.ValidateURL(args[0]); err != nil {
		return fmt.Errorf("invalid URL %q: %w", args[0], err)
	}

	logger.Info("starting scrape",
		"url", args[0],
		"max_pages", cfg.Engine.MaxPages,
		"concurrency", cfg.Engine.Concurrency,
		"fetcher", cfg.Fetcher.Type,
		"storage", cfg.Storage.Type,
	)

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	pipe := pipeline.New(logger)
	pipe.Use(&pipeline.TrimMiddleware{})
	pipe.Use(&pipeline.PriceSanityMiddleware{
		MaxPrice:            cfg.Extractor.MaxPrice,
		MaxMonthlyRecurring: cfg.Extractor.MaxMonthlyRecurring,
		MaxMultiple:         cfg.Extractor.MaxMultiple,
	})

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, &cfg.Metrics, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()

	eng := engine.New(cfg, f,
		locator.New(&cfg.Locator, logger),
		extract.New(&cfg.Extractor, logger),
		pipe, store, metrics, logger,
	)

	res, err := eng.Run(ctx, args[0])
	if err != nil && !errors.Is(err, types.ErrRunStopped) {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("\nScrape complete in %s\n", res.Duration.Round(time.Millisecond))
	fmt.Printf("   Pages:     %d scraped, %d failed\n", res.PagesScraped, res.PagesFailed)
	fmt.Printf("   Listings:  %d stored, %d duplicates dropped\n", res.ListingsStored, res.Duplicates)
	if res.StoppedEarly {
		fmt.Println("   Stopped:   site exhausted (consecutive empty pages)")
	}
	if errors.Is(err, types.ErrRunStopped) {
		fmt.Println("   Stopped:   interrupted; partial results were flushed")
	}

	return nil
}

// applyCLIOverrides maps set CLI flags onto the loaded config.
func applyCLIOverrides(cfg *config.Config) {
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = outputType
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = fetcherType
	}
	if maxPages > 0 {
		cfg.Engine.MaxPages = maxPages
	}
	if concurrency > 0 {
		cfg.Engine.Concurrency = concurrency
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Engine.PolitenessDelay = d
		}
	}
	if minConfidence > 0 {
		cfg.Extractor.MinConfidence = minConfidence
	}
	if checkpoint != "" {
		cfg.Engine.CheckpointPath = checkpoint
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger configures slog from the environment before config is loaded.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if os.Getenv("DEALSIFT_LOGGING_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dealsift %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	var initPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if initPath != "" {
				if err := config.WriteStarter(initPath); err != nil {
					return err
				}
				fmt.Printf("Starter config written to %s\n", initPath)
				return nil
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Engine:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Engine.Concurrency)
			fmt.Printf("  Max Pages:         %d\n", cfg.Engine.MaxPages)
			fmt.Printf("  Page Param:        %s\n", cfg.Engine.PageParam)
			fmt.Printf("  Empty Page Limit:  %d\n", cfg.Engine.EmptyPageLimit)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Engine.RequestTimeout)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Engine.PolitenessDelay)
			fmt.Printf("  Max Retries:       %d\n", cfg.Engine.MaxRetries)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nLocator:\n")
			fmt.Printf("  CSS Selectors:     %d configured\n", len(cfg.Locator.Selectors))
			fmt.Printf("  XPath Selectors:   %d configured\n", len(cfg.Locator.XPathSelectors))
			fmt.Printf("  Max Containers:    %d\n", cfg.Locator.MaxContainers)
			fmt.Printf("\nExtractor:\n")
			fmt.Printf("  Min Confidence:    %d\n", cfg.Extractor.MinConfidence)
			fmt.Printf("  Categories:        %d configured\n", len(cfg.Extractor.Categories))
			fmt.Printf("  Badges:            %d configured\n", len(cfg.Extractor.Badges))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}

	cmd.Flags().StringVar(&initPath, "init", "", "write a starter config file to the given path")
	return cmd
}

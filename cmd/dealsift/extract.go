package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"dealsift/internal/config"
	"dealsift/internal/extract"
	"dealsift/internal/locator"
	"dealsift/internal/normalize"
	"dealsift/internal/pipeline"
)

var (
	extractSourceURL string
	extractAll       bool
)

// extractCmd creates the "extract" subcommand for offline extraction from a
// saved HTML file. Useful for tuning selectors without hitting the site.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract listings from a saved HTML page",
		Long: `Run container location and field extraction against a saved HTML file and
print the extracted records as JSON. No network access.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().StringVar(&extractSourceURL, "source-url", "", "page URL to resolve relative links against")
	cmd.Flags().BoolVar(&extractAll, "all", false, "include records below the confidence threshold")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open HTML file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return fmt.Errorf("parse HTML: %w", err)
	}

	loc := locator.New(&cfg.Locator, logger)
	ext := extract.New(&cfg.Extractor, logger)

	pipe := pipeline.New(logger)
	pipe.Use(&pipeline.TrimMiddleware{})
	pipe.Use(&pipeline.PriceSanityMiddleware{
		MaxPrice:            cfg.Extractor.MaxPrice,
		MaxMonthlyRecurring: cfg.Extractor.MaxMonthlyRecurring,
		MaxMultiple:         cfg.Extractor.MaxMultiple,
	})

	containers, strategy, err := loc.Locate(doc)
	if err != nil {
		return fmt.Errorf("locate containers: %w", err)
	}
	logger.Info("containers located", "count", len(containers), "strategy", strategy)

	acc := normalize.NewAccumulator(len(containers))
	rejected := 0
	for _, c := range containers {
		l := ext.Extract(c, extractSourceURL)
		if !extractAll && !ext.Accepted(l) {
			rejected++
			continue
		}
		processed, err := pipe.Process(l)
		if err != nil || processed == nil {
			rejected++
			continue
		}
		acc.Insert(processed)
	}

	listings := acc.All()
	docs := make([]map[string]any, len(listings))
	for i, l := range listings {
		docs[i] = l.ToDocument()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	logger.Info("extraction complete",
		"containers", len(containers),
		"accepted", len(listings),
		"rejected", rejected,
		"duplicates", acc.Dropped(),
	)
	return nil
}

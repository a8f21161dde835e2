package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vesselcost/internal/cache"
	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/pipeline"
	"github.com/ppiankov/vesselcost/internal/worker"
)

var (
	concurrency   int
	batchOutDir   string
	batchTimeout  time.Duration
	batchXLSX     bool
	batchJSON     bool
	batchEnrich   bool
	batchMode     string
	batchProvider string
	batchModel    string
	batchNoCache  bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Price many datasheets from a list file in parallel",
	Long: `Batch reads document paths or URLs from a file (one per line, # for
comments) and quotes each one concurrently:
- Every document gets its own pipeline run
- Enrichment calls share one rate limit per provider
- One failing document does not stop the others
- Reports are written to the output directory

Example:
  vesselcost batch vessels.txt
  vesselcost batch vessels.txt --concurrency 8 --out ./quotes --json
  vesselcost batch vessels.txt --enrich --mode budget`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "output directory for reports (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchXLSX, "xlsx", true, "write spreadsheet reports")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "write JSON reports")

	addEnrichFlags(batchCmd, &batchEnrich, &batchMode, &batchProvider, &batchModel, &batchNoCache)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := applyEnrichFlags(cfg, batchEnrich, batchMode, batchProvider, batchModel, batchNoCache)
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if batchOutDir != "" {
		cfg.Output.Dir = batchOutDir
	}
	if cmd.Flags().Changed("xlsx") {
		cfg.Output.XLSX = batchXLSX
	}
	if cmd.Flags().Changed("json") {
		cfg.Output.JSON = batchJSON
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := commandContext(batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  vesselcost Batch Quoting\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Enabled {
		fmt.Fprintf(os.Stderr, "  Enrichment:   %s (%s mode, %.1f req/s)\n", cfg.LLM.Provider, mode, cfg.RateLimiting.RequestsPerSecond)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// One limiter and cache for every run in the batch
	limiter := worker.NewProviderLimiter(cfg.RateLimiting)
	p := pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithLimiter(limiter),
		pipeline.WithCache(cache.New(cfg.Cache)),
	)

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers).
		WithOptions(pipeline.ProcessOptions{Enrich: cfg.LLM.Enabled, Mode: mode}).
		WithSinks(fileSinks(cfg)...)

	fmt.Fprintf(os.Stderr, "⚙️  Quoting documents with %d workers...\n\n", cfg.Concurrency.Workers)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Location, result.Error)
			continue
		}
		rep := result.Report
		fmt.Fprintf(os.Stderr, "✓ %s: %s %s %s (%s confidence)\n",
			result.Location, vesselLabel(rep), rep.Total.StringFixed(model.CurrencyPlaces), rep.Currency, rep.Confidence)
		if result.DeliveryError != nil {
			fmt.Fprintf(os.Stderr, "  ⚠️  %v\n", result.DeliveryError)
		}
	}

	summary := worker.Summarize(results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", summary.Processed)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.Failed)
	if summary.DeliveryFailed > 0 {
		fmt.Fprintf(os.Stderr, "  Undelivered: %d\n", summary.DeliveryFailed)
	}
	fmt.Fprintf(os.Stderr, "  Quoted:    %s\n", summary.Total.StringFixed(model.CurrencyPlaces))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, len(results))
	}
	return nil
}

func vesselLabel(rep *model.Report) string {
	if rep.VesselNumber == "" {
		return "Unknown vessel"
	}
	return rep.VesselNumber
}

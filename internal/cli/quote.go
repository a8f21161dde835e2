package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/pipeline"
	"github.com/ppiankov/vesselcost/internal/report"
)

var (
	quoteOutDir   string
	quoteXLSX     bool
	quoteJSON     bool
	quoteEnrich   bool
	quoteMode     string
	quoteProvider string
	quoteModel    string
	quoteSet      []string
	quoteEmail    string
	quoteWebhook  string
	quoteNoCache  bool
	quoteTimeout  time.Duration
)

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote <document>",
	Short: "Price one pressure vessel datasheet",
	Long: `Quote extracts the vessel attributes from a datasheet, applies any
--set overrides, prices the vessel and writes the report.

The document may be a PDF, HTML or text file, an http(s) URL, or "-" for
text on stdin.

Example:
  vesselcost quote V-1024.pdf
  vesselcost quote V-1024.pdf --set length_ft=24 --set material="SA-240 316L"
  vesselcost quote V-1024.pdf --enrich --mode full --json
  vesselcost quote V-1024.pdf --email estimating@example.com --webhook https://hooks.example.com/quote`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	// Output flags
	quoteCmd.Flags().StringVar(&quoteOutDir, "out", "", "output directory for reports (default from config)")
	quoteCmd.Flags().BoolVar(&quoteXLSX, "xlsx", true, "write the spreadsheet report")
	quoteCmd.Flags().BoolVar(&quoteJSON, "json", false, "write the JSON report")
	quoteCmd.Flags().StringArrayVar(&quoteSet, "set", nil, "override an attribute (name=value, repeatable)")

	// Delivery flags
	quoteCmd.Flags().StringVar(&quoteEmail, "email", "", "email the spreadsheet to this recipient via the webhook")
	quoteCmd.Flags().StringVar(&quoteWebhook, "webhook", "", "email webhook URL (default from config)")

	// Enrichment flags
	addEnrichFlags(quoteCmd, &quoteEnrich, &quoteMode, &quoteProvider, &quoteModel, &quoteNoCache)
	quoteCmd.Flags().DurationVar(&quoteTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func addEnrichFlags(cmd *cobra.Command, enrich *bool, mode, provider, llmModel *string, noCache *bool) {
	cmd.Flags().BoolVar(enrich, "enrich", false, "run the AI enrichment pass")
	cmd.Flags().StringVar(mode, "mode", "", "enrichment mode: budget or full (default from config)")
	cmd.Flags().StringVar(provider, "provider", "", "LLM provider: openai, anthropic, ollama (default from config)")
	cmd.Flags().StringVar(llmModel, "model", "", "LLM model name (default depends on provider and mode)")
	cmd.Flags().BoolVar(noCache, "no-cache", false, "disable the enrichment response cache")
}

// applyEnrichFlags updates cfg from the enrichment flags and resolves the mode
func applyEnrichFlags(cfg *model.Config, enrich bool, mode, provider, llmModel string, noCache bool) (model.EnrichmentMode, error) {
	if enrich {
		cfg.LLM.Enabled = true
	}
	if provider != "" {
		cfg.LLM.Provider = provider
		applyProviderEnv(cfg)
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if mode == "" {
		mode = cfg.LLM.Mode
	}
	return model.ParseEnrichmentMode(mode)
}

// fileSinks returns the configured spreadsheet and JSON sinks
func fileSinks(cfg *model.Config) []report.Sink {
	var sinks []report.Sink
	if cfg.Output.XLSX {
		sinks = append(sinks, report.NewXLSXSink(cfg.Output.Dir))
	}
	if cfg.Output.JSON {
		sinks = append(sinks, report.NewJSONSink(cfg.Output.Dir))
	}
	return sinks
}

func runQuote(cmd *cobra.Command, args []string) error {
	location := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := applyEnrichFlags(cfg, quoteEnrich, quoteMode, quoteProvider, quoteModel, quoteNoCache)
	if err != nil {
		return err
	}
	if quoteOutDir != "" {
		cfg.Output.Dir = quoteOutDir
	}
	if cmd.Flags().Changed("xlsx") {
		cfg.Output.XLSX = quoteXLSX
	}
	if cmd.Flags().Changed("json") {
		cfg.Output.JSON = quoteJSON
	}
	if quoteWebhook != "" {
		cfg.Delivery.WebhookURL = quoteWebhook
	}
	if quoteEmail != "" {
		cfg.Delivery.Recipient = quoteEmail
	}

	overrides := make([]pipeline.Override, 0, len(quoteSet))
	for _, s := range quoteSet {
		ov, err := pipeline.ParseOverride(s)
		if err != nil {
			return err
		}
		overrides = append(overrides, ov)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := commandContext(quoteTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Quoting: %s\n", location)
		fmt.Fprintf(os.Stderr, "Enrichment: %v", cfg.LLM.Enabled)
		if cfg.LLM.Enabled {
			fmt.Fprintf(os.Stderr, " (%s, %s mode)", cfg.LLM.Provider, mode)
		}
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.New(cfg, pipeline.WithLogger(logger))

	run, err := extractRun(ctx, p, location, os.Stdin)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d/%d attributes (%s profile)\n",
			run.Attributes.PresentCount(model.AttributeNames()...), len(model.AttributeNames()), run.Document.Profile)
	}

	if _, err := p.Process(ctx, run, pipeline.ProcessOptions{
		Overrides: overrides,
		Enrich:    cfg.LLM.Enabled,
		Mode:      mode,
	}); err != nil {
		return fmt.Errorf("quote failed: %w", err)
	}

	sinks := []report.Sink{report.NewConsoleSink(os.Stdout, cfg.Output.Verbose)}
	if cfg.Output.XLSX || cfg.Output.JSON {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		sinks = append(sinks, fileSinks(cfg)...)
	}
	if cfg.Delivery.Recipient != "" {
		sinks = append(sinks, report.NewWebhookSink(cfg.Delivery, cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy))
	}

	deliveries, err := p.Deliver(ctx, run, sinks...)
	for _, d := range deliveries {
		if d.Sink == "console" {
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %s\n", d.Sink, d.Location)
	}
	if err != nil {
		logger.Debug("delivery finished with errors", zap.Int("delivered", len(deliveries)))
		return fmt.Errorf("delivery failed: %w", err)
	}

	return nil
}

// extractRun loads a document, or reads text from stdin when location is "-"
func extractRun(ctx context.Context, p *pipeline.Pipeline, location string, stdin io.Reader) (*pipeline.Run, error) {
	if location != "-" {
		return p.Extract(ctx, location)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return p.ExtractText(model.DocumentMeta{Path: "-", Name: "stdin", Format: "text"}, string(data))
}

// documentName is the display name for a location
func documentName(location string) string {
	if location == "-" {
		return "stdin"
	}
	return filepath.Base(location)
}

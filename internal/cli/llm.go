package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vesselcost/internal/llm"
	"github.com/ppiankov/vesselcost/internal/model"
)

var (
	checkProvider string
	checkModel    string
)

// llmCmd groups enrichment provider commands
var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Manage the AI enrichment provider",
}

var llmCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the connection to the enrichment provider",
	Long: `Check verifies that the configured provider is reachable and the
credentials are accepted.

Example:
  vesselcost llm check
  vesselcost llm check --provider ollama`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if checkProvider != "" {
			cfg.LLM.Provider = checkProvider
			applyProviderEnv(cfg)
		}
		if checkModel != "" {
			cfg.LLM.Model = checkModel
		}
		cfg.LLM.Enabled = true

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		enricher, err := llm.NewEnricher(llm.ConfigFromModel(cfg.LLM), llm.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("create provider: %w", err)
		}

		ctx, cancel := commandContext(0)
		defer cancel()

		start := time.Now()
		if err := enricher.Check(ctx); err != nil {
			return fmt.Errorf("%s check failed: %w", enricher.ProviderName(), err)
		}

		fmt.Printf("✓ %s reachable in %s\n", enricher.ProviderName(), time.Since(start).Round(time.Millisecond))
		fmt.Printf("  budget model: %s\n", enricher.Model(model.ModeBudget))
		fmt.Printf("  full model:   %s\n", enricher.Model(model.ModeFull))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(llmCmd)
	llmCmd.AddCommand(llmCheckCmd)

	llmCheckCmd.Flags().StringVar(&checkProvider, "provider", "", "LLM provider: openai, anthropic, ollama (default from config)")
	llmCheckCmd.Flags().StringVar(&checkModel, "model", "", "LLM model name")
}

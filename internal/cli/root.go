package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/vesselcost/internal/logging"
	"github.com/ppiankov/vesselcost/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// envKeys are settable through the environment without a config file
var envKeys = []string{
	"llm.enabled", "llm.provider", "llm.model", "llm.api_key", "llm.base_url", "llm.mode", "llm.timeout",
	"llm.http_proxy", "llm.https_proxy", "llm.no_proxy",
	"cache.enabled", "cache.dir",
	"concurrency.workers",
	"output.dir", "output.xlsx", "output.json",
	"delivery.webhook_url", "delivery.recipient",
	"logging.level", "logging.format", "logging.output",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vesselcost",
	Short: "vesselcost - Pressure vessel cost estimates from datasheets",
	Long: `vesselcost reads a pressure vessel datasheet (PDF, HTML or text), extracts
the design attributes, and prices the vessel with a rule-based cost model.

An optional AI enrichment pass (OpenAI, Anthropic or Ollama) may add a
narrative and adjust line items. When it fails the rule-based estimate is
reported unchanged with a warning.

Reports are written as a spreadsheet, JSON, or sent to an email webhook.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vesselcost %s\n", model.Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.vesselcost/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// API keys are commonly kept in a local .env
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".vesselcost"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match VESSELCOST_* (llm.mode → VESSELCOST_LLM_MODE)
	viper.SetEnvPrefix("VESSELCOST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills provider credentials from the conventional variables
func applyProviderEnv(cfg *model.Config) {
	if key := os.Getenv("VESSELCOST_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}

	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
}

// newLogger builds the zap logger; --verbose lowers the level to debug
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	lc := cfg.Logging
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(lc)
}

// commandContext is cancelled on interrupt or after timeout (when positive)
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

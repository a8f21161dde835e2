package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vesselcost/internal/cache"
)

// cacheCmd groups enrichment cache commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the enrichment response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached enrichment response",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Cache.Dir == "" {
			fmt.Println("No cache directory configured; nothing to clear")
			return nil
		}

		// Clear even when caching is currently disabled
		cfg.Cache.Enabled = true
		if err := cache.New(cfg.Cache).Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}

		fmt.Printf("✓ Cleared cache: %s\n", cfg.Cache.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

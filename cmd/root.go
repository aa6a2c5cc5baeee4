package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predictops/tipsync/internal/config"
)

var (
	cfg          *config.Config
	manifestPath string
	exitCode     int
)

var rootCmd = &cobra.Command{
	Use:   "tipsync",
	Short: "AI-assisted prediction pool keeper",
	Long:  "Captures evidence pages from the pool platform, generates predictions via Claude, and verifies stored predictions against what the platform holds.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "pool.yaml", "pool manifest file")
}

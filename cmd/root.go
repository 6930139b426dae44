package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gapscan",
	Short: "Automated gap assessment pipeline",
	Long:  "Scrapes company sites into a namespaced vector store, retrieves and scores findings for a query, compares the primary company against benchmarks, and synthesizes a structured gap report.",
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
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var assessForceExtraction bool

var assessCmd = &cobra.Command{
	Use:   "assess \"<query>\"",
	Short: "Run a gap assessment for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		orch, err := env.requireOrchestrator()
		if err != nil {
			return err
		}

		result, runErr := orch.Run(ctx, args[0], assessForceExtraction)
		if result != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return eris.Wrap(err, "encode result")
			}
		}
		return runErr
	},
}

func init() {
	assessCmd.Flags().BoolVar(&assessForceExtraction, "force-extraction", false, "re-extract all companies before assessing")
	rootCmd.AddCommand(assessCmd)
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var extractForce bool

var extractCmd = &cobra.Command{
	Use:   "extract [company]",
	Short: "Extract company sites and documents into the vector store",
	Long:  "Scrapes site URLs and local documents for one company (or all registry companies when no argument is given), chunks and embeds the text, and upserts it into the company's namespace.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var results any
		if len(args) == 1 {
			c, ok := env.Registry.Find(args[0])
			if !ok {
				return eris.Errorf("unknown company %q", args[0])
			}
			res, err := env.Extractor.Extract(ctx, c, extractForce)
			if err != nil {
				return err
			}
			results = res
		} else {
			all, err := env.Extractor.ExtractAll(ctx, extractForce)
			if err != nil {
				return err
			}
			results = all
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "drop and rebuild the namespace even if data is fresh")
	rootCmd.AddCommand(extractCmd)
}

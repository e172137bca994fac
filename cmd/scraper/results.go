package main

import (
	"context"

	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: "Fetch the collected posts of a completed job",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

var resultsOut string

func init() {
	resultsCmd.Flags().StringVarP(&resultsOut, "out", "o", "", "Write JSON result to a file instead of stdout")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := a.orchestrator.Results(ctx, args[0])
	if err != nil {
		return err
	}

	if a.cfg.Verbose {
		a.printer.PrintResult(result)
	}
	return printJSON(result, resultsOut)
}

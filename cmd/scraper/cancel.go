package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request best-effort cancellation of a job",
	Long:  "Requests cancellation. The effect is asynchronous; poll 'scraper status' to observe the terminal outcome. A cancelled browser job keeps its partially collected posts.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cancelled, err := a.orchestrator.Cancel(ctx, args[0])
	if err != nil {
		return err
	}
	if !cancelled {
		fmt.Println("Job was not cancellable (already terminal or unknown to its engine)")
		return nil
	}
	fmt.Printf("Cancellation requested for %s\n", args[0])
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current status of a job",
	Long:  "Shows the tracked state of a job. Non-terminal vendor jobs are reconciled against the provider before printing.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	job, err := a.orchestrator.Job(ctx, args[0])
	if err != nil {
		return err
	}

	if a.cfg.Verbose {
		a.printer.PrintJob(job)
		return nil
	}

	fmt.Printf("%s  %s", job.ID, job.Status)
	if job.Progress != "" {
		fmt.Printf("  %s", job.Progress)
	}
	if job.Error != "" {
		fmt.Printf("  %s", job.Error)
	}
	fmt.Println()
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List a user's jobs, most recent first",
	RunE:  runJobs,
}

var jobsUserID string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate job statistics",
	RunE:  runStats,
}

func init() {
	jobsCmd.Flags().StringVarP(&jobsUserID, "user", "u", "", "User identifier (required)")
	if err := jobsCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}

	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(statsCmd)
}

func runJobs(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	jobs := a.orchestrator.ListUserJobs(jobsUserID)
	if len(jobs) == 0 {
		fmt.Printf("No jobs for user %s\n", jobsUserID)
		return nil
	}
	for _, job := range jobs {
		fmt.Printf("%s  %-9s  %-9s  %s\n", job.ID, job.Status, job.Platform, job.URL)
	}
	return nil
}

func runStats(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	stats := a.orchestrator.Stats()
	if a.cfg.Verbose {
		a.printer.PrintStats(stats)
		return nil
	}
	return printJSON(stats, "")
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old terminal jobs from the registry",
	Long:  "Purges completed, failed, and cancelled jobs whose last update is older than --max-age. Pending and running jobs are never purged regardless of age.",
	RunE:  runCleanup,
}

var cleanupMaxAge time.Duration

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 24*time.Hour, "Purge terminal jobs older than this")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	removed := a.orchestrator.CleanupOldJobs(cleanupMaxAge)
	fmt.Printf("Removed %d jobs older than %s\n", removed, cleanupMaxAge)
	return nil
}

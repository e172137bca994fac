package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/profile-scraper/internal/registry"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url> [url...]",
	Short: "Submit scrape jobs for one or more profile URLs",
	Long: `Submits a scrape job per URL and waits for each to finish. Browser-engine
platforms run to completion; vendor-engine platforms are polled until the
provider delivers. Each URL succeeds or fails on its own.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScrape,
}

var (
	scrapeUserID    string
	scrapePostLimit int
	scrapeTimeLimit time.Duration
)

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeUserID, "user", "u", "", "User identifier owning the job (required)")
	scrapeCmd.Flags().IntVar(&scrapePostLimit, "post-limit", 0, "Maximum posts to collect (0 = unbounded)")
	scrapeCmd.Flags().DurationVar(&scrapeTimeLimit, "time-limit", 0, "Maximum wall-clock collection time (0 = unbounded)")

	if err := scrapeCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	jobs, err := a.scrapeAll(ctx, args, scrapeUserID, scraper.Limits{
		PostLimit: scrapePostLimit,
		TimeLimit: scrapeTimeLimit,
	})

	for _, job := range jobs {
		if job == nil {
			continue
		}
		if a.cfg.Verbose {
			a.printer.PrintJob(job)
			if job.Result != nil {
				a.printer.PrintResult(job.Result)
			}
			continue
		}
		switch {
		case job.Status == scraper.StatusCompleted:
			fmt.Printf("%s  %s  %d posts\n", job.ID, job.Status, job.Result.TotalItems)
		case job.Error != "":
			fmt.Printf("%s  %s  %s\n", job.ID, job.Status, job.Error)
		default:
			fmt.Printf("%s  %s\n", job.ID, job.Status)
		}
	}

	return err
}

// scrapeAll submits one job per URL and waits for each to reach a terminal
// state. The group carries no shared cancellable context: every URL succeeds
// or fails on its own, and jobs that were submitted are returned even when a
// sibling URL errors.
func (a *app) scrapeAll(ctx context.Context, urls []string, userID string, limits scraper.Limits) ([]*scraper.Job, error) {
	jobs := make([]*scraper.Job, len(urls))

	var g errgroup.Group
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			job, err := a.orchestrator.Submit(ctx, scraper.Request{
				URL:    url,
				UserID: userID,
				Limits: limits,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}

			job, err = a.awaitJob(ctx, job)
			jobs[i] = job
			if err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return jobs, err
}

// awaitJob polls a submitted job until it reaches a terminal state.
// Synchronous engines hand back terminal jobs already; asynchronous ones are
// reconciled on the configured poll interval until the provider finishes.
func (a *app) awaitJob(ctx context.Context, job *scraper.Job) (*scraper.Job, error) {
	interval := a.cfg.PollInterval()
	if interval <= 0 {
		interval = registry.DefaultPollInterval
	}

	for !job.Status.Terminal() {
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(interval):
		}

		fresh, err := a.orchestrator.Job(ctx, job.ID)
		if err != nil {
			return job, err
		}
		job = fresh
	}
	return job, nil
}

// printJSON writes a value as indented JSON to stdout or a file.
func printJSON(v any, outPath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if outPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	fmt.Printf("Wrote %s\n", outPath)
	return nil
}

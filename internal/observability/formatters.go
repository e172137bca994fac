// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/profile-scraper/internal/registry"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs a human-readable summary of one job's tracked state.
func (p *Printer) PrintJob(job *scraper.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job ID:    %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Platform:  %s\n", job.Platform))
	sb.WriteString(fmt.Sprintf("User:      %s\n", job.UserID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Updated:   %s", job.UpdatedAt.Format(time.RFC3339)))
	if job.Progress != "" {
		sb.WriteString(fmt.Sprintf("\nProgress:  %s", job.Progress))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError:     %s", job.Error))
	}

	p.printBox("SCRAPE JOB", sb.String())
}

// PrintResult outputs a collection summary plus the first few posts.
func (p *Printer) PrintResult(result *scraper.ScrapeResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Platform:  %s\n", result.Platform))
	sb.WriteString(fmt.Sprintf("Items:     %d\n", result.TotalItems))
	sb.WriteString(fmt.Sprintf("Elapsed:   %s\n", result.Elapsed.Round(time.Millisecond)))
	if result.SelectorUsed != "" {
		sb.WriteString(fmt.Sprintf("Selector:  %s\n", result.SelectorUsed))
	}
	sb.WriteString("\n")

	count := min(len(result.Items), maxItemsToShow)
	for i := 0; i < count; i++ {
		text := strings.Join(strings.Fields(result.Items[i].Text), " ")
		if len(text) > 50 {
			text = text[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s\n", text))
	}
	if len(result.Items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more posts", len(result.Items)-maxItemsToShow))
	}

	p.printBox("SCRAPE RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs aggregate registry statistics.
func (p *Printer) PrintStats(stats registry.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total jobs:  %d\n", stats.TotalJobs))
	sb.WriteString(fmt.Sprintf("Total users: %d\n", stats.TotalUsers))

	for _, status := range []scraper.JobStatus{
		scraper.StatusPending,
		scraper.StatusRunning,
		scraper.StatusCompleted,
		scraper.StatusFailed,
		scraper.StatusCancelled,
	} {
		if n := stats.StatusCounts[status]; n > 0 {
			sb.WriteString(fmt.Sprintf("  %-10s %d\n", status+":", n))
		}
	}

	p.printBox("REGISTRY STATS", strings.TrimSuffix(sb.String(), "\n"))
}

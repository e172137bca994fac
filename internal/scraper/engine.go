package scraper

import "context"

// Engine is the capability contract implemented by every collection
// mechanism. The browser engine is synchronous: Initialize blocks for the
// whole scroll loop and returns a terminal job. The vendor engine is
// asynchronous: Initialize performs one remote submission and returns a
// running job that must be polled via Status.
type Engine interface {
	// Async reports whether Initialize returns a pending/running job that
	// requires polling, as opposed to a terminal one.
	Async() bool

	// Initialize starts collection for the request. The returned job is
	// owned by the engine until the orchestrator folds it into the registry.
	Initialize(ctx context.Context, platform string, req Request) (*Job, error)

	// Status returns the current view of a job. Asynchronous engines perform
	// a remote lookup and translate the provider's status vocabulary;
	// synchronous engines return the stored terminal state.
	Status(ctx context.Context, jobID string) (*Job, error)

	// Results returns the collected payload. It fails with
	// *JobNotCompletedError until the job reaches completed.
	Results(ctx context.Context, jobID string) (*ScrapeResult, error)

	// Cancel requests best-effort interruption. It reports whether a
	// cancellation was actually initiated.
	Cancel(ctx context.Context, jobID string) (bool, error)
}

package brightdata

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/profile-scraper/internal/platform"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

// Engine is the asynchronous vendor-backed scrape engine. Initialize performs
// one lightweight remote submission; Status polls the provider and translates
// its vocabulary onto the canonical job states.
type Engine struct {
	client *Client

	mu        sync.Mutex
	jobs      map[string]*scraper.Job
	snapshots map[string]string // job id -> provider snapshot id
}

// NewEngine creates a vendor engine over the given client.
func NewEngine(client *Client) *Engine {
	return &Engine{
		client:    client,
		jobs:      make(map[string]*scraper.Job),
		snapshots: make(map[string]string),
	}
}

// Async reports true: jobs returned by Initialize must be polled.
func (e *Engine) Async() bool { return true }

// Initialize submits one provider run for the request. The job leaves
// pending as soon as the submission round trip finishes: running on success,
// failed on a submission error.
func (e *Engine) Initialize(ctx context.Context, platformName string, req scraper.Request) (*scraper.Job, error) {
	def, err := platform.ByName(platformName)
	if err != nil {
		return nil, err
	}
	if def.DatasetID == "" {
		return nil, &scraper.UnsupportedPlatformError{URL: req.URL}
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	now := time.Now().UTC()
	job := &scraper.Job{
		ID:        jobID,
		Platform:  def.Name,
		UserID:    req.UserID,
		URL:       req.URL,
		Limits:    req.Limits,
		Status:    scraper.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.mu.Lock()
	e.jobs[job.ID] = job
	e.mu.Unlock()

	start, end := window(req.Limits.PostLimit, now)
	log.Printf("[JOB %s] Submitting %s run (window %s to %s)", job.ID, def.Name,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	snapshotID, err := e.client.Trigger(ctx, def.DatasetID, req.URL, start, end)

	e.mu.Lock()
	defer e.mu.Unlock()
	job.UpdatedAt = time.Now().UTC()
	if err != nil {
		job.Status = scraper.StatusFailed
		job.Error = fmt.Sprintf("failed to submit provider job: %v", err)
		return job.Clone(), nil
	}

	e.snapshots[job.ID] = snapshotID
	job.Status = scraper.StatusRunning
	job.Progress = fmt.Sprintf("submitted to provider (snapshot %s)", snapshotID)
	return job.Clone(), nil
}

// Status performs one remote status check for a non-terminal job and maps
// the provider's answer onto the canonical enum. Terminal jobs are answered
// from the cache without a remote call.
func (e *Engine) Status(ctx context.Context, jobID string) (*scraper.Job, error) {
	e.mu.Lock()
	job, ok := e.jobs[jobID]
	if !ok {
		e.mu.Unlock()
		return nil, &scraper.JobNotFoundError{JobID: jobID}
	}
	if job.Status.Terminal() {
		defer e.mu.Unlock()
		return job.Clone(), nil
	}
	snapshotID := e.snapshots[jobID]
	e.mu.Unlock()

	if snapshotID == "" {
		return e.fail(jobID, "no snapshot id recorded for job"), nil
	}

	snap, err := e.client.FetchSnapshot(ctx, snapshotID)
	if err != nil {
		return e.fail(jobID, fmt.Sprintf("error checking provider status: %v", err)), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// A cancel may have landed while the poll was in flight.
	if job.Status.Terminal() {
		return job.Clone(), nil
	}

	job.UpdatedAt = time.Now().UTC()
	if !snap.Ready {
		job.Progress = snap.Message
		return job.Clone(), nil
	}

	// Provider-reported errors force failure, message passed through.
	if len(snap.Records) > 0 {
		if msg, ok := stringField(snap.Records[0], "error"); ok {
			provErr := &scraper.ExternalProviderError{Provider: "brightdata", Message: msg}
			job.Status = scraper.StatusFailed
			job.Error = provErr.Error()
			return job.Clone(), nil
		}
		if msg, ok := stringField(snap.Records[0], "warning"); ok {
			provErr := &scraper.ExternalProviderError{Provider: "brightdata", Message: msg}
			job.Status = scraper.StatusFailed
			job.Error = provErr.Error()
			return job.Clone(), nil
		}
	}

	job.Status = scraper.StatusCompleted
	job.Result = translateRecords(snap.Records, job)
	log.Printf("[JOB %s] Provider run completed with %d posts", job.ID, job.Result.TotalItems)
	return job.Clone(), nil
}

func (e *Engine) fail(jobID, msg string) *scraper.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.jobs[jobID]
	if !job.Status.Terminal() {
		job.Status = scraper.StatusFailed
		job.Error = msg
		job.UpdatedAt = time.Now().UTC()
	}
	return job.Clone()
}

// Results returns the translated payload of a completed job.
func (e *Engine) Results(ctx context.Context, jobID string) (*scraper.ScrapeResult, error) {
	job, err := e.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != scraper.StatusCompleted {
		return nil, &scraper.JobNotCompletedError{JobID: jobID, Status: job.Status}
	}
	return job.Result, nil
}

// Cancel marks a non-terminal job cancelled. The provider API surface used
// here offers no remote abort, so the effect is local: pollers simply stop
// and any provider-side run ages out on its own.
func (e *Engine) Cancel(_ context.Context, jobID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = scraper.StatusCancelled
	job.Progress = "job cancelled"
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

package registry

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

// DefaultPollInterval is the minimum spacing between remote reconciliations
// of one job. Hot polling inside the window is answered from the registry.
const DefaultPollInterval = 3 * time.Second

// Stats is a read-only aggregate view over the registry.
type Stats struct {
	TotalJobs    int                       `json:"total_jobs"`
	StatusCounts map[scraper.JobStatus]int `json:"status_counts"`
	TotalUsers   int                       `json:"total_users"`
}

// Orchestrator is the facade collaborators use: it creates jobs, delegates
// to the right engine variant, reconciles registry state with engine state
// on status queries, and enforces retention.
type Orchestrator struct {
	registry     *Registry
	engines      map[platform.EngineKind]scraper.Engine
	pollInterval time.Duration

	mu         sync.Mutex
	jobEngines map[string]scraper.Engine
	lastPoll   map[string]time.Time
}

// NewOrchestrator wires the orchestrator over its registry and the engine
// variants it may dispatch to. Engines for kinds that are not configured
// simply make those platforms unavailable.
func NewOrchestrator(reg *Registry, engines map[platform.EngineKind]scraper.Engine) *Orchestrator {
	return &Orchestrator{
		registry:     reg,
		engines:      engines,
		pollInterval: DefaultPollInterval,
		jobEngines:   make(map[string]scraper.Engine),
		lastPoll:     make(map[string]time.Time),
	}
}

// SetPollInterval overrides the reconciliation backoff window.
func (o *Orchestrator) SetPollInterval(d time.Duration) {
	o.pollInterval = d
}

// Submit validates the request, resolves the platform and engine, stores the
// initial pending record, and hands off. For a synchronous engine the call
// returns only after the engine's terminal state has been folded into the
// stored record; for an asynchronous engine it returns as soon as the
// submission round trip finishes.
//
// Unsupported platforms, missing profiles, and profile contention are
// returned synchronously to the caller. Failures inside an engine run become
// a failed job carrying the error text and any partial result.
func (o *Orchestrator) Submit(ctx context.Context, req scraper.Request) (*scraper.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scrape request: %w", err)
	}

	def, err := platform.Detect(req.URL)
	if err != nil {
		return nil, err
	}
	engine, ok := o.engines[def.Engine]
	if !ok {
		return nil, &scraper.UnsupportedPlatformError{URL: req.URL}
	}

	req.JobID = uuid.NewString()
	now := time.Now().UTC()
	o.registry.Create(&scraper.Job{
		ID:        req.JobID,
		Platform:  def.Name,
		UserID:    req.UserID,
		URL:       req.URL,
		Limits:    req.Limits,
		Status:    scraper.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})

	o.mu.Lock()
	o.jobEngines[req.JobID] = engine
	o.mu.Unlock()

	log.Printf("[JOB %s] Submitting %s job for %s", req.JobID, def.Name, req.URL)

	final, err := o.runEngine(ctx, engine, def.Name, req)
	if err != nil {
		// Pre-launch conditions (no profile, profile locked) are the
		// caller's problem; the record still reflects the failure.
		o.registry.Fail(req.JobID, err.Error())
		return nil, err
	}

	return o.registry.Reconcile(req.JobID, final)
}

// runEngine invokes Initialize and converts a panicking engine into a failed
// job instead of letting the fault escape the submission call.
func (o *Orchestrator) runEngine(ctx context.Context, engine scraper.Engine, platformName string, req scraper.Request) (job *scraper.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[JOB %s] Engine panic: %v", req.JobID, r)
			job = &scraper.Job{
				ID:        req.JobID,
				Status:    scraper.StatusFailed,
				Error:     fmt.Sprintf("engine fault: %v", r),
				UpdatedAt: time.Now().UTC(),
			}
			err = nil
		}
	}()
	return engine.Initialize(ctx, platformName, req)
}

// Job returns the tracked state of a job. Terminal jobs are answered from
// the registry with no remote call. A non-terminal job owned by an
// asynchronous engine gets exactly one reconciliation round trip, persisted
// before returning, so the caller never observes state older than their own
// query. When a reconciliation for the job already ran within the poll
// interval, the registry's view is current enough and the remote provider is
// left alone.
func (o *Orchestrator) Job(ctx context.Context, jobID string) (*scraper.Job, error) {
	stored, err := o.registry.Get(jobID)
	if err != nil {
		return nil, err
	}
	if stored.Status.Terminal() {
		return stored, nil
	}

	engine := o.engineFor(jobID)
	if engine == nil || !engine.Async() {
		return stored, nil
	}

	if !o.shouldPoll(jobID) {
		return stored, nil
	}

	fresh, err := engine.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return o.registry.Reconcile(jobID, fresh)
}

// shouldPoll rate-limits remote reconciliation per job.
func (o *Orchestrator) shouldPoll(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if last, ok := o.lastPoll[jobID]; ok && time.Since(last) < o.pollInterval {
		return false
	}
	o.lastPoll[jobID] = time.Now()
	return true
}

// Results returns the collected payload of a completed job.
func (o *Orchestrator) Results(ctx context.Context, jobID string) (*scraper.ScrapeResult, error) {
	job, err := o.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != scraper.StatusCompleted {
		return nil, &scraper.JobNotCompletedError{JobID: jobID, Status: job.Status}
	}
	if job.Result == nil {
		engine := o.engineFor(jobID)
		if engine == nil {
			return nil, &scraper.JobNotFoundError{JobID: jobID}
		}
		return engine.Results(ctx, jobID)
	}
	return job.Result, nil
}

// Cancel requests best-effort cancellation. The effect is asynchronous:
// callers poll Job afterwards to observe the terminal outcome, and a
// cancelled browser job still surfaces its partial posts.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (bool, error) {
	if _, err := o.registry.Get(jobID); err != nil {
		return false, err
	}
	engine := o.engineFor(jobID)
	if engine == nil {
		return false, nil
	}

	cancelled, err := engine.Cancel(ctx, jobID)
	if err != nil || !cancelled {
		return cancelled, err
	}

	// Fold the engine's view in right away where it is already current; the
	// synchronous engine folds on its own when Initialize unwinds.
	if engine.Async() {
		if fresh, err := engine.Status(ctx, jobID); err == nil {
			_, _ = o.registry.Reconcile(jobID, fresh)
		}
	}
	return true, nil
}

// ListUserJobs returns a user's jobs, most recent first.
func (o *Orchestrator) ListUserJobs(userID string) []*scraper.Job {
	return o.registry.ListUser(userID)
}

// Stats aggregates job counts across the registry.
func (o *Orchestrator) Stats() Stats {
	jobs := o.registry.Snapshot()
	stats := Stats{
		TotalJobs:    len(jobs),
		StatusCounts: make(map[scraper.JobStatus]int),
	}
	users := make(map[string]struct{})
	for _, job := range jobs {
		stats.StatusCounts[job.Status]++
		users[job.UserID] = struct{}{}
	}
	stats.TotalUsers = len(users)
	return stats
}

// CleanupOldJobs purges terminal jobs whose last update is older than
// maxAge. Pending and running jobs are never purged regardless of age. It
// returns how many jobs were removed.
func (o *Orchestrator) CleanupOldJobs(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, job := range o.registry.Snapshot() {
		if !job.Status.Terminal() || !job.UpdatedAt.Before(cutoff) {
			continue
		}
		o.registry.Delete(job.ID)
		o.mu.Lock()
		delete(o.jobEngines, job.ID)
		delete(o.lastPoll, job.ID)
		o.mu.Unlock()
		removed++
	}
	if removed > 0 {
		log.Printf("[CLEANUP] Removed %d jobs older than %s", removed, maxAge)
	}
	return removed
}

func (o *Orchestrator) engineFor(jobID string) scraper.Engine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.jobEngines[jobID]
}

// Package registry tracks every submitted job's lifecycle independent of the
// engine that produced it, and hosts the orchestrator that collaborators
// talk to.
package registry

import (
	"sync"
	"time"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

// record pairs a stored job with its own lock so one job's read-modify-write
// is atomic without serializing unrelated jobs behind a global write lock.
type record struct {
	mu  sync.Mutex
	job *scraper.Job
}

// Registry is the in-memory canonical store of job state. It exclusively
// owns the stored status value; engines report fresher views, but only
// Reconcile writes them back, and a write never regresses a status.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*record
	userJobs map[string][]string // user id -> job ids in submission order
}

// NewRegistry returns an empty registry. It is an explicitly constructed
// dependency; there is no package-level instance.
func NewRegistry() *Registry {
	return &Registry{
		records:  make(map[string]*record),
		userJobs: make(map[string][]string),
	}
}

// Create stores the initial record for a job. The registry keeps its own
// copy.
func (r *Registry) Create(job *scraper.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[job.ID] = &record{job: job.Clone()}
	r.userJobs[job.UserID] = append(r.userJobs[job.UserID], job.ID)
}

// Get returns a copy of the stored record.
func (r *Registry) Get(jobID string) (*scraper.Job, error) {
	rec, err := r.record(jobID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job.Clone(), nil
}

// Reconcile folds a fresher engine-side view of a job into the stored
// record. The merge happens under the record lock, and a view that would
// move the status backwards is discarded so concurrent reconciliations can
// never make the stored state regress. The stored record after the merge is
// returned.
func (r *Registry) Reconcile(jobID string, fresh *scraper.Job) (*scraper.Job, error) {
	rec, err := r.record(jobID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	stored := rec.job
	if stored.Status.Terminal() || fresh.Status.Rank() < stored.Status.Rank() {
		return stored.Clone(), nil
	}

	stored.Status = fresh.Status
	if fresh.Progress != "" {
		stored.Progress = fresh.Progress
	}
	if fresh.Error != "" {
		stored.Error = fresh.Error
	}
	if fresh.Result != nil {
		stored.Result = fresh.Result
	}
	if fresh.UpdatedAt.After(stored.UpdatedAt) {
		stored.UpdatedAt = fresh.UpdatedAt
	} else {
		stored.UpdatedAt = time.Now().UTC()
	}

	return stored.Clone(), nil
}

// Fail transitions a job to failed with the given error text, subject to the
// same monotonic guard as Reconcile.
func (r *Registry) Fail(jobID, errText string) {
	rec, err := r.record(jobID)
	if err != nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.job.Status.Terminal() {
		return
	}
	rec.job.Status = scraper.StatusFailed
	rec.job.Error = errText
	rec.job.UpdatedAt = time.Now().UTC()
}

// ListUser returns copies of a user's jobs, most recent submission first.
func (r *Registry) ListUser(userID string) []*scraper.Job {
	r.mu.RLock()
	ids := append([]string(nil), r.userJobs[userID]...)
	r.mu.RUnlock()

	jobs := make([]*scraper.Job, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if job, err := r.Get(ids[i]); err == nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Snapshot returns copies of every stored job.
func (r *Registry) Snapshot() []*scraper.Job {
	r.mu.RLock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	jobs := make([]*scraper.Job, 0, len(ids))
	for _, id := range ids {
		if job, err := r.Get(id); err == nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Delete removes a job from all tracking structures.
func (r *Registry) Delete(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[jobID]
	if !ok {
		return
	}
	delete(r.records, jobID)

	userID := rec.job.UserID
	ids := r.userJobs[userID]
	for i, id := range ids {
		if id == jobID {
			r.userJobs[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.userJobs[userID]) == 0 {
		delete(r.userJobs, userID)
	}
}

func (r *Registry) record(jobID string) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[jobID]
	if !ok {
		return nil, &scraper.JobNotFoundError{JobID: jobID}
	}
	return rec, nil
}

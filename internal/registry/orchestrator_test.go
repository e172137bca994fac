package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/platform"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

// fakeEngine scripts engine behavior per test. Status walks the statuses
// slice one element per call, sticking on the last.
type fakeEngine struct {
	async    bool
	initErr  error
	panicMsg string
	statuses []scraper.JobStatus
	result   *scraper.ScrapeResult

	mu          sync.Mutex
	jobs        map[string]*scraper.Job
	statusCalls int
	cancelled   map[string]bool
}

func newFakeEngine(async bool) *fakeEngine {
	return &fakeEngine{
		async:     async,
		jobs:      make(map[string]*scraper.Job),
		cancelled: make(map[string]bool),
	}
}

func (f *fakeEngine) Async() bool { return f.async }

func (f *fakeEngine) Initialize(_ context.Context, platformName string, req scraper.Request) (*scraper.Job, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.initErr != nil {
		return nil, f.initErr
	}

	status := scraper.StatusRunning
	if !f.async {
		status = scraper.StatusCompleted
	}
	job := &scraper.Job{
		ID:        req.JobID,
		Platform:  platformName,
		UserID:    req.UserID,
		URL:       req.URL,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if !f.async {
		job.Result = f.result
	}

	f.mu.Lock()
	f.jobs[job.ID] = job
	f.mu.Unlock()
	return job.Clone(), nil
}

func (f *fakeEngine) Status(_ context.Context, jobID string) (*scraper.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, &scraper.JobNotFoundError{JobID: jobID}
	}

	if len(f.statuses) > 0 {
		i := f.statusCalls
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		job.Status = f.statuses[i]
		if job.Status == scraper.StatusCompleted {
			job.Result = f.result
		}
	}
	f.statusCalls++
	job.UpdatedAt = time.Now().UTC()
	return job.Clone(), nil
}

func (f *fakeEngine) Results(_ context.Context, jobID string) (*scraper.ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, &scraper.JobNotFoundError{JobID: jobID}
	}
	if job.Status != scraper.StatusCompleted {
		return nil, &scraper.JobNotCompletedError{JobID: jobID, Status: job.Status}
	}
	return f.result, nil
}

func (f *fakeEngine) Cancel(_ context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = scraper.StatusCancelled
	job.Progress = "job cancelled"
	f.cancelled[jobID] = true
	return true, nil
}

func testOrchestrator(sync, async *fakeEngine) *Orchestrator {
	engines := make(map[platform.EngineKind]scraper.Engine)
	if sync != nil {
		engines[platform.EngineBrowser] = sync
	}
	if async != nil {
		engines[platform.EngineVendor] = async
	}
	return NewOrchestrator(NewRegistry(), engines)
}

func browserRequest() scraper.Request {
	return scraper.Request{URL: "https://threads.com/@alice", UserID: "alice"}
}

func vendorRequest() scraper.Request {
	return scraper.Request{URL: "https://x.com/alice", UserID: "alice"}
}

func TestSubmit_SyncEngineFoldsTerminalState(t *testing.T) {
	eng := newFakeEngine(false)
	eng.result = &scraper.ScrapeResult{TotalItems: 2, Items: make([]scraper.Post, 2)}
	orch := testOrchestrator(eng, nil)

	job, err := orch.Submit(context.Background(), browserRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, scraper.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)

	// The registry holds the same terminal view.
	stored, err := orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCompleted, stored.Status)
}

func TestSubmit_AsyncEngineReturnsRunning(t *testing.T) {
	eng := newFakeEngine(true)
	orch := testOrchestrator(nil, eng)

	job, err := orch.Submit(context.Background(), vendorRequest())
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusRunning, job.Status)
}

func TestSubmit_InvalidRequest(t *testing.T) {
	orch := testOrchestrator(newFakeEngine(false), nil)

	_, err := orch.Submit(context.Background(), scraper.Request{URL: "not a url", UserID: "alice"})
	assert.Error(t, err)

	_, err = orch.Submit(context.Background(), scraper.Request{URL: "https://threads.com/@a"})
	assert.Error(t, err, "user id is required")
}

func TestSubmit_UnsupportedPlatform(t *testing.T) {
	orch := testOrchestrator(newFakeEngine(false), nil)

	_, err := orch.Submit(context.Background(), scraper.Request{
		URL:    "https://myspace.com/someone",
		UserID: "alice",
	})
	var unsupported *scraper.UnsupportedPlatformError
	assert.ErrorAs(t, err, &unsupported)
}

func TestSubmit_PlatformWithoutConfiguredEngine(t *testing.T) {
	// Vendor platforms are unavailable when only the browser engine exists.
	orch := testOrchestrator(newFakeEngine(false), nil)

	_, err := orch.Submit(context.Background(), vendorRequest())
	var unsupported *scraper.UnsupportedPlatformError
	assert.ErrorAs(t, err, &unsupported)
}

func TestSubmit_PreLaunchErrorSurfacesAndFailsRecord(t *testing.T) {
	eng := newFakeEngine(false)
	eng.initErr = &scraper.ProfileNotFoundError{UserID: "alice"}
	orch := testOrchestrator(eng, nil)

	_, err := orch.Submit(context.Background(), browserRequest())
	var notFound *scraper.ProfileNotFoundError
	require.ErrorAs(t, err, &notFound)

	// The stored record reflects the failure for later listing.
	jobs := orch.ListUserJobs("alice")
	require.Len(t, jobs, 1)
	assert.Equal(t, scraper.StatusFailed, jobs[0].Status)
}

func TestSubmit_EnginePanicBecomesFailedJob(t *testing.T) {
	eng := newFakeEngine(false)
	eng.panicMsg = "selector cache corrupted"
	orch := testOrchestrator(eng, nil)

	job, err := orch.Submit(context.Background(), browserRequest())
	require.NoError(t, err, "a panicking engine must not escape Submit")
	assert.Equal(t, scraper.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "selector cache corrupted")
}

func TestJob_AsyncReconciliationAndBackoff(t *testing.T) {
	eng := newFakeEngine(true)
	eng.statuses = []scraper.JobStatus{scraper.StatusRunning, scraper.StatusCompleted}
	eng.result = &scraper.ScrapeResult{TotalItems: 1, Items: make([]scraper.Post, 1)}
	orch := testOrchestrator(nil, eng)
	orch.SetPollInterval(time.Hour)

	job, err := orch.Submit(context.Background(), vendorRequest())
	require.NoError(t, err)

	// The first query gets one reconciliation round trip.
	got, err := orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusRunning, got.Status)
	assert.Equal(t, 1, eng.statusCalls)

	// Queries inside the backoff window answer from the registry.
	got, err = orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.statusCalls)

	// Collapsing the window lets the next poll through.
	orch.SetPollInterval(0)
	got, err = orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)

	// Terminal jobs never poll again.
	calls := eng.statusCalls
	_, err = orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, calls, eng.statusCalls)
}

func TestJob_SyncEngineNeverPolled(t *testing.T) {
	eng := newFakeEngine(false)
	eng.result = &scraper.ScrapeResult{}
	orch := testOrchestrator(eng, nil)
	orch.SetPollInterval(0)

	job, err := orch.Submit(context.Background(), browserRequest())
	require.NoError(t, err)

	calls := eng.statusCalls
	_, err = orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, calls, eng.statusCalls)
}

func TestJob_Unknown(t *testing.T) {
	orch := testOrchestrator(newFakeEngine(false), nil)
	_, err := orch.Job(context.Background(), "missing")
	var notFound *scraper.JobNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResults_CompletedJob(t *testing.T) {
	eng := newFakeEngine(false)
	eng.result = &scraper.ScrapeResult{TotalItems: 4, Items: make([]scraper.Post, 4)}
	orch := testOrchestrator(eng, nil)

	job, err := orch.Submit(context.Background(), browserRequest())
	require.NoError(t, err)

	result, err := orch.Results(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalItems)
}

func TestResults_NotCompleted(t *testing.T) {
	eng := newFakeEngine(true)
	orch := testOrchestrator(nil, eng)
	orch.SetPollInterval(time.Hour)

	job, err := orch.Submit(context.Background(), vendorRequest())
	require.NoError(t, err)

	_, err = orch.Results(context.Background(), job.ID)
	var notCompleted *scraper.JobNotCompletedError
	require.ErrorAs(t, err, &notCompleted)
	assert.Equal(t, scraper.StatusRunning, notCompleted.Status)
}

func TestCancel_AsyncJobReconcilesImmediately(t *testing.T) {
	eng := newFakeEngine(true)
	orch := testOrchestrator(nil, eng)
	orch.SetPollInterval(time.Hour)

	job, err := orch.Submit(context.Background(), vendorRequest())
	require.NoError(t, err)

	cancelled, err := orch.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	// The terminal state lands in the registry without waiting for a poll.
	got, err := orch.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCancelled, got.Status)
}

func TestCancel_UnknownJob(t *testing.T) {
	orch := testOrchestrator(newFakeEngine(false), nil)
	_, err := orch.Cancel(context.Background(), "missing")
	var notFound *scraper.JobNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStats(t *testing.T) {
	syncEng := newFakeEngine(false)
	syncEng.result = &scraper.ScrapeResult{}
	asyncEng := newFakeEngine(true)
	orch := testOrchestrator(syncEng, asyncEng)
	orch.SetPollInterval(time.Hour)

	_, err := orch.Submit(context.Background(), browserRequest())
	require.NoError(t, err)
	_, err = orch.Submit(context.Background(), vendorRequest())
	require.NoError(t, err)
	_, err = orch.Submit(context.Background(), scraper.Request{
		URL:    "https://x.com/bob",
		UserID: "bob",
	})
	require.NoError(t, err)

	stats := orch.Stats()
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.StatusCounts[scraper.StatusCompleted])
	assert.Equal(t, 2, stats.StatusCounts[scraper.StatusRunning])
}

func TestCleanupOldJobs_PurgesOnlyOldTerminal(t *testing.T) {
	syncEng := newFakeEngine(false)
	syncEng.result = &scraper.ScrapeResult{}
	asyncEng := newFakeEngine(true)
	orch := testOrchestrator(syncEng, asyncEng)
	orch.SetPollInterval(time.Hour)

	done, err := orch.Submit(context.Background(), browserRequest())
	require.NoError(t, err)
	running, err := orch.Submit(context.Background(), vendorRequest())
	require.NoError(t, err)

	// Nothing is old enough yet.
	assert.Equal(t, 0, orch.CleanupOldJobs(time.Hour))

	// With a zero retention window every terminal job is past the cutoff,
	// but the running job must survive regardless of age.
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, orch.CleanupOldJobs(0))

	_, err = orch.Job(context.Background(), done.ID)
	var notFound *scraper.JobNotFoundError
	assert.ErrorAs(t, err, &notFound)

	got, err := orch.Job(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusRunning, got.Status)
}

func TestSubmit_EngineErrorWrapped(t *testing.T) {
	eng := newFakeEngine(false)
	eng.initErr = errors.New("chrome not installed")
	orch := testOrchestrator(eng, nil)

	_, err := orch.Submit(context.Background(), browserRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not installed")
}

package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

func newJob(id, userID string, status scraper.JobStatus) *scraper.Job {
	now := time.Now().UTC()
	return &scraper.Job{
		ID:        id,
		Platform:  "threads",
		UserID:    userID,
		URL:       "https://threads.com/@" + userID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRegistry_CreateAndGetReturnsCopies(t *testing.T) {
	reg := NewRegistry()
	job := newJob("j1", "alice", scraper.StatusPending)
	reg.Create(job)

	// Mutating the caller's job must not leak into the store.
	job.Status = scraper.StatusFailed

	got, err := reg.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusPending, got.Status)

	// Nor mutating the returned copy.
	got.Status = scraper.StatusCancelled
	again, err := reg.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusPending, again.Status)
}

func TestRegistry_GetUnknownJob(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")
	var notFound *scraper.JobNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestReconcile_AdvancesStatus(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusPending))

	fresh := newJob("j1", "alice", scraper.StatusRunning)
	fresh.Progress = "10 posts after 2 scrolls"
	stored, err := reg.Reconcile("j1", fresh)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusRunning, stored.Status)
	assert.Equal(t, "10 posts after 2 scrolls", stored.Progress)
}

func TestReconcile_NeverRegressesStatus(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusRunning))

	stale := newJob("j1", "alice", scraper.StatusPending)
	stored, err := reg.Reconcile("j1", stale)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusRunning, stored.Status)
}

func TestReconcile_TerminalIsImmutable(t *testing.T) {
	reg := NewRegistry()
	done := newJob("j1", "alice", scraper.StatusCompleted)
	done.Result = &scraper.ScrapeResult{TotalItems: 3}
	reg.Create(done)

	late := newJob("j1", "alice", scraper.StatusRunning)
	stored, err := reg.Reconcile("j1", late)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCompleted, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, 3, stored.Result.TotalItems)
}

func TestReconcile_KeepsResultWhenFreshHasNone(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusPending))

	withResult := newJob("j1", "alice", scraper.StatusRunning)
	withResult.Result = &scraper.ScrapeResult{TotalItems: 5}
	_, err := reg.Reconcile("j1", withResult)
	require.NoError(t, err)

	noResult := newJob("j1", "alice", scraper.StatusRunning)
	stored, err := reg.Reconcile("j1", noResult)
	require.NoError(t, err)
	require.NotNil(t, stored.Result)
	assert.Equal(t, 5, stored.Result.TotalItems)
}

func TestReconcile_BlankFieldsKeepStoredAnnotations(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusPending))

	annotated := newJob("j1", "alice", scraper.StatusRunning)
	annotated.Progress = "10 posts after 2 scrolls"
	_, err := reg.Reconcile("j1", annotated)
	require.NoError(t, err)

	// A fresher view with empty annotations must not blank the stored ones.
	blank := newJob("j1", "alice", scraper.StatusRunning)
	stored, err := reg.Reconcile("j1", blank)
	require.NoError(t, err)
	assert.Equal(t, "10 posts after 2 scrolls", stored.Progress)
}

func TestReconcile_ConcurrentViewsNeverRegress(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusPending))

	statuses := []scraper.JobStatus{
		scraper.StatusPending,
		scraper.StatusRunning,
		scraper.StatusCompleted,
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, st := range statuses {
			wg.Add(1)
			go func(st scraper.JobStatus) {
				defer wg.Done()
				_, _ = reg.Reconcile("j1", newJob("j1", "alice", st))
			}(st)
		}
	}
	wg.Wait()

	got, err := reg.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCompleted, got.Status)
}

func TestFail_RespectsTerminalGuard(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusCompleted))

	reg.Fail("j1", "too late")
	got, err := reg.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCompleted, got.Status)
	assert.Empty(t, got.Error)

	reg.Create(newJob("j2", "alice", scraper.StatusRunning))
	reg.Fail("j2", "browser crashed")
	got, err = reg.Get("j2")
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusFailed, got.Status)
	assert.Equal(t, "browser crashed", got.Error)
}

func TestListUser_MostRecentFirst(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusCompleted))
	reg.Create(newJob("j2", "alice", scraper.StatusRunning))
	reg.Create(newJob("j3", "bob", scraper.StatusPending))

	jobs := reg.ListUser("alice")
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].ID)
	assert.Equal(t, "j1", jobs[1].ID)

	assert.Empty(t, reg.ListUser("nobody"))
}

func TestDelete_RemovesFromUserIndex(t *testing.T) {
	reg := NewRegistry()
	reg.Create(newJob("j1", "alice", scraper.StatusCompleted))
	reg.Create(newJob("j2", "alice", scraper.StatusCompleted))

	reg.Delete("j1")

	_, err := reg.Get("j1")
	var notFound *scraper.JobNotFoundError
	assert.ErrorAs(t, err, &notFound)

	jobs := reg.ListUser("alice")
	require.Len(t, jobs, 1)
	assert.Equal(t, "j2", jobs[0].ID)

	reg.Delete("j2")
	assert.Empty(t, reg.ListUser("alice"))
}

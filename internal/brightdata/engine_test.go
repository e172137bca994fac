package brightdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

// fakeProvider scripts the trigger and snapshot endpoints. Each snapshot poll
// consumes the next scripted response.
type fakeProvider struct {
	mu        sync.Mutex
	triggerFn func(w http.ResponseWriter, r *http.Request)
	polls     []func(w http.ResponseWriter)
	pollCount int
}

func (p *fakeProvider) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch {
		case strings.HasPrefix(r.URL.Path, "/trigger"):
			p.triggerFn(w, r)
		case strings.HasPrefix(r.URL.Path, "/snapshot/"):
			i := p.pollCount
			if i >= len(p.polls) {
				i = len(p.polls) - 1
			}
			p.pollCount++
			p.polls[i](w)
		default:
			http.NotFound(w, r)
		}
	})
}

func triggerOK(snapshotID string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"snapshot_id": snapshotID})
	}
}

func pollProcessing() func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusAccepted)
	}
}

func pollRecords(records []map[string]any) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(records)
	}
}

func vendorEngine(t *testing.T, provider *fakeProvider) *Engine {
	t.Helper()
	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)
	return NewEngine(NewClientWithBaseURL("test-key", srv.URL))
}

func TestInitialize_SubmitsAndRuns(t *testing.T) {
	var gotQuery, gotAuth string
	provider := &fakeProvider{
		triggerFn: func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			gotAuth = r.Header.Get("Authorization")
			triggerOK("snap-1")(w, r)
		},
	}
	eng := vendorEngine(t, provider)

	job, err := eng.Initialize(context.Background(), "twitter", scraper.Request{
		URL:    "https://x.com/someone",
		UserID: "alice",
		JobID:  "job-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, scraper.StatusRunning, job.Status)
	assert.Contains(t, job.Progress, "snap-1")
	assert.Contains(t, gotQuery, "dataset_id=")
	assert.Contains(t, gotQuery, "discover_by=profile_url")
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestInitialize_SubmissionFailureYieldsFailedJob(t *testing.T) {
	provider := &fakeProvider{
		triggerFn: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		},
	}
	eng := vendorEngine(t, provider)

	job, err := eng.Initialize(context.Background(), "twitter", scraper.Request{
		URL:    "https://x.com/someone",
		UserID: "alice",
	})
	require.NoError(t, err, "submission failures surface on the job, not as an error")
	assert.Equal(t, scraper.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "quota exceeded")
}

func TestStatus_PollsUntilRecordsArrive(t *testing.T) {
	provider := &fakeProvider{
		triggerFn: triggerOK("snap-1"),
		polls: []func(http.ResponseWriter){
			pollProcessing(),
			pollRecords([]map[string]any{
				{
					"description": "finished post",
					"url":         "https://x.com/p/1",
					"views":       float64(120),
					"date_posted": "2026-07-01T00:00:00Z",
				},
			}),
		},
	}
	eng := vendorEngine(t, provider)

	job, err := eng.Initialize(context.Background(), "twitter", scraper.Request{
		URL:    "https://x.com/someone",
		UserID: "alice",
	})
	require.NoError(t, err)

	job, err = eng.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusRunning, job.Status)
	assert.NotEmpty(t, job.Progress)

	job, err = eng.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	require.Len(t, job.Result.Items, 1)
	assert.Equal(t, "finished post", job.Result.Items[0].Text)
	require.NotNil(t, job.Result.Items[0].Views)
	assert.Equal(t, 120, *job.Result.Items[0].Views)

	// Terminal jobs answer from the cache, no further polls.
	before := provider.pollCount
	_, err = eng.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, before, provider.pollCount)
}

func TestStatus_ProviderErrorRecordFailsJob(t *testing.T) {
	provider := &fakeProvider{
		triggerFn: triggerOK("snap-1"),
		polls: []func(http.ResponseWriter){
			pollRecords([]map[string]any{{"error": "account is private"}}),
		},
	}
	eng := vendorEngine(t, provider)

	job, err := eng.Initialize(context.Background(), "twitter", scraper.Request{
		URL:    "https://x.com/someone",
		UserID: "alice",
	})
	require.NoError(t, err)

	job, err = eng.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "account is private")
}

func TestCancel_StopsPollingLocally(t *testing.T) {
	provider := &fakeProvider{
		triggerFn: triggerOK("snap-1"),
		polls:     []func(http.ResponseWriter){pollProcessing()},
	}
	eng := vendorEngine(t, provider)

	job, err := eng.Initialize(context.Background(), "twitter", scraper.Request{
		URL:    "https://x.com/someone",
		UserID: "alice",
	})
	require.NoError(t, err)

	cancelled, err := eng.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	before := provider.pollCount
	job, err = eng.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.StatusCancelled, job.Status)
	assert.Empty(t, job.Error, "cancellation is not a failure")
	assert.Equal(t, "job cancelled", job.Progress)
	assert.Equal(t, before, provider.pollCount)

	// Cancelling again is a no-op.
	cancelled, err = eng.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestInitialize_UnknownPlatform(t *testing.T) {
	provider := &fakeProvider{triggerFn: triggerOK("snap-1")}
	eng := vendorEngine(t, provider)

	_, err := eng.Initialize(context.Background(), "myspace", scraper.Request{
		URL:    "https://myspace.com/someone",
		UserID: "alice",
	})
	require.Error(t, err)
}

func TestStatus_UnknownJobID(t *testing.T) {
	provider := &fakeProvider{triggerFn: triggerOK("snap-1")}
	eng := vendorEngine(t, provider)

	_, err := eng.Status(context.Background(), "nope")
	var notFound *scraper.JobNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResults_NotYetCompleted(t *testing.T) {
	provider := &fakeProvider{
		triggerFn: triggerOK("snap-1"),
		polls:     []func(http.ResponseWriter){pollProcessing()},
	}
	eng := vendorEngine(t, provider)

	job, err := eng.Initialize(context.Background(), "twitter", scraper.Request{
		URL:    "https://x.com/someone",
		UserID: "alice",
	})
	require.NoError(t, err)

	_, err = eng.Results(context.Background(), job.ID)
	var notCompleted *scraper.JobNotCompletedError
	assert.ErrorAs(t, err, &notCompleted)
}

// Package scraper defines the domain model shared by every scrape engine:
// jobs, collected results, and the engine contract itself.
package scraper

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

const (
	// StatusPending means the job is recorded but no engine has picked it up yet.
	StatusPending JobStatus = "pending"
	// StatusRunning means an engine is actively collecting (or a vendor job is in flight).
	StatusRunning JobStatus = "running"
	// StatusCompleted means collection finished and results are available.
	StatusCompleted JobStatus = "completed"
	// StatusFailed means the job stopped on an error; partial results may still be attached.
	StatusFailed JobStatus = "failed"
	// StatusCancelled means the job was stopped by an explicit cancel request.
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job in this status will never change again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Rank orders statuses along the lifecycle so writes can be checked for
// regression. Terminal states share the top rank; a job never moves between
// them.
func (s JobStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 2
	}
	return -1
}

// Limits bounds a collection run. A zero value means unbounded.
type Limits struct {
	PostLimit int           `json:"post_limit,omitempty"`
	TimeLimit time.Duration `json:"time_limit,omitempty"`
}

// Job is the unit of work tracked end-to-end, independent of which engine
// produced it.
type Job struct {
	ID        string        `json:"job_id"`
	Platform  string        `json:"platform"`
	UserID    string        `json:"user_id"`
	URL       string        `json:"url"`
	Limits    Limits        `json:"limits"`
	Status    JobStatus     `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Progress  string        `json:"progress,omitempty"`
	Error     string        `json:"error,omitempty"`
	Result    *ScrapeResult `json:"result,omitempty"`
}

// Clone returns a deep-enough copy of the job for handing to callers. The
// result is shared; results are never mutated after a job reaches a terminal
// state.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}

// Post is one collected item. Engagement counts are pointers because the
// source frequently omits them; nil means "not present", never zero.
type Post struct {
	Text       string     `json:"text"`
	Link       *string    `json:"link"`
	Likes      *int       `json:"likes"`
	Comments   *int       `json:"comments"`
	Reposts    *int       `json:"reposts"`
	DatePosted *time.Time `json:"date_posted,omitempty"`
	Views      *int       `json:"views,omitempty"`
}

// ScrapeResult is the payload of a finished (or partially finished) job.
type ScrapeResult struct {
	ScrapedAt    time.Time     `json:"scraped_at"`
	URL          string        `json:"url"`
	Platform     string        `json:"platform"`
	UserID       string        `json:"user_id"`
	TotalItems   int           `json:"total_items"`
	Limits       Limits        `json:"limits"`
	Elapsed      time.Duration `json:"elapsed_time"`
	SelectorUsed string        `json:"selector_used,omitempty"`
	Items        []Post        `json:"items"`
}

// Request describes a scrape submission. Zero limits mean unbounded.
type Request struct {
	URL    string `json:"url" validate:"required,url"`
	UserID string `json:"user_id" validate:"required"`
	Limits Limits `json:"limits"`

	// JobID is set by the orchestrator so the registry record and the
	// engine-side job share one identifier. Engines generate their own when
	// it is empty.
	JobID string `json:"-"`
}

var validate = validator.New()

// Validate checks the request fields before any engine work starts.
func (r *Request) Validate() error {
	return validate.Struct(r)
}

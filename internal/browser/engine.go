// Package browser implements the synchronous scrape engine: it drives a real
// browser against a saved per-user profile, progressively reveals content by
// scrolling, and extracts structured posts with selector fallback.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/profile-scraper/internal/platform"
	"github.com/jonathan/profile-scraper/internal/profile"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

// Config tunes the scroll/extract loop.
type Config struct {
	// Headless controls whether scrape sessions run without a visible window.
	Headless bool
	// SettleWait is the pause after navigation before the first extraction,
	// giving client-side rendering time to produce the feed.
	SettleWait time.Duration
	// ScrollDelay is the pause after each scroll before re-querying.
	ScrollDelay time.Duration
	// StagnationLimit is how many consecutive scrolls may yield no new posts
	// before the feed is considered exhausted.
	StagnationLimit int
	// MaxScrolls caps the loop regardless of limits.
	MaxScrolls int
	// NavigationTimeout bounds the initial page load.
	NavigationTimeout time.Duration
	// MaxConcurrent caps simultaneous browser sessions across all users.
	MaxConcurrent int
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		SettleWait:        8 * time.Second,
		ScrollDelay:       750 * time.Millisecond,
		StagnationLimit:   3,
		MaxScrolls:        500,
		NavigationTimeout: 30 * time.Second,
		MaxConcurrent:     2,
	}
}

// session is one live browser page. The chromedp implementation is the real
// one; tests substitute a scripted feed.
type session interface {
	Navigate(ctx context.Context, url string) error
	ScrollBottom(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// sessionFactory opens a session against a profile directory.
type sessionFactory func(ctx context.Context, profileDir string, headless bool) (session, error)

// Engine is the synchronous browser-driven scrape engine. Initialize blocks
// for the whole collection run and returns a terminal job.
type Engine struct {
	profiles   *profile.Store
	cfg        Config
	sem        *semaphore.Weighted
	newSession sessionFactory

	mu      sync.Mutex
	jobs    map[string]*scraper.Job
	cancels map[string]context.CancelFunc
}

// NewEngine creates a browser engine over the given profile store.
func NewEngine(profiles *profile.Store, cfg Config) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.StagnationLimit <= 0 {
		cfg.StagnationLimit = 3
	}
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 500
	}
	return &Engine{
		profiles:   profiles,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		newSession: newChromedpSession,
		jobs:       make(map[string]*scraper.Job),
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Async reports false: Initialize returns only after the job is terminal.
func (e *Engine) Async() bool { return false }

// Initialize runs a full collection synchronously. Missing profiles and
// profile contention are reported to the caller before any browser launches;
// failures during collection become a failed job that keeps whatever posts
// were already extracted.
func (e *Engine) Initialize(ctx context.Context, platformName string, req scraper.Request) (*scraper.Job, error) {
	def, err := platform.ByName(platformName)
	if err != nil {
		return nil, err
	}

	profileDir, err := e.profiles.Require(req.UserID)
	if err != nil {
		return nil, err
	}

	lease, err := e.profiles.Acquire(req.UserID)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a browser slot: %w", err)
	}
	defer e.sem.Release(1)

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
		Status:    scraper.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.jobs[job.ID] = job
	e.cancels[job.ID] = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.cancels, job.ID)
		e.mu.Unlock()
	}()

	log.Printf("[JOB %s] Browser scrape starting for %s (%s)", job.ID, req.URL, def.Name)
	result, runErr := e.run(runCtx, profileDir, def, req, job)

	e.mu.Lock()
	defer e.mu.Unlock()

	job.UpdatedAt = time.Now().UTC()
	job.Result = result
	switch {
	case runErr == nil:
		job.Status = scraper.StatusCompleted
		log.Printf("[JOB %s] Completed with %d posts", job.ID, result.TotalItems)
	case errors.Is(runErr, context.Canceled):
		// Cancellation is not a failure; the annotation goes in Progress and
		// Error stays empty.
		job.Status = scraper.StatusCancelled
		job.Progress = "job cancelled"
		log.Printf("[JOB %s] Cancelled; keeping %d partial posts", job.ID, partialCount(result))
	default:
		job.Status = scraper.StatusFailed
		job.Error = runErr.Error()
		log.Printf("[JOB %s] Failed: %v (keeping %d partial posts)", job.ID, runErr, partialCount(result))
	}

	return job.Clone(), nil
}

func partialCount(result *scraper.ScrapeResult) int {
	if result == nil {
		return 0
	}
	return result.TotalItems
}

// run executes the progressive scroll/extract loop. On error it still
// returns the partial result accumulated so far.
func (e *Engine) run(ctx context.Context, profileDir string, def platform.Definition, req scraper.Request, job *scraper.Job) (*scraper.ScrapeResult, error) {
	start := time.Now()

	sess, err := e.newSession(ctx, profileDir, e.cfg.Headless)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer sess.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	defer cancel()
	if err := sess.Navigate(navCtx, req.URL); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &scraper.EngineTimeoutError{Operation: "navigation", Cause: err}
		}
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	if err := sleepCtx(ctx, e.cfg.SettleWait); err != nil {
		return nil, err
	}

	doc, err := e.snapshot(ctx, sess)
	if err != nil {
		return nil, err
	}

	selector, err := resolveSelector(doc, def)
	if err != nil {
		return nil, err
	}
	log.Printf("[JOB %s] Using selector %q", job.ID, selector)

	seen := make(map[string]struct{})
	var collected []scraper.Post
	merge := func(doc *goquery.Document) {
		for _, post := range extractPosts(doc, selector, def) {
			key := dedupeKey(post)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			collected = append(collected, post)
		}
	}
	merge(doc)

	buildResult := func() *scraper.ScrapeResult {
		items := collected
		if req.Limits.PostLimit > 0 && len(items) > req.Limits.PostLimit {
			items = items[:req.Limits.PostLimit]
		}
		return &scraper.ScrapeResult{
			ScrapedAt:    time.Now().UTC(),
			URL:          req.URL,
			Platform:     def.Name,
			UserID:       req.UserID,
			TotalItems:   len(items),
			Limits:       req.Limits,
			Elapsed:      time.Since(start),
			SelectorUsed: selector,
			Items:        items,
		}
	}

	stagnant := 0
	for scrolls := 0; scrolls < e.cfg.MaxScrolls; scrolls++ {
		// Termination checks run every iteration; the first one reached wins.
		if req.Limits.PostLimit > 0 && len(collected) >= req.Limits.PostLimit {
			log.Printf("[JOB %s] Post limit reached: %d posts", job.ID, len(collected))
			break
		}
		if req.Limits.TimeLimit > 0 && time.Since(start) >= req.Limits.TimeLimit {
			log.Printf("[JOB %s] Time limit reached after %s", job.ID, time.Since(start).Round(time.Second))
			break
		}
		if stagnant >= e.cfg.StagnationLimit {
			log.Printf("[JOB %s] No new content after %d scrolls; feed exhausted", job.ID, scrolls)
			break
		}

		if err := sess.ScrollBottom(ctx); err != nil {
			return buildResult(), fmt.Errorf("scroll failed: %w", err)
		}
		if err := sleepCtx(ctx, e.cfg.ScrollDelay); err != nil {
			return buildResult(), err
		}

		doc, err := e.snapshot(ctx, sess)
		if err != nil {
			return buildResult(), err
		}

		before := len(collected)
		merge(doc)
		if len(collected) == before {
			stagnant++
		} else {
			stagnant = 0
		}

		e.setProgress(job, fmt.Sprintf("%d posts after %d scrolls", len(collected), scrolls+1))
	}

	return buildResult(), nil
}

func (e *Engine) snapshot(ctx context.Context, sess session) (*goquery.Document, error) {
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

func (e *Engine) setProgress(job *scraper.Job, progress string) {
	e.mu.Lock()
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()
}

// Status returns the stored job. The engine is synchronous, so there is
// nothing to reconcile remotely.
func (e *Engine) Status(_ context.Context, jobID string) (*scraper.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return nil, &scraper.JobNotFoundError{JobID: jobID}
	}
	return job.Clone(), nil
}

// Results returns the collected payload of a completed job.
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

// Cancel requests cooperative interruption of a running scroll loop. The
// loop observes the cancellation at its next iteration and keeps the posts
// extracted so far.
func (e *Engine) Cancel(_ context.Context, jobID string) (bool, error) {
	e.mu.Lock()
	cancel, ok := e.cancels[jobID]
	e.mu.Unlock()
	if !ok {
		return false, nil
	}
	cancel()
	return true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still give cancellation a chance between iterations.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

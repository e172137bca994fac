package browser

import (
	"context"

	"github.com/chromedp/chromedp"
)

// chromedpSession drives a real Chrome instance against a persistent profile
// directory. Requires Chrome/Chromium on the system.
type chromedpSession struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

func newChromedpSession(ctx context.Context, profileDir string, headless bool) (session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserDataDir(profileDir),
		)...,
	)

	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a missing Chrome binary fails here, not
	// mid-scrape.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, err
	}

	return &chromedpSession{ctx: browserCtx, cancelAlloc: cancelAlloc, cancelCtx: cancelCtx}, nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.runWith(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

func (s *chromedpSession) ScrollBottom(ctx context.Context) error {
	return s.runWith(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
}

func (s *chromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.runWith(ctx, chromedp.OuterHTML("html", &html))
	return html, err
}

// runWith executes actions on the browser context while honoring the
// caller's deadline/cancellation.
func (s *chromedpSession) runWith(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Close shuts the browser down cleanly so session state is flushed back to
// the profile directory.
func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelCtx()
	s.cancelAlloc()
	return err
}

package profile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chromedp/chromedp"
)

// SessionOptions configures the one-time interactive login session.
type SessionOptions struct {
	// Prompt is where the operator instructions are written (default stdout).
	Prompt io.Writer
	// Confirm is read until a newline to detect that the operator finished
	// logging in (default stdin).
	Confirm io.Reader
}

// CreateSession performs the out-of-band, interactive session setup for a
// user: it launches a visible browser against the user's profile directory,
// navigates to the login URL, and waits for the operator to confirm they have
// logged in. Cookies and login state land in the profile directory and are
// reused by every subsequent browser-engine job for that user.
//
// The profile lease serializes concurrent calls for the same user, so two
// simultaneous setups cannot corrupt the directory: one proceeds, the other
// fails with *scraper.ProfileLockedError.
func (s *Store) CreateSession(ctx context.Context, userID, url string, opts SessionOptions) error {
	if opts.Prompt == nil {
		opts.Prompt = os.Stdout
	}
	if opts.Confirm == nil {
		opts.Confirm = os.Stdin
	}

	lease, err := s.Acquire(userID)
	if err != nil {
		return err
	}
	defer lease.Release()

	profileDir := s.Dir(userID)
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile dir %s: %w", profileDir, err)
	}

	log.Printf("[SESSION] Creating browser profile for user %s at %s", userID, profileDir)

	// Headed on purpose: the operator has to log in by hand.
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", false),
			chromedp.UserDataDir(profileDir),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open login page %s: %w", url, err)
	}

	fmt.Fprintln(opts.Prompt, "Log in manually in the browser window.")
	fmt.Fprintln(opts.Prompt, "Cookies and session state are saved to the profile automatically.")
	fmt.Fprint(opts.Prompt, "\nPress Enter after you have logged in to save the session... ")

	if _, err := bufio.NewReader(opts.Confirm).ReadString('\n'); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	// Closing the browser context flushes session state to the profile dir.
	if err := chromedp.Cancel(browserCtx); err != nil {
		return fmt.Errorf("failed to close browser session: %w", err)
	}

	log.Printf("[SESSION] Session saved for user %s", userID)
	return nil
}

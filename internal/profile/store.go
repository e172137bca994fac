// Package profile manages durable per-user browser profiles: the on-disk
// directories holding cookies and login state, and the exclusive lease that
// keeps two browser processes from writing one profile at the same time.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

// Store manages profile directories under a single base directory, one
// opaque subdirectory per user id. The contents are browser-format session
// data and are never inspected here.
type Store struct {
	baseDir string
}

// NewStore creates the base directory if needed and returns a store rooted
// at it.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Dir returns the profile directory path for a user. The directory may not
// exist yet.
func (s *Store) Dir(userID string) string {
	return filepath.Join(s.baseDir, userID)
}

// Exists reports whether a profile has been created for the user.
func (s *Store) Exists(userID string) bool {
	info, err := os.Stat(s.Dir(userID))
	return err == nil && info.IsDir()
}

// Require returns the profile directory or a *scraper.ProfileNotFoundError
// when the user never completed session setup.
func (s *Store) Require(userID string) (string, error) {
	if !s.Exists(userID) {
		return "", &scraper.ProfileNotFoundError{UserID: userID}
	}
	return s.Dir(userID), nil
}

// Delete removes a user's profile directory and any leftover lock file.
// Explicit operator action is the only path that deletes profiles.
func (s *Store) Delete(userID string) error {
	if !s.Exists(userID) {
		return &scraper.ProfileNotFoundError{UserID: userID}
	}
	_ = os.Remove(s.lockPath(userID))
	if err := os.RemoveAll(s.Dir(userID)); err != nil {
		return fmt.Errorf("failed to delete profile for %s: %w", userID, err)
	}
	return nil
}

// List returns the user ids that have profiles, sorted for stable output.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile base dir: %w", err)
	}
	var users []string
	for _, entry := range entries {
		if entry.IsDir() {
			users = append(users, entry.Name())
		}
	}
	sort.Strings(users)
	return users, nil
}

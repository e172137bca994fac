package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

// DefaultLeaseTTL is how long a lock file is honored before it is treated as
// abandoned by a crashed holder and reclaimed.
const DefaultLeaseTTL = 30 * time.Minute

// lockInfo is what a holder writes into the lock file so stale locks can be
// diagnosed and aged out.
type lockInfo struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lease is an exclusive hold on one user's profile directory. Release must
// be called on every exit path.
type Lease struct {
	store  *Store
	userID string

	mu       sync.Mutex
	released bool
}

// leaseTTL is overridable for tests.
var leaseTTL = DefaultLeaseTTL

func (s *Store) lockPath(userID string) string {
	return s.Dir(userID) + ".lock"
}

// Acquire takes the exclusive lease for a user's profile. The underlying
// browser storage format is not safe for concurrent writers, so a second
// caller fails fast with *scraper.ProfileLockedError rather than blocking.
// Lock files older than the TTL are reclaimed so a crashed holder does not
// wedge the profile forever.
func (s *Store) Acquire(userID string) (*Lease, error) {
	path := s.lockPath(userID)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		if s.reclaimStale(path) {
			return s.Acquire(userID)
		}
		return nil, &scraper.ProfileLockedError{UserID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile lock for %s: %w", userID, err)
	}
	defer f.Close()

	info := lockInfo{PID: os.Getpid(), AcquiredAt: time.Now().UTC()}
	if data, err := json.Marshal(info); err == nil {
		_, _ = f.Write(data)
	}

	return &Lease{store: s, userID: userID}, nil
}

// reclaimStale removes a lock file whose holder is presumed dead. It reports
// whether the lock was removed and acquisition should be retried.
func (s *Store) reclaimStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Racing with a concurrent release; let the caller retry via the
		// normal path.
		return !os.IsNotExist(err)
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		// Unreadable lock file: fall back to its mtime.
		if stat, statErr := os.Stat(path); statErr == nil {
			info.AcquiredAt = stat.ModTime()
		} else {
			return false
		}
	}

	if time.Since(info.AcquiredAt) < leaseTTL {
		return false
	}
	return os.Remove(path) == nil
}

// Release drops the lease. It is safe to call more than once.
func (l *Lease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	_ = os.Remove(l.store.lockPath(l.userID))
}

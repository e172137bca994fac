package scraper

import "fmt"

// UnsupportedPlatformError means no engine mapping exists for the target URL.
type UnsupportedPlatformError struct {
	URL string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform for URL: %s", e.URL)
}

// ProfileNotFoundError means a browser-engine job was requested for a user
// who never completed the one-time session setup.
type ProfileNotFoundError struct {
	UserID string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("no browser profile for user %q; run session create first", e.UserID)
}

// ProfileLockedError means another live browser job currently holds the
// user's profile. Callers should retry after the holder releases it.
type ProfileLockedError struct {
	UserID string
}

func (e *ProfileLockedError) Error() string {
	return fmt.Sprintf("browser profile for user %q is in use by another job", e.UserID)
}

// SelectorNotFoundError means none of the platform's candidate selectors
// matched any content on the loaded page.
type SelectorNotFoundError struct {
	Platform  string
	Selectors []string
}

func (e *SelectorNotFoundError) Error() string {
	return fmt.Sprintf("no candidate selector matched content on %s (%d tried)", e.Platform, len(e.Selectors))
}

// EngineTimeoutError means a navigation or provider call exceeded its bound.
type EngineTimeoutError struct {
	Operation string
	Cause     error
}

func (e *EngineTimeoutError) Error() string {
	return fmt.Sprintf("engine timeout during %s: %v", e.Operation, e.Cause)
}

func (e *EngineTimeoutError) Unwrap() error { return e.Cause }

// ExternalProviderError carries a remote vendor's error or warning text
// verbatim.
type ExternalProviderError struct {
	Provider string
	Message  string
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// JobNotFoundError means the job id is unknown.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

// JobNotCompletedError means results were requested before the job reached
// the completed state.
type JobNotCompletedError struct {
	JobID  string
	Status JobStatus
}

func (e *JobNotCompletedError) Error() string {
	return fmt.Sprintf("job %s is not completed (status: %s)", e.JobID, e.Status)
}

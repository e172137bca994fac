package brightdata

import "time"

// lookbackDays maps a requested post-count limit to a provider-native date
// window. The provider windows by date, not count, so this is a one-way
// heuristic: callers should treat the resulting volume as approximate.
func lookbackDays(postLimit int) int {
	switch {
	case postLimit <= 0 || postLimit >= 500:
		return 365
	case postLimit >= 100:
		return 90
	case postLimit >= 50:
		return 30
	default:
		return 7
	}
}

// window returns the start/end pair for a post limit, ending now.
func window(postLimit int, now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -lookbackDays(postLimit)), now
}

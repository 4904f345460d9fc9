package publisher

import "time"

// backoff is the retry floor ladder (spec.md §4.F step 5), indexed by
// clamp(attemptNo-1, 0, len(backoff)-1).
var backoff = []time.Duration{2 * time.Minute, 10 * time.Minute, 30 * time.Minute}

// RetryAt computes the next attempt time for a retryable failure: the
// back-off floor for attemptNo, or the Platform's advertised rate-limit
// reset when that is later (spec.md §4.F: "the Platform's advertised reset
// always wins when it is later than the back-off floor").
func RetryAt(now time.Time, attemptNo int, resetAt *time.Time) time.Time {
	idx := attemptNo - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(backoff)-1 {
		idx = len(backoff) - 1
	}

	floor := now.Add(backoff[idx])
	if resetAt != nil && resetAt.After(floor) {
		return *resetAt
	}
	return floor
}

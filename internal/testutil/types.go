package testutil

import "time"

// ExecutionRecord holds the start and end times of a single cook.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

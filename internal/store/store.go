// Package store persists completed summarization results keyed by
// (topic, day) with a seven-day retention window enforced on read and by
// explicit sweeps.
package store

import (
	"time"

	"github.com/briangreenhill/topicsum/internal/summary"
)

// DefaultExpiry is how long a cached summary stays retrievable. Entries are
// immutable once written, so staleness only matters as storage hygiene.
const DefaultExpiry = 7 * 24 * time.Hour

// Store is the result cache contract. Get never fails: expired or corrupt
// entries are deleted and reported absent. Callers only Put completed
// results; transient statuses are meaningless outside the session that
// observed them.
type Store interface {
	Get(topicID, day string) (summary.Result, bool)
	Put(topicID, day string, res summary.Result) error
	// SweepExpired deletes every entry older than the expiry window and
	// returns how many were removed. Idempotent.
	SweepExpired() (int, error)
}

// Package ledger tracks per-actor counts of actioned violations, used to
// decide ban escalation. Counts expire 30 days after the last write; an
// absent key reads as zero.
package ledger

import (
	"context"
	"time"
)

// Rolling expiry window, reset on every increment.
const DefaultTTL = 30 * 24 * time.Hour

type CountStore interface {
	// Returns the current count for the actor, or 0 when absent/expired.
	GetCount(ctx context.Context, install, actor string) (int, error)
	// Adds one to the actor's count and returns the new value. The expiry
	// window restarts from this write. Implementations must make the
	// increment-and-fetch atomic, so that concurrent events for the same
	// actor never lose an increment.
	Increment(ctx context.Context, install, actor string) (int, error)
	// Clears the actor's count. Called after a ban is executed; post-ban
	// tracking is out of scope.
	Reset(ctx context.Context, install, actor string) error
}

func actorBucket(install, actor string) string {
	return install + "/" + actor
}

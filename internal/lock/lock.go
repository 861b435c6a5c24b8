// Package lock defines the mutual-exclusion primitive guarding the
// check-then-reserve sequence. The store is advisory: it serializes
// concurrent requests for the same (item, date range) fingerprint, while
// the reservation ledger remains the source of truth.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is a shared key-value store used purely for short-lived exclusive
// locks. Keys expire after their TTL so a crashed holder can never strand
// an item forever.
type Store interface {
	// TryAcquire atomically creates key with the given TTL only if it is
	// absent and reports whether acquisition succeeded. If the store is
	// unreachable it returns false with a non-nil error: never assume a
	// lock that could not be verified.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release deletes key unconditionally. Releasing an expired or
	// never-held key is a no-op, not an error.
	Release(ctx context.Context, key string) error
}

// Key builds the deterministic lock key for an item and a half-open rental
// range. Timestamps are normalized to UTC so that equal instants produced
// in different zones collide on the same key.
func Key(itemID uuid.UUID, from, to time.Time) string {
	return fmt.Sprintf("rental:lock:%s:%s:%s",
		itemID,
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)
}

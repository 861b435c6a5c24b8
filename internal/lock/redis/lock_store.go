package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rentloop/reservation-service/internal/lock"
	"github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
)

// lockValue is the sentinel stored under a held lock key. The key itself
// carries all identifying information.
const lockValue = "1"

// LockStore implements lock.Store on Redis using SET NX with expiry
type LockStore struct {
	client *redis.Client
	logger logging.Logger
}

// NewLockStore creates a Redis-backed lock store
func NewLockStore(client *redis.Client, logger logging.Logger) lock.Store {
	return &LockStore{
		client: client,
		logger: logger,
	}
}

// TryAcquire sets the key only if absent, with the given TTL, in a single
// atomic SET NX EX command. A store failure is reported as not acquired:
// an unverifiable lock must never let a write through unguarded.
func (s *LockStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, key, lockValue, ttl).Result()
	if err != nil {
		s.logger.Error(ctx, "Lock acquisition failed", err, map[string]interface{}{
			"lock_key": key,
		})
		return false, errors.Wrap(err, "lock store unavailable")
	}

	s.logger.Debug(ctx, "Lock acquisition attempted", map[string]interface{}{
		"lock_key": key,
		"acquired": acquired,
		"ttl":      ttl.String(),
	})

	return acquired, nil
}

// Release deletes the key unconditionally. Deleting a key that expired or
// was already released is indistinguishable from success.
func (s *LockStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error(ctx, "Lock release failed", err, map[string]interface{}{
			"lock_key": key,
		})
		return errors.Wrap(err, "failed to release lock")
	}
	return nil
}

// Package rosterlock provides an optional cross-process single-writer guard per opportunity.
package rosterlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const keyPrefix = "dealroster:roster-lock:"

// ErrBusy is returned when another writer holds the opportunity's lock.
var ErrBusy = errors.New("roster_busy")

// Release frees a lock taken by Acquire.
type Release func(ctx context.Context) error

// Locker is nil-safe: a nil *Locker grants every lock without touching redis.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func Key(opportunityID snowflake.ID) string {
	return keyPrefix + opportunityID.String()
}

// Acquire takes the lock for opportunityID or returns ErrBusy without waiting.
func (l *Locker) Acquire(ctx context.Context, opportunityID snowflake.ID, ttl time.Duration) (Release, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	if opportunityID == 0 {
		return nil, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	key := Key(opportunityID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire roster lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func(ctx context.Context) error {
		return l.script.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

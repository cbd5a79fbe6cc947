package billing

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const verifyPendingTTL = 3 * time.Second

// SessionThrottle rate-limits provider lookups for sessions recently seen as
// unpaid, so a client polling in a tight loop does not hammer the provider.
type SessionThrottle interface {
	RecentlyPending(ctx context.Context, sessionID string) bool
	MarkPending(ctx context.Context, sessionID string)
}

type redisSessionThrottle struct {
	client *redis.Client
}

// NewRedisSessionThrottle creates a throttle backed by the shared cache.
func NewRedisSessionThrottle(client *redis.Client) SessionThrottle {
	return &redisSessionThrottle{client: client}
}

func (t *redisSessionThrottle) RecentlyPending(ctx context.Context, sessionID string) bool {
	if t.client == nil {
		return false
	}
	err := t.client.Get(ctx, verifyPendingKey(sessionID)).Err()
	return err == nil
}

func (t *redisSessionThrottle) MarkPending(ctx context.Context, sessionID string) {
	if t.client == nil {
		return
	}
	if err := t.client.Set(ctx, verifyPendingKey(sessionID), "1", verifyPendingTTL).Err(); err != nil {
		log.Printf("billing: verify throttle write failed: %v", err)
	}
}

func verifyPendingKey(sessionID string) string {
	return "billing:verify:pending:" + sessionID
}

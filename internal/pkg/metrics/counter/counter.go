package counter

import (
	"context"
	"strconv"

	"github.com/teambase-app/TeamBase/internal/pkg/cache"
)

const (
	eventsProcessedKey = "billing:counters:events:processed"
	eventsFailedKey    = "billing:counters:events:failed"
	eventsIgnoredKey   = "billing:counters:events:ignored"
)

// AddEventProcessed increments the processed counter for a webhook event type in Redis
func AddEventProcessed(eventType string) error {
	return cache.GetClient().HIncrBy(context.Background(), eventsProcessedKey, eventType, 1).Err()
}

// AddEventFailed increments the failed counter for a webhook event type in Redis
func AddEventFailed(eventType string) error {
	return cache.GetClient().HIncrBy(context.Background(), eventsFailedKey, eventType, 1).Err()
}

// AddEventIgnored increments the ignored counter for a webhook event type in Redis
func AddEventIgnored(eventType string) error {
	return cache.GetClient().HIncrBy(context.Background(), eventsIgnoredKey, eventType, 1).Err()
}

// Stats is one counter hash, keyed by webhook event type.
type Stats map[string]int64

// Snapshot reads all webhook counters without resetting them.
func Snapshot(ctx context.Context) (processed, failed, ignored Stats, err error) {
	processed, err = readHash(ctx, eventsProcessedKey)
	if err != nil {
		return nil, nil, nil, err
	}
	failed, err = readHash(ctx, eventsFailedKey)
	if err != nil {
		return nil, nil, nil, err
	}
	ignored, err = readHash(ctx, eventsIgnoredKey)
	if err != nil {
		return nil, nil, nil, err
	}
	return processed, failed, ignored, nil
}

func readHash(ctx context.Context, key string) (Stats, error) {
	data, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	stats := make(Stats, len(data))
	for field, value := range data {
		n, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			continue
		}
		stats[field] = n
	}
	return stats, nil
}

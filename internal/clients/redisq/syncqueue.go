package redisq

import (
	"context"
	"encoding/json"
	"time"
)

// PriceSyncSignal is the fire-and-forget message the ingestion pipeline pushes
// after catalog changes. The scheduled reconciler drains the queue to decide
// whether an off-schedule sync is worth running.
type PriceSyncSignal struct {
	CategorySlug string    `json:"category_slug,omitempty"`
	Reason       string    `json:"reason"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

type PriceSyncQueue struct {
	client *Client
	key    string
}

func NewPriceSyncQueue(client *Client, key string) *PriceSyncQueue {
	if key == "" {
		key = "arsenalfit:price_sync_queue"
	}
	return &PriceSyncQueue{client: client, key: key}
}

// Enqueue never fails the caller's flow: errors are logged and swallowed.
func (q *PriceSyncQueue) Enqueue(ctx context.Context, signal PriceSyncSignal) {
	if signal.EnqueuedAt.IsZero() {
		signal.EnqueuedAt = time.Now()
	}
	raw, err := json.Marshal(signal)
	if err != nil {
		q.client.log.Warn("Failed to marshal price sync signal", "error", err)
		return
	}
	if err := q.client.rdb.LPush(ctx, q.key, raw).Err(); err != nil {
		q.client.log.Warn("Failed to enqueue price sync signal", "error", err)
	}
}

// Drain pops every pending signal; an empty slice means no pressure.
func (q *PriceSyncQueue) Drain(ctx context.Context, max int) ([]PriceSyncSignal, error) {
	if max <= 0 {
		max = 100
	}
	out := make([]PriceSyncSignal, 0)
	for i := 0; i < max; i++ {
		raw, err := q.client.rdb.RPop(ctx, q.key).Result()
		if err != nil {
			break
		}
		var s PriceSyncSignal
		if jsonErr := json.Unmarshal([]byte(raw), &s); jsonErr != nil {
			q.client.log.Warn("Dropping malformed price sync signal", "error", jsonErr)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

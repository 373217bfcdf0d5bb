package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"giveaway-miniapp/internal/features/events"
)

// RedisStream appends events to a capped Redis stream, so bots and other
// backends can consume them with XREADGROUP.
type RedisStream struct {
	rdb    redis.UniversalClient
	key    string
	maxLen int64
}

func NewRedisStream(rdb redis.UniversalClient, key string, maxLen int64) *RedisStream {
	return &RedisStream{rdb: rdb, key: key, maxLen: maxLen}
}

func (s *RedisStream) Name() string { return "redis_stream" }

func (s *RedisStream) Write(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":        string(e.Kind),
			"user_id":     e.UserID,
			"giveaway_id": e.GiveawayID,
			"payload":     payload,
		},
	}).Err()
}

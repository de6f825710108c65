package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink mirrors events onto the Pub/Sub channel auction_events:<room>
// for out-of-process listeners such as overlays.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(addr, password string, db int) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisSink{client: rdb}, nil
}

func Channel(roomID string) string {
	return "auction_events:" + roomID
}

func (s *RedisSink) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.client.Publish(ctx, Channel(ev.RoomID), data).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

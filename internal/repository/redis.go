package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raisket/audittrail/internal/config"
	"github.com/raisket/audittrail/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisClient keeps a capped list of recently stored events for fast
// dashboard reads and publishes each stored event for external subscribers.
type RedisClient struct {
	Client  *redis.Client
	listKey string
	listMax int
	channel string
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	listKey := cfg.Redis.RecentListKey
	if listKey == "" {
		listKey = "audit_events_recent"
	}
	listMax := cfg.Redis.RecentListMax
	if listMax <= 0 {
		listMax = 10000
	}
	channel := cfg.Redis.PubSubChannel
	if channel == "" {
		channel = "audit_events"
	}

	return &RedisClient{Client: rdb, listKey: listKey, listMax: listMax, channel: channel}, nil
}

// Push prepends the stored event to the recent list, trims the list to its
// cap, and publishes the event on the pub/sub channel.
func (r *RedisClient) Push(ctx context.Context, ev *model.AuditEvent) error {
	if ev == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := r.Client.Pipeline()
	pipe.LPush(ctx, r.listKey, payload)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
	pipe.Publish(ctx, r.channel, payload)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit most recently stored events, newest first.
func (r *RedisClient) Recent(ctx context.Context, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 || limit > r.listMax {
		limit = 100
	}
	raw, err := r.Client.LRange(ctx, r.listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	events := make([]*model.AuditEvent, 0, len(raw))
	for _, item := range raw {
		var ev model.AuditEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		events = append(events, &ev)
	}
	return events, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

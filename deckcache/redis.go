package deckcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type invalidation struct {
	UserID string `json:"user_id"`
	Origin string `json:"origin"`
}

// RedisNotifier broadcasts deck changes over a Redis channel so every
// instance can drop its snapshot.
type RedisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
}

func NewRedisNotifier(addr, channel string, log *logger.Logger) (*RedisNotifier, error) {
	if log == nil {
		log = logger.Nop()
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if strings.TrimSpace(channel) == "" {
		channel = "deck-cache"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisNotifier{
		log:     log.With("service", "DeckCacheNotifier"),
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
	}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, userID string) error {
	raw, err := encodeInvalidation(userID, n.origin)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

// Subscribe calls onUser for every change published by another instance
// until ctx is done.
func (n *RedisNotifier) Subscribe(ctx context.Context, onUser func(userID string)) error {
	if onUser == nil {
		return fmt.Errorf("onUser callback required")
	}
	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				userID, ok := decodeInvalidation(m.Payload, n.origin)
				if !ok {
					n.log.Debug("ignored deck cache payload", "payload", m.Payload)
					continue
				}
				onUser(userID)
			}
		}
	}()
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

func encodeInvalidation(userID, origin string) ([]byte, error) {
	return json.Marshal(invalidation{UserID: userID, Origin: origin})
}

// decodeInvalidation returns the user id of a message from another origin.
func decodeInvalidation(payload, self string) (string, bool) {
	var msg invalidation
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return "", false
	}
	if msg.UserID == "" || msg.Origin == self {
		return "", false
	}
	return msg.UserID, true
}

// Package redis keeps sessions, wizard flows, the token vault slot, locks and
// rate-limit counters in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goldpayments/config"
	"goldpayments/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}

// NewHealthCheck reports whether Redis answers PING.
func NewHealthCheck(client *goredis.Client) ports.HealthChecker {
	return ports.NewCheck("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// jsonStore keeps values of T as JSON strings under prefix+id.
type jsonStore[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func (s *jsonStore[T]) set(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s%s: %w", s.prefix, id, err)
	}
	if err := s.client.Set(ctx, s.prefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s%s: %w", s.prefix, id, err)
	}
	return nil
}

// create fails with errExists when the key is already taken.
func (s *jsonStore[T]) create(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s%s: %w", s.prefix, id, err)
	}
	ok, err := s.client.SetNX(ctx, s.prefix+id, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s%s: %w", s.prefix, id, err)
	}
	if !ok {
		return fmt.Errorf("%s%s: %w", s.prefix, id, errExists)
	}
	return nil
}

// update rewrites an existing key, keeping its remaining TTL.
func (s *jsonStore[T]) update(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s%s: %w", s.prefix, id, err)
	}
	_, err = s.client.SetArgs(ctx, s.prefix+id, data, goredis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("%s%s: %w", s.prefix, id, errMissing)
	}
	if err != nil {
		return fmt.Errorf("redis update %s%s: %w", s.prefix, id, err)
	}
	return nil
}

// swap rewrites an existing key only while check accepts the stored value,
// keeping its remaining TTL. It reports false when the key is gone, check
// refuses, or another writer touched the key between the read and the write.
func (s *jsonStore[T]) swap(ctx context.Context, id string, v *T, check func(cur *T) bool) (bool, error) {
	key := s.prefix + id
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", key, err)
	}

	swapped := false
	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var cur T
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if !check(&cur) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.SetArgs(ctx, key, data, goredis.SetArgs{KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if errors.Is(err, goredis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis swap %s: %w", key, err)
	}
	return swapped, nil
}

// get returns nil, nil when the key does not exist.
func (s *jsonStore[T]) get(ctx context.Context, id string) (*T, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s%s: %w", s.prefix, id, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s%s: %w", s.prefix, id, err)
	}
	return &v, nil
}

var (
	errExists  = errors.New("key already exists")
	errMissing = errors.New("key does not exist")
)

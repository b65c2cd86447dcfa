package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/intervention-engine/patientcard/plugin"
)

// ResultCache stores scored patients by key.  Scoring is pure, so a cached
// entry never goes stale for the features it was computed from.
type ResultCache interface {
	Get(ctx context.Context, key string) (plugin.PatientRisk, bool, error)
	Put(ctx context.Context, key string, r plugin.PatientRisk) error
}

// NopResultCache never hits.
type NopResultCache struct{}

func (NopResultCache) Get(ctx context.Context, key string) (plugin.PatientRisk, bool, error) {
	return plugin.PatientRisk{}, false, nil
}

func (NopResultCache) Put(ctx context.Context, key string, r plugin.PatientRisk) error {
	return nil
}

const DefaultCachePrefix = "patientcard:"

// RedisResultCache keeps JSON encoded results in Redis.
type RedisResultCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{client: client, prefix: DefaultCachePrefix, ttl: ttl}
}

// DialRedisResultCache parses a redis:// URL and checks the server answers.
func DialRedisResultCache(ctx context.Context, url string, ttl time.Duration) (*RedisResultCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisResultCache(client, ttl), nil
}

func (r *RedisResultCache) Get(ctx context.Context, key string) (plugin.PatientRisk, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return plugin.PatientRisk{}, false, nil
	}
	if err != nil {
		return plugin.PatientRisk{}, false, fmt.Errorf("failed to get cache: %w", err)
	}
	var result plugin.PatientRisk
	if err := json.Unmarshal(val, &result); err != nil {
		return plugin.PatientRisk{}, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	return result, true, nil
}

func (r *RedisResultCache) Put(ctx context.Context, key string, result plugin.PatientRisk) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (r *RedisResultCache) Close() error {
	return r.client.Close()
}

// Package cache provides shared state for multi-instance deployments.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apppdf "github.com/erp/pdfkit/internal/application/printing"
)

const defaultKeyPrefix = "pdf:artifact:"

// RedisIndex implements ArtifactIndex using Redis, so that every instance
// serving the same output directory resolves the same stored files
type RedisIndex struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisIndex connects to Redis and creates the index
func NewRedisIndex(ctx context.Context, cfg RedisConfig) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisIndexWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisIndexWithClient creates an index over an existing client
func NewRedisIndexWithClient(client *redis.Client, keyPrefix string) *RedisIndex {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIndex{client: client, keyPrefix: keyPrefix}
}

func (r *RedisIndex) Lookup(ctx context.Context, kind, id string) (string, bool, error) {
	name, err := r.client.Get(ctx, r.key(kind, id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up artifact: %w", err)
	}
	return name, true, nil
}

func (r *RedisIndex) Record(ctx context.Context, kind, id, fileName string) error {
	if err := r.client.Set(ctx, r.key(kind, id), fileName, 0).Err(); err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

func (r *RedisIndex) Forget(ctx context.Context, kind, id string) error {
	if err := r.client.Del(ctx, r.key(kind, id)).Err(); err != nil {
		return fmt.Errorf("failed to forget artifact: %w", err)
	}
	return nil
}

// Entries scans every key under the prefix
func (r *RedisIndex) Entries(ctx context.Context) ([]apppdf.IndexEntry, error) {
	var entries []apppdf.IndexEntry

	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		kind, id, ok := r.parseKey(key)
		if !ok {
			continue
		}
		name, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue // forgotten while scanning
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact entry: %w", err)
		}
		entries = append(entries, apppdf.IndexEntry{Kind: kind, ID: id, FileName: name})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan artifact index: %w", err)
	}

	apppdf.SortEntries(entries)
	return entries, nil
}

// Ping checks that Redis is reachable
func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (r *RedisIndex) Close() error {
	return r.client.Close()
}

// key is <prefix><kind>:<id>; kinds never contain a colon
func (r *RedisIndex) key(kind, id string) string {
	return r.keyPrefix + kind + ":" + id
}

func (r *RedisIndex) parseKey(key string) (kind, id string, ok bool) {
	rest, found := strings.CutPrefix(key, r.keyPrefix)
	if !found {
		return "", "", false
	}
	kind, id, ok = strings.Cut(rest, ":")
	if !ok || kind == "" || id == "" {
		return "", "", false
	}
	return kind, id, true
}

var _ apppdf.ArtifactIndex = (*RedisIndex)(nil)

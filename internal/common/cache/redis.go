// internal/common/cache/redis.go
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
)

const scanBatch = 100

// Redis is a Store shared across processes. Values are stored as JSON and
// come back from Get as []byte; use GetAs to decode them. Backend errors are
// logged and reported as misses.
type Redis struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

func NewRedis(client *redis.Client, prefix string, log logger.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "cache.redis"}),
	}
}

func (r *Redis) Get(ctx context.Context, key string) (interface{}, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache get failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := jsonx.Marshal(value)
	if err != nil {
		r.logger.Warn("cache encode failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Warn("cache delete failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Clear removes every key under the prefix.
func (r *Redis) Clear(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", scanBatch).Result()
		if err != nil {
			r.logger.Warn("cache scan failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warn("cache clear failed", map[string]interface{}{"error": err.Error()})
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseTTL = 15 * time.Minute
	maxJitter      = 5 * time.Minute

	// generationTTL outlives any entry written under it.
	generationTTL = 24 * time.Hour
)

// setIfGeneration writes KEYS[2] only while KEYS[1] still holds ARGV[1]. A
// missing generation counts as 0.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: defaultBaseTTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, cacheKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisCache) Generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set stores lines with a jittered TTL so entries written together do not
// all expire together.
func (r *RedisCache) Set(ctx context.Context, ownerID string, lines []domain.CartLine, generation int64) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Int64N(int64(maxJitter)))
	stored, err := setIfGeneration.Run(ctx, r.client,
		[]string{generationKey(ownerID), cacheKey(ownerID)},
		strconv.FormatInt(generation, 10), data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stored == 0 {
		return ErrStaleGeneration
	}
	return nil
}

// Delete drops the entry and bumps the generation in one transaction.
func (r *RedisCache) Delete(ctx context.Context, ownerID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(ownerID))
		pipe.Expire(ctx, generationKey(ownerID), generationTTL)
		pipe.Del(ctx, cacheKey(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(ownerID string) string {
	return "cart:" + ownerID
}

func generationKey(ownerID string) string {
	return "cart-gen:" + ownerID
}

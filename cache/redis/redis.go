package redis

import (
	"context"
	"crypto/tls"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/notedrop/notedrop/cache"
)

type RedisNoteCache struct {
	client redis.UniversalClient
}

func NewRedisNoteCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisNoteCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisNoteCache{client: client}, nil
}

const (
	requestCountsKey  = "requests:counts"
	requestStatusKey  = "requests:statuses"
	noteCountKey      = "notes:count"
	statusFieldJoiner = "|"
)

func (redisCache *RedisNoteCache) IncrementRequestCount(ctx context.Context, path string, status int, delta int64) error {
	statusField := path + statusFieldJoiner + strconv.Itoa(status)

	pipe := redisCache.client.Pipeline()
	pipe.HIncrBy(ctx, requestCountsKey, path, delta)
	pipe.HIncrBy(ctx, requestStatusKey, statusField, delta)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisNoteCache) GetRequestCounts(ctx context.Context) (map[string]cache.PathCounts, error) {
	pathCounts, err := redisCache.client.HGetAll(ctx, requestCountsKey).Result()
	if err != nil {
		return nil, err
	}

	statusCounts, err := redisCache.client.HGetAll(ctx, requestStatusKey).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]cache.PathCounts, len(pathCounts))
	for path, raw := range pathCounts {
		count, _ := strconv.ParseInt(raw, 10, 64)
		counts[path] = cache.PathCounts{Count: count, Statuses: make(map[int]int64)}
	}

	for field, raw := range statusCounts {
		joiner := strings.LastIndex(field, statusFieldJoiner)
		if joiner < 0 {
			continue
		}
		path := field[:joiner]
		status, err := strconv.Atoi(field[joiner+1:])
		if err != nil {
			continue
		}

		pc, ok := counts[path]
		if !ok {
			pc = cache.PathCounts{Statuses: make(map[int]int64)}
		}
		pc.Statuses[status], _ = strconv.ParseInt(raw, 10, 64)
		counts[path] = pc
	}

	return counts, nil
}

func (redisCache *RedisNoteCache) IncrementNoteCount(ctx context.Context, delta int64) error {
	return redisCache.client.IncrBy(ctx, noteCountKey, delta).Err()
}

func (redisCache *RedisNoteCache) GetNoteCount(ctx context.Context) (int64, error) {
	count, err := redisCache.client.Get(ctx, noteCountKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

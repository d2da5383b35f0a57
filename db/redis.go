// api/db/redis.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/config"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

var RedisClient *redis.Client

func InitRedis(ctx context.Context) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         config.GetString("redis.addr"),
		Password:     config.GetString("redis.password"),
		DB:           config.GetInt("redis.db"),
		DialTimeout:  config.GetDuration("redis.dialTimeout"),
		ReadTimeout:  config.GetDuration("redis.readTimeout"),
		WriteTimeout: config.GetDuration("redis.writeTimeout"),
		PoolSize:     config.GetInt("redis.poolSize"),
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(pctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// RateLimit is a sliding-window limiter over a sorted set per key.
func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := card.Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

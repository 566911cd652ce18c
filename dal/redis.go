package dal

import (
	"context"
	"fmt"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis. It returns nil, nil when no address is
// configured so callers can fall back to DynamoDB and in-process guards.
func NewRedisClient(ctx context.Context, cfg *models.Config, log logger.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		log.Info("Redis not configured, using DynamoDB counters and local guards")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var err error
	for i := 0; i < 5; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			log.Infof("Connected to Redis at %s", cfg.RedisAddr)
			return rdb, nil
		}
		log.Warnf("Redis not ready (attempt %d): %v", i+1, err)

		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr, err)
}

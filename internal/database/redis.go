package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/paybot/backend/internal/config"
)

// InitRedis initializes Redis client with config. It returns nil when Redis is unreachable;
// callers treat a nil client as "no cache".
func InitRedis(cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		rdb.Close()
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}

package auth

import (
	"context"
	"fmt"
	"time"

	"ms-engagement/internal/logger"

	"github.com/go-redis/redis/v8"
)

// InitializeRedis connects to Redis and checks the connection with a ping.
// The client backs the login limiter, the scan guard and the leaderboard.
func InitializeRedis(redisAddr string, poolSize int, customLogger *logger.Logger) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		DB:       0,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		customLogger.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
		redisClient.Close()
		return nil, err
	}

	customLogger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", redisAddr))
	return redisClient, nil
}

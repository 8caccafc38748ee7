package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/config"
	"ms-engagement/internal/database"
	"ms-engagement/internal/kafka"
	"ms-engagement/internal/leaderboard"
	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"
	"ms-engagement/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger("leaderboard-worker")
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()
	if !cfg.Kafka.Enabled || !cfg.Redis.Enabled {
		log.Fatal("CONFIG", "leaderboard worker needs both KAFKA_ENABLED and REDIS_ENABLED")
	}

	bunDB, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	redisClient, err := auth.InitializeRedis(cfg.Redis.Addr, cfg.Redis.PoolSize, log)
	if err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()

	board := leaderboard.New(redisClient, cfg.Raffle.LeaderboardKey)

	// stored points are authoritative; the stream only keeps the ranking fresh
	rebuildCtx, cancelRebuild := context.WithTimeout(context.Background(), 30*time.Second)
	attendees, err := store.New(bunDB).ListAttendees(rebuildCtx)
	if err == nil {
		err = board.Rebuild(rebuildCtx, attendees)
	}
	cancelRebuild()
	if err != nil {
		log.Fatal("LEADERBOARD", fmt.Sprintf("Initial rebuild failed: %v", err))
	}
	log.Info("LEADERBOARD", fmt.Sprintf("Rebuilt ranking from %d attendees", len(attendees)))

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx, func(ctx context.Context, event models.EngagementEvent) error {
			if err := board.Apply(ctx, event); err != nil {
				return err
			}
			log.Debug("LEADERBOARD", fmt.Sprintf("applied %s for %s (%+d)", event.Type, event.AttendeeID, event.Points))
			return nil
		})
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Leaderboard worker started, waiting for shutdown signal")

	select {
	case <-stop:
		log.Info("APP", "Shutdown signal received")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
		}
	}
	log.Info("APP", "✅ Leaderboard worker shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-engagement/internal/analytics"
	"ms-engagement/internal/attendees"
	"ms-engagement/internal/auth"
	"ms-engagement/internal/config"
	"ms-engagement/internal/database"
	"ms-engagement/internal/database/migrations"
	api "ms-engagement/internal/engagement_api"
	"ms-engagement/internal/kafka"
	"ms-engagement/internal/leaderboard"
	"ms-engagement/internal/logger"
	"ms-engagement/internal/raffle"
	"ms-engagement/internal/scan"
	"ms-engagement/internal/sse"
	"ms-engagement/internal/store"
	"ms-engagement/internal/tickets/qr"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger("engagement-service")
	defer log.Close()

	log.Info("APP", "Starting Engagement Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("CONFIG", "JWT_SECRET not set")
	}

	bunDB, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Migrations.Auto {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.Migrations.Dir,
			AutoMigrate:   true,
			SeedData:      cfg.Migrations.Seed,
		}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		runner.Close()
	}

	db := store.New(bunDB)

	// --- Redis: scan guard, login limiter, leaderboard reads ---
	var (
		guard    scan.Guard = scan.NewLocalGuard()
		limiter  attendees.Limiter
		board    api.Leaderboard
		redisCli *redis.Client
	)
	if cfg.Redis.Enabled {
		redisCli, err = auth.InitializeRedis(cfg.Redis.Addr, cfg.Redis.PoolSize, log)
		if err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
		}
		defer redisCli.Close()

		guard = scan.NewRedisGuard(redisCli, cfg.Scan.GuardTTL)
		limiter = auth.NewLoginLimiter(redisCli, cfg.Auth.MaxLoginAttempts, cfg.Auth.LoginLockout)
		board = leaderboard.New(redisCli, cfg.Raffle.LeaderboardKey)
	} else {
		log.Warn("REDIS", "Redis disabled: scan guard is process-local, staff logins are not throttled, leaderboard is offline")
	}

	// --- Kafka ---
	var (
		scanEvents     scan.EventPublisher
		attendeeEvents attendees.EventPublisher
		raffleEvents   raffle.EventPublisher
	)
	if cfg.Kafka.Enabled {
		if err := kafka.CreateTopicIfNotExists(cfg.Kafka.Brokers, cfg.Kafka.Topic, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		scanEvents, attendeeEvents, raffleEvents = producer, producer, producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Warn("KAFKA", "Kafka disabled: engagement events are not published")
	}

	// --- Auth ---
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	var verifier auth.Verifier = issuer
	if cfg.Auth.OIDCIssuer != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(context.Background(), cfg.Auth.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("OIDC provider setup failed: %v", err))
		}
		verifier = auth.ChainVerifier{issuer, oidcVerifier}
		log.Info("AUTH", fmt.Sprintf("Accepting tokens from %s", cfg.Auth.OIDCIssuer))
	}

	// --- Services ---
	attendeeService := attendees.NewService(db, issuer, limiter, attendeeEvents, log, cfg.Auth.StaffPassword)
	attendeeService.Timeout = cfg.Scan.StorageTimeout

	ledger := scan.NewLedger(db, guard, scanEvents, log, cfg.Scan.StorageTimeout)

	emitter := sse.NewRaffleEventEmitter()
	raffleService := raffle.NewService(db, raffle.NewRegistry(cfg.Raffle.SessionTTL), raffleEvents, emitter, log)

	ctx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go raffleService.RunJanitor(ctx, cfg.Raffle.JanitorPeriod)

	handler := &api.Handler{
		Attendees:   attendeeService,
		Scans:       ledger,
		Raffle:      raffleService,
		Feed:        emitter,
		Analytics:   analytics.NewService(analytics.NewDB(bunDB)),
		Leaderboard: board,
		Tickets:     qr.NewGenerator(qr.DefaultSize),
		Bonuses:     db,
		Logger:      log,
	}

	log.Info("HTTP", "Setting up router and middleware")
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     api.NewRouter(handler, verifier, cfg.Server.AllowedOrigins),
		ReadTimeout: cfg.Server.ReadTimeout,
		// no WriteTimeout: raffle feeds are long-lived streams
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Engagement Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopJanitor()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Engagement Service shutdown complete")
	}
}

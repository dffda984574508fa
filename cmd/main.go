/**
 * @description
 * This is the main entry point for the banking core. It loads configuration, picks
 * the storage, OTP and messaging backends that are configured (falling back to
 * in-process implementations when they are not), wires the orchestrator, the cron
 * jobs and the HTTP API, and shuts everything down gracefully on SIGINT/SIGTERM.
 *
 * @dependencies
 * - github.com/joho/godotenv: loads a local .env before viper reads the environment.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: OTP storage.
 * - internal/api, internal/app, internal/config, internal/store: the service itself.
 * - pkg/rabbitmq, pkg/metrics: event publishing and prometheus metrics.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sobs/banking-core/internal/api"
	"github.com/sobs/banking-core/internal/app"
	"github.com/sobs/banking-core/internal/config"
	"github.com/sobs/banking-core/internal/store"
	"github.com/sobs/banking-core/pkg/metrics"
	"github.com/sobs/banking-core/pkg/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("starting banking-core", "port", cfg.ServerPort)

	repository, closeStore := openRepository(cfg)
	defer closeStore()

	var otp app.OTPAuthenticator = app.NewMemoryOTPAuthenticator(cfg.OTPTTL(), cfg.OTPMaxAttempts)
	if redisClient := openRedis(cfg.RedisURL); redisClient != nil {
		defer redisClient.Close()
		otp = app.NewRedisOTPAuthenticator(redisClient, cfg.RedisKeyPrefix, cfg.OTPTTL(), cfg.OTPMaxAttempts)
	} else {
		log.Println("level=warn component=bootstrap msg=\"redis unavailable; otp codes kept in process\"")
	}

	var producer rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
	var notifier app.Notifier = app.NewLogNotifier(logger)
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; events are dropped and otp codes are logged\" env=RABBITMQ_URL")
	} else if rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = rabbitProducer
		notifier = app.NewRabbitNotifier(rabbitProducer, cfg.NotificationsExchange)
	}

	metricsCollector := metrics.NewMetricsCollector(logger)

	service := app.NewService(repository, otp, notifier, producer, logger,
		app.WithMetrics(metricsCollector),
		app.WithDefaultCurrency(cfg.DefaultCurrency),
		app.WithOTPTTL(cfg.OTPTTL()),
	)

	jobs := app.NewJobs(service, metricsCollector, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()

	auth := api.AuthMiddleware(api.AuthConfig{
		JWKSURL:  cfg.JWTJWKSURL,
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	router := api.NewRouter(api.NewHandlers(service), auth, metricsCollector.GetHandler(), cfg.AllowedOrigins())

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		log.Println("level=warn component=scheduler msg=\"running jobs did not finish before shutdown\"")
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

// openRepository returns the PostgreSQL store when DATABASE_URL is set and the
// in-memory store otherwise.
func openRepository(cfg config.Config) (store.Repository, func()) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"database url missing; using in-memory store\" env=DATABASE_URL")
		return store.NewMemoryRepository(), func() {}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database ping failed\" err=%v", err)
	}
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	if cfg.AutoMigrate {
		migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelMigrate()
		if err := store.Migrate(migrateCtx, dbpool); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"schema migration failed\" err=%v", err)
		}
		log.Println("level=info component=bootstrap msg=\"schema migrated\"")
	}

	return store.NewPostgresRepository(dbpool), dbpool.Close
}

// openRedis returns nil when REDIS_URL is empty, unparsable or unreachable.
func openRedis(redisURL string) *redis.Client {
	if strings.TrimSpace(redisURL) == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis url parse failed\" err=%v", err)
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis ping failed\" err=%v", err)
		client.Close()
		return nil
	}
	log.Println("level=info component=bootstrap msg=\"redis connected\"")
	return client
}

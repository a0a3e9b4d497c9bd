package main // Entry point package

import (
	"context"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	elog "github.com/labstack/gommon/log"

	"github.com/iliyamo/task-manager-api/internal/config"
	"github.com/iliyamo/task-manager-api/internal/database"
	"github.com/iliyamo/task-manager-api/internal/handler"
	"github.com/iliyamo/task-manager-api/internal/queue"
	"github.com/iliyamo/task-manager-api/internal/repository"
	"github.com/iliyamo/task-manager-api/internal/router"
	"github.com/iliyamo/task-manager-api/internal/service"
	"github.com/iliyamo/task-manager-api/internal/telemetry"
	"github.com/iliyamo/task-manager-api/internal/utils"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, config.LoadTelemetryConfig())
	if err != nil {
		log.Printf("telemetry disabled: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := database.Migrate(mctx, db); err != nil {
			cancel()
			log.Fatalf("migrate: %v", err)
		}
		cancel()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	tokens := utils.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authSvc := service.NewAuthService(repository.NewUserRepo(db), tokens, cfg.BcryptCost)

	var events service.EventPublisher
	if cfg.EventsEnabled {
		publisher := queue.NewPublisher(cfg.AMQPURL)
		events = publisher
		go func() {
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("task-events publisher stopped: %v", err)
			}
		}()
		consumer := queue.NewConsumer(cfg.AMQPURL)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("task-events consumer stopped: %v", err)
			}
		}()
	}
	taskSvc := service.NewTaskService(repository.NewTaskRepo(db), events)

	e := router.New(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Verifier:  tokens,
		Auth:      handler.NewAuthHandler(cfg, authSvc),
		Tasks:     handler.NewTaskHandler(cfg, taskSvc),
	})
	if cfg.IsProduction() {
		e.Logger.SetLevel(elog.WARN)
	} else {
		e.Logger.SetLevel(elog.INFO)
	}

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

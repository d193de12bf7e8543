package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/events"
	"github.com/anonto42/nano-midea/socialape/internal/middleware"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/internal/router"
	"github.com/anonto42/nano-midea/socialape/internal/services"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/internal/triggers"
	"github.com/anonto42/nano-midea/socialape/pkg/config"
	"github.com/anonto42/nano-midea/socialape/pkg/firebase"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"github.com/anonto42/nano-midea/socialape/validators"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// Initialize database connections
	db, err := config.InitDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	// Initialize Firebase
	var fb *firebase.App
	if cfg.UsesFirebase() {
		fb, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StoreDriver == config.StoreFirestore, log)
		if err != nil {
			return err
		}
		defer fb.Close()
	}

	base, err := openStore(cfg, db, fb)
	if err != nil {
		return err
	}
	log.Info("document store ready", "driver", cfg.StoreDriver, "maxBatchSize", base.MaxBatchSize())

	// Dispatcher with retries and dead letters
	opts := []events.Option{events.WithRetryPolicy(events.RetryPolicy{
		MaxAttempts:    cfg.DispatchMaxAttempts,
		InitialBackoff: cfg.DispatchInitialBackoff,
		MaxBackoff:     cfg.DispatchMaxBackoff,
	})}
	var deadLetters *services.DeadLetterService
	if db.Postgres != nil {
		deadLetterRepo, err := repositories.NewPostgresDeadLetterRepository(db.Postgres)
		if err != nil {
			return fmt.Errorf("failed to migrate dead letters: %w", err)
		}
		opts = append(opts, events.WithDeadLetterSink(deadLetterRepo))
		deadLetters = services.NewDeadLetterService(deadLetterRepo, cfg.Operators)
	} else {
		log.Warn("POSTGRES_CONN_STR not set, dead letters are only logged")
	}
	dispatcher := events.NewDispatcher(log.With("component", "dispatcher"), opts...)

	// Event bus
	var bus events.Bus
	busName := "local"
	if cfg.RedisAddr != "" {
		busName = "redis-stream"
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		streamCfg := events.DefaultRedisStreamConfig()
		streamCfg.Stream = cfg.EventStream
		streamCfg.Group = cfg.EventGroup
		if host, err := os.Hostname(); err == nil {
			streamCfg.Consumer = host
		}
		streamBus := events.NewRedisStreamBus(rdb, dispatcher, log.With("component", "bus"), streamCfg)
		if err := streamBus.EnsureGroup(ctx); err != nil {
			return fmt.Errorf("failed to create consumer group: %w", err)
		}
		go func() {
			if err := streamBus.Run(ctx); err != nil {
				log.Error("event consumer stopped", "error", err)
			}
		}()
		bus = streamBus
	} else {
		localBus := events.NewLocalBus(dispatcher, log.With("component", "bus"), events.DefaultLocalBusConfig())
		defer localBus.Close()
		bus = localBus
	}

	// Repositories see the emitting store, so every write feeds the triggers
	s := events.NewEmittingStore(base, bus, log.With("component", "emitter"))
	postRepo := repositories.NewDocumentPostRepository(s)
	likeRepo := repositories.NewDocumentLikeRepository(s)
	commentRepo := repositories.NewDocumentCommentRepository(s)
	userRepo := repositories.NewDocumentUserRepository(s)
	notificationRepo := repositories.NewDocumentNotificationRepository(s)

	triggers.Register(dispatcher,
		triggers.NewCascade(s, commentRepo, likeRepo, notificationRepo, log.With("trigger", "cascade")),
		triggers.NewFanout(postRepo, likeRepo, commentRepo, notificationRepo, log.With("trigger", "fanout")),
		triggers.NewProfile(s, postRepo, log.With("trigger", "profile")),
	)

	counters := services.NewCounterService(postRepo, likeRepo, log)
	svc := router.Services{
		Posts:         services.NewPostService(postRepo, commentRepo, userRepo, counters, log),
		Counters:      counters,
		Users:         services.NewUserService(userRepo, postRepo, likeRepo, notificationRepo, log),
		Notifications: services.NewNotificationService(notificationRepo),
		DeadLetters:   deadLetters,
		Info:          map[string]string{"store": cfg.StoreDriver, "bus": busName, "auth": cfg.AuthMode},
	}

	var auth echo.MiddlewareFunc
	switch cfg.AuthMode {
	case config.AuthJWT:
		auth = middleware.JWTAuthMiddleware(cfg.JWTSecret)
	default:
		auth = middleware.FirebaseAuthMiddleware(fb.AuthClient, userRepo)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log)
	router.SetupRoutes(e, svc, auth, log)

	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "auth", cfg.AuthMode)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown", "error", err)
	}
	return nil
}

func openStore(cfg *config.Config, db *config.DB, fb *firebase.App) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreFirestore:
		return store.NewFirestoreStore(fb.Firestore, cfg.MaxBatchSize), nil
	case config.StoreMongo:
		return store.NewMongoStore(db.Mongo, cfg.MongoDatabase, cfg.MaxBatchSize), nil
	case config.StoreMemory:
		return store.NewMemoryStore(cfg.MaxBatchSize), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

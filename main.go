// @title           Task Tracker API
// @version         1.0
// @description     Personal task tracking REST API
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"task-tracker/auth"
	"task-tracker/config"
	"task-tracker/db"
	"task-tracker/logging"
	"task-tracker/server"
)

// backend is what main needs from a storage driver.
type backend interface {
	db.TaskStore
	db.UserStore
	db.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{}).Fatal("invalid configuration", zap.Error(err))
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})

	ctx := context.Background()
	// Released in reverse order once the HTTP server has drained.
	var closers []func() error

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("unable to open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	closers = append(closers, closeStore)
	log.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	var tasks db.TaskStore = store
	if cfg.RedisAddr != "" {
		cache := db.NewCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), "task-tracker:", cfg.CacheTTL)
		if err := cache.Ping(ctx); err != nil {
			log.Warn("redis unreachable, task cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			cache.Close()
		} else {
			tasks = db.NewCachedTaskStore(store, cache, log)
			closers = append(closers, cache.Close)
			log.Info("task cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	tokens := auth.NewTokenManager(auth.TokenConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL, Issuer: cfg.JWTIssuer})
	authService := auth.NewService(store, auth.NewPasswordHasher(cfg.BcryptCost), tokens)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.NewRouter(server.Deps{
			Tasks:       tasks,
			Health:      store,
			Auth:        authService,
			Log:         log,
			Registry:    registry,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("graceful shutdown initiated")
			err := srv.Shutdown(ctx)
			for i := len(closers) - 1; i >= 0; i-- {
				err = errors.Join(err, closers[i]())
			}
			return err
		},
	})

	exitCode := <-wait
	log.Info("server exited", zap.Int("code", exitCode))
	log.Sync()
	os.Exit(exitCode)
}

func openStore(ctx context.Context, cfg *config.Config) (backend, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		store, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return db.NewPostgresStore(pool), func() error { pool.Close(); return nil }, nil
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meeting-platform/internal/auth"
	"meeting-platform/internal/calling"
	"meeting-platform/internal/config"
	"meeting-platform/internal/httpapi"
	"meeting-platform/internal/intent"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/notify"
	"meeting-platform/pkg/logger"
	"meeting-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience only; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var provider calling.Provider
	if cfg.Stream.APIKey != "" {
		provider, err = calling.NewStreamProvider(cfg.Stream)
		if err != nil {
			log.Error("calling provider init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no stream credentials set, using in-memory calling provider")
		provider = calling.NewMemoryProvider()
	}

	meetingStore := meetings.NewService(meetings.NewPostgresRepo(db))
	notifier := notify.NewRedis(rdb)
	resolver := intent.NewResolver(provider, notifier, meetingStore, cfg.App.BaseURL)

	handlers := httpapi.Handlers{
		Resolver: resolver,
		Provider: provider,
		Meetings: meetingStore,
		Sessions: httpapi.NewSessionRegistry(),
		Guard:    httpapi.NewRedisCreationGuard(rdb, 30*time.Second),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, provider, db, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "provider", provider.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

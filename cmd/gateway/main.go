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

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"listing-voice-gateway/internal/callrecord"
	"listing-voice-gateway/internal/config"
	"listing-voice-gateway/internal/crm"
	"listing-voice-gateway/internal/metrics"
	"listing-voice-gateway/internal/session"
	"listing-voice-gateway/internal/streamtoken"
	"listing-voice-gateway/internal/voice"
	"listing-voice-gateway/pkg/logger"
	"listing-voice-gateway/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Missing .env is fine; containers inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Init()

	tokens, err := streamtoken.NewManager(cfg.StreamToken)
	if err != nil {
		log.Error("stream token init failed", "err", err)
		os.Exit(1)
	}

	deps := gatewayDeps{
		cfg:    cfg,
		log:    log,
		tokens: tokens,
		dialer: voice.NewClient(cfg.Voice, log),
	}

	crmClient := crm.NewClient(cfg.CRM)
	deps.crm = crmClient
	deps.reporter = crm.NewReporter(crmClient, log)

	repo := callrecord.Repository(callrecord.NewMemoryRepo())
	if cfg.HasDB() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = callrecord.NewPostgresRepo(db)
	} else {
		log.Warn("no DB_HOST configured, call records are in-memory only")
	}
	deps.records = callrecord.NewService(repo)

	deps.store = session.Store(session.NewMemoryStore(cfg.Relay.ContextTTL))
	if cfg.HasRedis() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deps.redis = rdb
		deps.store = session.NewRedisStore(rdb, cfg.Relay.ContextTTL)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Media stream sockets outlive any sane write timeout; the
		// websocket hijacks the connection before it applies.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env)
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

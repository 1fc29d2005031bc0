package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lilyguard/internal/bot"
	"lilyguard/internal/config"
	"lilyguard/internal/i18n"
	"lilyguard/internal/metrics"
	"lilyguard/internal/modules/audit"
	"lilyguard/internal/scheduler"
	"lilyguard/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	dsn := cfg.DatabasePath
	if cfg.DatabaseURL != "" {
		dsn = cfg.DatabaseURL
	}
	store, err := storage.New(dsn)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("storage ready", zap.String("driver", store.Driver()))

	translator, err := i18n.New(cfg.DefaultLanguage)
	if err != nil {
		logger.Fatal("locale init failed", zap.Error(err))
	}
	auditLogger := audit.NewLogger(store, logger.Named("audit"))

	botSvc, err := bot.New(cfg, logger, store, auditLogger, translator)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	jobs := scheduler.New(cfg.Scheduler, cfg.RetentionDays, store, botSvc.Ledger(), botSvc.Session(), botSvc, logger.Named("scheduler"))
	if err := jobs.Start(ctx); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", metrics.Handler())
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	jobs.Stop()
	stop()
	if err := botSvc.Close(shutdownCtx); err != nil {
		logger.Warn("bot shutdown incomplete", zap.Error(err))
	}
}

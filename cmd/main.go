package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cashcue/cashcue/config"
	"github.com/cashcue/cashcue/data"
	"github.com/cashcue/cashcue/data/cache"
	"github.com/cashcue/cashcue/data/repository/postgres"
	"github.com/cashcue/cashcue/internal/externalApi/priceApi"
	"github.com/cashcue/cashcue/internal/reportGenerator/xlsxGenerator"
	"github.com/cashcue/cashcue/internal/scheduler"
	"github.com/cashcue/cashcue/internal/service/ledgerService"
	"github.com/cashcue/cashcue/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	priceApiClient := priceApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	ledgerSrv := ledgerService.New(cfg, pgRepo, redisCache, priceApiClient, reportGenerator)

	sched := scheduler.New()
	sched.NewCrontabJob("balance audit", ledgerSrv.AuditBalances, cfg.Jobs.BalanceAuditCrontab, false)
	sched.NewCrontabJob("price refresh", ledgerSrv.RefreshPrices, cfg.Jobs.PriceRefreshCrontab, false)
	sched.Start()
	defer sched.Stop()

	ctrl := rest.NewController(cfg, ledgerSrv)
	server := rest.NewServer(cfg, ctrl)

	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.HTTP.Port))
		if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}

// Package main запускает HTTP-сервер сервиса управления общежитием.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/hostel-system/internal/cache"
	"github.com/mmeshcher/hostel-system/internal/config"
	"github.com/mmeshcher/hostel-system/internal/device"
	"github.com/mmeshcher/hostel-system/internal/handler"
	"github.com/mmeshcher/hostel-system/internal/middleware"
	"github.com/mmeshcher/hostel-system/internal/repository"
	"github.com/mmeshcher/hostel-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deviceClient service.DeviceClient
	if cfg.DeviceAddress != "" {
		deviceClient = device.NewClient(cfg.DeviceAddress)
	}

	menuCache := cache.NewMenuCache(ctx, cfg.RedisAddress)
	if menuCache.Enabled() {
		sugar.Infow("menu cache enabled", "addr", cfg.RedisAddress)
	}

	svc := service.NewService(repo, deviceClient, menuCache, cfg.BillingHour)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового пересчёта дневных счетов
	g.Go(func() error {
		svc.StartBillingSweep(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting hostel server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

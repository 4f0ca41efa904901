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

	"recipe-importer/internal/api"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/infrastructure/queue"
	"recipe-importer/internal/pkg/common"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("configuration loaded",
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := queue.NewClient(ctx, cfg.Redis.URL)
	cancel()
	if err != nil {
		common.LogFatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	jobQueue := queue.NewQueue(redisClient, cfg.Pipeline.ResultTTL, cfg.Pipeline.InflightTTL)

	router := api.SetupRouter(cfg, redisClient, jobQueue)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("starting api server",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("server exited")
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dairy-backend/internal/auth"
	"dairy-backend/internal/config"
	"dairy-backend/internal/database"
	"dairy-backend/internal/events"
	"dairy-backend/internal/logging"
	"dairy-backend/internal/metrics"
	"dairy-backend/internal/server"
	"dairy-backend/internal/storage"
	"dairy-backend/internal/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New("dairy-backend", cfg.Environment, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	cfg.Warn(logger)

	db, err := database.Open(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	var denylist auth.Denylist = auth.NopDenylist{}
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := auth.Connect(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logger.Error("redis unavailable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		denylist = auth.NewRedisDenylist(client)
		logger.Info("token denylist enabled", "addr", cfg.RedisAddr)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.Dial(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka unavailable", "brokers", cfg.KafkaBrokers, "error", err)
			os.Exit(1)
		}
		publisher = events.NewKafkaPublisher(producer, cfg.KafkaTopic, logger, m)
		logger.Info("event publishing enabled", "topic", cfg.KafkaTopic)
	}
	defer publisher.Close()

	analyzer := vision.NewBreaker(
		vision.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.VisionModel, cfg.VisionTimeout),
		logger,
	)

	app := server.New(server.Deps{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Metrics:   m,
		Denylist:  denylist,
		Publisher: publisher,
		Store:     storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL),
		Analyzer:  analyzer,
	})

	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort)
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

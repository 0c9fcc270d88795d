package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/repository"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/worker"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/config"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/database"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/kafka"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/retry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "outbox-relay",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Outbox Relay...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectPolicy := retry.DefaultPolicy()
	connectPolicy.InitialInterval = 2 * time.Second

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      5,
		MinConns:      1,
		ConnectPolicy: connectPolicy,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Kafka producer
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      cfg.Kafka.ClientID + "-outbox-relay",
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     cfg.Outbox.BatchSize,
		LingerMs:      5,
	})
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected", zap.Strings("brokers", cfg.Kafka.Brokers))

	relay := worker.NewOutboxWorker(
		repository.NewPostgresOutboxRepository(db.Pool()),
		producer,
		&worker.OutboxWorkerConfig{
			PollInterval:         cfg.Outbox.PollInterval,
			BatchSize:            cfg.Outbox.BatchSize,
			RetryInterval:        cfg.Outbox.RetryInterval,
			CleanupInterval:      cfg.Outbox.CleanupInterval,
			CleanupRetentionDays: cfg.Outbox.CleanupRetentionDays,
		},
	)
	if err := relay.Start(ctx); err != nil {
		appLog.Fatal("Failed to start outbox relay", zap.Error(err))
	}

	appLog.Info("Outbox Relay started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down relay...")
	relay.Stop()
	cancel()

	appLog.Info("Relay exited gracefully")
}

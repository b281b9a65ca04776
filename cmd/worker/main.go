package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/email"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zlog)
	if err != nil {
		zlog.Fatal("init kafka consumer", zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.NotificationsTopic), zap.Error(err))
	}
	defer consumer.Close()

	emailSender := email.NewSender(zlog)

	zlog.Info("notification worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		event, err := kafka.DecodeBookingEvent(msg)
		if err != nil {
			zlog.Warn("skip undecodable event", zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}
		return emailSender.Send(ctx, event)
	})
	if err != nil {
		zlog.Error("consumer stopped", zap.Error(err))
		return
	}
	zlog.Info("notification worker stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/bootstrap"
	"github.com/Domenick1991/travelbooking/internal/cache"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/logger"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/pricing"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
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

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	bookingRepo, closeStore, err := openStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	gatewayOpts := []payment.GatewayOption{
		payment.WithTimeout(cfg.Payment.Timeout()),
		payment.WithCurrency(cfg.Payment.Currency),
	}
	if cfg.Redis.Addr != "" {
		locker := cache.NewRedisLocker(cfg.Redis, cfg.Payment.LockTTL())
		defer locker.Close()
		if err := locker.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable, payment session lock disabled", zap.Error(err))
		} else {
			gatewayOpts = append(gatewayOpts, payment.WithLocker(locker))
		}
	}

	var provider payment.Provider
	if cfg.Payment.SecretKey != "" {
		stripeProvider, err := payment.NewStripeProvider(payment.StripeConfig{
			SecretKey:        cfg.Payment.SecretKey,
			WebhookSecret:    cfg.Payment.WebhookSecret,
			SuccessURL:       cfg.Payment.SuccessURL,
			CancelURL:        cfg.Payment.CancelURL,
			Timeout:          cfg.Payment.Timeout(),
			BreakerThreshold: cfg.Payment.BreakerThreshold,
		})
		if err != nil {
			return fmt.Errorf("init stripe: %w", err)
		}
		provider = stripeProvider
	} else {
		zlog.Warn("payment secret key not set, payment sessions are disabled")
	}
	gateway := payment.NewGateway(bookingRepo, provider, zlog, gatewayOpts...)

	var events *booking.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			zlog.Warn("kafka unavailable, booking events will be dropped", zap.Error(err))
		}
		events = booking.NewEventPublisher(producer, cfg.Kafka.BookingEventsTopic, zlog,
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))
	}

	reconciler := booking.NewReconciler(bookingRepo, events, zlog)
	bookingService := booking.NewBookingService(
		bookingRepo,
		pricing.NewAuthority(pricing.DefaultCatalog()),
		gateway,
		reconciler,
		zlog,
		booking.WithEvents(events),
	)

	return bootstrap.Run(ctx, cfg, bookingService, zlog)
}

func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (repository.BookingRepository, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		zlog.Warn("using in-memory booking store, data is lost on restart")
		return repository.NewMemoryBookingRepository(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := repository.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}
	return repository.NewBookingRepository(pool), pool.Close, nil
}

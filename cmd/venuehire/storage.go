package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"venuehire/internal/app/middleware"
	appoutbox "venuehire/internal/app/outbox"
	"venuehire/internal/app/uow"
	"venuehire/internal/infra/broker/kafka"
	rediscache "venuehire/internal/infra/cache/redis"
	"venuehire/internal/infra/config"
	mongodb "venuehire/internal/infra/db/mongo"
	"venuehire/internal/infra/db/postgres"
	infraoutbox "venuehire/internal/infra/outbox"
	"venuehire/internal/infra/obs"
	"venuehire/internal/infra/storage/memory"
)

// storage is everything the buses need from the selected backend.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	outboxStore infraoutbox.Store
	idempotency middleware.IdempotencyStore
	cache       middleware.QueryCache
	producer    infraoutbox.Producer
	checks      map[string]obs.Check
	sweeps      []func() int
	closers     []func(context.Context) error
}

func (s *storage) close(ctx context.Context, logger *slog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	s := &storage{checks: map[string]obs.Check{}}

	producer, err := openProducer(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.producer = producer
	if closer, ok := producer.(*kafka.Producer); ok {
		s.closers = append(s.closers, func(context.Context) error { return closer.Close() })
	}

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = rediscache.NewClient(ctx, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			s.close(ctx, logger)
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return redisClient.Close() })
		s.checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		s.cache = rediscache.NewQueryCache(redisClient)
	} else {
		memCache := memory.NewQueryCache()
		s.cache = memCache
		s.sweeps = append(s.sweeps, memCache.Sweep)
	}

	switch cfg.StorageDriver {
	case config.DriverMongo:
		err = s.openMongo(ctx, cfg, redisClient, logger)
	case config.DriverPostgres:
		err = s.openPostgres(ctx, cfg)
	default:
		s.openMemory(cfg, redisClient, logger)
	}
	if err != nil {
		s.close(ctx, logger)
		return nil, err
	}
	return s, nil
}

func (s *storage) openMemory(cfg config.Config, redisClient *goredis.Client, logger *slog.Logger) {
	factory := memory.Factory{Store: memory.NewStore(), SlotWait: cfg.SlotWait}
	if redisClient != nil {
		factory.Locker = rediscache.NewSlotLocker(redisClient, cfg.SlotLockTTL, logger)
	}
	s.factory = factory
	s.outbox = memory.NewOutbox(infraoutbox.DirectPublisher{
		Producer:    s.producer,
		TopicPrefix: cfg.KafkaTopicPrefix,
	})
	idem := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	s.idempotency = idem
	s.sweeps = append(s.sweeps, idem.Sweep)
}

func (s *storage) openMongo(ctx context.Context, cfg config.Config, redisClient *goredis.Client, logger *slog.Logger) error {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	s.closers = append(s.closers, client.Close)
	s.checks["mongo"] = client.Ping

	bookings := mongodb.NewBookingRepository(client.DB)
	if err := bookings.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return fmt.Errorf("mongo outbox: %w", err)
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("mongo idempotency: %w", err)
	}
	s.factory = mongodb.Factory{
		DB:           client.DB,
		ListingsRepo: mongodb.NewListingRepository(client.DB),
		BookingRepo:  bookings,
		Locker:       rediscache.NewSlotLocker(redisClient, cfg.SlotLockTTL, logger),
		SlotWait:     cfg.SlotWait,
	}
	s.outbox = box
	s.outboxStore = box
	s.idempotency = idem
	return nil
}

func (s *storage) openPostgres(ctx context.Context, cfg config.Config) error {
	pool, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error {
		pool.Close()
		return nil
	})
	s.checks["postgres"] = pool.Ping
	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	box := postgres.NewOutboxStore(pool)
	s.factory = postgres.Factory{Pool: pool, SlotWait: cfg.SlotWait}
	s.outbox = box
	s.outboxStore = box
	s.idempotency = postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL)
	return nil
}

// openProducer connects to kafka when brokers are configured and otherwise
// logs events in place of publishing them.
func openProducer(cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return infraoutbox.LogProducer{Logger: logger}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("venuehire"))
	if err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	return producer, nil
}

// runMaintenance drives the outbox worker and the in-process cache sweep until
// ctx is done.
func (s *storage) runMaintenance(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	if s.outboxStore != nil {
		worker := &infraoutbox.Worker{
			Store:       s.outboxStore,
			Producer:    s.producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	if len(s.sweeps) == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, sweep := range s.sweeps {
					if n := sweep(); n > 0 {
						logger.Debug("cache entries swept", "count", n)
					}
				}
			}
		}
	}()
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/config"
	"github.com/davicafu/orderflow/internal/order/application"
	"github.com/davicafu/orderflow/internal/order/domain"
	orderEvents "github.com/davicafu/orderflow/internal/order/infra/inbound/events"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/alerts"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/analytics/clickhouse"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/db/mongodb"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/db/postgres"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/db/sqlite"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/dedup"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/effects"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/queue"
	"github.com/davicafu/orderflow/internal/shared/infra/utils"
)

const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond
)

func noop() {}

func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
}

func newKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

// buildDedupStore abre el backend configurado. purger es nil cuando el backend expira solo.
func buildDedupStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.DedupStore, domain.ExpiredPurger, func(), error) {
	switch cfg.Dedup.Backend {
	case config.DedupRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := utils.Retry(ctx, connectAttempts, connectDelay, func() error { return rdb.Ping(ctx).Err() }); err != nil {
			rdb.Close()
			return nil, nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("✅ Redis conectado, dedup store habilitado", zap.String("addr", cfg.Redis.Addr))
		return dedup.NewRedisStore(rdb, cfg.Dedup.Table), nil, func() { rdb.Close() }, nil

	case config.DedupPostgres:
		db, err := sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		if err := utils.Retry(ctx, connectAttempts, connectDelay, func() error { return db.PingContext(ctx) }); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("postgres ping: %w", err)
		}
		repo := postgres.NewDedupRepoPostgres(db, cfg.Dedup.Table)
		if err := repo.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, noop, err
		}
		log.Info("✅ Postgres conectado, dedup store habilitado")
		return repo, repo, func() { db.Close() }, nil

	case config.DedupMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
		if err != nil {
			return nil, nil, noop, fmt.Errorf("connect mongo: %w", err)
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }
		if err := utils.Retry(ctx, connectAttempts, connectDelay, func() error { return client.Ping(ctx, nil) }); err != nil {
			disconnect()
			return nil, nil, noop, fmt.Errorf("mongo ping: %w", err)
		}
		repo := mongodb.NewDedupRepoMongoDB(client, cfg.Mongo.Database, cfg.Dedup.Table)
		if err := repo.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, noop, err
		}
		log.Info("✅ MongoDB conectado, dedup store habilitado", zap.String("db", cfg.Mongo.Database))
		return repo, nil, disconnect, nil

	case config.DedupSQLite:
		db, err := sql.Open("sqlite", cfg.SQLite.Path)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite admite un solo escritor
		repo := sqlite.NewDedupRepoSQLite(db, cfg.Dedup.Table)
		if err := repo.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, noop, err
		}
		log.Info("✅ SQLite abierto, dedup store habilitado", zap.String("path", cfg.SQLite.Path))
		return repo, repo, func() { db.Close() }, nil

	default:
		log.Warn("⚠️ Dedup store en memoria: las marcas se pierden al reiniciar")
		store := dedup.NewMemoryStore(cfg.Dedup.SweepInterval)
		return store, nil, store.Stop, nil
	}
}

func buildEffect(cfg *config.Config, log *zap.Logger) domain.OrderEffect {
	if cfg.Effect.JournalPath != "" {
		log.Info("📒 Efecto de pedidos: diario JSON", zap.String("path", cfg.Effect.JournalPath))
		return effects.NewJSONJournal(cfg.Effect.JournalPath)
	}
	return effects.NewLogEffect(log)
}

// startOrderQueue arranca el consumidor sobre el backend de cola y devuelve el publicador del webhook.
func startOrderQueue(
	ctx context.Context,
	cfg *config.Config,
	store domain.DedupStore,
	effect domain.OrderEffect,
	metrics application.Metrics,
	log *zap.Logger,
) (domain.QueuePublisher, func()) {
	mode := application.WriteMode(cfg.Dedup.WriteMode)

	if cfg.Queue.Backend == config.QueueMemory {
		log.Info("⚡️ Usando cola en memoria")
		q := queue.NewMemoryQueue(cfg.Queue.VisibilityTimeout)
		consumer := application.NewOrderConsumer(store, effect, q, mode, metrics, log)
		go orderEvents.NewMemoryQueueWorker(q, consumer, cfg.Queue.PollInterval, cfg.Queue.BatchSize, log).Start(ctx)
		return q, noop
	}

	log.Info("🚀 Usando Kafka como cola de pedidos", zap.String("topic", cfg.Queue.URL))
	writer := newKafkaWriter(cfg.Kafka.Brokers, cfg.Queue.URL)
	retryWriter := newKafkaWriter(cfg.Kafka.Brokers, cfg.Queue.URL)
	var dlqWriter *kafka.Writer
	var dlq orderEvents.Writer
	if cfg.Queue.DeadLetterTopic != "" {
		dlqWriter = newKafkaWriter(cfg.Kafka.Brokers, cfg.Queue.DeadLetterTopic)
		dlq = dlqWriter
	}
	reader := newKafkaReader(cfg.Kafka.Brokers, cfg.Queue.URL, cfg.Kafka.GroupID)

	kq := orderEvents.NewKafkaOrderQueue(reader, retryWriter, dlq, cfg.Queue.URL, orderEvents.KafkaQueueConfig{
		BatchSize:     cfg.Queue.BatchSize,
		BatchWait:     cfg.Queue.BatchWait,
		MaxDeliveries: cfg.Queue.MaxDeliveries,
	}, log)
	consumer := application.NewOrderConsumer(store, effect, kq, mode, metrics, log)
	kq.Start(ctx, consumer)

	closeAll := func() {
		reader.Close()
		writer.Close()
		retryWriter.Close()
		if dlqWriter != nil {
			dlqWriter.Close()
		}
	}
	return queue.NewKafkaPublisher(writer, log), closeAll
}

// buildAlertPublisher compone los canales de ALERT_CHANNELS en un fan-out.
func buildAlertPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.AlertPublisher, func(), error) {
	var channels []alerts.Channel
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, name := range cfg.Alerts.Channels {
		switch name {
		case config.AlertKafka:
			w := newKafkaWriter(cfg.Kafka.Brokers, cfg.Alerts.Topic)
			closers = append(closers, func() { w.Close() })
			channels = append(channels, alerts.Channel{Name: name, Publisher: alerts.NewKafkaPublisher(w, log)})
		case config.AlertClickHouse:
			repo, err := clickhouse.NewAlertArchiveRepo(ctx, cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password)
			if err != nil {
				closeAll()
				return nil, noop, err
			}
			closers = append(closers, func() { repo.Close() })
			if err := repo.InitSchema(ctx); err != nil {
				closeAll()
				return nil, noop, fmt.Errorf("init clickhouse schema: %w", err)
			}
			channels = append(channels, alerts.Channel{Name: name, Publisher: repo})
		case config.AlertLog:
			channels = append(channels, alerts.Channel{Name: name, Publisher: alerts.NewLogPublisher(log)})
		}
	}

	fanout := alerts.NewFanout(channels...)
	log.Info("🔔 Canales de alerta configurados", zap.Strings("channels", fanout.Names()))
	return fanout, closeAll, nil
}

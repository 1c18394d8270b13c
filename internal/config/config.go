package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Backends soportados.
const (
	QueueKafka  = "kafka"
	QueueMemory = "memory"

	DedupRedis    = "redis"
	DedupPostgres = "postgres"
	DedupMongo    = "mongo"
	DedupSQLite   = "sqlite"
	DedupMemory   = "memory"

	AlertKafka      = "kafka"
	AlertClickHouse = "clickhouse"
	AlertLog        = "log"
)

type Config struct {
	HTTP        HTTP
	Log         Log
	Webhook     Webhook
	Queue       Queue
	Kafka       Kafka
	Dedup       Dedup
	Redis       Redis
	Postgres    Postgres
	Mongo       Mongo
	SQLite      SQLite
	ClickHouse  ClickHouse
	Alerts      Alerts
	LogShipping LogShipping
	Effect      Effect
}

type HTTP struct {
	Port string `env:"HTTP_PORT" env-default:"8080"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

type Webhook struct {
	// Vacío no impide arrancar: cada petición falla con 500 hasta que se configure.
	Signature string `env:"WEBHOOK_SIGNATURE"`
}

type Queue struct {
	Backend           string        `env:"QUEUE_BACKEND" env-default:"kafka"`
	URL               string        `env:"ORDER_QUEUE_URL" env-default:"orders"`
	BatchSize         int           `env:"QUEUE_BATCH_SIZE" env-default:"10"`
	BatchWait         time.Duration `env:"QUEUE_BATCH_WAIT" env-default:"1s"`
	MaxDeliveries     int           `env:"QUEUE_MAX_DELIVERIES" env-default:"5"`
	DeadLetterTopic   string        `env:"QUEUE_DEAD_LETTER_TOPIC" env-default:"orders-dlq"`
	VisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT" env-default:"30s"`
	PollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL" env-default:"1s"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	GroupID string   `env:"KAFKA_GROUP_ID" env-default:"orderflow-consumer"`
}

type Dedup struct {
	Backend       string        `env:"DEDUP_BACKEND" env-default:"redis"`
	Table         string        `env:"DEDUP_TABLE" env-default:"order_dedup"`
	WriteMode     string        `env:"DEDUP_WRITE_MODE" env-default:"insert_if_absent"`
	SweepInterval time.Duration `env:"DEDUP_SWEEP_INTERVAL" env-default:"1h"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type Postgres struct {
	URL string `env:"DATABASE_URL"`
}

type Mongo struct {
	URL      string `env:"MONGO_URL" env-default:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" env-default:"orderflow"`
}

type SQLite struct {
	Path string `env:"SQLITE_PATH" env-default:"./orderflow_dedup.db"`
}

type ClickHouse struct {
	Addr     string `env:"CLICKHOUSE_ADDR" env-default:"localhost:9000"`
	Database string `env:"CLICKHOUSE_DB" env-default:"default"`
	User     string `env:"CLICKHOUSE_USER" env-default:"default"`
	Password string `env:"CLICKHOUSE_PASSWORD"`
}

type Alerts struct {
	Topic    string   `env:"ERROR_ALERT_TOPIC" env-default:"order-alerts"`
	Channels []string `env:"ALERT_CHANNELS" env-default:"kafka,log"`
}

type LogShipping struct {
	Enabled bool   `env:"LOG_SHIPPING_ENABLED" env-default:"true"`
	Topic   string `env:"LOG_SHIPPING_TOPIC" env-default:"orderflow-error-logs"`
	GroupID string `env:"LOG_SHIPPING_GROUP_ID" env-default:"orderflow-notifier"`
	Group   string `env:"LOG_GROUP" env-default:"orderflow"`
}

type Effect struct {
	JournalPath string `env:"EFFECT_JOURNAL_PATH"`
}

// LoadConfig lee un .env opcional y después el entorno. Se llama una sola vez al arrancar.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config error: %w", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	for i, ch := range cfg.Alerts.Channels {
		cfg.Alerts.Channels[i] = strings.ToLower(strings.TrimSpace(ch))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reúne todos los valores incoherentes en un único error.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{QueueKafka, QueueMemory}, c.Queue.Backend) {
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND %q not supported", c.Queue.Backend))
	}
	if c.Queue.URL == "" {
		errs = append(errs, errors.New("ORDER_QUEUE_URL is required"))
	}
	if c.Queue.BatchSize <= 0 {
		errs = append(errs, errors.New("QUEUE_BATCH_SIZE must be positive"))
	}
	if c.Queue.MaxDeliveries <= 0 {
		errs = append(errs, errors.New("QUEUE_MAX_DELIVERIES must be positive"))
	}

	if !slices.Contains([]string{DedupRedis, DedupPostgres, DedupMongo, DedupSQLite, DedupMemory}, c.Dedup.Backend) {
		errs = append(errs, fmt.Errorf("DEDUP_BACKEND %q not supported", c.Dedup.Backend))
	}
	if c.Dedup.Table == "" {
		errs = append(errs, errors.New("DEDUP_TABLE is required"))
	}
	if c.Dedup.WriteMode != "put" && c.Dedup.WriteMode != "insert_if_absent" {
		errs = append(errs, fmt.Errorf("DEDUP_WRITE_MODE %q not supported", c.Dedup.WriteMode))
	}
	if c.Dedup.Backend == DedupPostgres && c.Postgres.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres dedup backend"))
	}

	for _, ch := range c.Alerts.Channels {
		if !slices.Contains([]string{AlertKafka, AlertClickHouse, AlertLog}, ch) {
			errs = append(errs, fmt.Errorf("ALERT_CHANNELS: unknown channel %q", ch))
		}
	}
	if slices.Contains(c.Alerts.Channels, AlertKafka) && c.Alerts.Topic == "" {
		errs = append(errs, errors.New("ERROR_ALERT_TOPIC is required for the kafka alert channel"))
	}

	if c.UsesKafka() && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}

	return errors.Join(errs...)
}

// UsesKafka indica si algún componente configurado necesita brokers.
func (c *Config) UsesKafka() bool {
	return c.Queue.Backend == QueueKafka ||
		c.LogShipping.Enabled ||
		slices.Contains(c.Alerts.Channels, AlertKafka)
}

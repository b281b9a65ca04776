package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TRAVEL_PAYMENT_SECRET_KEY.
const EnvPrefix = "TRAVEL"

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Payment  PaymentConfig  `yaml:"payment"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address             string `yaml:"address" envconfig:"address"`
	SwaggerDir          string `yaml:"swagger_dir" envconfig:"swagger_dir"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds" envconfig:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds" envconfig:"write_timeout_seconds"`
}

func (h HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutSeconds) * time.Second
}

func (h HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutSeconds) * time.Second
}

type GRPCConfig struct {
	Address string `yaml:"address" envconfig:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"host"`
	Port     int    `yaml:"port" envconfig:"port"`
	User     string `yaml:"user" envconfig:"user"`
	Password string `yaml:"password" envconfig:"password"`
	Name     string `yaml:"name" envconfig:"name"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"driver"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"addr"`
	Password string `yaml:"password" envconfig:"password"`
	DB       int    `yaml:"db" envconfig:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" envconfig:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic" envconfig:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic" envconfig:"notifications_topic"`
	GroupID            string   `yaml:"group_id" envconfig:"group_id"`
}

type PaymentConfig struct {
	SecretKey        string `yaml:"secret_key" envconfig:"secret_key"`
	WebhookSecret    string `yaml:"webhook_secret" envconfig:"webhook_secret"`
	Currency         string `yaml:"currency" envconfig:"currency"`
	SuccessURL       string `yaml:"success_url" envconfig:"success_url"`
	CancelURL        string `yaml:"cancel_url" envconfig:"cancel_url"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" envconfig:"timeout_seconds"`
	BreakerThreshold int64  `yaml:"breaker_threshold" envconfig:"breaker_threshold"`
	LockTTLSeconds   int    `yaml:"lock_ttl_seconds" envconfig:"lock_ttl_seconds"`
}

func (p PaymentConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p PaymentConfig) LockTTL() time.Duration {
	return time.Duration(p.LockTTLSeconds) * time.Second
}

type LogConfig struct {
	Level       string `yaml:"level" envconfig:"level"`
	Development bool   `yaml:"development" envconfig:"development"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		c.HTTP.ReadTimeoutSeconds = 15
	}
	if c.HTTP.WriteTimeoutSeconds <= 0 {
		c.HTTP.WriteTimeoutSeconds = 30
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "usd"
	}
	if c.Payment.TimeoutSeconds <= 0 {
		c.Payment.TimeoutSeconds = 10
	}
	if c.Payment.BreakerThreshold <= 0 {
		c.Payment.BreakerThreshold = 5
	}
	if c.Payment.LockTTLSeconds <= 0 {
		c.Payment.LockTTLSeconds = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
}

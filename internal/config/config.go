package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Log         Log

	HTTP     HTTP     `envPrefix:"HTTP_"`
	Storage  Storage  `envPrefix:"STORAGE_"`
	Mongo    Mongo    `envPrefix:"MONGO_"`
	Postgres Postgres `envPrefix:"POSTGRES_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	Payment  Payment  `envPrefix:"PAYMENT_"`
	Session  Session  `envPrefix:"SESSION_"`

	OrdersBackend string `env:"ORDERS_BACKEND" envDefault:"mongo"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTP struct {
	Host               string        `env:"HOST" envDefault:"0.0.0.0"`
	Port               string        `env:"PORT" envDefault:"8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxRequestBodySize int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

func (h HTTP) Addr() string { return h.Host + ":" + h.Port }

// Storage picks where cart and profile snapshots live: redis, sqlite or memory.
type Storage struct {
	Backend    string        `env:"BACKEND" envDefault:"redis"`
	RedisAddr  string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisTTL   time.Duration `env:"REDIS_TTL" envDefault:"720h"`
	SQLitePath string        `env:"SQLITE_PATH" envDefault:"market.db"`
}

type Mongo struct {
	URI         string        `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database    string        `env:"DATABASE" envDefault:"ramukaka"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"5s"`
	MaxPoolSize uint64        `env:"MAX_POOL_SIZE" envDefault:"20"`
}

type Postgres struct {
	Host           string `env:"HOST" envDefault:"localhost"`
	Port           int    `env:"PORT" envDefault:"5432"`
	User           string `env:"USER" envDefault:"market"`
	Password       string `env:"PASSWORD"`
	DBName         string `env:"DB" envDefault:"market"`
	SSLMode        string `env:"SSLMODE" envDefault:"disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"internal/repository/migrations/postgres"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
}

// Payment selects the token source. With ProxyURL set, order tokens come from the
// remote proxy; otherwise the provider is called directly with the key pair.
type Payment struct {
	ProxyURL     string        `env:"PROXY_URL"`
	BaseURL      string        `env:"BASE_URL" envDefault:"https://api.razorpay.com"`
	KeyID        string        `env:"KEY_ID"`
	KeySecret    string        `env:"KEY_SECRET"`
	Currency     string        `env:"CURRENCY" envDefault:"INR"`
	MerchantName string        `env:"MERCHANT_NAME" envDefault:"Ramu Kaka Market"`
	ThemeColor   string        `env:"THEME_COLOR" envDefault:"#3399cc"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type Session struct {
	TTL             time.Duration `env:"TTL" envDefault:"30m"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"30s"`
	OrderTimeout    time.Duration `env:"ORDER_TIMEOUT" envDefault:"10s"`
	ProfileTimeout  time.Duration `env:"PROFILE_TIMEOUT" envDefault:"5s"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.OrdersBackend {
	case "mongo", "postgres":
	default:
		return fmt.Errorf("unknown orders backend %q", c.OrdersBackend)
	}
	return nil
}

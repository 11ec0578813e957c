package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is the whole application configuration, read from the environment.
type Config struct {
	Port         int    `env:"APP_PORT" envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding  string `env:"LOG_ENCODING" envDefault:"json"`
	StartingCash string `env:"STARTING_CASH" envDefault:"10000"`
	LoginRate    int    `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	Database     Database
	Redis        Redis
	Session      Session
	Quotes       Quotes
}

// Database holds the Postgres connection settings.
type Database struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"finance"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	TimeZone        string        `env:"DB_TIMEZONE" envDefault:"UTC"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	LogSQL          bool          `env:"DB_LOG_SQL" envDefault:"false"`
}

// Redis holds the Redis connection settings.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Session controls the login cookie and its backing token.
type Session struct {
	Secret       string        `env:"JWT_SECRET,required,notEmpty"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieName   string        `env:"SESSION_COOKIE" envDefault:"session"`
	SecureCookie bool          `env:"SECURE_COOKIE" envDefault:"false"`
}

// Quotes configures the external price source.
type Quotes struct {
	APIKey       string        `env:"ALPHA_VANTAGE_API_KEY,required,notEmpty"`
	BaseURL      string        `env:"ALPHA_VANTAGE_URL" envDefault:"https://www.alphavantage.co"`
	Timeout      time.Duration `env:"QUOTE_TIMEOUT" envDefault:"5s"`
	CacheTTL     time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"5m"`
	CacheBackend string        `env:"QUOTE_CACHE_BACKEND" envDefault:"redis"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.InitialCash(); err != nil {
		return nil, err
	}
	if cfg.LoginRate <= 0 {
		return nil, fmt.Errorf("LOGIN_RATE_PER_MINUTE must be positive, got %d", cfg.LoginRate)
	}
	switch cfg.Quotes.CacheBackend {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown QUOTE_CACHE_BACKEND %q", cfg.Quotes.CacheBackend)
	}
	return cfg, nil
}

// InitialCash is the balance a freshly registered user starts with.
func (c *Config) InitialCash() (decimal.Decimal, error) {
	cash, err := decimal.NewFromString(c.StartingCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid STARTING_CASH %q: %w", c.StartingCash, err)
	}
	return cash, nil
}

// DSN is the keyword/value connection string used by gorm.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

// URL is the postgres:// form expected by golang-migrate.
func (d Database) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// InitDB opens the Postgres connection pool.
func InitDB(cfg Database) (*gorm.DB, error) {
	logMode := logger.Silent
	if cfg.LogSQL {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// InitRedis connects to Redis and verifies the connection.
func InitRedis(ctx context.Context, cfg Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

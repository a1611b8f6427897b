package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Store      string
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBTimeout  time.Duration

	ServerPort        string
	JWTSecret         string
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string

	TelegramToken string
	RevealDelay   time.Duration

	MaxBet          int64
	DailyFlipLimit  int
	DailyReward     int64
	DailyCooldown   time.Duration
	StartingBalance int64
	ActivityReward  int64
	Location        *time.Location

	CatalogFile string
	LogLevel    string
	LogFormat   string
}

// NewConfig reads the environment, after loading .env when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Store:      getEnvOrDefault("STORE", StorePostgres),
		DBDriver:   getEnvOrDefault("DB_DRIVER", "pgx"),
		DBHost:     getEnvOrDefault("DATABASE_HOST", "localhost"),
		DBPort:     getEnvOrDefault("DATABASE_PORT", "5432"),
		DBUser:     getEnvOrDefault("DATABASE_USER", "postgres"),
		DBPassword: getEnvOrDefault("DATABASE_PASSWORD", "password"),
		DBName:     getEnvOrDefault("DATABASE_NAME", "honor"),

		ServerPort:        getEnvOrDefault("SERVER_PORT", "8080"),
		JWTSecret:         getEnvOrDefault("JWT_SECRET", ""),
		AdminUsername:     getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		CatalogFile: os.Getenv("CATALOG_FILE"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "json"),
	}

	var err error
	if c.DBTimeout, err = durationEnv("DB_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if c.RevealDelay, err = durationEnv("REVEAL_DELAY", 4*time.Second); err != nil {
		return nil, err
	}
	if c.DailyCooldown, err = durationEnv("DAILY_COOLDOWN", 24*time.Hour); err != nil {
		return nil, err
	}
	if c.MaxBet, err = positiveIntEnv("MAX_BET", 500); err != nil {
		return nil, err
	}
	limit, err := positiveIntEnv("DAILY_FLIP_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	c.DailyFlipLimit = int(limit)
	if c.DailyReward, err = positiveIntEnv("DAILY_REWARD", 50); err != nil {
		return nil, err
	}
	if c.StartingBalance, err = nonNegativeIntEnv("STARTING_BALANCE", 10); err != nil {
		return nil, err
	}
	if c.ActivityReward, err = nonNegativeIntEnv("ACTIVITY_REWARD", 1); err != nil {
		return nil, err
	}
	if c.Location, err = time.LoadLocation(getEnvOrDefault("ECONOMY_TIMEZONE", "UTC")); err != nil {
		return nil, errors.Wrap(err, "config: ECONOMY_TIMEZONE")
	}

	if c.Store != StorePostgres && c.Store != StoreMemory {
		return nil, fmt.Errorf("config: unknown STORE %q", c.Store)
	}
	if c.DBDriver != "pgx" && c.DBDriver != "postgres" {
		return nil, fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	return c, nil
}

func getEnvOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s", key)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}

func positiveIntEnv(key string, def int64) (int64, error) {
	v, err := intEnv(key, def)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return v, nil
}

func nonNegativeIntEnv(key string, def int64) (int64, error) {
	v, err := intEnv(key, def)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", key)
	}
	return v, nil
}

func intEnv(key string, def int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s", key)
	}
	return v, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

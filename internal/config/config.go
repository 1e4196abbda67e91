package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	BaseURL        string
	UserAgent      string
	RequestTimeout time.Duration
	MaxAttempts    int
	RequestDelay   time.Duration
	BrandDelay     time.Duration
	MaxBodyBytes   int64
	KnownBrands    []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			BaseURL:        getEnvOrDefault("SCRAPER_BASE_URL", "https://bathingbrands.com"),
			UserAgent:      getEnvOrDefault("SCRAPER_USER_AGENT", defaultUserAgent),
			RequestTimeout: getDurationOrDefault("SCRAPER_REQUEST_TIMEOUT", 30*time.Second),
			MaxAttempts:    getIntOrDefault("SCRAPER_MAX_ATTEMPTS", 3),
			RequestDelay:   getDurationOrDefault("SCRAPER_REQUEST_DELAY", 1*time.Second),
			BrandDelay:     getDurationOrDefault("SCRAPER_BRAND_DELAY", 1*time.Second),
			MaxBodyBytes:   getInt64OrDefault("SCRAPER_MAX_BODY_BYTES", 10<<20),
			KnownBrands:    getStringSliceOrDefault("SCRAPER_KNOWN_BRANDS", defaultKnownBrands()),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "catalog"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:catalog_product"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("SCRAPER_MAX_ATTEMPTS must be at least 1")
	}

	if c.Scraper.RequestDelay < 0 {
		return fmt.Errorf("SCRAPER_REQUEST_DELAY cannot be negative")
	}

	if len(c.Scraper.KnownBrands) == 0 {
		return fmt.Errorf("SCRAPER_KNOWN_BRANDS cannot be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// defaultKnownBrands is the canonical brand list, in configured scrape order.
func defaultKnownBrands() []string {
	return []string{
		"Amerec", "Aromamist", "Auroom", "Cozy Heat", "Delta", "EmotionWood",
		"Finlandia", "Finnmark", "Haljas Houses", "Harvia", "HUUM", "Hukka",
		"Kohler", "Kolo", "Mr.Steam", "Narvi", "PROSAUNAS", "Rento",
		"SaunaLife", "Saunum", "Steamist", "ThermaSol",
	}
}

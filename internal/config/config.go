package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingMongoURI = errors.New("MONGOURI environment variable not set")

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CallbackRateLimit  int
	CallbackRateWindow time.Duration
	CallbackToken      string

	WatchFareEvents bool
	DefaultFare     float64
}

// Load reads .env (if present) and then the process environment.
// The returned bool reports whether a .env file was loaded.
func Load(envFiles ...string) (*Config, bool, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	loaded := godotenv.Load(envFiles...) == nil

	cfg := &Config{
		Port:               getString("PORT", "8080"),
		MongoURI:           os.Getenv("MONGOURI"),
		MongoDB:            getString("MONGO_DB", "esewa"),
		LogLevel:           getString("LOG_LEVEL", "info"),
		LogJSON:            getBool("LOG_JSON", false),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0, 0),
		CallbackRateLimit:  getInt("CALLBACK_RATE_LIMIT", 60, 1),
		CallbackRateWindow: time.Duration(getInt("CALLBACK_RATE_WINDOW_SECONDS", 60, 1)) * time.Second,
		CallbackToken:      os.Getenv("ESEWA_CALLBACK_TOKEN"),
		WatchFareEvents:    getBool("FARE_WATCH_EVENTS", false),
		DefaultFare:        getFloat("DEFAULT_FARE", 20),
	}

	if cfg.MongoURI == "" {
		return nil, loaded, ErrMissingMongoURI
	}
	return cfg, loaded, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getInt falls back to def for unparsable values and values below min.
func getInt(key string, def, min int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < min {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	ServiceName string
	GinMode     string

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	LogLevel  slog.Level
	LogFormat string

	RateLimitRPS   float64
	RateLimitBurst int

	StrictTransitions bool

	// optional; empty disables the integration
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads the configuration from the environment. Unparseable values fall
// back to their defaults.
func Load() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":9091"),
		ServiceName:       getenv("SERVICE_NAME", "storefront"),
		GinMode:           getenv("GIN_MODE", "release"),
		JWTSecret:         getenv("JWT_SECRET", "change-me"),
		JWTTTL:            getDuration("JWT_TTL", 30*time.Minute),
		BcryptCost:        getInt("BCRYPT_COST", 12),
		LogLevel:          getLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		RateLimitRPS:      getFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:    getInt("RATE_LIMIT_BURST", 20),
		StrictTransitions: getBool("ORDER_STRICT_TRANSITIONS", false),
		RedisAddr:         getenv("REDIS_ADDR", ""),
		KafkaBrokers:      splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:        getenv("KAFKA_TOPIC_ORDERS", "order.events"),
	}
}

// NewLogger builds the process logger: JSON by default, text for LOG_FORMAT=text.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", cfg.ServiceName)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}

func getFloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
		return f
	}
	return def
}

func getBool(k string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return b
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}

func getLevel(k string, def slog.Level) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(os.Getenv(k))); err == nil {
		return l
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

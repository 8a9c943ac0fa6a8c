// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/services"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	RateLimiter RateLimiterConfig
	Sentinel    SentinelConfig
	Alert       AlertConfig
	Search      SearchConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port string `validate:"required,numeric"`
	// TrustedProxies are the peers allowed to name the client through
	// CF-Connecting-IP, X-Forwarded-For or X-Real-IP. Empty trusts none.
	TrustedProxies []netip.Prefix
}

type StorageConfig struct {
	// Type selects the counter cache backend.
	Type  string `validate:"oneof=redis memory"`
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	Password string
	DB       int `validate:"min=0"`
}

type DatabaseConfig struct {
	URL string `validate:"required"`
}

type RateLimiterConfig struct {
	Rule domain.RateLimitRule
}

type SentinelConfig struct {
	ScanInterval       time.Duration `validate:"gt=0"`
	ScanWindow         time.Duration `validate:"gt=0"`
	FrequencyThreshold int64         `validate:"gt=0"`
	HealthWindow       time.Duration `validate:"gt=0"`
	OverloadThreshold  int64         `validate:"gt=0"`
	DispatchWorkers    int           `validate:"min=1,max=256"`
	CallTimeout        time.Duration `validate:"gt=0"`
}

type AlertConfig struct {
	SlackWebhookURL string  `validate:"omitempty,url"`
	RatePerSecond   float64 `validate:"gt=0"`
}

type SearchConfig struct {
	UpstreamURL string `validate:"omitempty,url"`
}

type LogConfig struct {
	Level  string `validate:"omitempty,oneof=debug info warn warning error fatal"`
	Format string `validate:"omitempty,oneof=json console"`
}

var validate = validator.New()

func Load() (Config, error) {
	_ = godotenv.Load()

	proxies, err := ParseTrustedProxies(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return Config{}, err
	}
	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080"), TrustedProxies: proxies}

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", "redis"))

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	sentinelConfig, err := buildSentinelConfig()
	if err != nil {
		return Config{}, err
	}

	alertRate, err := strconv.ParseFloat(getEnv("ALERT_RATE_PER_SECOND", "1"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ALERT_RATE_PER_SECOND: %w", err)
	}

	cfg := Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		Database:    DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		RateLimiter: rateLimiterConfig,
		Sentinel:    sentinelConfig,
		Alert: AlertConfig{
			SlackWebhookURL: strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
			RatePerSecond:   alertRate,
		},
		Search: SearchConfig{UpstreamURL: strings.TrimSpace(os.Getenv("SEARCH_UPSTREAM_URL"))},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	requests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", strconv.Itoa(services.DefaultRateLimitRequests)))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}
	window, err := getSeconds("RATE_LIMIT_WINDOW_SECONDS", int(services.DefaultRateLimitWindow/time.Second))
	if err != nil {
		return RateLimiterConfig{}, err
	}
	if requests <= 0 || window <= 0 {
		return RateLimiterConfig{}, fmt.Errorf("rate limit requests and window must be positive")
	}

	return RateLimiterConfig{
		Rule: domain.RateLimitRule{Requests: requests, Window: window},
	}, nil
}

func buildSentinelConfig() (SentinelConfig, error) {
	interval, err := getSeconds("SCAN_INTERVAL_SECONDS", 60)
	if err != nil {
		return SentinelConfig{}, err
	}
	scanWindow, err := getMinutes("SCAN_WINDOW_MINUTES", int(services.DefaultScanWindow/time.Minute))
	if err != nil {
		return SentinelConfig{}, err
	}
	threshold, err := strconv.ParseInt(getEnv("SCAN_FREQUENCY_THRESHOLD", strconv.Itoa(services.DefaultFrequencyThreshold)), 10, 64)
	if err != nil {
		return SentinelConfig{}, fmt.Errorf("invalid SCAN_FREQUENCY_THRESHOLD: %w", err)
	}
	healthWindow, err := getMinutes("HEALTH_WINDOW_MINUTES", int(services.DefaultHealthWindow/time.Minute))
	if err != nil {
		return SentinelConfig{}, err
	}
	overload, err := strconv.ParseInt(getEnv("HEALTH_OVERLOAD_THRESHOLD", strconv.Itoa(services.DefaultOverloadThreshold)), 10, 64)
	if err != nil {
		return SentinelConfig{}, fmt.Errorf("invalid HEALTH_OVERLOAD_THRESHOLD: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("DISPATCH_WORKERS", strconv.Itoa(services.DefaultDispatchWorkers)))
	if err != nil {
		return SentinelConfig{}, fmt.Errorf("invalid DISPATCH_WORKERS: %w", err)
	}
	callTimeout, err := getSeconds("CALL_TIMEOUT_SECONDS", int(services.DefaultCallTimeout/time.Second))
	if err != nil {
		return SentinelConfig{}, err
	}

	return SentinelConfig{
		ScanInterval:       interval,
		ScanWindow:         scanWindow,
		FrequencyThreshold: threshold,
		HealthWindow:       healthWindow,
		OverloadThreshold:  overload,
		DispatchWorkers:    workers,
		CallTimeout:        callTimeout,
	}, nil
}

// ParseTrustedProxies reads a comma separated list of CIDR prefixes or bare
// addresses.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func getMinutes(key string, fallback int) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Minute, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

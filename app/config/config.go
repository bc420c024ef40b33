package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fallback policies for slugs outside the precomputed path set.
const (
	FallbackBlocking = "blocking"
	FallbackNone     = "false"
)

// Page cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
	CacheRedis  = "redis"
)

type Config struct {
	// Server
	ServerPort string
	SiteTitle  string
	DateLayout string
	LogLevel   string

	// CMS
	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityUseCDN     bool
	SanityToken      string
	CMSTimeout       time.Duration

	// Local dataset, used when no CMS project is configured
	DataPath string

	// Page cache
	CacheBackend      string
	CachePath         string
	Revalidate        time.Duration
	RegenerateTimeout time.Duration
	Fallback          string
	Prerender         bool

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Comments
	CommentEndpoint   string
	CommentRateLimit  int
	CommentRateWindow time.Duration
	RabbitMQURL       string
	// Comma separated IPs or CIDRs whose X-Forwarded-For is believed
	TrustedProxies string

	// Static export
	ExportS3Bucket string
	AWSRegion      string
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		SiteTitle:  getEnv("SITE_TITLE", "Medium"),
		DateLayout: getEnv("DATE_LAYOUT", "Jan 2, 2006, 3:04 PM"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		SanityProjectID:  getEnv("SANITY_PROJECT_ID", ""),
		SanityDataset:    getEnv("SANITY_DATASET", "production"),
		SanityAPIVersion: getEnv("SANITY_API_VERSION", "2021-10-21"),
		SanityToken:      getEnv("SANITY_TOKEN", ""),

		DataPath: getEnv("DATA_PATH", "data/badger"),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		CachePath:    getEnv("CACHE_PATH", "data/cache"),
		Fallback:     strings.ToLower(getEnv("FALLBACK", FallbackBlocking)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CommentEndpoint: getEnv("COMMENT_ENDPOINT", ""),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		TrustedProxies:  getEnv("TRUSTED_PROXIES", ""),

		ExportS3Bucket: getEnv("EXPORT_S3_BUCKET", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
	}

	var err error
	if cfg.SanityUseCDN, err = getEnvBool("SANITY_USE_CDN", true); err != nil {
		return nil, err
	}
	if cfg.Prerender, err = getEnvBool("PRERENDER", true); err != nil {
		return nil, err
	}
	if cfg.CMSTimeout, err = getEnvDuration("CMS_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RegenerateTimeout, err = getEnvDuration("REGENERATE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CommentRateWindow, err = getEnvDuration("COMMENT_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	seconds, err := getEnvInt("REVALIDATE_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.Revalidate = time.Duration(seconds) * time.Second
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CommentRateLimit, err = getEnvInt("COMMENT_RATE_LIMIT", 5); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects enum values and limits the server cannot run with.
func (c *Config) Validate() error {
	switch c.Fallback {
	case FallbackBlocking, FallbackNone:
	default:
		return fmt.Errorf("invalid FALLBACK %q: want %q or %q", c.Fallback, FallbackBlocking, FallbackNone)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheBadger:
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.Revalidate <= 0 {
		return fmt.Errorf("REVALIDATE_SECONDS must be positive")
	}
	if c.CommentRateLimit < 0 {
		return fmt.Errorf("COMMENT_RATE_LIMIT cannot be negative")
	}
	return nil
}

// UseCMS reports whether a hosted CMS project is configured. Without one the
// local badger dataset serves content.
func (c *Config) UseCMS() bool {
	return c.SanityProjectID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

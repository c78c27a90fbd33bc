package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Listing sources.
const (
	SourceMemory = "memory"
	SourceMongo  = "mongo"
	SourceHTTP   = "http"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	ListingsSource      string
	ListingsFixtures    string
	ListingsUpstreamURL string

	MongoURI        string
	MongoDB         string
	MongoCollection string

	CacheTTL        time.Duration
	CacheMaxSize    int64
	MemcachedAddr   string
	FetchTimeout    time.Duration
	PageLoadingWait time.Duration

	KafkaBrokers           []string
	KafkaGroupID           string
	KafkaInvalidationTopic string

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3Region         string
	S3UseSSL         bool
	S3PresignTTL     time.Duration

	AdminToken string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                    getEnv("APP_ENV", "dev"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		ListingsSource:         strings.ToLower(getEnv("LISTINGS_SOURCE", SourceMemory)),
		ListingsFixtures:       getEnv("LISTINGS_FIXTURES", "data/listings.json"),
		ListingsUpstreamURL:    os.Getenv("LISTINGS_UPSTREAM_URL"),
		MongoURI:               os.Getenv("MONGO_URI"),
		MongoDB:                getEnv("MONGO_DB", "rentals"),
		MongoCollection:        getEnv("MONGO_COLLECTION", "rent_listings"),
		MemcachedAddr:          os.Getenv("MEMCACHED_ADDR"),
		KafkaGroupID:           getEnv("KAFKA_GROUP_ID", "rentdetail"),
		KafkaInvalidationTopic: getEnv("KAFKA_INVALIDATION_TOPIC", "listings.changed"),
		S3Endpoint:             os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint:       os.Getenv("S3_PUBLIC_ENDPOINT"),
		S3AccessKey:            getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:            getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:               getEnv("S3_BUCKET", "rent-images"),
		S3Region:               getEnv("S3_REGION", "us-east-1"),
		AdminToken:             os.Getenv("ADMIN_TOKEN"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.CacheTTL, err = parseDurationEnv("CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.FetchTimeout, err = parseDurationEnv("FETCH_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PageLoadingWait, err = parseDurationEnv("PAGE_LOADING_WAIT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.S3PresignTTL, err = parseDurationEnv("S3_PRESIGN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CacheMaxSize, err = parseIntEnv("CACHE_MAX_SIZE", 16); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	switch cfg.ListingsSource {
	case SourceMemory:
	case SourceMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for LISTINGS_SOURCE=%s", SourceMongo)
		}
	case SourceHTTP:
		if cfg.ListingsUpstreamURL == "" {
			return Config{}, fmt.Errorf("LISTINGS_UPSTREAM_URL is required for LISTINGS_SOURCE=%s", SourceHTTP)
		}
	default:
		return Config{}, fmt.Errorf("invalid LISTINGS_SOURCE %q", cfg.ListingsSource)
	}
	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be positive")
	}
	if cfg.CacheMaxSize <= 0 {
		return Config{}, fmt.Errorf("CACHE_MAX_SIZE must be positive")
	}
	return cfg, nil
}

// Dev reports whether the service runs in a local development environment.
func (c Config) Dev() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

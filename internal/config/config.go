package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	JWTSecret   string
	TokenExpiry time.Duration

	SearchURL      string
	SearchUsername string
	SearchPassword string

	StorageDir string
	S3Endpoint string
	S3Key      string
	S3Secret   string
	S3Region   string
	S3Bucket   string

	AnilistRateLimit int
	TMDBAPIKey       string

	RSSInterval        time.Duration
	RSSIntervalPremium time.Duration
	RSSLimit           int
	RSSLimitPremium    int
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://showtimes:showtimes@db:5432/showtimes?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		JWTSecret:   env("JWT_SECRET", "change-me-in-production"),
		TokenExpiry: envDuration("TOKEN_EXPIRY", 72*time.Hour),

		SearchURL:      env("SEARCH_URL", "http://localhost:9200"),
		SearchUsername: env("SEARCH_USERNAME", ""),
		SearchPassword: env("SEARCH_PASSWORD", ""),

		StorageDir: env("STORAGE_DIR", "/data/storages"),
		S3Endpoint: env("S3_ENDPOINT", ""),
		S3Key:      env("S3_ACCESS_KEY", ""),
		S3Secret:   env("S3_SECRET_KEY", ""),
		S3Region:   env("S3_REGION", ""),
		S3Bucket:   env("S3_BUCKET", ""),

		AnilistRateLimit: envInt("ANILIST_RATE_LIMIT", 90),
		TMDBAPIKey:       env("TMDB_API_KEY", ""),

		RSSInterval:        envDuration("RSS_INTERVAL", 300*time.Second),
		RSSIntervalPremium: envDuration("RSS_INTERVAL_PREMIUM", 180*time.Second),
		RSSLimit:           envInt("RSS_LIMIT", 3),
		RSSLimitPremium:    envInt("RSS_LIMIT_PREMIUM", 5),
	}
}

// S3Enabled reports whether object storage should use the S3 backend
// instead of the local filesystem.
func (c *Config) S3Enabled() bool {
	return c.S3Key != "" && c.S3Secret != "" && c.S3Bucket != ""
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/WessleyAI/schedule-fallback/engine/render"
	"github.com/WessleyAI/schedule-fallback/engine/search"
)

// Config holds all environment-based configuration.
type Config struct {
	Render render.Config

	PageCache    string
	PageCacheTTL time.Duration

	SearchProvider    string
	SearchCredentials search.ProviderConfig
	SearchOptions     search.Options

	TrustOverrides string

	NATSURL        string
	RequestSubject string
	OutputSubject  string
	WorkerQueue    string

	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string

	Port        string
	MetricsPort int
	LogLevel    string
}

// loadDotEnv seeds the environment from .env files. Missing files are fine
// and variables already set win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func loadConfig() Config {
	rc := render.DefaultConfig()
	rc.Enabled = envBool("RENDER_ENABLED", rc.Enabled)
	rc.Engine = envOr("RENDER_ENGINE", rc.Engine)
	rc.Headless = envBool("RENDER_HEADLESS", rc.Headless)
	rc.ExecPath = envOr("RENDER_EXEC_PATH", rc.ExecPath)
	rc.MaxSessions = envInt("RENDER_MAX_SESSIONS", rc.MaxSessions)
	rc.Timeout = envMillis("RENDER_TIMEOUT_MS", rc.Timeout)
	rc.NavTimeout = envMillis("RENDER_NAV_TIMEOUT_MS", rc.NavTimeout)
	rc.BlockImages = envBool("RENDER_BLOCK_IMAGES", rc.BlockImages)
	rc.BlockFonts = envBool("RENDER_BLOCK_FONTS", rc.BlockFonts)
	rc.BlockMedia = envBool("RENDER_BLOCK_MEDIA", rc.BlockMedia)
	rc.BlockTrackers = envBool("RENDER_BLOCK_TRACKERS", rc.BlockTrackers)
	rc.MaxRetries = envInt("RENDER_MAX_RETRIES", rc.MaxRetries)
	rc.BackoffBase = envFloat("RENDER_BACKOFF_BASE", rc.BackoffBase)
	rc.DomainDelay = envMillis("RENDER_DOMAIN_DELAY_MS", rc.DomainDelay)

	so := search.DefaultOptions()
	so.MinInterval = envMillis("SEARCH_MIN_INTERVAL_MS", so.MinInterval)
	so.CacheTTL = envDuration("SEARCH_CACHE_TTL", so.CacheTTL)

	return Config{
		Render:         rc,
		PageCache:      envOr("PAGE_CACHE", "memory"),
		PageCacheTTL:   envDuration("PAGE_CACHE_TTL", time.Hour),
		SearchProvider: envOr("SEARCH_PROVIDER", search.ProviderDuckDuckGo),
		SearchCredentials: search.ProviderConfig{
			SerpAPIKey:   os.Getenv("SERPAPI_KEY"),
			BingKey:      os.Getenv("BING_SEARCH_KEY"),
			GoogleCSEKey: os.Getenv("GOOGLE_CSE_KEY"),
			GoogleCSECX:  os.Getenv("GOOGLE_CSE_CX"),
		},
		SearchOptions:  so,
		TrustOverrides: os.Getenv("TRUST_OVERRIDES"),
		NATSURL:        envOr("NATS_URL", "nats://localhost:4222"),
		RequestSubject: envOr("NATS_SUBJECT_REQUEST", "fallback.requests"),
		OutputSubject:  envOr("NATS_SUBJECT_OUTPUT", "fallback.outputs"),
		WorkerQueue:    envOr("NATS_QUEUE", "search-fallback"),
		Neo4jURL:       os.Getenv("NEO4J_URL"),
		Neo4jUser:      envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:      envOr("NEO4J_PASS", "password"),
		Port:           envOr("PORT", "8080"),
		MetricsPort:    envInt("METRICS_PORT", 9092),
		LogLevel:       envOr("LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return b
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return n
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return f
	}
	return fallback
}

func envMillis(key string, fallback time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n >= 0 {
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return d
	}
	return fallback
}

// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, database,
// provider, rate-limiting, breaker, and worker settings for the messaging
// gateway.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tbourn/go-chat-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// ProviderFaults holds the three fault-injection percentages and an optional
// deterministic seed for one mock provider.
type ProviderFaults struct {
	TimeoutPct    int
	ErrorPct      int
	RateLimitPct  int
	Seed          int64
	SeedSpecified bool
}

// Config holds all configuration values for the messaging gateway.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string
	HealthPath        string
	ShutdownTimeout   time.Duration

	// Logging
	LogLevel  string
	LogPretty bool

	// Database
	DatabaseURL string // empty => in-memory fallback stores

	// Conversation / snippet
	ConversationSnippetLength int

	// Admission pipeline
	MaxBodyBytes          int64
	MaxAttachments         int
	RateLimitPerIPPerMin     int
	RateLimitPerSenderPerMin int

	// Circuit breaker (global + per-provider share the same knobs)
	BreakerErrorThreshold int
	BreakerOpenSecs       time.Duration

	// Provider fault injection
	ProviderDefault ProviderFaults
	ProviderSMS     ProviderFaults
	ProviderEmail   ProviderFaults

	// Inbound worker
	WorkerBatchSize        int
	WorkerClaimTimeoutSecs time.Duration
	WorkerMaxRetries       int
	WorkerBackoffBaseMs    int64

	// Idempotency store
	IdempotencyTTL time.Duration

	// Outbound queue
	OutboundQueueCapacity int

	// Web protection
	CORS CORSConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables (a .env file is loaded
// first if present; real environment variables always take precedence),
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		HealthPath:        normalizeHealthPath(getenv("HEALTH_PATH", "/healthz")),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT_SECS", 5*time.Second),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// DB_URL is accepted as a legacy alias for deployments migrating from
		// the carrier's own env naming.
		DatabaseURL: sysutil.FirstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("DB_URL")),

		ConversationSnippetLength: clamp(getint("CONVERSATION_SNIPPET_LENGTH", 64), 1, 4096),

		MaxBodyBytes:             int64(getint("API_MAX_BODY_BYTES", 262144)),
		MaxAttachments:           getint("API_MAX_ATTACHMENTS", 8),
		RateLimitPerIPPerMin:     getint("API_RATE_LIMIT_PER_IP_PER_MIN", 120),
		RateLimitPerSenderPerMin: getint("API_RATE_LIMIT_PER_SENDER_PER_MIN", 60),

		BreakerErrorThreshold: getint("API_BREAKER_ERROR_THRESHOLD", 20),
		BreakerOpenSecs:       getdur("API_BREAKER_OPEN_SECS", 30*time.Second),

		WorkerBatchSize:        getint("API_WORKER_BATCH_SIZE", 10),
		WorkerClaimTimeoutSecs: getdur("API_WORKER_CLAIM_TIMEOUT_SECS", 60*time.Second),
		WorkerMaxRetries:       getint("API_WORKER_MAX_RETRIES", 5),
		WorkerBackoffBaseMs:    int64(getint("API_WORKER_BACKOFF_BASE_MS", 500)),

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL_SECS", 2*time.Hour),

		OutboundQueueCapacity: getint("OUTBOUND_QUEUE_CAPACITY", 1024),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "messaging-gateway"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	globalSeed, globalSeedSet := getint64opt("API_PROVIDER_SEED")
	cfg.ProviderDefault = ProviderFaults{
		TimeoutPct:    getint("API_PROVIDER_TIMEOUT_PCT", 0),
		ErrorPct:      getint("API_PROVIDER_ERROR_PCT", 0),
		RateLimitPct:  getint("API_PROVIDER_RATELIMIT_PCT", 0),
		Seed:          globalSeed,
		SeedSpecified: globalSeedSet,
	}
	cfg.ProviderSMS = loadProviderFaults("API_PROVIDER_SMS_", cfg.ProviderDefault)
	cfg.ProviderEmail = loadProviderFaults("API_PROVIDER_EMAIL_", cfg.ProviderDefault)

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return cfg, errors.New("PORT must be in 1..=65535")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("API_MAX_BODY_BYTES must be > 0")
	}
	if cfg.MaxAttachments < 0 {
		return cfg, errors.New("API_MAX_ATTACHMENTS must be >= 0")
	}
	if cfg.RateLimitPerIPPerMin < 1 || cfg.RateLimitPerSenderPerMin < 1 {
		return cfg, errors.New("rate limits must be >= 1")
	}
	if cfg.BreakerErrorThreshold < 1 {
		return cfg, errors.New("API_BREAKER_ERROR_THRESHOLD must be >= 1")
	}
	if cfg.WorkerBatchSize < 1 {
		return cfg, errors.New("API_WORKER_BATCH_SIZE must be >= 1")
	}
	if cfg.WorkerMaxRetries < 0 {
		return cfg, errors.New("API_WORKER_MAX_RETRIES must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL_SECS must be > 0")
	}
	if cfg.OutboundQueueCapacity < 1 {
		return cfg, errors.New("OUTBOUND_QUEUE_CAPACITY must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func loadProviderFaults(prefix string, fallback ProviderFaults) ProviderFaults {
	pf := ProviderFaults{
		TimeoutPct:   getint(prefix+"TIMEOUT_PCT", fallback.TimeoutPct),
		ErrorPct:     getint(prefix+"ERROR_PCT", fallback.ErrorPct),
		RateLimitPct: getint(prefix+"RATELIMIT_PCT", fallback.RateLimitPct),
	}
	if seed, ok := getint64opt(prefix + "SEED"); ok {
		pf.Seed, pf.SeedSpecified = seed, true
	} else {
		pf.Seed, pf.SeedSpecified = fallback.Seed, fallback.SeedSpecified
	}
	return pf
}

// ---- helpers (teacher-style, no external deps beyond godotenv) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64opt(k string) (int64, bool) {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// also accept bare integer seconds, matching *_SECS / *_MS env names
		if i, err := strconv.Atoi(v); err == nil {
			if strings.HasSuffix(k, "_MS") {
				return time.Duration(i) * time.Millisecond
			}
			return time.Duration(i) * time.Second
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeHealthPath ensures a leading '/'; blank input falls back to the
// default "/healthz".
func normalizeHealthPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/healthz"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	StaticDir       string        // directory holding the UI bundle

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote attractions API
	APIBaseURL    string        // ex: "https://api.example.com/v1"
	APITimeout    time.Duration // per HTTP attempt
	OutboundRPS   float64       // outbound request pacing (0 = unlimited)
	OutboundBurst int

	// Transliteration service
	ConvertURL       string        // POST endpoint taking {text, converter}
	ConvertConverter string        // canonical script, ex: "Traditional"
	ConvertTimeout   time.Duration // per HTTP attempt
	ConvertCache     string        // "memory" | "redis"
	ConvertCacheTTL  time.Duration // only used by the redis cache

	// Listing / controller behavior
	PageSize            int           // attractions per page
	PreviewSize         int           // attractions shown while idle
	PreviewInterval     time.Duration // preview rotation period
	SearchDebounce      time.Duration // quiescence window before a search fires
	MaterializePageSize int           // page size used by the bookmarks-only scan
	MaterializeMaxPages int           // page ceiling of the bookmarks-only scan

	// Retry budgets
	FetchMaxRetries    int // idempotent attraction reads
	ReadMaxRetries     int // auth check + bookmark list reads
	AuthMaxRetries     int // login/signup
	BookmarkMaxRetries int // bookmark add/remove
	RetryInitialDelay  time.Duration
	RetryMaxDelay      time.Duration

	// Session persistence
	SessionStore         string        // "file" | "redis"
	SessionFile          string        // path used by the file store
	SessionKey           string        // key suffix used by the redis store
	SessionCheckInterval time.Duration // periodic token verification (0 = disabled)

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectRetries int           // connection attempts after the first one
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts   []string // optional, restrict access to specific Host headers
	AllowedCIDRS   []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy     bool     // true => trust X-Forwarded-For headers
	CORSOrigins    []string // optional, allowed browser origins
	AuthRateBurst  int      // burst of the auth endpoints rate limiter
	AuthRatePerMin int      // refill of the auth endpoints rate limiter
}

// UsesRedis reports whether any component is configured to talk to Redis.
func (c *Config) UsesRedis() bool {
	return c.SessionStore == SessionStoreRedis || c.ConvertCache == CacheRedis
}

// Load builds the configuration from the environment.
// A .env file is loaded first when present, then the optional YAML file
// named by WANDER_CONFIG_FILE supplies values for keys missing from the environment.
func Load() *Config {
	_ = godotenv.Load()

	src := newSource(os.Getenv("WANDER_CONFIG_FILE"))

	cfg := &Config{
		// Server settings
		ListenPort:      src.getenv("WANDER_LISTEN_PORT", ":8080"),
		ShutdownTimeout: src.mustDuration("WANDER_SHUTDOWN_TIMEOUT", 5*time.Second),
		StaticDir:       src.getenv("WANDER_STATIC_DIR", "./web"),

		// Logging
		LogLevel:  src.getenv("WANDER_LOG_LEVEL", "info"),
		PrettyLog: src.mustBool("WANDER_PRETTY_LOG", true),

		// Remote API
		APIBaseURL:    strings.TrimRight(src.requireEnv("WANDER_API_BASE_URL"), "/"),
		APITimeout:    src.mustDuration("WANDER_API_TIMEOUT", 10*time.Second),
		OutboundRPS:   src.getenvFloat("WANDER_OUTBOUND_RPS", 10),
		OutboundBurst: src.getenvInt("WANDER_OUTBOUND_BURST", 5),

		// Transliteration
		ConvertURL:       src.getenv("WANDER_CONVERT_URL", "https://api.zhconvert.org/convert"),
		ConvertConverter: src.getenv("WANDER_CONVERT_CONVERTER", "Traditional"),
		ConvertTimeout:   src.mustDuration("WANDER_CONVERT_TIMEOUT", 5*time.Second),
		ConvertCache:     src.getenv("WANDER_CONVERT_CACHE", CacheMemory),
		ConvertCacheTTL:  src.mustDuration("WANDER_CONVERT_CACHE_TTL", 7*24*time.Hour),

		// Listing
		PageSize:            src.getenvInt("WANDER_PAGE_SIZE", 20),
		PreviewSize:         src.getenvInt("WANDER_PREVIEW_SIZE", 3),
		PreviewInterval:     src.mustDuration("WANDER_PREVIEW_INTERVAL", 10*time.Second),
		SearchDebounce:      src.mustDuration("WANDER_SEARCH_DEBOUNCE", 500*time.Millisecond),
		MaterializePageSize: src.getenvInt("WANDER_MATERIALIZE_PAGE_SIZE", 50),
		MaterializeMaxPages: src.getenvInt("WANDER_MATERIALIZE_MAX_PAGES", 20),

		// Retry budgets
		FetchMaxRetries:    src.getenvInt("WANDER_FETCH_MAX_RETRIES", 5),
		ReadMaxRetries:     src.getenvInt("WANDER_READ_MAX_RETRIES", 3),
		AuthMaxRetries:     src.getenvInt("WANDER_AUTH_MAX_RETRIES", 2),
		BookmarkMaxRetries: src.getenvInt("WANDER_BOOKMARK_MAX_RETRIES", 2),
		RetryInitialDelay:  src.mustDuration("WANDER_RETRY_INITIAL_DELAY", 500*time.Millisecond),
		RetryMaxDelay:      src.mustDuration("WANDER_RETRY_MAX_DELAY", 8*time.Second),

		// Session
		SessionStore:         src.getenv("WANDER_SESSION_STORE", SessionStoreFile),
		SessionFile:          src.getenv("WANDER_SESSION_FILE", "./data/session.yaml"),
		SessionKey:           src.getenv("WANDER_SESSION_KEY", "default"),
		SessionCheckInterval: src.mustDuration("WANDER_SESSION_CHECK_INTERVAL", 15*time.Minute),

		// Redis settings
		RedisAddr:           src.getenv("WANDER_REDIS_ADDR", ""),
		RedisUser:           src.getenv("WANDER_REDIS_USERNAME", ""),
		RedisPassword:       src.getenv("WANDER_REDIS_PASSWORD", ""),
		RedisDB:             src.getenvInt("WANDER_REDIS_DB", 0),
		RedisDT:             src.mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             src.mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             src.mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        src.mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    src.mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       src.getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectRetries: src.getenvInt("REDIS_CONNECT_RETRIES", 6),
		RedisRetryInterval:  src.mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  src.getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:   splitAndTrim(src.getenv("WANDER_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   parseAllowedIPs(src.getenv("WANDER_ALLOWED_CIDRS", "")),
		TrustProxy:     src.mustBool("WANDER_TRUST_PROXY", false),
		CORSOrigins:    splitAndTrim(src.getenv("WANDER_CORS_ORIGINS", "")),
		AuthRateBurst:  src.getenvInt("WANDER_AUTH_RATE_BURST", 5),
		AuthRatePerMin: src.getenvInt("WANDER_AUTH_RATE_PER_MIN", 10),
	}

	validate(cfg)

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func validate(cfg *Config) {
	switch cfg.SessionStore {
	case SessionStoreFile, SessionStoreRedis:
	default:
		panic(fmt.Sprintf("❌ FATAL: WANDER_SESSION_STORE must be %q or %q, got %q",
			SessionStoreFile, SessionStoreRedis, cfg.SessionStore))
	}
	switch cfg.ConvertCache {
	case CacheMemory, CacheRedis:
	default:
		panic(fmt.Sprintf("❌ FATAL: WANDER_CONVERT_CACHE must be %q or %q, got %q",
			CacheMemory, CacheRedis, cfg.ConvertCache))
	}
	if cfg.UsesRedis() && cfg.RedisAddr == "" {
		panic("❌ FATAL: WANDER_REDIS_ADDR is required when a redis store or cache is selected")
	}
	if cfg.PageSize < 1 || cfg.MaterializePageSize < 1 {
		panic("❌ FATAL: page sizes must be >= 1")
	}
	if cfg.MaterializeMaxPages < 1 {
		panic("❌ FATAL: WANDER_MATERIALIZE_MAX_PAGES must be >= 1")
	}
}

// source resolves keys from the environment first, then from the YAML overlay.
type source struct {
	file map[string]string
}

func newSource(path string) *source {
	s := &source{}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot read config file %s: %v", path, err))
	}
	values, err := parseOverlay(data)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot parse config file %s: %v", path, err))
	}
	s.file = values
	return s
}

// parseOverlay reads a flat YAML mapping of variable names to scalar values.
func parseOverlay(data []byte) (map[string]string, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(raw))
	for key, node := range raw {
		switch node.Kind {
		case yaml.ScalarNode:
			values[key] = node.Value
		case yaml.SequenceNode:
			items := make([]string, 0, len(node.Content))
			for _, item := range node.Content {
				items = append(items, item.Value)
			}
			values[key] = strings.Join(items, ",")
		default:
			return nil, fmt.Errorf("key %s: expected scalar or list", key)
		}
	}
	return values, nil
}

func (s *source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

// helpers
func (s *source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s *source) requireEnv(key string) string {
	v := s.lookup(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func (s *source) getenvInt(key string, def int) int {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s *source) getenvFloat(key string, def float64) float64 {
	if v := s.lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s *source) mustBool(key string, def bool) bool {
	if v := s.lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func (s *source) mustDuration(key string, def time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

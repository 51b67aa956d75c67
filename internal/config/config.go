package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// Env is "dev" (default) or "prod".
	Env string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json". LogLevel is debug|info|warn|error.
	LogFormat string
	LogLevel  string

	// TrustedProxies are CIDRs or IPs (TRUSTED_PROXIES, comma-separated) whose
	// X-Forwarded-For / X-Real-IP headers are believed. Empty means none.
	TrustedProxies []string

	// CORSAllowedOrigins is set via CORS_ALLOWED_ORIGINS (comma-separated). Empty means same-origin only.
	CORSAllowedOrigins []string

	// PasswordIterations is the PBKDF2 work factor for new credentials. Values below 100000 are raised.
	PasswordIterations int

	// SeedDefaults inserts the default manufacturers and admin/user accounts into empty tables.
	SeedDefaults bool

	// SessionMaxIdle expires sessions not seen for this long. Zero disables idle expiry.
	SessionMaxIdle time.Duration
	// SessionSweepCron is a cron expression for deleting idle sessions. Needs SessionMaxIdle.
	SessionSweepCron string

	// RedisURL enables the shared login rate limiter. When empty, an in-process limiter is used.
	RedisURL           string
	LoginRatePerMinute int
	LoginRateBurst     int

	// StorageBackend is "local" (default) or "s3".
	StorageBackend string
	StorageDir     string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// MaxUploadBytes caps PDF uploads (default 64 MiB).
	MaxUploadBytes int64

	SearchTimeout time.Duration
	SearchSources []string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "dochub"),
		DBUser: getEnv("DB_USER", "dochub"),
		DBPass: getEnv("DB_PASS", "dochub"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		Env: getEnv("ENV", "dev"),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		TrustedProxies:     splitList(getEnv("TRUSTED_PROXIES", "")),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		PasswordIterations: getEnvInt("PASSWORD_ITERATIONS", 210_000),
		SeedDefaults:       getEnvBool("SEED_DEFAULTS", true),

		SessionMaxIdle:   getEnvDuration("SESSION_MAX_IDLE", 0),
		SessionSweepCron: getEnv("SESSION_SWEEP_CRON", ""),

		RedisURL:           getEnv("REDIS_URL", ""),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		LoginRateBurst:     getEnvInt("LOGIN_RATE_BURST", 5),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		StorageDir:     getEnv("STORAGE_DIR", "storage"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 64<<20)),

		SearchTimeout: getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		SearchSources: splitList(getEnv("SEARCH_SOURCES", "https://aerofabndt.com,https://technandt.com")),
	}
}

// Validate checks combinations that Load cannot default away.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want local or s3)", c.StorageBackend)
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", p)
		}
	}
	if c.SessionSweepCron != "" && c.SessionMaxIdle <= 0 {
		return fmt.Errorf("SESSION_SWEEP_CRON requires SESSION_MAX_IDLE")
	}
	return nil
}

// DatabaseURL returns the postgres URL form of the DB settings, as needed by migrations.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// splitList splits a comma-separated list and trims spaces. Empty strings are omitted.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

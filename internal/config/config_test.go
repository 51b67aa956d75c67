package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_MAX_IDLE", "")
	t.Setenv("STORAGE_BACKEND", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if cfg.SessionMaxIdle != 0 {
		t.Errorf("SessionMaxIdle: got %v, want 0", cfg.SessionMaxIdle)
	}
	if cfg.StorageBackend != "local" {
		t.Errorf("StorageBackend: got %q", cfg.StorageBackend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate defaults: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SESSION_MAX_IDLE", "45m")
	t.Setenv("SEED_DEFAULTS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,http://localhost:3000")
	t.Setenv("DB_MAX_OPEN_CONNS", "-3")
	cfg := Load()
	if cfg.SessionMaxIdle != 45*time.Minute {
		t.Errorf("SessionMaxIdle: got %v", cfg.SessionMaxIdle)
	}
	if cfg.SeedDefaults {
		t.Error("SeedDefaults should be false")
	}
	want := []string{"https://a.example", "http://localhost:3000"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins: got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.DBMaxOpenConns != 25 {
		t.Errorf("non-positive DB_MAX_OPEN_CONNS should fall back, got %d", cfg.DBMaxOpenConns)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"local", Config{StorageBackend: "local"}, true},
		{"s3 without bucket", Config{StorageBackend: "s3"}, false},
		{"s3 with bucket", Config{StorageBackend: "s3", S3Bucket: "pdfs"}, true},
		{"unknown backend", Config{StorageBackend: "ftp"}, false},
		{"sweep without idle", Config{StorageBackend: "local", SessionSweepCron: "@hourly"}, false},
		{"trusted proxies", Config{StorageBackend: "local", TrustedProxies: []string{"10.0.0.0/8", "127.0.0.1"}}, true},
		{"bad trusted proxy", Config{StorageBackend: "local", TrustedProxies: []string{"10.0.0.0/99"}}, false},
		{"sweep with idle", Config{StorageBackend: "local", SessionSweepCron: "@hourly", SessionMaxIdle: time.Hour}, true},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err == nil) != c.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5432", DBName: "dochub", DBUser: "u", DBPass: "p@ss"}
	got := cfg.DatabaseURL()
	if !strings.HasPrefix(got, "postgres://u:p%40ss@db:5432/dochub") || !strings.HasSuffix(got, "sslmode=disable") {
		t.Errorf("DatabaseURL: got %q", got)
	}
}

package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d want 8080", cfg.Server.Port)
	}
	if cfg.DB.Driver != "postgres" {
		t.Errorf("db driver: got %q want postgres", cfg.DB.Driver)
	}
	if cfg.Warnings.HorizonDays != 30 {
		t.Errorf("horizon: got %d want 30", cfg.Warnings.HorizonDays)
	}
	if cfg.Warnings.ScanInterval != 24*time.Hour {
		t.Errorf("scan interval: got %v want 24h", cfg.Warnings.ScanInterval)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("redis addr: expected cache disabled by default, got %q", cfg.Redis.Addr)
	}
	if cfg.Drafts.TTL != 2*time.Hour {
		t.Errorf("draft ttl: got %v want 2h", cfg.Drafts.TTL)
	}
}

func TestNewConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/contracts.db")
	t.Setenv("WARNINGS_HORIZON_DAYS", "10")
	t.Setenv("SMTP_RECIPIENTS", "pm@example.com, finance@example.com,")
	t.Setenv("REDIS_LOOKUP_TTL", "30s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("server port: got %d want 8181", cfg.Server.Port)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.SQLitePath != "/tmp/contracts.db" {
		t.Errorf("db: got driver=%q path=%q", cfg.DB.Driver, cfg.DB.SQLitePath)
	}
	if cfg.Warnings.HorizonDays != 10 {
		t.Errorf("horizon: got %d want 10", cfg.Warnings.HorizonDays)
	}
	if len(cfg.SMTP.Recipients) != 2 || cfg.SMTP.Recipients[1] != "finance@example.com" {
		t.Errorf("recipients: got %v", cfg.SMTP.Recipients)
	}
	if cfg.Redis.LookupTTL != 30*time.Second {
		t.Errorf("lookup ttl: got %v want 30s", cfg.Redis.LookupTTL)
	}
}

func TestNewConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"SERVER_PORT", "eighty"},
		{"WARNINGS_HORIZON_DAYS", "-1"},
		{"WARNINGS_SCAN_INTERVAL", "daily"},
		{"WARNINGS_SCAN_INTERVAL", "0s"},
		{"DB_DRIVER", "mysql"},
		{"RATE_LIMIT_REQUESTS", "0"},
		{"RATE_LIMIT_REQUESTS", "-5"},
		{"RATE_LIMIT_WINDOW", "0s"},
		{"RATE_LIMIT_WINDOW", "-1m"},
		{"DRAFTS_TTL", "0s"},
		{"DRAFTS_TTL", "-1h"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := NewConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestDSNHelpers(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Host = "db"
	cfg.DB.Port = 5433
	cfg.DB.User = "app"
	cfg.DB.Password = "secret"
	cfg.DB.DBName = "contracts"
	cfg.DB.SSLMode = "disable"

	if got, want := cfg.DSN(), "host=db port=5433 user=app password=secret dbname=contracts sslmode=disable"; got != want {
		t.Errorf("DSN: got %q want %q", got, want)
	}
	if got, want := cfg.MigrateURL(), "postgres://app:secret@db:5433/contracts?sslmode=disable"; got != want {
		t.Errorf("MigrateURL: got %q want %q", got, want)
	}
}

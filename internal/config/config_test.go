package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jurisrank/jurisapi/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 18090 {
		t.Errorf("port = %d, want 18090", cfg.Server.Port)
	}
	if cfg.Database.RetentionDays != 7 {
		t.Errorf("retention = %d, want 7", cfg.Database.RetentionDays)
	}
	if cfg.RateLimit.IdleThreshold != 86400 {
		t.Errorf("idle threshold = %d, want 86400", cfg.RateLimit.IdleThreshold)
	}
	if cfg.Stats.Backend != "memory" {
		t.Errorf("stats backend = %s, want memory", cfg.Stats.Backend)
	}
	if cfg.RateLimit.BurstSmoothing {
		t.Error("burst smoothing must default to off")
	}

	p, ok := cfg.RateLimit.Tiers[string(model.TierPremium)]
	if !ok {
		t.Fatal("missing premium tier policy")
	}
	if p.RequestsPerHour != 5000 || p.RequestsPerMinute != 200 {
		t.Errorf("premium policy = %+v", p)
	}

	if _, ok := cfg.RateLimit.Endpoints["/api/v1/document/enhance"]; !ok {
		t.Error("missing default endpoint override for document enhance")
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
rate_limit:
  tiers:
    default:
      requests_per_hour: 60
      requests_per_minute: 5
  endpoints:
    /api/v1/search/precedents:
      requests_per_hour: 30
  burst_smoothing: true
stats:
  backend: redis
  redis:
    addr: redis.internal:6379
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	// Unset fields still fall back to defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Database.Path != "./data/jurisapi.db" {
		t.Errorf("db path = %s", cfg.Database.Path)
	}

	p := cfg.RateLimit.Tiers[string(model.TierDefault)]
	if p.RequestsPerHour != 60 || p.RequestsPerMinute != 5 {
		t.Errorf("default tier policy = %+v", p)
	}
	// Explicit tier table replaces the factory table entirely.
	if _, ok := cfg.RateLimit.Tiers[string(model.TierPremium)]; ok {
		t.Error("factory tiers should not be merged into an explicit table")
	}

	if !cfg.RateLimit.BurstSmoothing {
		t.Error("burst_smoothing not loaded")
	}
	if cfg.Stats.Backend != "redis" {
		t.Errorf("stats backend = %s, want redis", cfg.Stats.Backend)
	}
	if cfg.Stats.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis addr = %s", cfg.Stats.Redis.Addr)
	}
	if cfg.Stats.Redis.Prefix != "jurisapi:ratelimit" {
		t.Errorf("redis prefix = %s", cfg.Stats.Redis.Prefix)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidate_RejectsNonPositiveHourlyLimit(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  tiers:
    default:
      requests_per_hour: 0
      requests_per_minute: 5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-positive hourly limit")
	}
}

func TestValidate_RejectsUnknownStatsBackend(t *testing.T) {
	path := writeConfig(t, `
stats:
  backend: kafka
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown stats backend")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")

	cfg := Default()
	cfg.Server.Port = 8123
	cfg.RateLimit.AdminKeys = []string{"root-key"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Server.Port != 8123 {
		t.Errorf("port = %d, want 8123", loaded.Server.Port)
	}
	if len(loaded.RateLimit.AdminKeys) != 1 || loaded.RateLimit.AdminKeys[0] != "root-key" {
		t.Errorf("admin keys = %v", loaded.RateLimit.AdminKeys)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Broker.ID != "9A91" {
		t.Errorf("broker id = %s, want 9A91", cfg.Broker.ID)
	}
	if cfg.Schedule.DailyCron != "0 30 15 * * 1-5" {
		t.Errorf("daily cron = %s", cfg.Schedule.DailyCron)
	}
	if cfg.Backfill.Days != 30 || cfg.Backfill.CheckpointInterval != 10 {
		t.Errorf("backfill defaults = %d/%d, want 30/10", cfg.Backfill.Days, cfg.Backfill.CheckpointInterval)
	}
	if !cfg.HiStock.Enabled {
		t.Error("histock should default to enabled")
	}
	if cfg.Dashboard.ListenAddr != ":8080" {
		t.Errorf("listen addr = %s, want :8080", cfg.Dashboard.ListenAddr)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
broker:
  id: "1160"
line:
  access_token: yaml-token
  recipient_id: U123
histock:
  enabled: true
  cookie: yaml-cookie
watchlist:
  - id: "3533"
    name: 嘉澤
    category: test
`)

	t.Setenv("HISTOCK_COOKIE", "env-cookie")
	t.Setenv("LINE_ACCESS_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Broker.ID != "1160" {
		t.Errorf("broker id = %s, want yaml value 1160", cfg.Broker.ID)
	}
	if cfg.HiStock.Cookie != "env-cookie" {
		t.Errorf("cookie = %s, env must override yaml", cfg.HiStock.Cookie)
	}
	if cfg.Line.AccessToken != "env-token" {
		t.Errorf("token = %s, env must override yaml", cfg.Line.AccessToken)
	}
	if len(cfg.Watchlist) != 1 || cfg.Watchlist[0].TickerID != "3533" {
		t.Errorf("watchlist = %+v", cfg.Watchlist)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Broker.ID = "9A91"
		cfg.Line.AccessToken = "token"
		cfg.Line.RecipientID = "U123"
		cfg.HiStock.Enabled = true
		cfg.HiStock.Cookie = "cookie"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Line.AccessToken = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing line token must fail validation")
	}

	cfg = base()
	cfg.HiStock.Cookie = ""
	if err := cfg.Validate(); err == nil {
		t.Error("enabled histock without cookie must fail validation")
	}

	// Disabled precise source drops the cookie requirement.
	cfg = base()
	cfg.HiStock.Enabled = false
	cfg.HiStock.Cookie = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled histock should not need a cookie: %v", err)
	}
}

func TestWatchMapFallsBackToDefault(t *testing.T) {
	cfg := &Config{}
	watch := cfg.WatchMap()
	if len(watch) != len(DefaultWatchlist) {
		t.Fatalf("empty config watch map = %d entries, want the default %d", len(watch), len(DefaultWatchlist))
	}
	if !watch.Contains("3533") {
		t.Error("default watch list should contain 3533")
	}

	cfg.Watchlist = DefaultWatchlist[:2]
	if got := cfg.WatchMap(); len(got) != 2 {
		t.Errorf("explicit watch map = %d entries, want 2", len(got))
	}
}

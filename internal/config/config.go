package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"BranchRadar/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Broker struct {
		ID        string `yaml:"id"`
		ReportURL string `yaml:"report_url"`
	} `yaml:"broker"`
	HiStock struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		Cookie  string `yaml:"cookie"`
	} `yaml:"histock"`
	Line struct {
		AccessToken string `yaml:"access_token"`
		RecipientID string `yaml:"recipient_id"`
	} `yaml:"line"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Dashboard struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"dashboard"`
	Schedule struct {
		DailyCron      string `yaml:"daily_cron"`
		NotifyCron     string `yaml:"notify_cron"`
		CorrectiveCron string `yaml:"corrective_cron"`
	} `yaml:"schedule"`
	Backfill struct {
		Days               int    `yaml:"days"`
		CheckpointInterval int    `yaml:"checkpoint_interval"`
		ProgressFile       string `yaml:"progress_file"`
	} `yaml:"backfill"`
	Watchlist []model.WatchEntry `yaml:"watchlist"`
	Proxy     string             `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.HiStock.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BROKER_ID"); v != "" {
		cfg.Broker.ID = v
	}
	if v := os.Getenv("HISTOCK_COOKIE"); v != "" {
		cfg.HiStock.Cookie = v
	}
	if v := os.Getenv("LINE_ACCESS_TOKEN"); v != "" {
		cfg.Line.AccessToken = v
	}
	if v := os.Getenv("LINE_USER_ID"); v != "" {
		cfg.Line.RecipientID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.Dashboard.ListenAddr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Broker.ID == "" {
		cfg.Broker.ID = "9A91" // 永豐金-松山
	}
	if cfg.Broker.ReportURL == "" {
		cfg.Broker.ReportURL = "https://fubon-ebrokerdj.fbs.com.tw/z/zg/zgb/zgb0.djhtm"
	}
	if cfg.HiStock.BaseURL == "" {
		cfg.HiStock.BaseURL = "https://histock.tw/stock/brokertrace.aspx"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/branch_radar.db"
	}
	if cfg.Dashboard.ListenAddr == "" {
		cfg.Dashboard.ListenAddr = ":8080"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 15 * * 1-5"
	}
	if cfg.Schedule.NotifyCron == "" {
		cfg.Schedule.NotifyCron = "0 0 17 * * 1-5"
	}
	if cfg.Schedule.CorrectiveCron == "" {
		cfg.Schedule.CorrectiveCron = "0 0 3 * * 6"
	}
	if cfg.Backfill.Days == 0 {
		cfg.Backfill.Days = 30
	}
	if cfg.Backfill.CheckpointInterval == 0 {
		cfg.Backfill.CheckpointInterval = 10
	}
	if cfg.Backfill.ProgressFile == "" {
		cfg.Backfill.ProgressFile = "data/backfill_progress.json"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Broker.ID == "" {
		return fmt.Errorf("broker.id is required")
	}
	if c.Line.AccessToken == "" {
		return fmt.Errorf("line.access_token is required")
	}
	if c.Line.RecipientID == "" {
		return fmt.Errorf("line.recipient_id is required")
	}
	if c.HiStock.Enabled && c.HiStock.Cookie == "" {
		return fmt.Errorf("histock.cookie is required when histock is enabled")
	}
	return nil
}

// WatchMap builds the injected watch-list mapping. Falls back to the
// compiled-in default set when the config file names no tickers.
func (c *Config) WatchMap() model.Watchlist {
	entries := c.Watchlist
	if len(entries) == 0 {
		entries = DefaultWatchlist
	}
	m := make(model.Watchlist, len(entries))
	for _, e := range entries {
		m[e.TickerID] = e
	}
	return m
}

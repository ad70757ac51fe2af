package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tracker-bot/models"
)

const sampleYAML = `
bot:
  token: file-token
  approval_channel_id: "111"
  log_channel_id: "222"
tracker:
  target_forum: Games
  poll_interval_s: 120
reddit:
  client_id: id
  client_secret: secret
  refresh_token: refresh
users:
  moderator:
    user_id: "42"
    permission_level: 1
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), sampleYAML)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bot.Token != "file-token" || cfg.Tracker.TargetForum != "Games" {
		t.Errorf("file values not loaded: %+v", cfg)
	}
	if cfg.Tracker.PollIntervalS != 120 {
		t.Errorf("poll interval = %d", cfg.Tracker.PollIntervalS)
	}
	if cfg.Tracker.SourceFeed != "friends" || cfg.Tracker.UpdateDayLimit != 7 {
		t.Errorf("defaults not applied: %+v", cfg.Tracker)
	}
	if cfg.Database.Driver != "sqlite3" || cfg.Pending.Backend != "sql" {
		t.Errorf("storage defaults = %+v %+v", cfg.Database, cfg.Pending)
	}
	if cfg.Format.EntryTemplate == "" || cfg.Format.ContextTemplate == "" {
		t.Error("default templates missing")
	}
	if u, ok := cfg.Users["moderator"]; !ok || u.UserID != "42" || u.PermissionLevel != 1 {
		t.Errorf("users = %+v", cfg.Users)
	}
	if PollInterval(cfg).Seconds() != 120 {
		t.Errorf("PollInterval = %s", PollInterval(cfg))
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), sampleYAML)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("TRACKER_BATCH_SIZE", "25")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Errorf("token = %q", cfg.Bot.Token)
	}
	if cfg.Tracker.BatchSize != 25 {
		t.Errorf("batch size = %d", cfg.Tracker.BatchSize)
	}
}

func TestLoadConfigMergesFormatFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), sampleYAML)
	writeFile(t, filepath.Join(dir, "config", "format.json"),
		`{"format": {"total_char_limit": 500, "footer": "-- bot"}}`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Format.TotalCharLimit != 500 || cfg.Format.Footer != "-- bot" {
		t.Errorf("format = %+v", cfg.Format)
	}
	if cfg.Tracker.TargetForum != "Games" {
		t.Error("merge dropped base config")
	}
}

func TestLoadConfigRejectsMissingCredentials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "tracker:\n  target_forum: Games\n")

	_, err := LoadConfig(dir)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"bot.token", "reddit.client_id", "reddit.refresh_token"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := models.Config{
		Bot:      models.BotConfig{Token: "t", ApprovalChannelID: "1", LogChannelID: "2"},
		Tracker:  models.TrackerConfig{TargetForum: "f", PollIntervalS: 60, BatchSize: 100, UpdateDayLimit: 7},
		Database: models.DatabaseConfig{Driver: "pgx"},
		Pending:  models.PendingConfig{Backend: "sql"},
		Reddit:   models.RedditConfig{ClientID: "c", ClientSecret: "s", RefreshToken: "r"},
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.Config)
		want   string
	}{
		{"unknown driver", func(c *models.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"redis without url", func(c *models.Config) { c.Pending.Backend = "redis" }, "pending.redis_url"},
		{"unknown backend", func(c *models.Config) { c.Pending.Backend = "etcd" }, "pending.backend"},
		{"zero interval", func(c *models.Config) { c.Tracker.PollIntervalS = 0 }, "poll_interval_s"},
		{"bad level", func(c *models.Config) {
			c.Users = map[string]models.UserConfig{"x": {UserID: "1", PermissionLevel: 5}}
		}, "permission_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

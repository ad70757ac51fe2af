package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tracker-bot/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default digest templates. Fields: Author, Permalink, Timestamp, Expertise, Body.
const (
	defaultEntryTemplate              = "**{{.Author}}** replied [here]({{.Permalink}}) on {{.Timestamp}} UTC\n\n{{.Body}}"
	defaultEntryWithExpertiseTemplate = "**{{.Author}}** ({{.Expertise}}) replied [here]({{.Permalink}}) on {{.Timestamp}} UTC\n\n{{.Body}}"
	defaultContextTemplate            = "> {{.Context}}\n\n"
	defaultCommentTemplate            = "{{.Comment}}"
	defaultFooter                     = "\n\n---\n^(This is an automated digest of tracked replies in this thread.)"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.guild_id", "")
	v.SetDefault("bot.admin_channel_id", "")
	v.SetDefault("bot.approval_channel_id", "")
	v.SetDefault("bot.log_channel_id", "")
	v.SetDefault("bot.expertise_max", 25)

	v.SetDefault("tracker.target_forum", "")
	v.SetDefault("tracker.source_feed", "friends")
	v.SetDefault("tracker.poll_interval_s", 60)
	v.SetDefault("tracker.batch_size", 100)
	v.SetDefault("tracker.min_epoch", 0)
	v.SetDefault("tracker.update_day_limit", 7)
	v.SetDefault("tracker.approval_delay_ms", 1000)
	v.SetDefault("tracker.update_delay_ms", 2000)
	v.SetDefault("tracker.request_timeout_s", 30)
	v.SetDefault("tracker.run_at_startup", true)

	v.SetDefault("format.total_char_limit", 1000)
	v.SetDefault("format.context_char_limit", 200)
	v.SetDefault("format.entry_template", defaultEntryTemplate)
	v.SetDefault("format.entry_with_expertise_template", defaultEntryWithExpertiseTemplate)
	v.SetDefault("format.context_template", defaultContextTemplate)
	v.SetDefault("format.comment_template", defaultCommentTemplate)
	v.SetDefault("format.footer", defaultFooter)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "data/tracker.db")

	v.SetDefault("pending.backend", "sql")
	v.SetDefault("pending.redis_url", "")
	v.SetDefault("pending.key", "tracker:pending_updates")

	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.refresh_token", "")
	v.SetDefault("reddit.user_agent", "tracker-bot/1.0")
	v.SetDefault("reddit.base_url", "")
	v.SetDefault("reddit.token_url", "")

	v.SetDefault("grpc.health_addr", "")
	v.SetDefault("metrics.listen_addr", "")
}

// LoadConfig loads configuration from several sources:
// 1. the .env file (environment variables)
// 2. config.yaml in dir (base configuration)
// 3. dir/config/format.json (digest templates, merged on top)
// Environment variables override file settings; bot.token is read from BOT_TOKEN.
func LoadConfig(dir string) (models.Config, error) {
	// 1. Load environment variables from .env, ignoring a missing file.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 2. Read the base configuration file.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return models.Config{}, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
		log.Printf("No config.yaml found, using environment variables and defaults only.")
	}

	// 3. Merge the digest format file.
	v.SetConfigName("format")
	v.SetConfigType("json")
	v.AddConfigPath(dir + "/config")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return models.Config{}, fmt.Errorf("failed to merge config/format.json: %w", err)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return models.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func Validate(cfg models.Config) error {
	var errs []error
	required := []struct{ key, value string }{
		{"bot.token", cfg.Bot.Token},
		{"bot.approval_channel_id", cfg.Bot.ApprovalChannelID},
		{"bot.log_channel_id", cfg.Bot.LogChannelID},
		{"tracker.target_forum", cfg.Tracker.TargetForum},
		{"reddit.client_id", cfg.Reddit.ClientID},
		{"reddit.client_secret", cfg.Reddit.ClientSecret},
		{"reddit.refresh_token", cfg.Reddit.RefreshToken},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}

	if cfg.Tracker.PollIntervalS < 1 {
		errs = append(errs, fmt.Errorf("tracker.poll_interval_s must be at least 1"))
	}
	if cfg.Tracker.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("tracker.batch_size must be positive"))
	}
	if cfg.Tracker.UpdateDayLimit < 1 {
		errs = append(errs, fmt.Errorf("tracker.update_day_limit must be positive"))
	}
	switch cfg.Database.Driver {
	case "sqlite3", "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of sqlite3, sqlite, pgx", cfg.Database.Driver))
	}
	switch cfg.Pending.Backend {
	case "sql":
	case "redis":
		if cfg.Pending.RedisURL == "" {
			errs = append(errs, fmt.Errorf("pending.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("pending.backend %q is not one of sql, redis", cfg.Pending.Backend))
	}
	for name, u := range cfg.Users {
		if u.PermissionLevel < 0 || u.PermissionLevel > 2 {
			errs = append(errs, fmt.Errorf("users.%s.permission_level must be 0, 1 or 2", name))
		}
	}
	return errors.Join(errs...)
}

// PollInterval is the configured cycle interval.
func PollInterval(cfg models.Config) time.Duration {
	return time.Duration(cfg.Tracker.PollIntervalS) * time.Second
}

// RequestTimeout bounds each content source request.
func RequestTimeout(cfg models.Config) time.Duration {
	return time.Duration(cfg.Tracker.RequestTimeoutS) * time.Second
}

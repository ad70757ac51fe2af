package models

// Config is the full process configuration.
type Config struct {
	Bot      BotConfig             `mapstructure:"bot"`
	Tracker  TrackerConfig         `mapstructure:"tracker"`
	Format   FormatConfig          `mapstructure:"format"`
	Database DatabaseConfig        `mapstructure:"database"`
	Pending  PendingConfig         `mapstructure:"pending"`
	Reddit   RedditConfig          `mapstructure:"reddit"`
	GRPC     GRPCConfig            `mapstructure:"grpc"`
	Metrics  MetricsConfig         `mapstructure:"metrics"`
	Users    map[string]UserConfig `mapstructure:"users"`
}

// BotConfig holds the Discord side settings.
type BotConfig struct {
	Token             string `mapstructure:"token"`
	GuildID           string `mapstructure:"guild_id"`
	AdminChannelID    string `mapstructure:"admin_channel_id"`
	ApprovalChannelID string `mapstructure:"approval_channel_id"`
	LogChannelID      string `mapstructure:"log_channel_id"`
	ExpertiseMax      int    `mapstructure:"expertise_max"`
}

// TrackerConfig drives the polling cycle.
type TrackerConfig struct {
	TargetForum     string  `mapstructure:"target_forum"`
	SourceFeed      string  `mapstructure:"source_feed"`
	PollIntervalS   int     `mapstructure:"poll_interval_s"`
	BatchSize       int     `mapstructure:"batch_size"`
	MinEpoch        float64 `mapstructure:"min_epoch"`
	UpdateDayLimit  int     `mapstructure:"update_day_limit"`
	ApprovalDelayMS int     `mapstructure:"approval_delay_ms"`
	UpdateDelayMS   int     `mapstructure:"update_delay_ms"`
	RequestTimeoutS int     `mapstructure:"request_timeout_s"`
	RunAtStartup    bool    `mapstructure:"run_at_startup"`
}

// FormatConfig holds the digest templates and budgets.
type FormatConfig struct {
	TotalCharLimit             int    `mapstructure:"total_char_limit"`
	ContextCharLimit           int    `mapstructure:"context_char_limit"`
	EntryTemplate              string `mapstructure:"entry_template"`
	EntryWithExpertiseTemplate string `mapstructure:"entry_with_expertise_template"`
	ContextTemplate            string `mapstructure:"context_template"`
	CommentTemplate            string `mapstructure:"comment_template"`
	Footer                     string `mapstructure:"footer"`
}

// DatabaseConfig selects the SQL driver. Driver is one of sqlite3, sqlite or pgx.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PendingConfig selects where the pending-update set lives: sql or redis.
type PendingConfig struct {
	Backend  string `mapstructure:"backend"`
	RedisURL string `mapstructure:"redis_url"`
	Key      string `mapstructure:"key"`
}

// RedditConfig holds the OAuth credentials for the content source.
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserAgent    string `mapstructure:"user_agent"`
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
}

// GRPCConfig configures the health endpoint. Empty address disables it.
type GRPCConfig struct {
	HealthAddr string `mapstructure:"health_addr"`
}

// MetricsConfig configures the Prometheus endpoint. Empty address disables it.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// UserConfig grants a Discord user a permission level.
type UserConfig struct {
	UserID          string `mapstructure:"user_id"`
	PermissionLevel int    `mapstructure:"permission_level"`
}

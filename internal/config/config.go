package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/playaura/pkg/correlate"
	"github.com/elonfeng/playaura/pkg/curate"
	"github.com/elonfeng/playaura/pkg/graph"
	"github.com/elonfeng/playaura/pkg/hot"
)

// Config is the root configuration.
type Config struct {
	Database    DatabaseConfig   `yaml:"database"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	YouTube     YouTubeConfig    `yaml:"youtube"`
	Scoring     ScoringConfig    `yaml:"scoring"`
	Filter      FilterConfig     `yaml:"filter"`
	Correlation correlate.Config `yaml:"correlation"`
	Graph       GraphConfig      `yaml:"graph"`
	Alerts      AlertsConfig     `yaml:"alerts"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures collection and ranking intervals.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
	RankInterval    string `yaml:"rank_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// ParseRankInterval returns the rank interval as time.Duration.
func (s ScheduleConfig) ParseRankInterval() time.Duration {
	d, err := time.ParseDuration(s.RankInterval)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// YouTubeConfig for the YouTube collector.
type YouTubeConfig struct {
	Enabled           bool     `yaml:"enabled"`
	APIKey            string   `yaml:"api_key"`
	BaseURL           string   `yaml:"base_url"`
	Regions           []string `yaml:"regions"`
	Categories        []string `yaml:"categories"`
	MaxResults        int      `yaml:"max_results"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	CountUploads      bool     `yaml:"count_uploads"`
	FeedURL           string   `yaml:"feed_url"`
}

// ScoringConfig configures the hot score.
type ScoringConfig struct {
	Weights         hot.Weights        `yaml:"weights"`
	Hot             hot.Params         `yaml:"hot"`
	CategoryWeights map[string]float64 `yaml:"category_weights"`
	// Workers bounds scoring concurrency; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// FilterConfig extends the corporate filter's built-in rule tables.
type FilterConfig struct {
	Threshold  int      `yaml:"threshold"`
	Critical   []string `yaml:"critical"`
	Contextual []string `yaml:"contextual"`
	Shield     []string `yaml:"shield"`
	Whitelist  []string `yaml:"whitelist"`
}

// Rules builds the classifier rule table.
func (f FilterConfig) Rules() curate.Rules {
	r := curate.DefaultRules().Extend(f.Critical, f.Contextual, f.Shield, f.Whitelist)
	if f.Threshold > 0 {
		r.Threshold = f.Threshold
	}
	return r
}

// GraphConfig configures the layout.
type GraphConfig struct {
	Params graph.Params `yaml:",inline"`
	Ticks  int          `yaml:"ticks"`
	Seed   uint64       `yaml:"seed"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	// MinScore is the hot score at or above which a creator is announced.
	MinScore int           `yaml:"min_score"`
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
	Webhook  WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	categoryWeights := map[string]float64{
		"entertainment": 1.0,
		"gaming":        0.9,
		"education":     1.1,
		"tech":          1.2,
		"music":         1.0,
		"lifestyle":     1.0,
		"economy":       1.3,
	}
	return &Config{
		Database: DatabaseConfig{Path: "./playaura.db"},
		Schedule: ScheduleConfig{
			CollectInterval: "6h",
			RankInterval:    "30m",
		},
		YouTube: YouTubeConfig{
			Regions:           []string{"US", "KR", "JP", "IN", "BR", "ID", "MX"},
			MaxResults:        25,
			RequestsPerSecond: 5,
			CountUploads:      true,
		},
		Scoring: ScoringConfig{
			Weights:         hot.DefaultWeights,
			Hot:             hot.DefaultParams(),
			CategoryWeights: categoryWeights,
		},
		Filter:      FilterConfig{Threshold: curate.DefaultThreshold},
		Correlation: correlate.DefaultConfig(),
		Graph:       GraphConfig{Params: graph.DefaultParams(), Ticks: 300},
		Alerts:      AlertsConfig{MinScore: 90},
		Server:      ServerConfig{Port: 8080},
		Log:         LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	w := c.Scoring.Weights
	for name, v := range map[string]float64{"subs": w.A, "views": w.B, "growth": w.C, "uploads": w.D} {
		if v < 0 {
			return errors.Newf("scoring.weights.%s must not be negative, got %v", name, v)
		}
	}
	if w.Sum() == 0 {
		return errors.New("scoring.weights must not all be zero")
	}
	for cat, v := range c.Scoring.CategoryWeights {
		if v <= 0 {
			return errors.Newf("scoring.category_weights.%s must be positive, got %v", cat, v)
		}
	}
	if c.Filter.Threshold < 0 {
		return errors.Newf("filter.threshold must not be negative, got %d", c.Filter.Threshold)
	}
	if c.Alerts.MinScore < 0 || c.Alerts.MinScore > 100 {
		return errors.Newf("alerts.min_score must be within 0-100, got %d", c.Alerts.MinScore)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLAYAURA_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
		cfg.YouTube.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("PLAYAURA_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Webhook.URL = v
		cfg.Alerts.Webhook.Enabled = true
	}
	if v := os.Getenv("PLAYAURA_WEBHOOK_SECRET"); v != "" {
		cfg.Alerts.Webhook.Secret = v
	}
	if v := os.Getenv("PLAYAURA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/curate"
	"github.com/elonfeng/playaura/pkg/hot"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, hot.DefaultWeights, cfg.Scoring.Weights)
	assert.Equal(t, 1.8, cfg.Scoring.Hot.Gravity)
	assert.Equal(t, 4.0, cfg.Scoring.Hot.Recenter)
	assert.Equal(t, 1.3, cfg.Scoring.CategoryWeights["economy"])
	assert.Equal(t, 60, cfg.Filter.Threshold)
	assert.Equal(t, 500, cfg.Correlation.MaxCreators)
	assert.Equal(t, 50, cfg.Graph.Params.MaxNodes)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.ParseCollectInterval())
	assert.Equal(t, 30*time.Minute, cfg.Schedule.ParseRankInterval())
	assert.Len(t, cfg.YouTube.Regions, 7)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playaura.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/other.db
schedule:
  collect_interval: 2h
  rank_interval: nonsense
scoring:
  weights: {subs: 1, views: 1, growth: 0, uploads: 0}
  hot:
    gravity: 1.5
  category_weights:
    gaming: 1.4
filter:
  threshold: 45
  critical: ["holdings"]
graph:
  max_nodes: 20
  ticks: 50
alerts:
  min_score: 80
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Hour, cfg.Schedule.ParseCollectInterval())
	assert.Equal(t, 30*time.Minute, cfg.Schedule.ParseRankInterval())
	assert.Equal(t, hot.Weights{A: 1, B: 1}, cfg.Scoring.Weights)
	assert.Equal(t, 1.5, cfg.Scoring.Hot.Gravity)
	assert.Equal(t, 4.0, cfg.Scoring.Hot.Recenter, "unset keys keep defaults")
	assert.Equal(t, 1.4, cfg.Scoring.CategoryWeights["gaming"])
	assert.Equal(t, 1.2, cfg.Scoring.CategoryWeights["tech"])
	assert.Equal(t, 20, cfg.Graph.Params.MaxNodes)
	assert.Equal(t, 180.0, cfg.Graph.Params.MaxSize)
	assert.Equal(t, 50, cfg.Graph.Ticks)
	assert.Equal(t, 80, cfg.Alerts.MinScore)

	rules := cfg.Filter.Rules()
	assert.Equal(t, 45, rules.Threshold)
	c := curate.NewClassifier(rules)
	assert.Equal(t, 30, c.Evaluate(creator.Creator{Name: "Mellow Holdings"}).Score)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLAYAURA_DB_PATH", "/data/env.db")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")
	t.Setenv("PLAYAURA_WEBHOOK_URL", "https://hooks.example.test")
	t.Setenv("PLAYAURA_WEBHOOK_SECRET", "s3cret")
	t.Setenv("PLAYAURA_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/env.db", cfg.Database.Path)
	assert.True(t, cfg.YouTube.Enabled)
	assert.Equal(t, "yt-key", cfg.YouTube.APIKey)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.False(t, cfg.Alerts.Discord.Enabled)
	assert.True(t, cfg.Alerts.Webhook.Enabled)
	assert.Equal(t, "s3cret", cfg.Alerts.Webhook.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scoring: [nope"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative weight", func(c *Config) { c.Scoring.Weights.B = -1 }, "scoring.weights.views"},
		{"zero weights", func(c *Config) { c.Scoring.Weights = hot.Weights{} }, "must not all be zero"},
		{"category weight", func(c *Config) { c.Scoring.CategoryWeights["tech"] = 0 }, "category_weights.tech"},
		{"alert score", func(c *Config) { c.Alerts.MinScore = 101 }, "alerts.min_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-apartment-scout/internal/filter"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATABASE_URL", "GROQ_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token-from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
criteria:
  budget: {min: 5000, max: 9000}
  rooms: {min: 2.5, max: 3.5}
  locations: [florentin, פלורנטין, neve_tzedek]
  listing_type: any
  bonus_features:
    rooftop: [גג, roof]
    storage: [מחסן]
parsing:
  use_ai_fallback: true
  ai_provider: openai
  ai_timeout: 30s
dedup:
  window_days: 14
scraper:
  interval: 5m
  sources: [facebook, yad2]
  max_post_age_days: 3
facebook:
  groups:
    - name: Florentin rentals
      url: https://www.facebook.com/groups/12345
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Range{Min: 5000, Max: 9000}, cfg.Criteria.Budget)
	assert.Equal(t, 2.5, cfg.Criteria.Rooms.Min)
	assert.Equal(t, "any", cfg.Criteria.ListingType)
	assert.Len(t, cfg.Criteria.BonusFeatures, 2)
	assert.True(t, cfg.Parsing.UseAIFallback)
	assert.Equal(t, 30*time.Second, cfg.Parsing.AITimeout)
	assert.Equal(t, "sk-test", cfg.Parsing.AIKey)
	assert.Equal(t, 0.6, cfg.Parsing.RegexConfidenceThreshold)
	assert.Equal(t, 14, cfg.Dedup.WindowDays)
	assert.Equal(t, 85, cfg.Dedup.SimilarityThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Scraper.Interval)
	assert.Equal(t, []string{"facebook", "yad2"}, cfg.Scraper.Sources)
	assert.Equal(t, "token-from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	assert.NoError(t, cfg.RequireTelegram())

	criteria := cfg.FilterCriteria()
	assert.Equal(t, filter.AnyListing, criteria.ListingType)
	assert.Equal(t, 1.2, criteria.BonusScore)

	vocab := cfg.BonusVocabulary()
	require.Len(t, vocab, 2)
	assert.Equal(t, "rooftop", vocab[0].Tag)

	assert.Equal(t, cfg.Criteria.Budget, cfg.Yad2Price())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Range{Min: 4000, Max: 8000}, cfg.Criteria.Budget)
	assert.Equal(t, "whole_apartment", cfg.Criteria.ListingType)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 3*time.Minute, cfg.Scraper.Interval)
	assert.Contains(t, cfg.Criteria.BonusFeatures, "rooftop")
	assert.ErrorIs(t, cfg.RequireTelegram(), ErrInvalid)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		message string
	}{
		{
			name:    "Budget inverted",
			body:    "criteria:\n  budget: {min: 9000, max: 4000}\n",
			message: "criteria.budget.min",
		},
		{
			name:    "Unknown listing type",
			body:    "criteria:\n  listing_type: studio\n",
			message: "criteria.listing_type",
		},
		{
			name:    "Threshold out of range",
			body:    "parsing:\n  regex_confidence_threshold: 1.5\n",
			message: "regex_confidence_threshold",
		},
		{
			name:    "Similarity out of range",
			body:    "dedup:\n  similarity_threshold: 150\n",
			message: "similarity_threshold",
		},
		{
			name:    "Postgres without url",
			body:    "storage:\n  driver: postgres\n",
			message: "database_url",
		},
		{
			name:    "Unknown source",
			body:    "scraper:\n  sources: [craigslist]\n",
			message: "unknown source",
		},
		{
			name:    "Malformed YAML",
			body:    "criteria: [unclosed\n",
			message: "parse",
		},
		{
			name:    "Bad chat id",
			body:    "",
			env:     map[string]string{"TELEGRAM_CHAT_ID": "not-a-number"},
			message: "TELEGRAM_CHAT_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCheckWarnings(t *testing.T) {
	cfg := Default()
	cfg.Parsing.UseAIFallback = true
	res := cfg.Check()
	assert.True(t, res.OK())
	assert.NotEmpty(t, res.Warnings)
}

func TestLoadExampleConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"facebook", "yad2"}, cfg.Scraper.Sources)
	assert.Len(t, cfg.Facebook.Groups, 2)
	assert.Equal(t, 2*time.Minute, cfg.Parsing.AITimeout)
	assert.Len(t, cfg.BonusVocabulary(), 5)
	assert.True(t, cfg.Check().OK())
}

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-apartment-scout/internal/config"
	"go-apartment-scout/internal/models"
)

func TestNewParserWithoutKey(t *testing.T) {
	cfg := config.Default()
	cfg.Parsing.UseAIFallback = true
	cfg.Parsing.AIKey = ""

	p, err := NewParser(cfg)
	require.NoError(t, err)
	parsed := p.Parse(context.Background(), "3 חדרים בפלורנטין")
	assert.Equal(t, models.ParsedByRules, parsed.ParsedBy)
}

func TestNewParserUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Parsing.UseAIFallback = true
	cfg.Parsing.AIProvider = "bard"
	cfg.Parsing.AIKey = "k"

	_, err := NewParser(cfg)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Criteria.Locations = []string{"florentin"}
	store := newMemStore()

	proc, err := New(cfg, store, store, nil)
	require.NoError(t, err)

	outcome, err := proc.Process(context.Background(), post("1", matching))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
}

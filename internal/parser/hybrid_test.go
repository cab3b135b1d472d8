package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-apartment-scout/internal/models"
)

type fakeAI struct {
	result *models.AIParseResult
	err    error
	calls  int
}

func (f *fakeAI) ParseListing(ctx context.Context, text string) (*models.AIParseResult, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	return f.result, f.err
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestMergeResults(t *testing.T) {
	t.Run("Rules only", func(t *testing.T) {
		rule := models.RegexParseResult{
			Price:       intPtr(5000),
			Location:    strPtr("florentin"),
			Rooms:       floatPtr(3),
			IsRoommates: boolPtr(false),
			Confidence:  0.9,
		}
		merged := MergeResults(rule, nil)
		assert.Equal(t, 5000, *merged.Price)
		assert.Equal(t, "florentin", *merged.Location)
		assert.False(t, *merged.IsRoommates)
		assert.Equal(t, models.ParsedByRules, merged.ParsedBy)
		assert.Equal(t, 0.9, merged.Confidence)
		assert.Nil(t, merged.Summary)
	})

	t.Run("Model fills gaps when rules are weak", func(t *testing.T) {
		rule := models.RegexParseResult{Price: intPtr(5000), Confidence: 0.4}
		model := &models.AIParseResult{
			Price:       intPtr(4800),
			Location:    strPtr("neve_tzedek"),
			Rooms:       floatPtr(2.5),
			IsRoommates: boolPtr(false),
			Summary:     strPtr("Nice apartment"),
			Confidence:  0.85,
		}
		merged := MergeResults(rule, model)
		assert.Equal(t, 5000, *merged.Price)
		assert.Equal(t, "neve_tzedek", *merged.Location)
		assert.Equal(t, 2.5, *merged.Rooms)
		assert.False(t, *merged.IsRoommates)
		assert.Equal(t, "Nice apartment", *merged.Summary)
		assert.Equal(t, models.ParsedByModel, merged.ParsedBy)
		assert.Equal(t, 0.85, merged.Confidence)
	})

	t.Run("Rule values win", func(t *testing.T) {
		rule := models.RegexParseResult{
			Price:      intPtr(6000),
			Location:   strPtr("rothschild"),
			Rooms:      floatPtr(3),
			Confidence: 0.8,
		}
		model := &models.AIParseResult{
			Price:      intPtr(5500),
			Location:   strPtr("florentin"),
			Rooms:      floatPtr(2.5),
			Confidence: 0.85,
		}
		merged := MergeResults(rule, model)
		assert.Equal(t, 6000, *merged.Price)
		assert.Equal(t, "rothschild", *merged.Location)
		assert.Equal(t, 3.0, *merged.Rooms)
		assert.Equal(t, models.ParsedByHybrid, merged.ParsedBy)
		assert.Equal(t, 0.85, merged.Confidence)
	})

	t.Run("Hybrid keeps higher rule confidence", func(t *testing.T) {
		merged := MergeResults(models.RegexParseResult{Confidence: 0.9}, &models.AIParseResult{Confidence: 0.7})
		assert.Equal(t, 0.9, merged.Confidence)
		assert.Equal(t, models.ParsedByHybrid, merged.ParsedBy)
	})

	t.Run("Bonus features union", func(t *testing.T) {
		rule := models.RegexParseResult{BonusFeatures: []string{"rooftop", "balcony"}, Confidence: 0.5}
		model := &models.AIParseResult{BonusFeatures: []string{"Balcony", "penthouse"}, Confidence: 0.8}
		merged := MergeResults(rule, model)
		assert.Equal(t, []string{"balcony", "penthouse", "rooftop"}, merged.BonusFeatures)
	})

	t.Run("Empty model strings are ignored", func(t *testing.T) {
		merged := MergeResults(models.RegexParseResult{Confidence: 0.2}, &models.AIParseResult{
			Location:    strPtr(""),
			ContactInfo: strPtr(""),
			Confidence:  0.7,
		})
		assert.Nil(t, merged.Location)
		assert.Nil(t, merged.ContactInfo)
	})
}

func TestParserParse(t *testing.T) {
	weakText := "דירה יפה, פרטים בפרטי"

	t.Run("Fallback disabled", func(t *testing.T) {
		fake := &fakeAI{result: &models.AIParseResult{Price: intPtr(5000), Confidence: 0.8}}
		p := NewParser(Options{AI: fake, UseAI: false, Threshold: 0.6})
		got := p.Parse(context.Background(), weakText)
		assert.Equal(t, 0, fake.calls)
		assert.Nil(t, got.Price)
		assert.Equal(t, models.ParsedByRules, got.ParsedBy)
	})

	t.Run("Fallback on low confidence", func(t *testing.T) {
		fake := &fakeAI{result: &models.AIParseResult{
			Price:      intPtr(5000),
			Location:   strPtr("florentin"),
			Confidence: 0.85,
		}}
		p := NewParser(Options{AI: fake, UseAI: true, Threshold: 0.6, Timeout: time.Second})
		got := p.Parse(context.Background(), weakText)
		assert.Equal(t, 1, fake.calls)
		require.NotNil(t, got.Price)
		assert.Equal(t, 5000, *got.Price)
		assert.Equal(t, models.ParsedByModel, got.ParsedBy)
		assert.True(t, got.HasMinimumInfo())
	})

	t.Run("Confident rules skip the model", func(t *testing.T) {
		fake := &fakeAI{}
		p := NewParser(Options{AI: fake, UseAI: true, Threshold: 0.6})
		got := p.Parse(context.Background(), hebrewListing)
		assert.Equal(t, 0, fake.calls)
		assert.Equal(t, models.ParsedByRules, got.ParsedBy)
		assert.Equal(t, 6500, *got.Price)
	})

	t.Run("Model error keeps rule result", func(t *testing.T) {
		fake := &fakeAI{err: errors.New("rate limited")}
		p := NewParser(Options{AI: fake, UseAI: true, Threshold: 0.6})
		got := p.Parse(context.Background(), "5000₪")
		assert.Equal(t, 1, fake.calls)
		assert.Equal(t, 5000, *got.Price)
		assert.Equal(t, models.ParsedByRules, got.ParsedBy)
	})

	t.Run("Nil client", func(t *testing.T) {
		p := NewParser(Options{UseAI: true, Threshold: 0.6})
		got := p.Parse(context.Background(), weakText)
		assert.Equal(t, models.ParsedByRules, got.ParsedBy)
	})
}

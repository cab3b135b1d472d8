package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-apartment-scout/internal/models"
)

func testCriteria() Criteria {
	return Criteria{
		BudgetMin:   4000,
		BudgetMax:   8000,
		RoomsMin:    2,
		RoomsMax:    4,
		Locations:   []string{"florentin", "פלורנטין", "rothschild", "neve_tzedek", "lev_hair"},
		ListingType: WholeApartment,
		BonusScore:  DefaultBonusScore,
	}
}

func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestMatchesCriteria(t *testing.T) {
	tests := []struct {
		name          string
		listing       models.ParsedListing
		criteria      func(c *Criteria)
		expected      bool
		expectedScore float64
		reason        string
	}{
		{
			name: "Perfect match",
			listing: models.ParsedListing{
				Price:       intPtr(6000),
				Rooms:       floatPtr(3),
				Location:    strPtr("florentin"),
				IsRoommates: boolPtr(false),
			},
			expected:      true,
			expectedScore: 1.0,
			reason:        "Price 6000 within budget",
		},
		{
			name: "Roommates when looking for whole apartment",
			listing: models.ParsedListing{
				Price:       intPtr(6000),
				Rooms:       floatPtr(3),
				Location:    strPtr("florentin"),
				IsRoommates: boolPtr(true),
			},
			expected:      false,
			expectedScore: 1.0,
			reason:        "Looking for whole apartment, but this is roommates",
		},
		{
			name: "Whole apartment when looking for roommates",
			listing: models.ParsedListing{
				IsRoommates: boolPtr(false),
			},
			criteria:      func(c *Criteria) { c.ListingType = Roommates },
			expected:      false,
			expectedScore: (0.5 + 0.5 + 0.3) / 3,
			reason:        "Looking for roommates, but this is whole apartment",
		},
		{
			name:          "Any listing type",
			listing:       models.ParsedListing{IsRoommates: boolPtr(true)},
			criteria:      func(c *Criteria) { c.ListingType = AnyListing },
			expected:      true,
			expectedScore: (0.5 + 0.5 + 0.3 + 1.0) / 4,
			reason:        "Listing type matches preference",
		},
		{
			name:          "Price below minimum",
			listing:       models.ParsedListing{Price: intPtr(3000)},
			expected:      false,
			expectedScore: (0.5 + 0.3 + 0.5) / 3,
			reason:        "Price 3000 below minimum 4000",
		},
		{
			name:          "Price above maximum",
			listing:       models.ParsedListing{Price: intPtr(9000)},
			expected:      false,
			expectedScore: (0.5 + 0.3 + 0.5) / 3,
			reason:        "Price 9000 above maximum 8000",
		},
		{
			name:          "Price at budget edge",
			listing:       models.ParsedListing{Price: intPtr(4000)},
			expected:      true,
			expectedScore: (0.5 + 0.5 + 0.3 + 0.5) / 4,
			reason:        "Price 4000 within budget",
		},
		{
			name:          "Fixed budget",
			listing:       models.ParsedListing{Price: intPtr(5000)},
			criteria:      func(c *Criteria) { c.BudgetMin, c.BudgetMax = 5000, 5000 },
			expected:      true,
			expectedScore: (1.0 + 0.5 + 0.3 + 0.5) / 4,
			reason:        "Price 5000 within budget",
		},
		{
			name:          "Too many rooms",
			listing:       models.ParsedListing{Rooms: floatPtr(5.5)},
			expected:      false,
			expectedScore: (0.5 + 0.3 + 0.5) / 3,
			reason:        "Rooms 5.5 above maximum 4",
		},
		{
			name:          "Nothing extracted",
			listing:       models.ParsedListing{},
			expected:      true,
			expectedScore: (0.5 + 0.5 + 0.3 + 0.5) / 4,
			reason:        "Location not found (might still be relevant)",
		},
		{
			name:          "Street location matches target",
			listing:       models.ParsedListing{Location: strPtr("street:Rothschild")},
			expected:      true,
			expectedScore: (0.5 + 0.5 + 1.0 + 0.5) / 4,
			reason:        "Location 'street:Rothschild' matches target 'rothschild'",
		},
		{
			name:          "Location outside targets",
			listing:       models.ParsedListing{Location: strPtr("ramat_gan")},
			expected:      false,
			expectedScore: 0.5,
			reason:        "Location 'ramat_gan' not in target list",
		},
		{
			name:          "Empty target list matches nothing",
			listing:       models.ParsedListing{Location: strPtr("florentin")},
			criteria:      func(c *Criteria) { c.Locations = []string{"", "  "} },
			expected:      false,
			expectedScore: 0.5,
			reason:        "Location 'florentin' not in target list",
		},
		{
			name: "Bonus features boost the score",
			listing: models.ParsedListing{
				Price:         intPtr(6000),
				Rooms:         floatPtr(3),
				Location:      strPtr("florentin"),
				IsRoommates:   boolPtr(false),
				BonusFeatures: []string{"balcony", "rooftop"},
			},
			expected:      true,
			expectedScore: (4.0 + 1.2) / 5,
			reason:        "✨ Bonus features found: balcony, rooftop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCriteria()
			if tt.criteria != nil {
				tt.criteria(&c)
			}
			result := MatchesCriteria(tt.listing, c)
			assert.Equal(t, tt.expected, result.Matches)
			assert.InDelta(t, tt.expectedScore, result.Score, 1e-9)
			assert.Contains(t, result.Reasons, tt.reason)
			assert.Len(t, result.Reasons, 4+boolToInt(len(tt.listing.BonusFeatures) > 0))
		})
	}
}

func TestMatchesCriteriaBonus(t *testing.T) {
	result := MatchesCriteria(models.ParsedListing{BonusFeatures: []string{"penthouse"}}, testCriteria())
	assert.True(t, result.HasBonus)
	assert.Equal(t, []string{"penthouse"}, result.BonusFeatures)

	c := testCriteria()
	c.BonusScore = 2.0
	result = MatchesCriteria(models.ParsedListing{BonusFeatures: []string{"penthouse"}}, c)
	assert.InDelta(t, (0.5+0.5+0.3+0.5+2.0)/5, result.Score, 1e-9)

	result = MatchesCriteria(models.ParsedListing{}, c)
	assert.False(t, result.HasBonus)
	assert.NotNil(t, result.BonusFeatures)
}

func TestPriceScore(t *testing.T) {
	assert.InDelta(t, 1.0, priceScore(6000, 4000, 8000), 1e-9)
	assert.InDelta(t, 0.5, priceScore(4000, 4000, 8000), 1e-9)
	assert.InDelta(t, 0.5, priceScore(8000, 4000, 8000), 1e-9)
	assert.InDelta(t, 0.75, priceScore(5000, 4000, 8000), 1e-9)
	assert.Equal(t, 1.0, priceScore(5000, 5000, 5000))
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "florentin", NormalizeLocation("florentin"))
	assert.Equal(t, "ויטל", NormalizeLocation("street:ויטל"))
	assert.Equal(t, "dizengoff", NormalizeLocation("street: Dizengoff "))
	assert.Equal(t, "", NormalizeLocation(""))
}

func TestShouldNotify(t *testing.T) {
	tests := []struct {
		name     string
		listing  models.ParsedListing
		result   models.FilterResult
		expected bool
	}{
		{
			name:     "Full match",
			listing:  models.ParsedListing{Price: intPtr(6000)},
			result:   models.FilterResult{Matches: true, Score: 0.2},
			expected: true,
		},
		{
			name:     "High score and missing info",
			listing:  models.ParsedListing{},
			result:   models.FilterResult{Matches: false, Score: 0.75},
			expected: true,
		},
		{
			name: "High score with complete data",
			listing: models.ParsedListing{
				Price:    intPtr(6000),
				Location: strPtr("florentin"),
				Rooms:    floatPtr(3),
			},
			result:   models.FilterResult{Matches: false, Score: 0.75},
			expected: false,
		},
		{
			name:     "Location and rooms count as minimum info",
			listing:  models.ParsedListing{Location: strPtr("florentin"), Rooms: floatPtr(3)},
			result:   models.FilterResult{Matches: false, Score: 0.9},
			expected: false,
		},
		{
			name:     "Low score and missing info",
			listing:  models.ParsedListing{Location: strPtr("yaffo")},
			result:   models.FilterResult{Matches: false, Score: 0.5},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldNotify(tt.listing, tt.result, DefaultPartialMinScore))
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package filter

import (
	"fmt"
	"strings"

	"go-apartment-scout/internal/models"
)

type ListingType string

const (
	WholeApartment ListingType = "whole_apartment"
	Roommates      ListingType = "roommates"
	AnyListing     ListingType = "any"
)

const (
	DefaultBonusScore      = 1.2
	DefaultPartialMinScore = 0.7

	missingPriceScore    = 0.5
	missingRoomsScore    = 0.5
	missingLocationScore = 0.3
	missingTypeScore     = 0.5
)

// Criteria is what the user is looking for.
type Criteria struct {
	BudgetMin   int
	BudgetMax   int
	RoomsMin    float64
	RoomsMax    float64
	Locations   []string
	ListingType ListingType
	// BonusScore is the score component added when amenities are present.
	BonusScore float64
}

// NormalizeLocation strips a "street:" prefix, lower-cases and trims.
func NormalizeLocation(location string) string {
	location = strings.TrimPrefix(location, "street:")
	return strings.ToLower(strings.TrimSpace(location))
}

// MatchesCriteria checks each dimension independently. A dimension that
// disqualifies adds no score component; a missing value adds a neutral one.
// Score is the mean of the components.
func MatchesCriteria(listing models.ParsedListing, c Criteria) models.FilterResult {
	result := models.FilterResult{
		Matches:       true,
		Reasons:       []string{},
		BonusFeatures: []string{},
	}
	var components []float64

	// Budget
	if listing.Price != nil {
		price := *listing.Price
		switch {
		case price < c.BudgetMin:
			result.Matches = false
			result.Reasons = append(result.Reasons, fmt.Sprintf("Price %d below minimum %d", price, c.BudgetMin))
		case price > c.BudgetMax:
			result.Matches = false
			result.Reasons = append(result.Reasons, fmt.Sprintf("Price %d above maximum %d", price, c.BudgetMax))
		default:
			result.Reasons = append(result.Reasons, fmt.Sprintf("Price %d within budget", price))
			components = append(components, priceScore(price, c.BudgetMin, c.BudgetMax))
		}
	} else {
		result.Reasons = append(result.Reasons, "Price not found (might still be relevant)")
		components = append(components, missingPriceScore)
	}

	// Rooms
	if listing.Rooms != nil {
		rooms := *listing.Rooms
		switch {
		case rooms < c.RoomsMin:
			result.Matches = false
			result.Reasons = append(result.Reasons, fmt.Sprintf("Rooms %g below minimum %g", rooms, c.RoomsMin))
		case rooms > c.RoomsMax:
			result.Matches = false
			result.Reasons = append(result.Reasons, fmt.Sprintf("Rooms %g above maximum %g", rooms, c.RoomsMax))
		default:
			result.Reasons = append(result.Reasons, fmt.Sprintf("Rooms %g within range", rooms))
			components = append(components, 1.0)
		}
	} else {
		result.Reasons = append(result.Reasons, "Room count not found")
		components = append(components, missingRoomsScore)
	}

	// Location
	if listing.Location != nil && *listing.Location != "" {
		loc := NormalizeLocation(*listing.Location)
		target, ok := matchLocation(loc, c.Locations)
		if ok {
			result.Reasons = append(result.Reasons, fmt.Sprintf("Location '%s' matches target '%s'", *listing.Location, target))
			components = append(components, 1.0)
		} else {
			result.Matches = false
			result.Reasons = append(result.Reasons, fmt.Sprintf("Location '%s' not in target list", *listing.Location))
		}
	} else {
		result.Reasons = append(result.Reasons, "Location not found (might still be relevant)")
		components = append(components, missingLocationScore)
	}

	// Listing type
	if listing.IsRoommates != nil {
		shared := *listing.IsRoommates
		switch {
		case c.ListingType == WholeApartment && shared:
			result.Matches = false
			result.Reasons = append(result.Reasons, "Looking for whole apartment, but this is roommates")
		case c.ListingType == Roommates && !shared:
			result.Matches = false
			result.Reasons = append(result.Reasons, "Looking for roommates, but this is whole apartment")
		default:
			result.Reasons = append(result.Reasons, "Listing type matches preference")
			components = append(components, 1.0)
		}
	} else {
		result.Reasons = append(result.Reasons, "Listing type not determined")
		components = append(components, missingTypeScore)
	}

	// Bonus features never disqualify
	if len(listing.BonusFeatures) > 0 {
		bonus := c.BonusScore
		if bonus <= 0 {
			bonus = DefaultBonusScore
		}
		result.BonusFeatures = append(result.BonusFeatures, listing.BonusFeatures...)
		result.HasBonus = true
		result.Reasons = append(result.Reasons, "✨ Bonus features found: "+strings.Join(listing.BonusFeatures, ", "))
		components = append(components, bonus)
	}

	if len(components) > 0 {
		sum := 0.0
		for _, s := range components {
			sum += s
		}
		result.Score = sum / float64(len(components))
	}
	return result
}

// priceScore peaks at the middle of the budget.
func priceScore(price, lo, hi int) float64 {
	if hi == lo {
		return 1.0
	}
	pos := float64(price-lo) / float64(hi-lo)
	d := pos - 0.5
	if d < 0 {
		d = -d
	}
	return 1.0 - d
}

// matchLocation is a substring test in either direction. Blank targets are
// skipped.
func matchLocation(loc string, targets []string) (string, bool) {
	if loc == "" {
		return "", false
	}
	for _, target := range targets {
		t := NormalizeLocation(target)
		if t == "" {
			continue
		}
		if strings.Contains(loc, t) || strings.Contains(t, loc) {
			return target, true
		}
	}
	return "", false
}

// ShouldNotify passes full matches, and partial matches scoring at least
// minScore when the miss may come from missing data.
func ShouldNotify(listing models.ParsedListing, result models.FilterResult, minScore float64) bool {
	if result.Matches {
		return true
	}
	return result.Score >= minScore && !listing.HasMinimumInfo()
}

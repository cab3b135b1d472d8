package models

import "time"

// Provenance records which extractor supplied the final parse.
type Provenance string

const (
	ParsedByRules  Provenance = "rule-based"
	ParsedByModel  Provenance = "model-based"
	ParsedByHybrid Provenance = "hybrid"
)

// RawPost is one scraped post before any parsing.
type RawPost struct {
	PostID     string     `json:"post_id"`
	Content    string     `json:"content"`
	AuthorName *string    `json:"author_name,omitempty"`
	PostURL    string     `json:"post_url"`
	Images     []string   `json:"images,omitempty"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
	GroupName  string     `json:"group_name"`
	GroupURL   string     `json:"group_url"`
}

// RegexParseResult is the output of the rule-based extractor.
type RegexParseResult struct {
	Price         *int     `json:"price,omitempty"`
	Location      *string  `json:"location,omitempty"`
	Rooms         *float64 `json:"rooms,omitempty"`
	IsRoommates   *bool    `json:"is_roommates,omitempty"`
	ContactInfo   *string  `json:"contact_info,omitempty"`
	BonusFeatures []string `json:"bonus_features"`
	MatchedFields []string `json:"matched_fields"`
	Confidence    float64  `json:"confidence"`
}

// AIParseResult is the output of the model-based extractor.
type AIParseResult struct {
	Price         *int     `json:"price"`
	Location      *string  `json:"location"`
	Rooms         *float64 `json:"rooms"`
	IsRoommates   *bool    `json:"is_roommates"`
	ContactInfo   *string  `json:"contact_info"`
	BonusFeatures []string `json:"bonus_features"`
	Summary       *string  `json:"summary"`
	Confidence    float64  `json:"-"`
}

// ParsedListing is the merged parse of a single post. It is built once by
// parser.MergeResults and not modified afterwards.
type ParsedListing struct {
	Price         *int       `json:"price,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Rooms         *float64   `json:"rooms,omitempty"`
	IsRoommates   *bool      `json:"is_roommates,omitempty"`
	ContactInfo   *string    `json:"contact_info,omitempty"`
	BonusFeatures []string   `json:"bonus_features"`
	Summary       *string    `json:"summary,omitempty"`
	Confidence    float64    `json:"confidence"`
	ParsedBy      Provenance `json:"parsed_by"`
}

// HasMinimumInfo reports whether there is a price, or both a location and a
// room count.
func (p ParsedListing) HasMinimumInfo() bool {
	return p.Price != nil || (p.Location != nil && p.Rooms != nil)
}

func (p ParsedListing) HasBonusFeatures() bool {
	return len(p.BonusFeatures) > 0
}

// FilterResult is the outcome of matching a listing against the criteria.
// Reasons holds one entry per evaluated dimension in evaluation order.
type FilterResult struct {
	Matches       bool     `json:"matches"`
	Reasons       []string `json:"reasons"`
	Score         float64  `json:"score"`
	BonusFeatures []string `json:"bonus_features"`
	HasBonus      bool     `json:"has_bonus"`
}

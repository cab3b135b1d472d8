package models

import (
	"time"
)

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// Listing is the persisted record of a processed post. ID is the content
// derived hash produced by dedup.ListingHash.
type Listing struct {
	ID          string     `json:"id"`
	SourceGroup string     `json:"source_group"`
	GroupURL    string     `json:"group_url"`
	PostID      string     `json:"post_id"`
	PostURL     string     `json:"post_url"`
	AuthorName  *string    `json:"author_name,omitempty"`
	RawContent  string     `json:"raw_content"`
	Images      []string   `json:"images,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`

	ParsedPrice     *int       `json:"parsed_price,omitempty"`
	ParsedLocation  *string    `json:"parsed_location,omitempty"`
	ParsedRooms     *float64   `json:"parsed_rooms,omitempty"`
	IsRoommates     *bool      `json:"is_roommates,omitempty"`
	ContactInfo     *string    `json:"contact_info,omitempty"`
	BonusFeatures   []string   `json:"bonus_features,omitempty"`
	ParseConfidence float64    `json:"parse_confidence"`
	ParsedBy        Provenance `json:"parsed_by"`

	MatchesCriteria bool       `json:"matches_criteria"`
	Notified        bool       `json:"notified"`
	NotifiedAt      *time.Time `json:"notified_at,omitempty"`
}

type NotificationLog struct {
	ID           string             `json:"id"`
	ListingID    string             `json:"listing_id"`
	SentAt       time.Time          `json:"sent_at"`
	Status       NotificationStatus `json:"status"`
	ErrorMessage *string            `json:"error_message,omitempty"`
}

// NewListing builds the record for a post from its parse and filter results.
func NewListing(id string, post RawPost, parsed ParsedListing, result FilterResult, scrapedAt time.Time) *Listing {
	l := &Listing{
		ID:              id,
		SourceGroup:     post.GroupName,
		GroupURL:        post.GroupURL,
		PostID:          post.PostID,
		PostURL:         post.PostURL,
		AuthorName:      post.AuthorName,
		RawContent:      post.Content,
		Images:          post.Images,
		PostedAt:        post.PostedAt,
		ScrapedAt:       scrapedAt,
		ParsedPrice:     parsed.Price,
		ParsedLocation:  parsed.Location,
		ParsedRooms:     parsed.Rooms,
		IsRoommates:     parsed.IsRoommates,
		ContactInfo:     parsed.ContactInfo,
		BonusFeatures:   parsed.BonusFeatures,
		ParseConfidence: parsed.Confidence,
		ParsedBy:        parsed.ParsedBy,
		MatchesCriteria: result.Matches,
	}
	return l
}

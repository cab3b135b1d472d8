package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go-apartment-scout/internal/models"
)

// DefaultMaxInputChars bounds the listing text sent to the model.
const DefaultMaxInputChars = 2000

// Client is the interface for AI providers
type Client interface {
	// ParseListing extracts structured fields from raw listing text. A nil
	// result is never returned without an error.
	ParseListing(ctx context.Context, text string) (*models.AIParseResult, error)
}

// New returns the client for provider ("groq" or "openai").
func New(provider, apiKey, model string, maxInputChars int) (Client, error) {
	switch strings.ToLower(provider) {
	case "", "groq":
		return NewGroqClient(apiKey, model, maxInputChars), nil
	case "openai":
		return NewOpenAIClient(apiKey, model, maxInputChars), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt() string {
	return `You are an expert at parsing Hebrew and English apartment rental listings posted in Tel Aviv Facebook groups and on Yad2.

Extract the following information from the listing:
- price: Monthly rent in NIS (Israeli Shekels) as an integer. Look for numbers with ₪, ש"ח, שקל, or context suggesting rent.
- location: The neighborhood or area in Tel Aviv as a lower-case English key. Common areas include: פלורנטין (florentin), נווה צדק (neve_tzedek), כרם התימנים (kerem_hatemanim), לב העיר (lev_hair), רוטשילד (rothschild), דיזנגוף (dizengoff), בזל (basel), צפון הישן (old_north), צפון חדש (new_north), רמת אביב (ramat_aviv)
- rooms: Number of rooms (can be decimal like 2.5 or 3.5)
- is_roommates: true if looking for roommates or renting a single room, false if renting the entire apartment
- contact_info: Phone number if present, digits only
- bonus_features: Array of special features mentioned. Look for: rooftop/גג, balcony/מרפסת, big windows/חלונות גדולים, terrace/טרסה, penthouse/פנטהאוז
- summary: A brief 1-sentence summary in English

Return ONLY a valid JSON object with exactly these fields. Use null for fields you can't determine, and [] for bonus_features if none found. Do NOT wrap the JSON in markdown.

Example output:
{"price": 5500, "location": "florentin", "rooms": 2.5, "is_roommates": false, "contact_info": "0501234567", "bonus_features": ["balcony", "rooftop"], "summary": "2.5 room apartment in Florentin for 5500 NIS with rooftop access"}`
}

// buildUserPrompt wraps the listing text, truncated to maxChars runes.
func buildUserPrompt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	if r := []rune(text); len(r) > maxChars {
		text = string(r[:maxChars])
	}
	return "Parse this listing:\n\n" + text
}

type listingPayload struct {
	Price         *float64 `json:"price"`
	Location      *string  `json:"location"`
	Rooms         *float64 `json:"rooms"`
	IsRoommates   *bool    `json:"is_roommates"`
	ContactInfo   *string  `json:"contact_info"`
	BonusFeatures []string `json:"bonus_features"`
	Summary       *string  `json:"summary"`
}

// decodeListing turns the model's reply into a result and scores it: 0.7
// plus 0.075 for each of price, location, rooms and listing type found.
func decodeListing(content string) (*models.AIParseResult, error) {
	cleaned := cleanMarkdownJSON(content)

	var payload listingPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode listing JSON (raw length: %d): %w", len(cleaned), err)
	}

	result := &models.AIParseResult{
		Location:      nonEmpty(payload.Location),
		Rooms:         payload.Rooms,
		IsRoommates:   payload.IsRoommates,
		ContactInfo:   nonEmpty(payload.ContactInfo),
		BonusFeatures: payload.BonusFeatures,
		Summary:       nonEmpty(payload.Summary),
	}
	if payload.Price != nil {
		price := int(math.Round(*payload.Price))
		result.Price = &price
	}
	if result.BonusFeatures == nil {
		result.BonusFeatures = []string{}
	}

	found := 0
	for _, ok := range []bool{result.Price != nil, result.Location != nil, result.Rooms != nil, result.IsRoommates != nil} {
		if ok {
			found++
		}
	}
	result.Confidence = math.Min(1.0, 0.7+float64(found)*0.075)
	return result, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// cleanMarkdownJSON removes backticks and "json" prefix if the AI model tries to be helpful
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

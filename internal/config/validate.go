package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go-apartment-scout/internal/filter"
)

// ErrInvalid is returned for configuration that fails validation.
var ErrInvalid = errors.New("invalid config")

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var knownSources = map[string]bool{"facebook": true, "yad2": true}

// Check runs every rule and returns the problems found.
func (c *Config) Check() Validation {
	var res Validation

	// criteria sanity
	b := c.Criteria.Budget
	if b.Min <= 0 || b.Max <= 0 {
		res.addErr("criteria.budget min and max must be > 0")
	} else if b.Min > b.Max {
		res.addErr("criteria.budget.min (%d) is above max (%d)", b.Min, b.Max)
	}
	r := c.Criteria.Rooms
	if r.Min < 0 || r.Max <= 0 {
		res.addErr("criteria.rooms max must be > 0 and min must not be negative")
	} else if r.Min > r.Max {
		res.addErr("criteria.rooms.min (%g) is above max (%g)", r.Min, r.Max)
	}
	switch filter.ListingType(c.Criteria.ListingType) {
	case filter.WholeApartment, filter.Roommates, filter.AnyListing:
	default:
		res.addErr("criteria.listing_type must be whole_apartment, roommates or any, got %q", c.Criteria.ListingType)
	}
	if len(c.Criteria.Locations) == 0 {
		res.addWarn("criteria.locations is empty; every listing with a known location will be rejected.")
	}

	// parsing
	p := c.Parsing
	if p.RegexConfidenceThreshold < 0 || p.RegexConfidenceThreshold > 1 {
		res.addErr("parsing.regex_confidence_threshold must be in [0,1], got %g", p.RegexConfidenceThreshold)
	}
	if p.AIProvider != "groq" && p.AIProvider != "openai" {
		res.addErr("parsing.ai_provider must be groq or openai, got %q", p.AIProvider)
	}
	if p.AITimeout <= 0 {
		res.addErr("parsing.ai_timeout must be > 0")
	}
	if p.MaxInputChars <= 0 {
		res.addErr("parsing.max_input_chars must be > 0")
	}
	if p.UseAIFallback && p.AIKey == "" {
		res.addWarn("parsing.use_ai_fallback is on but no API key is set for %s; AI fallback will be skipped.", p.AIProvider)
	}

	// dedup
	if c.Dedup.WindowDays <= 0 {
		res.addErr("dedup.window_days must be > 0")
	}
	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 100 {
		res.addErr("dedup.similarity_threshold must be in (0,100], got %d", c.Dedup.SimilarityThreshold)
	}

	// notify
	if c.Notify.PartialMinScore < 0 {
		res.addErr("notify.partial_min_score must not be negative")
	}
	if c.Notify.BonusScore <= 0 {
		res.addErr("notify.bonus_score must be > 0")
	}
	if c.Notify.MaxPerHour < 0 {
		res.addErr("notify.max_per_hour must not be negative")
	}

	// storage
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			res.addErr("storage.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			res.addErr("storage.database_url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		res.addErr("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver)
	}

	// scraper
	if c.Scraper.Interval <= 0 {
		res.addErr("scraper.interval must be > 0")
	} else if c.Scraper.Interval < time.Minute {
		res.addWarn("scraper.interval is very low (%s) and may get the account rate limited.", c.Scraper.Interval)
	}
	if c.Scraper.MaxPostAgeDays < 0 {
		res.addErr("scraper.max_post_age_days must not be negative")
	}
	if c.Scraper.PostsPerGroup <= 0 {
		res.addErr("scraper.posts_per_group must be > 0")
	}
	if len(c.Scraper.Sources) == 0 {
		res.addErr("scraper.sources must list at least one source")
	}
	for _, src := range c.Scraper.Sources {
		if !knownSources[src] {
			res.addErr("scraper.sources: unknown source %q", src)
		}
		if src == "facebook" && len(c.Facebook.Groups) == 0 {
			res.addWarn("facebook source enabled but facebook.groups is empty.")
		}
		if src == "yad2" {
			if c.Yad2.BaseURL == "" {
				res.addErr("yad2.base_url is required when the yad2 source is enabled")
			}
			if c.Yad2.RequestsPerSecond <= 0 {
				res.addErr("yad2.requests_per_second must be > 0")
			}
		}
	}
	for i, g := range c.Facebook.Groups {
		if strings.TrimSpace(g.URL) == "" {
			res.addErr("facebook.groups[%d] (%s) has no url", i, g.Name)
		}
	}

	return res
}

// Validate logs warnings and returns ErrInvalid listing every error.
func (c *Config) Validate() error {
	res := c.Check()
	for _, w := range res.Warnings {
		log.Printf("⚠️ Config: %s", w)
	}
	if res.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(res.Errors, "; "))
}

// RequireTelegram is checked only by commands that send notifications.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required", ErrInvalid)
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("%w: TELEGRAM_CHAT_ID is required", ErrInvalid)
	}
	return nil
}

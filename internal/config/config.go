// Load envs from .env
// Load YAML config
// Provide default values
// Validate config

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-apartment-scout/internal/filter"
	"go-apartment-scout/internal/parser"
)

const DefaultPath = "configs/config.yaml"

type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type CriteriaConfig struct {
	Budget      Range      `yaml:"budget"`
	Rooms       FloatRange `yaml:"rooms"`
	Locations   []string   `yaml:"locations"`
	ListingType string     `yaml:"listing_type"`
	// tag -> aliases (Hebrew and English)
	BonusFeatures map[string][]string `yaml:"bonus_features"`
}

type ParsingConfig struct {
	UseAIFallback            bool          `yaml:"use_ai_fallback"`
	RegexConfidenceThreshold float64       `yaml:"regex_confidence_threshold"`
	AIProvider               string        `yaml:"ai_provider"`
	AIModel                  string        `yaml:"ai_model"`
	AITimeout                time.Duration `yaml:"ai_timeout"`
	MaxInputChars            int           `yaml:"max_input_chars"`
	// Set from GROQ_API_KEY or OPENAI_API_KEY depending on the provider
	AIKey string `yaml:"-"`
}

type DedupConfig struct {
	WindowDays          int `yaml:"window_days"`
	SimilarityThreshold int `yaml:"similarity_threshold"`
}

type NotifyConfig struct {
	PartialMinScore float64 `yaml:"partial_min_score"`
	BonusScore      float64 `yaml:"bonus_score"`
	MaxPerHour      int     `yaml:"max_per_hour"`
	IncludeImages   bool    `yaml:"include_images"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
}

type ScraperConfig struct {
	Interval       time.Duration `yaml:"interval"`
	Sources        []string      `yaml:"sources"`
	MaxPostAgeDays int           `yaml:"max_post_age_days"`
	PostsPerGroup  int           `yaml:"posts_per_group"`
	CookiesPath    string        `yaml:"cookies_path"`
	Headless       bool          `yaml:"headless"`
	ScreenshotDir  string        `yaml:"screenshot_dir"`
}

type Group struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type FacebookConfig struct {
	Groups []Group `yaml:"groups"`
}

type Yad2Config struct {
	BaseURL           string  `yaml:"base_url"`
	City              int     `yaml:"city"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Zero values fall back to the criteria ranges
	Price Range      `yaml:"price"`
	Rooms FloatRange `yaml:"rooms"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Criteria CriteriaConfig `yaml:"criteria"`
	Parsing  ParsingConfig  `yaml:"parsing"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Notify   NotifyConfig   `yaml:"notify"`
	Storage  StorageConfig  `yaml:"storage"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Facebook FacebookConfig `yaml:"facebook"`
	Yad2     Yad2Config     `yaml:"yad2"`
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Debug    bool           `yaml:"debug"`
}

// Default returns the configuration used for any key the YAML leaves out.
func Default() *Config {
	return &Config{
		Criteria: CriteriaConfig{
			Budget:      Range{Min: 4000, Max: 8000},
			Rooms:       FloatRange{Min: 2, Max: 4},
			ListingType: string(filter.WholeApartment),
		},
		Parsing: ParsingConfig{
			RegexConfidenceThreshold: 0.6,
			AIProvider:               "groq",
			AITimeout:                120 * time.Second,
			MaxInputChars:            2000,
		},
		Dedup: DedupConfig{
			WindowDays:          7,
			SimilarityThreshold: 85,
		},
		Notify: NotifyConfig{
			PartialMinScore: filter.DefaultPartialMinScore,
			BonusScore:      filter.DefaultBonusScore,
			MaxPerHour:      20,
			IncludeImages:   true,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "data/apartments.db",
		},
		Scraper: ScraperConfig{
			Interval:      3 * time.Minute,
			Sources:       []string{"facebook"},
			PostsPerGroup: 20,
			CookiesPath:   ".cookies/facebook.json",
			Headless:      true,
			ScreenshotDir: "screenshots",
		},
		Yad2: Yad2Config{
			BaseURL:           "https://gw.yad2.co.il/feed-search-legacy/realestate/rent",
			City:              5000,
			RequestsPerSecond: 1,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads .env, the YAML file at path and the environment, in that
// order, then validates. A missing YAML file leaves the defaults in place.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		log.Printf("⚠️ Could not read %s, using defaults: %v", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if len(cfg.Criteria.BonusFeatures) == 0 {
		cfg.Criteria.BonusFeatures = defaultBonusFeatures()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Override with env vars
func (c *Config) applyEnv() error {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID: %v", ErrInvalid, err)
		}
		c.Telegram.ChatID = id
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Storage.DatabaseURL = url
	}

	switch c.Parsing.AIProvider {
	case "openai":
		c.Parsing.AIKey = os.Getenv("OPENAI_API_KEY")
	default:
		c.Parsing.AIKey = os.Getenv("GROQ_API_KEY")
	}
	return nil
}

func defaultBonusFeatures() map[string][]string {
	m := make(map[string][]string, len(parser.DefaultBonusVocabulary))
	for _, f := range parser.DefaultBonusVocabulary {
		m[f.Tag] = append([]string(nil), f.Aliases...)
	}
	return m
}

// FilterCriteria converts the criteria section for the matcher.
func (c *Config) FilterCriteria() filter.Criteria {
	return filter.Criteria{
		BudgetMin:   c.Criteria.Budget.Min,
		BudgetMax:   c.Criteria.Budget.Max,
		RoomsMin:    c.Criteria.Rooms.Min,
		RoomsMax:    c.Criteria.Rooms.Max,
		Locations:   c.Criteria.Locations,
		ListingType: filter.ListingType(c.Criteria.ListingType),
		BonusScore:  c.Notify.BonusScore,
	}
}

func (c *Config) BonusVocabulary() parser.BonusVocabulary {
	if len(c.Criteria.BonusFeatures) == 0 {
		return parser.DefaultBonusVocabulary
	}
	return parser.NewBonusVocabulary(c.Criteria.BonusFeatures)
}

// Yad2Price falls back to the criteria budget.
func (c *Config) Yad2Price() Range {
	if c.Yad2.Price.Min == 0 && c.Yad2.Price.Max == 0 {
		return c.Criteria.Budget
	}
	return c.Yad2.Price
}

// Yad2Rooms falls back to the criteria room range.
func (c *Config) Yad2Rooms() FloatRange {
	if c.Yad2.Rooms.Min == 0 && c.Yad2.Rooms.Max == 0 {
		return c.Criteria.Rooms
	}
	return c.Yad2.Rooms
}

package pipeline

import (
	"log"

	"go-apartment-scout/internal/ai"
	"go-apartment-scout/internal/config"
	"go-apartment-scout/internal/dedup"
	"go-apartment-scout/internal/parser"
)

// NewParser builds the hybrid parser from the parsing section. The model
// fallback is turned off when no API key is configured.
func NewParser(cfg *config.Config) (*parser.Parser, error) {
	opts := parser.Options{
		UseAI:     cfg.Parsing.UseAIFallback,
		Threshold: cfg.Parsing.RegexConfidenceThreshold,
		Timeout:   cfg.Parsing.AITimeout,
		Bonus:     cfg.BonusVocabulary(),
	}
	if opts.UseAI {
		if cfg.Parsing.AIKey == "" {
			log.Printf("⚠️ AI fallback enabled but no %s key set, using regex only", cfg.Parsing.AIProvider)
			opts.UseAI = false
		} else {
			client, err := ai.New(cfg.Parsing.AIProvider, cfg.Parsing.AIKey, cfg.Parsing.AIModel, cfg.Parsing.MaxInputChars)
			if err != nil {
				return nil, err
			}
			opts.AI = client
		}
	}
	return parser.NewParser(opts), nil
}

// New wires a processor over store from the loaded config. notifier may be
// nil.
func New(cfg *config.Config, store dedup.Store, w Writer, notifier Notifier) (*Processor, error) {
	p, err := NewParser(cfg)
	if err != nil {
		return nil, err
	}
	engine := dedup.NewEngine(store, dedup.Options{
		WindowDays: cfg.Dedup.WindowDays,
		Threshold:  cfg.Dedup.SimilarityThreshold,
	})
	return NewProcessor(engine, p, w, notifier, Options{
		Criteria:        cfg.FilterCriteria(),
		PartialMinScore: cfg.Notify.PartialMinScore,
		MaxPostAgeDays:  cfg.Scraper.MaxPostAgeDays,
		MaxPerHour:      cfg.Notify.MaxPerHour,
		Debug:           cfg.Debug,
	}), nil
}

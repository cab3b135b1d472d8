package parser

import (
	"context"
	"log"
	"time"

	"go-apartment-scout/internal/ai"
	"go-apartment-scout/internal/models"
)

// weakRuleConfidence is the rule confidence below which a model result takes
// over the final confidence and provenance.
const weakRuleConfidence = 0.5

// MergeResults combines the rule-based result with an optional model result.
// Fields found by the rules are kept; the model only fills fields the rules
// left empty.
func MergeResults(rule models.RegexParseResult, model *models.AIParseResult) models.ParsedListing {
	merged := models.ParsedListing{
		Price:         rule.Price,
		Location:      rule.Location,
		Rooms:         rule.Rooms,
		IsRoommates:   rule.IsRoommates,
		ContactInfo:   rule.ContactInfo,
		BonusFeatures: unionTags(rule.BonusFeatures),
		Confidence:    rule.Confidence,
		ParsedBy:      models.ParsedByRules,
	}
	if model == nil {
		return merged
	}

	if merged.Price == nil && model.Price != nil {
		merged.Price = model.Price
	}
	if merged.Location == nil && model.Location != nil && *model.Location != "" {
		merged.Location = model.Location
	}
	if merged.Rooms == nil && model.Rooms != nil {
		merged.Rooms = model.Rooms
	}
	if merged.IsRoommates == nil && model.IsRoommates != nil {
		merged.IsRoommates = model.IsRoommates
	}
	if merged.ContactInfo == nil && model.ContactInfo != nil && *model.ContactInfo != "" {
		merged.ContactInfo = model.ContactInfo
	}
	merged.BonusFeatures = unionTags(rule.BonusFeatures, model.BonusFeatures)
	merged.Summary = model.Summary

	if rule.Confidence < weakRuleConfidence {
		merged.Confidence = model.Confidence
		merged.ParsedBy = models.ParsedByModel
	} else {
		merged.Confidence = max(rule.Confidence, model.Confidence)
		merged.ParsedBy = models.ParsedByHybrid
	}
	return merged
}

type Options struct {
	// AI is optional; a nil client disables the fallback.
	AI        ai.Client
	UseAI     bool
	Threshold float64
	Timeout   time.Duration
	Bonus     BonusVocabulary
}

// Parser runs the rule-based extractor and, when its confidence is low, the
// model fallback. It holds no per-call state.
type Parser struct {
	ai        ai.Client
	useAI     bool
	threshold float64
	timeout   time.Duration
	bonus     BonusVocabulary
}

func NewParser(opts Options) *Parser {
	if opts.Bonus == nil {
		opts.Bonus = DefaultBonusVocabulary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Parser{
		ai:        opts.AI,
		useAI:     opts.UseAI,
		threshold: opts.Threshold,
		timeout:   opts.Timeout,
		bonus:     opts.Bonus,
	}
}

// Parse never fails: a model error leaves the rule-based result in place.
func (p *Parser) Parse(ctx context.Context, text string) models.ParsedListing {
	rule := ParseWithRegex(text, p.bonus)

	var modelResult *models.AIParseResult
	if p.needsAI(rule) {
		log.Printf("🤖 Regex confidence %.2f below %.2f, using AI fallback", rule.Confidence, p.threshold)
		aiCtx, cancel := context.WithTimeout(ctx, p.timeout)
		res, err := p.ai.ParseListing(aiCtx, text)
		cancel()
		if err != nil {
			log.Printf("⚠️ AI parsing failed, keeping regex result: %v", err)
		} else {
			modelResult = res
		}
	}

	return MergeResults(rule, modelResult)
}

func (p *Parser) needsAI(rule models.RegexParseResult) bool {
	return p.useAI && p.ai != nil && rule.Confidence < p.threshold
}

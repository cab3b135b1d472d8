package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"go-apartment-scout/internal/dedup"
	"go-apartment-scout/internal/filter"
	"go-apartment-scout/internal/models"
)

type Outcome string

const (
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeStale        Outcome = "stale"
	OutcomeFiltered     Outcome = "filtered"
	OutcomeMatched      Outcome = "matched" // would notify, no notifier configured
	OutcomeNotified     Outcome = "notified"
	OutcomeNotifyFailed Outcome = "notify_failed"
	OutcomeRateLimited  Outcome = "rate_limited"
)

type Deduper interface {
	IsDuplicate(ctx context.Context, content, postID string) (bool, *models.Listing, error)
}

type ListingParser interface {
	Parse(ctx context.Context, text string) models.ParsedListing
}

type Writer interface {
	SaveListing(ctx context.Context, l *models.Listing) error
	LogNotification(ctx context.Context, n *models.NotificationLog) error
	CountNotificationsSince(ctx context.Context, since time.Time) (int, error)
}

type Notifier interface {
	SendListing(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) error
}

type Options struct {
	Criteria filter.Criteria
	// PartialMinScore is used as given; config.Default supplies 0.7
	PartialMinScore float64
	MaxPostAgeDays  int
	// MaxPerHour caps successful notifications; 0 disables the cap
	MaxPerHour int
	Debug      bool
	Now        func() time.Time
}

// Processor runs one post through dedup, freshness, parsing, criteria and
// notification, and records the result.
type Processor struct {
	dedup    Deduper
	parser   ListingParser
	store    Writer
	notifier Notifier
	opts     Options
}

// NewProcessor wires the pipeline. notifier may be nil, in which case
// matching listings are only logged and saved.
func NewProcessor(d Deduper, p ListingParser, store Writer, notifier Notifier, opts Options) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		dedup:    d,
		parser:   p,
		store:    store,
		notifier: notifier,
		opts:     opts,
	}
}

// Process handles a single post. A dedup store failure is returned and
// nothing is saved for the post.
func (p *Processor) Process(ctx context.Context, post models.RawPost) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dup, existing, err := p.dedup.IsDuplicate(ctx, post.Content, post.PostID)
	if err != nil {
		return "", fmt.Errorf("dedup check for post %s: %w", post.PostID, err)
	}
	if dup {
		if p.opts.Debug {
			log.Printf("🔁 Skipping duplicate post %s (matches %s)", post.PostID, shortID(existing.ID))
		}
		return OutcomeDuplicate, nil
	}

	now := p.opts.Now()
	if !filter.IsRecentPost(post.PostedAt, p.opts.MaxPostAgeDays, now) {
		if p.opts.Debug {
			log.Printf("⏳ Skipping post %s older than %d days", post.PostID, p.opts.MaxPostAgeDays)
		}
		return OutcomeStale, nil
	}

	parsed := p.parser.Parse(ctx, post.Content)
	result := filter.MatchesCriteria(parsed, p.opts.Criteria)
	id := dedup.ListingHash(post.Content, post.PostID)
	listing := models.NewListing(id, post, parsed, result, now)

	if p.opts.Debug {
		log.Printf("🔍 Post %s: parsed_by=%s confidence=%.2f matches=%v score=%.2f reasons=%v",
			post.PostID, parsed.ParsedBy, parsed.Confidence, result.Matches, result.Score, result.Reasons)
	}

	outcome := OutcomeFiltered
	var entry *models.NotificationLog
	if filter.ShouldNotify(parsed, result, p.opts.PartialMinScore) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		outcome, entry, err = p.notify(ctx, listing, parsed, result)
		if err != nil {
			return "", err
		}
	}

	// A sent notification must be recorded even if the run is being cancelled.
	saveCtx := ctx
	if listing.Notified {
		saveCtx = context.WithoutCancel(ctx)
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := p.store.SaveListing(saveCtx, listing); err != nil {
		return "", fmt.Errorf("save listing for post %s: %w", post.PostID, err)
	}

	if entry != nil {
		if err := p.store.LogNotification(saveCtx, entry); err != nil {
			log.Printf("⚠️ Failed to record notification for %s: %v", shortID(listing.ID), err)
		}
	}
	return outcome, nil
}

// notify sends the listing unless the hourly cap is reached. The returned
// log entry is nil when nothing was attempted.
func (p *Processor) notify(ctx context.Context, listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) (Outcome, *models.NotificationLog, error) {
	if p.notifier == nil {
		log.Printf("✅ Match (no notifier): %s", listing.PostURL)
		return OutcomeMatched, nil, nil
	}

	if p.opts.MaxPerHour > 0 {
		sent, err := p.store.CountNotificationsSince(ctx, p.opts.Now().Add(-time.Hour))
		if err != nil {
			return "", nil, fmt.Errorf("count notifications: %w", err)
		}
		if sent >= p.opts.MaxPerHour {
			log.Printf("⚠️ Rate limit reached (%d/%d this hour), not notifying for %s", sent, p.opts.MaxPerHour, shortID(listing.ID))
			return OutcomeRateLimited, nil, nil
		}
	}

	entry := &models.NotificationLog{
		ID:        uuid.NewString(),
		ListingID: listing.ID,
		SentAt:    p.opts.Now(),
		Status:    models.NotificationSent,
	}
	if err := p.notifier.SendListing(listing, parsed, result); err != nil {
		log.Printf("❌ Failed to send notification for %s: %v", shortID(listing.ID), err)
		msg := err.Error()
		entry.Status = models.NotificationFailed
		entry.ErrorMessage = &msg
		return OutcomeNotifyFailed, entry, nil
	}

	listing.Notified = true
	listing.NotifiedAt = &entry.SentAt
	log.Printf("📨 Notified: %s", listing.PostURL)
	return OutcomeNotified, entry, nil
}

// Stats counts outcomes of a batch.
type Stats struct {
	Total    int
	Outcomes map[Outcome]int
	Errors   int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d posts: %d notified, %d matched, %d filtered, %d duplicates, %d stale, %d failed, %d rate limited, %d errors",
		s.Total, s.Outcomes[OutcomeNotified], s.Outcomes[OutcomeMatched], s.Outcomes[OutcomeFiltered],
		s.Outcomes[OutcomeDuplicate], s.Outcomes[OutcomeStale], s.Outcomes[OutcomeNotifyFailed],
		s.Outcomes[OutcomeRateLimited], s.Errors)
}

// ProcessAll runs posts one at a time. A failing post is logged and
// skipped; cancellation stops the batch.
func (p *Processor) ProcessAll(ctx context.Context, posts []models.RawPost) Stats {
	stats := Stats{Outcomes: make(map[Outcome]int)}
	for _, post := range posts {
		if ctx.Err() != nil {
			log.Printf("⚠️ Processing cancelled after %d of %d posts", stats.Total, len(posts))
			break
		}
		stats.Total++
		outcome, err := p.Process(ctx, post)
		if err != nil {
			stats.Errors++
			log.Printf("❌ Error processing post %s: %v", post.PostID, err)
			continue
		}
		stats.Outcomes[outcome]++
	}
	return stats
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

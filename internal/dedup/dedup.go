package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	edlib "github.com/hbollon/go-edlib"

	"go-apartment-scout/internal/models"
)

const (
	DefaultWindowDays = 7
	DefaultThreshold  = 85
)

// ErrStore wraps every failure coming from the listing store.
var ErrStore = errors.New("dedup store error")

// Store is the read side of the listing store. Lookups return (nil, nil)
// when nothing matches.
type Store interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	GetListingByPostID(ctx context.Context, postID string) (*models.Listing, error)
	RecentListings(ctx context.Context, since time.Time) ([]models.Listing, error)
}

type Options struct {
	WindowDays int
	Threshold  int
	Now        func() time.Time
}

// Engine decides whether a post was already recorded. It only reads from
// the store; saving new listings is up to the caller.
type Engine struct {
	store     Store
	window    time.Duration
	threshold int
	now       func() time.Time
}

func NewEngine(store Store, opts Options) *Engine {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:     store,
		window:    time.Duration(opts.WindowDays) * 24 * time.Hour,
		threshold: opts.Threshold,
		now:       opts.Now,
	}
}

// IsDuplicate checks, in order, the listing hash, the post ID and fuzzy
// similarity against listings scraped inside the window. The matching
// listing is returned on a hit.
func (e *Engine) IsDuplicate(ctx context.Context, content, postID string) (bool, *models.Listing, error) {
	hash := ListingHash(content, postID)
	existing, err := e.store.GetListing(ctx, hash)
	if err != nil {
		return false, nil, fmt.Errorf("%w: lookup by hash: %w", ErrStore, err)
	}
	if existing != nil {
		return true, existing, nil
	}

	if postID != "" {
		existing, err = e.store.GetListingByPostID(ctx, postID)
		if err != nil {
			return false, nil, fmt.Errorf("%w: lookup by post id %s: %w", ErrStore, postID, err)
		}
		if existing != nil {
			return true, existing, nil
		}
	}

	recent, err := e.store.RecentListings(ctx, e.now().Add(-e.window))
	if err != nil {
		return false, nil, fmt.Errorf("%w: scan recent listings: %w", ErrStore, err)
	}
	normalized := NormalizeText(content)
	for i := range recent {
		if Similarity(normalized, NormalizeText(recent[i].RawContent)) >= e.threshold {
			return true, &recent[i], nil
		}
	}
	return false, nil, nil
}

var nonTextRe = regexp.MustCompile(`[^\p{L}\p{N}_\s\x{0590}-\x{05FF}]`)

// NormalizeText replaces emoji and punctuation with spaces, collapses
// whitespace and lower-cases.
func NormalizeText(text string) string {
	text = nonTextRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// ListingHash is the primary key of a listing: sha256 of "post:<id>" when
// the source gave an ID, otherwise of the normalized content.
func ListingHash(content, postID string) string {
	var sum [32]byte
	if postID != "" {
		sum = sha256.Sum256([]byte("post:" + postID))
	} else {
		sum = sha256.Sum256([]byte(NormalizeText(content)))
	}
	return hex.EncodeToString(sum[:])
}

// Similarity is the indel ratio on a 0-100 scale: twice the longest common
// subsequence over the combined rune length.
func Similarity(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	common := edlib.LCS(a, b)
	return int(math.Round(100 * float64(2*common) / float64(total)))
}

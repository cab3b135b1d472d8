package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-apartment-scout/internal/dedup"
	"go-apartment-scout/internal/filter"
	"go-apartment-scout/internal/models"
	"go-apartment-scout/internal/parser"
)

type memStore struct {
	mu        sync.Mutex
	listings  map[string]models.Listing
	notes     []models.NotificationLog
	failReads bool
	failSave  bool
}

func newMemStore() *memStore {
	return &memStore{listings: make(map[string]models.Listing)}
}

func (s *memStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errors.New("database is locked")
	}
	if l, ok := s.listings[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (s *memStore) GetListingByPostID(ctx context.Context, postID string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.PostID == postID {
			return &l, nil
		}
	}
	return nil, nil
}

func (s *memStore) RecentListings(ctx context.Context, since time.Time) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Listing
	for _, l := range s.listings {
		if !l.ScrapedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) SaveListing(ctx context.Context, l *models.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk full")
	}
	s.listings[l.ID] = *l
	return nil
}

func (s *memStore) LogNotification(ctx context.Context, n *models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, *n)
	return nil
}

func (s *memStore) CountNotificationsSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, note := range s.notes {
		if note.Status == models.NotificationSent && !note.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeNotifier struct {
	sent int
	err  error
}

func (f *fakeNotifier) SendListing(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	return nil
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestProcessor(store *memStore, notifier Notifier, mutate func(*Options)) *Processor {
	opts := Options{
		Criteria: filter.Criteria{
			BudgetMin:   4000,
			BudgetMax:   8000,
			RoomsMin:    2,
			RoomsMax:    4,
			Locations:   []string{"florentin", "neve_tzedek"},
			ListingType: filter.WholeApartment,
		},
		PartialMinScore: filter.DefaultPartialMinScore,
		Now:             func() time.Time { return now },
	}
	if mutate != nil {
		mutate(&opts)
	}
	engine := dedup.NewEngine(store, dedup.Options{Now: opts.Now})
	p := parser.NewParser(parser.Options{Threshold: 0.6})
	return NewProcessor(engine, p, store, notifier, opts)
}

func post(id, content string) models.RawPost {
	return models.RawPost{
		PostID:    id,
		Content:   content,
		PostURL:   "https://www.facebook.com/groups/1/posts/" + id,
		GroupName: "Tel Aviv rentals",
	}
}

const matching = "דירה להשכרה! 3 חדרים בפלורנטין, מחיר: 6,500 ש\"ח לחודש, מרפסת, טלפון 052-123-4567"

func TestProcessNotifiesMatch(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(store, notifier, nil)

	outcome, err := p.Process(context.Background(), post("100", matching))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotified, outcome)
	assert.Equal(t, 1, notifier.sent)

	saved, _ := store.GetListing(context.Background(), dedup.ListingHash(matching, "100"))
	require.NotNil(t, saved)
	assert.True(t, saved.Notified)
	assert.True(t, saved.MatchesCriteria)
	assert.Equal(t, []string{"balcony"}, saved.BonusFeatures)
	require.Len(t, store.notes, 1)
	assert.Equal(t, models.NotificationSent, store.notes[0].Status)
	assert.Len(t, store.notes[0].ID, 36)

	// same post ID with edited text is a duplicate
	outcome, err = p.Process(context.Background(), post("100", matching+" עודכן"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, notifier.sent)
}

func TestProcessFiltered(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(store, notifier, nil)

	text := "דירה להשכרה 3 חדרים ברמת גן, מחיר 6000 ש\"ח"
	outcome, err := p.Process(context.Background(), post("200", text))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, outcome)
	assert.Equal(t, 0, notifier.sent)
	assert.Len(t, store.listings, 1)
	assert.Empty(t, store.notes)
}

func TestProcessPartialMatchWithMissingInfo(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(store, notifier, func(o *Options) { o.PartialMinScore = 0.5 })

	// no price, no rooms; roommates disqualifies but data is incomplete
	outcome, err := p.Process(context.Background(), post("300", "מחפשים שותפה לדירה בפלורנטין עם גג"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotified, outcome)
}

func TestProcessPartialMinScoreZero(t *testing.T) {
	// roommates in an unknown area, no price or rooms: score 0.43
	text := "חדר בדירה ברמת גן"

	t.Run("Default threshold filters", func(t *testing.T) {
		p := newTestProcessor(newMemStore(), &fakeNotifier{}, nil)
		outcome, err := p.Process(context.Background(), post("310", text))
		require.NoError(t, err)
		assert.Equal(t, OutcomeFiltered, outcome)
	})

	t.Run("Zero threshold is kept", func(t *testing.T) {
		notifier := &fakeNotifier{}
		p := newTestProcessor(newMemStore(), notifier, func(o *Options) { o.PartialMinScore = 0 })
		outcome, err := p.Process(context.Background(), post("311", text))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotified, outcome)
		assert.Equal(t, 1, notifier.sent)
	})
}

func TestProcessStale(t *testing.T) {
	store := newMemStore()
	p := newTestProcessor(store, &fakeNotifier{}, func(o *Options) { o.MaxPostAgeDays = 2 })

	old := post("400", matching)
	postedAt := now.Add(-5 * 24 * time.Hour)
	old.PostedAt = &postedAt

	outcome, err := p.Process(context.Background(), old)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)
	assert.Empty(t, store.listings)
}

func TestProcessNotifyFailure(t *testing.T) {
	store := newMemStore()
	p := newTestProcessor(store, &fakeNotifier{err: errors.New("Too Many Requests")}, nil)

	outcome, err := p.Process(context.Background(), post("500", matching))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotifyFailed, outcome)
	require.Len(t, store.notes, 1)
	assert.Equal(t, models.NotificationFailed, store.notes[0].Status)
	assert.Equal(t, "Too Many Requests", *store.notes[0].ErrorMessage)

	saved, _ := store.GetListing(context.Background(), dedup.ListingHash(matching, "500"))
	require.NotNil(t, saved)
	assert.False(t, saved.Notified)
}

func TestProcessRateLimit(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(store, notifier, func(o *Options) { o.MaxPerHour = 1 })

	first, err := p.Process(context.Background(), post("600", matching))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotified, first)

	second, err := p.Process(context.Background(), post("601", "דירה שלמה 2.5 חדרים בנווה צדק 7,000 ₪ מרפסת שמש"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRateLimited, second)
	assert.Equal(t, 1, notifier.sent)
}

func TestProcessWithoutNotifier(t *testing.T) {
	store := newMemStore()
	p := newTestProcessor(store, nil, nil)

	outcome, err := p.Process(context.Background(), post("700", matching))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
	assert.Len(t, store.listings, 1)
}

func TestProcessStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failReads = true
	notifier := &fakeNotifier{}
	p := newTestProcessor(store, notifier, nil)

	_, err := p.Process(context.Background(), post("800", matching))
	assert.ErrorIs(t, err, dedup.ErrStore)
	assert.Equal(t, 0, notifier.sent)
	assert.Empty(t, store.listings)
}

func TestProcessCancelled(t *testing.T) {
	store := newMemStore()
	p := newTestProcessor(store, &fakeNotifier{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, post("900", matching))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.listings)
}

func TestProcessAll(t *testing.T) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(store, notifier, nil)

	posts := []models.RawPost{
		post("1", matching),
		post("1", matching),
		post("2", "Room in a shared apartment in Ramat Gan, 2500 NIS"),
	}
	stats := p.ProcessAll(context.Background(), posts)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Outcomes[OutcomeNotified])
	assert.Equal(t, 1, stats.Outcomes[OutcomeDuplicate])
	assert.Equal(t, 1, stats.Outcomes[OutcomeFiltered])
	assert.Equal(t, 0, stats.Errors)
	assert.Contains(t, stats.String(), "1 notified")

	store.failSave = true
	stats = p.ProcessAll(context.Background(), []models.RawPost{post("3", "דירת 3 חדרים ברוטשילד 5000₪")})
	assert.Equal(t, 1, stats.Errors)
}

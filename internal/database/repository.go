package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-apartment-scout/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id               TEXT PRIMARY KEY,
	source_group     TEXT NOT NULL DEFAULT '',
	group_url        TEXT NOT NULL DEFAULT '',
	post_id          TEXT NOT NULL DEFAULT '',
	post_url         TEXT NOT NULL DEFAULT '',
	author_name      TEXT,
	raw_content      TEXT NOT NULL,
	images           TEXT[] NOT NULL DEFAULT '{}',
	posted_at        TIMESTAMPTZ,
	scraped_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	parsed_price     INTEGER,
	parsed_location  TEXT,
	parsed_rooms     DOUBLE PRECISION,
	is_roommates     BOOLEAN,
	contact_info     TEXT,
	bonus_features   TEXT[] NOT NULL DEFAULT '{}',
	parse_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	parsed_by        TEXT NOT NULL DEFAULT '',
	matches_criteria BOOLEAN NOT NULL DEFAULT FALSE,
	notified         BOOLEAN NOT NULL DEFAULT FALSE,
	notified_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_listings_post_id ON listings (post_id);
CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings (scraped_at);

CREATE TABLE IF NOT EXISTS notification_log (
	id            TEXT PRIMARY KEY,
	listing_id    TEXT NOT NULL REFERENCES listings (id),
	sent_at       TIMESTAMPTZ NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_notification_log_sent_at ON notification_log (sent_at);
`

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Poolers in transaction mode (PgBouncer, Supabase) reject prepared
	// statements, so the statement cache stays off.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Ping to ensure connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	r := &Repository{db: pool}
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// ---------------- LISTING OPERATIONS ----------------

const listingColumns = `id, source_group, group_url, post_id, post_url, author_name, raw_content, images,
	posted_at, scraped_at, parsed_price, parsed_location, parsed_rooms, is_roommates, contact_info,
	bonus_features, parse_confidence, parsed_by, matches_criteria, notified, notified_at`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ID, &l.SourceGroup, &l.GroupURL, &l.PostID, &l.PostURL, &l.AuthorName, &l.RawContent, &l.Images,
		&l.PostedAt, &l.ScrapedAt, &l.ParsedPrice, &l.ParsedLocation, &l.ParsedRooms, &l.IsRoommates, &l.ContactInfo,
		&l.BonusFeatures, &l.ParseConfidence, &l.ParsedBy, &l.MatchesCriteria, &l.Notified, &l.NotifiedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListing returns (nil, nil) when no listing has this ID
func (r *Repository) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", id, err)
	}
	return l, nil
}

func (r *Repository) GetListingByPostID(ctx context.Context, postID string) (*models.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE post_id = $1 LIMIT 1`, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing by post id %s: %w", postID, err)
	}
	return l, nil
}

// RecentListings returns listings scraped at or after since, newest first
func (r *Repository) RecentListings(ctx context.Context, since time.Time) ([]models.Listing, error) {
	rows, err := r.db.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE scraped_at >= $1 ORDER BY scraped_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return listings, nil
}

// SaveListing inserts a listing or updates the parse and notify state of an existing one
func (r *Repository) SaveListing(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id)
		DO UPDATE SET parsed_price = EXCLUDED.parsed_price, parsed_location = EXCLUDED.parsed_location,
			parsed_rooms = EXCLUDED.parsed_rooms, is_roommates = EXCLUDED.is_roommates,
			contact_info = EXCLUDED.contact_info, bonus_features = EXCLUDED.bonus_features,
			parse_confidence = EXCLUDED.parse_confidence, parsed_by = EXCLUDED.parsed_by,
			matches_criteria = EXCLUDED.matches_criteria, notified = EXCLUDED.notified,
			notified_at = EXCLUDED.notified_at`

	_, err := r.db.Exec(ctx, query, l.ID, l.SourceGroup, l.GroupURL, l.PostID, l.PostURL, l.AuthorName, l.RawContent, nonNil(l.Images),
		l.PostedAt, l.ScrapedAt, l.ParsedPrice, l.ParsedLocation, l.ParsedRooms, l.IsRoommates, l.ContactInfo,
		nonNil(l.BonusFeatures), l.ParseConfidence, l.ParsedBy, l.MatchesCriteria, l.Notified, l.NotifiedAt)
	if err != nil {
		return fmt.Errorf("failed to save listing %s: %w", l.ID, err)
	}
	return nil
}

// ---------------- NOTIFICATION OPERATIONS ----------------

func (r *Repository) LogNotification(ctx context.Context, n *models.NotificationLog) error {
	_, err := r.db.Exec(ctx, "INSERT INTO notification_log (id, listing_id, sent_at, status, error_message) VALUES ($1, $2, $3, $4, $5)",
		n.ID, n.ListingID, n.SentAt, n.Status, n.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to log notification: %w", err)
	}
	return nil
}

// CountNotificationsSince counts successful sends
func (r *Repository) CountNotificationsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT count(*) FROM notification_log WHERE status = $1 AND sent_at >= $2", models.NotificationSent, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

func (r *Repository) StatsSince(ctx context.Context, since time.Time) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE matches_criteria),
			count(*) FILTER (WHERE notified)
		FROM listings WHERE scraped_at >= $1`, since).Scan(&s.Listings, &s.Matched, &s.Notified)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return s, nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

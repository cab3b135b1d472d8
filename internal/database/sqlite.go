package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"go-apartment-scout/internal/models"
)

// SQLiteRepository stores listings in a local file. Timestamps are unix
// milliseconds and string lists are JSON arrays.
type SQLiteRepository struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id               TEXT PRIMARY KEY,
	source_group     TEXT NOT NULL DEFAULT '',
	group_url        TEXT NOT NULL DEFAULT '',
	post_id          TEXT NOT NULL DEFAULT '',
	post_url         TEXT NOT NULL DEFAULT '',
	author_name      TEXT,
	raw_content      TEXT NOT NULL,
	images           TEXT NOT NULL DEFAULT '[]',
	posted_at        INTEGER,
	scraped_at       INTEGER NOT NULL,
	parsed_price     INTEGER,
	parsed_location  TEXT,
	parsed_rooms     REAL,
	is_roommates     INTEGER,
	contact_info     TEXT,
	bonus_features   TEXT NOT NULL DEFAULT '[]',
	parse_confidence REAL NOT NULL DEFAULT 0,
	parsed_by        TEXT NOT NULL DEFAULT '',
	matches_criteria INTEGER NOT NULL DEFAULT 0,
	notified         INTEGER NOT NULL DEFAULT 0,
	notified_at      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_listings_post_id ON listings (post_id);
CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings (scraped_at);

CREATE TABLE IF NOT EXISTS notification_log (
	id            TEXT PRIMARY KEY,
	listing_id    TEXT NOT NULL REFERENCES listings (id),
	sent_at       INTEGER NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_notification_log_sent_at ON notification_log (sent_at);
`

// OpenSQLite opens (creating if needed) the database file at path and
// migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteListing(row rowScanner) (*models.Listing, error) {
	var (
		l                  models.Listing
		images, bonus      string
		postedAt, notified sql.NullInt64
		scrapedAt          int64
		price              sql.NullInt64
		location, contact  sql.NullString
		author             sql.NullString
		rooms              sql.NullFloat64
		roommates          sql.NullBool
		parsedBy           string
	)
	err := row.Scan(&l.ID, &l.SourceGroup, &l.GroupURL, &l.PostID, &l.PostURL, &author, &l.RawContent, &images,
		&postedAt, &scrapedAt, &price, &location, &rooms, &roommates, &contact,
		&bonus, &l.ParseConfidence, &parsedBy, &l.MatchesCriteria, &l.Notified, &notified)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
		return nil, fmt.Errorf("bad images column: %w", err)
	}
	if err := json.Unmarshal([]byte(bonus), &l.BonusFeatures); err != nil {
		return nil, fmt.Errorf("bad bonus_features column: %w", err)
	}
	l.ScrapedAt = time.UnixMilli(scrapedAt).UTC()
	l.PostedAt = fromMillis(postedAt)
	l.NotifiedAt = fromMillis(notified)
	l.ParsedBy = models.Provenance(parsedBy)
	if author.Valid {
		l.AuthorName = &author.String
	}
	if price.Valid {
		p := int(price.Int64)
		l.ParsedPrice = &p
	}
	if location.Valid {
		l.ParsedLocation = &location.String
	}
	if rooms.Valid {
		l.ParsedRooms = &rooms.Float64
	}
	if roommates.Valid {
		l.IsRoommates = &roommates.Bool
	}
	if contact.Valid {
		l.ContactInfo = &contact.String
	}
	return &l, nil
}

func (r *SQLiteRepository) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	l, err := scanSQLiteListing(r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", id, err)
	}
	return l, nil
}

func (r *SQLiteRepository) GetListingByPostID(ctx context.Context, postID string) (*models.Listing, error) {
	l, err := scanSQLiteListing(r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE post_id = ? LIMIT 1`, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing by post id %s: %w", postID, err)
	}
	return l, nil
}

func (r *SQLiteRepository) RecentListings(ctx context.Context, since time.Time) ([]models.Listing, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE scraped_at >= ? ORDER BY scraped_at DESC`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query recent listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
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

func (r *SQLiteRepository) SaveListing(ctx context.Context, l *models.Listing) error {
	images, _ := json.Marshal(nonNil(l.Images))
	bonus, _ := json.Marshal(nonNil(l.BonusFeatures))

	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET parsed_price = excluded.parsed_price, parsed_location = excluded.parsed_location,
			parsed_rooms = excluded.parsed_rooms, is_roommates = excluded.is_roommates,
			contact_info = excluded.contact_info, bonus_features = excluded.bonus_features,
			parse_confidence = excluded.parse_confidence, parsed_by = excluded.parsed_by,
			matches_criteria = excluded.matches_criteria, notified = excluded.notified,
			notified_at = excluded.notified_at`

	_, err := r.db.ExecContext(ctx, query, l.ID, l.SourceGroup, l.GroupURL, l.PostID, l.PostURL, l.AuthorName, l.RawContent, string(images),
		toMillis(l.PostedAt), l.ScrapedAt.UnixMilli(), l.ParsedPrice, l.ParsedLocation, l.ParsedRooms, l.IsRoommates, l.ContactInfo,
		string(bonus), l.ParseConfidence, string(l.ParsedBy), l.MatchesCriteria, l.Notified, toMillis(l.NotifiedAt))
	if err != nil {
		return fmt.Errorf("failed to save listing %s: %w", l.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) LogNotification(ctx context.Context, n *models.NotificationLog) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO notification_log (id, listing_id, sent_at, status, error_message) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.ListingID, n.SentAt.UnixMilli(), string(n.Status), n.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to log notification: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountNotificationsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM notification_log WHERE status = ? AND sent_at >= ?",
		string(models.NotificationSent), since.UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) StatsSince(ctx context.Context, since time.Time) (Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(matches_criteria), 0), coalesce(sum(notified), 0)
		FROM listings WHERE scraped_at >= ?`, since.UnixMilli()).Scan(&s.Listings, &s.Matched, &s.Notified)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return s, nil
}

func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

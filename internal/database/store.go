package database

import (
	"context"
	"fmt"
	"time"

	"go-apartment-scout/internal/dedup"
	"go-apartment-scout/internal/models"
)

// Store persists listings and the notification log. Both the Postgres and
// the SQLite repositories implement it.
type Store interface {
	dedup.Store
	SaveListing(ctx context.Context, l *models.Listing) error
	LogNotification(ctx context.Context, n *models.NotificationLog) error
	CountNotificationsSince(ctx context.Context, since time.Time) (int, error)
	StatsSince(ctx context.Context, since time.Time) (Stats, error)
	Close()
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*SQLiteRepository)(nil)
)

// Stats summarizes listings scraped since a point in time.
type Stats struct {
	Listings int
	Matched  int
	Notified int
}

// Open picks the repository for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, sqlitePath, databaseURL string) (Store, error) {
	switch driver {
	case "postgres":
		repo, err := ConnectDB(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite", "":
		repo, err := OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

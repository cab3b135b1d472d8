package pipeline

import (
	"errors"
	"log"

	"go-apartment-scout/internal/models"
)

// FallbackNotifier tries each notifier in order and stops at the first
// that delivers. The error joins every failure.
type FallbackNotifier []Notifier

func (f FallbackNotifier) SendListing(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) error {
	if len(f) == 0 {
		return errors.New("no notifier configured")
	}
	var errs []error
	for i, n := range f {
		err := n.SendListing(listing, parsed, result)
		if err == nil {
			if i > 0 {
				log.Printf("↩️ Delivered %s via fallback #%d", shortID(listing.ID), i)
			}
			return nil
		}
		errs = append(errs, err)
		if i < len(f)-1 {
			log.Printf("⚠️ Notifier #%d failed for %s, trying fallback: %v", i, shortID(listing.ID), err)
		}
	}
	return errors.Join(errs...)
}

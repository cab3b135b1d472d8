package utils

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay sleeps between min and max milliseconds or until ctx is done.
func RandomDelay(ctx context.Context, min, max int) error {
	d := time.Duration(min) * time.Millisecond
	if max > min {
		d = time.Duration(rand.Intn(max-min)+min) * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ScrollFeed scrolls the page down in steps so lazily loaded posts render.
func ScrollFeed(ctx context.Context, page playwright.Page, steps int) error {
	for i := 0; i < steps; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, 1000)"); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 1000, 2000); err != nil {
			return err
		}
	}
	return nil
}

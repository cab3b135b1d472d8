package utils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tel Aviv Rentals", "Tel-Aviv-Rentals"},
		{"דירות להשכרה", "page"},
		{"yad2_feed", "yad2_feed"},
		{"", "page"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeName(tt.in))
		})
	}
}

func TestScreenshotPath(t *testing.T) {
	dir := t.TempDir()
	s := NewScreenShotDebugger(dir)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC) }

	assert.Equal(t, filepath.Join(dir, "facebook-Florentin_2026-03-01_09-05-00.png"), s.Path("facebook-Florentin"))
}

func TestRandomDelayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RandomDelay(ctx, 5000, 6000), context.Canceled)
	assert.NoError(t, RandomDelay(context.Background(), 1, 1))
}

package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ScreenShotDebugger saves full-page screenshots when a scrape goes wrong.
type ScreenShotDebugger struct {
	outputDir string
	now       func() time.Time
}

func NewScreenShotDebugger(dir string) *ScreenShotDebugger {
	if dir == "" {
		dir = filepath.Join(".", "logs", "screenshots")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("⚠️ Could not create screenshot dir %s: %v", dir, err)
	}
	return &ScreenShotDebugger{
		outputDir: dir,
		now:       time.Now,
	}
}

// Path returns the file a capture named name would be written to.
func (s *ScreenShotDebugger) Path(name string) string {
	timestamp := s.now().Format("2006-01-02_15-04-05")
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", SafeName(name), timestamp))
}

func (s *ScreenShotDebugger) CaptureAndLog(page playwright.Page, name, message string) error {
	path := s.Path(name)
	log.Printf("📸 %s", message)

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		log.Printf("⚠️ Failed to capture screenshot: %v", err)
		return err
	}

	log.Printf("   Screenshot saved: %s", path)
	return nil
}

// SafeName turns a group name into a file name fragment.
func SafeName(name string) string {
	safe := unsafeName.ReplaceAllString(name, "-")
	if safe == "" || safe == "-" {
		return "page"
	}
	return safe
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"

	"go-apartment-scout/internal/config"
	"go-apartment-scout/internal/models"
	"go-apartment-scout/internal/scraper/facebook"
	"go-apartment-scout/internal/scraper/yad2"
	"go-apartment-scout/utils"
)

// Scraper fetches raw posts from one listing source.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]models.RawPost, error)
}

// Deps holds the shared resources a backend may need. Browser is only
// required for the facebook backend.
type Deps struct {
	Browser     facebook.ContextOpener
	Cookies     []playwright.OptionalCookie
	Screenshots *utils.ScreenShotDebugger
	HTTPClient  *http.Client
}

// New selects a backend by its config name.
func New(name string, cfg *config.Config, deps Deps) (Scraper, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "facebook":
		if deps.Browser == nil {
			return nil, errors.New("facebook scraper needs a browser")
		}
		groups := make([]facebook.Group, 0, len(cfg.Facebook.Groups))
		for _, g := range cfg.Facebook.Groups {
			groups = append(groups, facebook.Group{Name: g.Name, URL: g.URL})
		}
		return facebook.New(deps.Browser, deps.Screenshots, facebook.Options{
			Groups:        groups,
			PostsPerGroup: cfg.Scraper.PostsPerGroup,
			Cookies:       deps.Cookies,
		}), nil
	case "yad2":
		price, rooms := cfg.Yad2Price(), cfg.Yad2Rooms()
		// the configured endpoint first, then the known alternatives
		var endpoints []string
		if cfg.Yad2.BaseURL != "" {
			endpoints = append(endpoints, cfg.Yad2.BaseURL)
		}
		for _, e := range yad2.DefaultEndpoints {
			if e != cfg.Yad2.BaseURL {
				endpoints = append(endpoints, e)
			}
		}
		return yad2.New(yad2.Options{
			Endpoints:         endpoints,
			City:              cfg.Yad2.City,
			PriceMin:          price.Min,
			PriceMax:          price.Max,
			RoomsMin:          rooms.Min,
			RoomsMax:          rooms.Max,
			RequestsPerSecond: cfg.Yad2.RequestsPerSecond,
			HTTPClient:        deps.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown scraper source %q", name)
	}
}

// NewAll builds every configured source.
func NewAll(cfg *config.Config, deps Deps) ([]Scraper, error) {
	scrapers := make([]Scraper, 0, len(cfg.Scraper.Sources))
	for _, name := range cfg.Scraper.Sources {
		s, err := New(name, cfg, deps)
		if err != nil {
			return nil, err
		}
		scrapers = append(scrapers, s)
	}
	return scrapers, nil
}

// CollectAll runs the scrapers concurrently and concatenates their posts in
// scraper order. A failing scraper is logged and contributes nothing.
func CollectAll(ctx context.Context, scrapers []Scraper) []models.RawPost {
	results := make([][]models.RawPost, len(scrapers))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range scrapers {
		i, s := i, s
		g.Go(func() error {
			log.Printf("▶️ Starting scraper: %s", s.Name())
			posts, err := s.Scrape(gctx)
			if err != nil {
				log.Printf("❌ Error running scraper %s: %v", s.Name(), err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			log.Printf("✅ Scraper %s finished. Found %d posts.", s.Name(), len(posts))
			results[i] = posts
			return nil
		})
	}
	_ = g.Wait()

	var all []models.RawPost
	for _, posts := range results {
		all = append(all, posts...)
	}
	if failed > 0 {
		log.Printf("⚠️ %d of %d scrapers failed", failed, len(scrapers))
	}
	return all
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"go-apartment-scout/internal/browser"
	"go-apartment-scout/internal/config"
	"go-apartment-scout/internal/database"
	"go-apartment-scout/internal/pipeline"
	"go-apartment-scout/internal/scraper"
	"go-apartment-scout/internal/telegram"
	"go-apartment-scout/utils"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	once := flag.Bool("once", false, "run a single scrape and exit")
	dryRun := flag.Bool("dry-run", false, "process posts without sending Telegram messages")
	flag.Parse()

	if err := run(*configPath, *once, *dryRun); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(configPath string, once, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("🔧 Config loaded. Sources: %v, locations: %v, budget: %d-%d",
		cfg.Scraper.Sources, cfg.Criteria.Locations, cfg.Criteria.Budget.Min, cfg.Criteria.Budget.Max)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.Storage.Driver, cfg.Storage.SQLitePath, cfg.Storage.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	var bot *telegram.Bot
	var notifier pipeline.Notifier
	if !dryRun {
		if err := cfg.RequireTelegram(); err != nil {
			return err
		}
		bot, err = telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Notify.IncludeImages)
		if err != nil {
			return fmt.Errorf("failed to init Telegram bot: %w", err)
		}
		notifier = pipeline.FallbackNotifier{bot, bot.PlainText()}
		log.Println("🤖 Telegram Bot initialized.")
	} else {
		log.Println("🧪 Dry run: matches are logged, not sent")
	}

	proc, err := pipeline.New(cfg, store, store, notifier)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	deps := scraper.Deps{
		Screenshots: utils.NewScreenShotDebugger(cfg.Scraper.ScreenshotDir),
	}
	if slices.ContainsFunc(cfg.Scraper.Sources, func(s string) bool { return strings.EqualFold(strings.TrimSpace(s), "facebook") }) {
		pw, err := browser.NewPlaywright(cfg.Scraper.Headless)
		if err != nil {
			return fmt.Errorf("failed to init Playwright: %w", err)
		}
		defer pw.Close()

		cookies, err := browser.LoadCookies(cfg.Scraper.CookiesPath)
		if err != nil {
			log.Printf("⚠️ Could not load cookies from %s: %v. Continuing logged out.", cfg.Scraper.CookiesPath, err)
		} else {
			log.Printf("🍪 Loaded %d cookies", len(cookies))
		}
		deps.Browser = pw
		deps.Cookies = cookies
	}

	scrapers, err := scraper.NewAll(cfg, deps)
	if err != nil {
		return err
	}

	log.Println("🚀 Starting apartment scout...")
	runOnce(ctx, scrapers, proc, store, bot)
	if once {
		return nil
	}

	ticker := time.NewTicker(cfg.Scraper.Interval)
	defer ticker.Stop()
	log.Printf("⏰ Next run every %v. Press Ctrl+C to stop.", cfg.Scraper.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Shutting down.")
			return nil
		case <-ticker.C:
			runOnce(ctx, scrapers, proc, store, bot)
		}
	}
}

// runOnce scrapes every source and processes the posts. Runs never overlap
// since the ticker loop waits for it.
func runOnce(ctx context.Context, scrapers []scraper.Scraper, proc *pipeline.Processor, store database.Store, bot *telegram.Bot) {
	runID := uuid.NewString()[:8]
	started := time.Now()
	log.Printf("\n▶️ Run %s started", runID)

	posts := scraper.CollectAll(ctx, scrapers)
	log.Printf("📦 Total posts collected: %d", len(posts))

	stats := proc.ProcessAll(ctx, posts)
	log.Printf("📊 Run %s: %s (%v)", runID, stats, time.Since(started).Round(time.Second))

	if bot == nil || stats.Outcomes[pipeline.OutcomeNotified] == 0 {
		return
	}

	day, err := store.StatsSince(ctx, started.Add(-24*time.Hour))
	if err != nil {
		log.Printf("⚠️ Failed to load stats: %v", err)
	}
	statusMsg := fmt.Sprintf("Sent %d new apartments from %d posts. Last 24h: %d listings, %d matched, %d notified.",
		stats.Outcomes[pipeline.OutcomeNotified], stats.Total, day.Listings, day.Matched, day.Notified)
	if err := bot.SendStatus(statusMsg); err != nil {
		log.Printf("⚠️ Failed to send status to Telegram: %v", err)
	}
}

package facebook

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-apartment-scout/internal/filter"
	"go-apartment-scout/internal/models"
	"go-apartment-scout/utils"
)

const (
	baseURL        = "https://www.facebook.com"
	minContentLen  = 20
	maxImages      = 5
	navTimeout     = 30000
	contentTimeout = 10000
)

// Content selectors in order of specificity.
var contentSelectors = []string{
	`[data-ad-preview="message"]`,
	`[data-ad-comet-preview="message"]`,
	`div[dir="auto"][style*="text-align"]`,
	`div[dir="auto"]`,
}

var postIDPattern = regexp.MustCompile(`/posts/(\d+)|/permalink/(\d+)`)

type Group struct {
	Name string
	URL  string
}

// ContextOpener creates browser contexts carrying the session cookies.
type ContextOpener interface {
	NewContext(cookies []playwright.OptionalCookie) (playwright.BrowserContext, error)
}

type Options struct {
	Groups        []Group
	PostsPerGroup int
	Cookies       []playwright.OptionalCookie
	ScrollSteps   int
	Now           func() time.Time
}

type Scraper struct {
	browser     ContextOpener
	opts        Options
	screenshots *utils.ScreenShotDebugger
}

func New(browser ContextOpener, screenshots *utils.ScreenShotDebugger, opts Options) *Scraper {
	if opts.PostsPerGroup <= 0 {
		opts.PostsPerGroup = 20
	}
	if opts.ScrollSteps <= 0 {
		opts.ScrollSteps = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scraper{
		browser:     browser,
		opts:        opts,
		screenshots: screenshots,
	}
}

func (s *Scraper) Name() string {
	return "facebook"
}

// Scrape visits every group in turn. A failing group is logged and skipped.
func (s *Scraper) Scrape(ctx context.Context) ([]models.RawPost, error) {
	bctx, err := s.browser.NewContext(s.opts.Cookies)
	if err != nil {
		return nil, err
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	var all []models.RawPost
	for _, group := range s.opts.Groups {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		log.Printf("📋 Scraping group: %s", group.Name)
		posts, err := s.scrapeGroup(ctx, page, group)
		if err != nil {
			log.Printf("❌ Failed to scrape %s: %v", group.Name, err)
			s.capture(page, group, "error")
			continue
		}
		log.Printf("   Found %d posts in %s", len(posts), group.Name)
		all = append(all, posts...)
	}
	return all, nil
}

func (s *Scraper) capture(page playwright.Page, group Group, reason string) {
	if s.screenshots == nil {
		return
	}
	s.screenshots.CaptureAndLog(page, "facebook-"+reason+"-"+group.Name, fmt.Sprintf("🚨 Facebook: %s on %s", reason, group.Name))
}

// FeedURL asks for the chronological feed.
func FeedURL(groupURL string) string {
	u := strings.TrimRight(groupURL, "/")
	if strings.Contains(u, "?") {
		return u + "&sorting_setting=CHRONOLOGICAL"
	}
	return u + "/?sorting_setting=CHRONOLOGICAL"
}

func (s *Scraper) scrapeGroup(ctx context.Context, page playwright.Page, group Group) ([]models.RawPost, error) {
	if _, err := page.Goto(FeedURL(group.URL), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navTimeout),
	}); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := utils.RandomDelay(ctx, 3000, 4000); err != nil {
		return nil, err
	}

	if loginForm, _ := page.Locator(`input[name="email"]`).Count(); loginForm > 0 {
		s.capture(page, group, "login-required")
		return nil, errors.New("not logged in, refresh the cookies file")
	}

	if s.unavailable(page) {
		log.Printf("⚠️ Content unavailable for %s, trying discussion tab", group.Name)
		if _, err := page.Goto(strings.TrimRight(group.URL, "/")+"/discussion", playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(navTimeout),
		}); err != nil {
			return nil, fmt.Errorf("navigate discussion: %w", err)
		}
		if err := utils.RandomDelay(ctx, 3000, 4000); err != nil {
			return nil, err
		}
		if s.unavailable(page) {
			s.capture(page, group, "unavailable")
			return nil, errors.New("group content unavailable")
		}
	}

	if err := page.Locator(`div[dir="auto"]:not(:empty)`).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(contentTimeout),
	}); err != nil {
		log.Printf("⚠️ Timeout waiting for post content in %s", group.Name)
	}

	if err := utils.ScrollFeed(ctx, page, s.opts.ScrollSteps); err != nil {
		return nil, err
	}

	articles, err := page.Locator(`[role="article"]`).All()
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}

	var posts []models.RawPost
	for _, article := range articles {
		if len(posts) >= s.opts.PostsPerGroup {
			break
		}
		post, ok := s.extractPost(article, group)
		if !ok {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Scraper) unavailable(page playwright.Page) bool {
	text, err := page.Locator("body").InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), "content isn't available")
}

func (s *Scraper) extractPost(article playwright.Locator, group Group) (models.RawPost, bool) {
	content := extractContent(article)
	if len([]rune(content)) < minContentLen {
		return models.RawPost{}, false
	}

	post := models.RawPost{
		Content:   content,
		GroupName: group.Name,
		GroupURL:  group.URL,
	}

	links, _ := article.Locator(`a[href*="/posts/"], a[href*="/permalink/"]`).All()
	for _, link := range links {
		href, err := link.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		post.PostURL, post.PostID = PostRef(href)
		break
	}
	if post.PostID == "" {
		post.PostID = PseudoID(content)
	}

	author := article.Locator(`a[role="link"] strong, h4 a`).First()
	if n, _ := author.Count(); n > 0 {
		if name, err := author.InnerText(); err == nil && strings.TrimSpace(name) != "" {
			name = strings.TrimSpace(name)
			post.AuthorName = &name
		}
	}

	images, _ := article.Locator(`img[src*="scontent"]`).All()
	for _, img := range images {
		if len(post.Images) >= maxImages {
			break
		}
		src, err := img.GetAttribute("src")
		if err != nil || src == "" || strings.Contains(strings.ToLower(src), "emoji") {
			continue
		}
		post.Images = append(post.Images, src)
	}

	timeLabel := article.Locator(`a[href*="/posts/"] span, abbr`).First()
	if n, _ := timeLabel.Count(); n > 0 {
		if label, err := timeLabel.InnerText(); err == nil {
			post.PostedAt = filter.ParsePostedAt(label, s.opts.Now())
		}
	}
	return post, true
}

func extractContent(article playwright.Locator) string {
	for _, selector := range contentSelectors {
		el := article.Locator(selector).First()
		if n, _ := el.Count(); n == 0 {
			continue
		}
		text, err := el.InnerText()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); len([]rune(text)) > minContentLen {
			return text
		}
	}
	return ""
}

// PostRef returns the absolute post URL and the numeric post id, if any.
func PostRef(href string) (string, string) {
	postURL := href
	if !strings.HasPrefix(href, "http") {
		postURL = baseURL + href
	}
	m := postIDPattern.FindStringSubmatch(href)
	if m == nil {
		return postURL, ""
	}
	if m[1] != "" {
		return postURL, m[1]
	}
	return postURL, m[2]
}

// PseudoID identifies a post without a permalink by its text.
func PseudoID(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

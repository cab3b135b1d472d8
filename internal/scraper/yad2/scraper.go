package yad2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"go-apartment-scout/internal/models"
)

const (
	DefaultWebURL = "https://www.yad2.co.il"
	groupName     = "Yad2"
	maxImages     = 5
	userAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultEndpoints are tried in order until one returns listings.
var DefaultEndpoints = []string{
	"https://gw.yad2.co.il/feed-search-legacy/realestate/rent",
	"https://gw.yad2.co.il/legacy-feed-search/realestate/rent",
	"https://gw.yad2.co.il/feed/realestate/rent",
}

var (
	digits     = regexp.MustCompile(`[^0-9]`)
	decimal    = regexp.MustCompile(`[0-9]+(?:\.[0-9])?`)
	itemID     = regexp.MustCompile(`/item/([a-zA-Z0-9]+)`)
	cardRooms  = regexp.MustCompile(`([0-9]+(?:\.[0-9])?)\s*חדרים`)
	cardPrice  = regexp.MustCompile(`₪\s*[0-9,]+|[0-9,]+\s*₪`)
	lineBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")
	dateLayout = []string{"2006-01-02", "02/01/2006"}
)

type Options struct {
	// Endpoints defaults to DefaultEndpoints
	Endpoints         []string
	WebURL            string
	City              int
	PriceMin          int
	PriceMax          int
	RoomsMin          float64
	RoomsMax          float64
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

type Scraper struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
}

func New(opts Options) *Scraper {
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = DefaultEndpoints
	}
	if opts.WebURL == "" {
		opts.WebURL = DefaultWebURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

func (s *Scraper) Name() string {
	return "yad2"
}

// listing is one apartment as read from the feed or the web page.
type listing struct {
	id           string
	title        string
	price        *int
	rooms        *float64
	floor        *int
	squareMeters *int
	city         string
	neighborhood string
	street       string
	description  string
	images       []string
	contactName  string
	dateAdded    *time.Time
	url          string
}

// Scrape tries each feed endpoint and falls back to the HTML search page.
func (s *Scraper) Scrape(ctx context.Context) ([]models.RawPost, error) {
	log.Println("🏠 Fetching listings from Yad2...")

	var listings []listing
	for _, endpoint := range s.opts.Endpoints {
		found, err := s.fetchFeed(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("⚠️ Yad2 endpoint %s failed: %v", endpoint, err)
			continue
		}
		if len(found) > 0 {
			log.Printf("   Found %d listings via %s", len(found), endpoint)
			listings = found
			break
		}
	}

	if len(listings) == 0 {
		log.Println("⚠️ Yad2 feed returned nothing, falling back to HTML")
		found, err := s.scrapeHTML(ctx)
		if err != nil {
			return nil, fmt.Errorf("yad2 html fallback: %w", err)
		}
		listings = found
	}

	groupURL := s.webSearchURL()
	posts := make([]models.RawPost, 0, len(listings))
	for _, l := range listings {
		posts = append(posts, l.toRawPost(groupURL))
	}
	return posts, nil
}

func (s *Scraper) searchParams() url.Values {
	params := url.Values{}
	if s.opts.City > 0 {
		params.Set("city", strconv.Itoa(s.opts.City))
	}
	if s.opts.PriceMin > 0 && s.opts.PriceMax > 0 {
		params.Set("price", fmt.Sprintf("%d-%d", s.opts.PriceMin, s.opts.PriceMax))
	}
	if s.opts.RoomsMin > 0 && s.opts.RoomsMax > 0 {
		params.Set("rooms", fmt.Sprintf("%d-%d", int(s.opts.RoomsMin), int(s.opts.RoomsMax)))
	}
	return params
}

func (s *Scraper) webSearchURL() string {
	u := strings.TrimRight(s.opts.WebURL, "/") + "/realestate/rent"
	if q := s.searchParams().Encode(); q != "" {
		u += "?" + q
	}
	return u
}

func (s *Scraper) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "he-IL,he;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Referer", DefaultWebURL+"/realestate/rent")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func (s *Scraper) fetchFeed(ctx context.Context, endpoint string) ([]listing, error) {
	u := endpoint
	if q := s.searchParams().Encode(); q != "" {
		u += "?" + q
	}
	body, err := s.get(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}
	return s.parseFeed(body)
}

func (s *Scraper) parseFeed(body []byte) ([]listing, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items := feedItems(data)
	var listings []listing
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if l, ok := s.parseItem(item); ok {
			listings = append(listings, l)
		}
	}
	if len(items) > 0 && len(listings) == 0 {
		return nil, errors.New("no feed item could be parsed")
	}
	return listings, nil
}

// feedItems accepts the feed shapes the API has been seen to return.
func feedItems(data map[string]any) []any {
	if d, ok := data["data"].(map[string]any); ok {
		if feed, ok := d["feed"].(map[string]any); ok {
			if items, ok := feed["feed_items"].([]any); ok {
				return items
			}
		}
		if items, ok := d["items"].([]any); ok {
			return items
		}
		if items, ok := d["feed_items"].([]any); ok {
			return items
		}
	}
	if items, ok := data["data"].([]any); ok {
		return items
	}
	if feed, ok := data["feed"].(map[string]any); ok {
		if items, ok := feed["feed_items"].([]any); ok {
			return items
		}
	}
	return nil
}

func (s *Scraper) parseItem(item map[string]any) (listing, bool) {
	switch str(item["type"]) {
	case "ad", "banner", "promotion":
		return listing{}, false
	}
	if truthy(item["is_premium_ad"]) || truthy(item["isAd"]) || truthy(item["promotional_ad"]) {
		return listing{}, false
	}

	var id string
	for _, key := range []string{"id", "token", "link_token", "itemId", "ad_number"} {
		if id = str(item[key]); id != "" {
			break
		}
	}
	if id == "" {
		return listing{}, false
	}

	l := listing{
		id:          id,
		street:      firstStr(item, "row_1", "title_1"),
		contactName: str(item["contact_name"]),
		url:         strings.TrimRight(s.opts.WebURL, "/") + "/realestate/item/" + id,
	}

	row4, _ := item["row_4"].([]any)
	priceRaw := item["price"]
	if priceRaw == nil {
		for _, r := range row4 {
			if m, ok := r.(map[string]any); ok && str(m["key"]) == "price" {
				priceRaw = m["value"]
				break
			}
		}
	}
	l.price = toInt(priceRaw)

	for _, r := range row4 {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		key := strings.ToLower(str(m["key"]))
		switch {
		case key == "price":
		case strings.Contains(key, "room"):
			l.rooms = toFloat(m["value"])
		case strings.Contains(key, "floor") || strings.Contains(key, "קומה"):
			l.floor = toInt(m["value"])
		case strings.Contains(key, "squar") || strings.Contains(key, "meter") || strings.Contains(key, "מ"):
			l.squareMeters = toInt(m["value"])
		}
	}
	if l.rooms == nil {
		row3, _ := item["row_3"].([]any)
		for _, r := range row3 {
			text := str(r)
			if !strings.Contains(text, "חדרים") {
				continue
			}
			if m := decimal.FindString(text); m != "" {
				l.rooms = toFloat(m)
				break
			}
		}
	}

	if row2 := str(item["row_2"]); strings.Contains(row2, ",") {
		parts := strings.Split(row2, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case len(parts) >= 3:
			l.neighborhood, l.city = parts[1], parts[2]
		case len(parts) == 2:
			l.city = parts[1]
		}
	}

	images, _ := item["images"].([]any)
	if images == nil {
		images, _ = item["images_urls"].([]any)
	}
	for _, img := range images {
		if len(l.images) >= maxImages {
			break
		}
		switch v := img.(type) {
		case string:
			l.images = append(l.images, v)
		case map[string]any:
			if src := firstStr(v, "src", "url"); src != "" {
				l.images = append(l.images, src)
			}
		}
	}

	switch t := item["title"].(type) {
	case []any:
		var parts []string
		for _, p := range t {
			if m, ok := p.(map[string]any); ok {
				parts = append(parts, str(m["value"]))
			} else {
				parts = append(parts, str(p))
			}
		}
		l.title = strings.Join(parts, " ")
	default:
		l.title = firstStr(item, "title", "row_1")
	}

	l.description = stripHTML(firstStr(item, "info_text", "description"))
	l.dateAdded = parseDate(firstStr(item, "date", "date_added"))
	return l, true
}

// scrapeHTML reads item links from the public search page.
func (s *Scraper) scrapeHTML(ctx context.Context) ([]listing, error) {
	body, err := s.get(ctx, s.webSearchURL(), "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]bool)
	var listings []listing
	doc.Find(`a[href*="/realestate/item/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := itemID.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		seen[m[1]] = true

		card := link.Closest("div")
		if card.Length() == 0 {
			card = link
		}
		text := card.Text()

		l := listing{id: m[1], url: href}
		if strings.HasPrefix(href, "/") {
			l.url = strings.TrimRight(s.opts.WebURL, "/") + href
		}
		if p := cardPrice.FindString(text); p != "" {
			l.price = toInt(p)
		}
		if r := cardRooms.FindStringSubmatch(text); r != nil {
			l.rooms = toFloat(r[1])
		}
		if h := card.Find("h2, h3, h4").First(); h.Length() > 0 {
			l.title = strings.TrimSpace(h.Text())
		} else {
			l.title = strings.TrimSpace(link.Text())
		}
		card.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			if src != "" && !strings.Contains(strings.ToLower(src), "placeholder") {
				l.images = append(l.images, src)
			}
			return len(l.images) < 3
		})
		listings = append(listings, l)
	})
	log.Printf("   Found %d listings from HTML", len(listings))
	return listings, nil
}

// toRawPost renders the listing as Hebrew text that the rule extractor reads.
func (l listing) toRawPost(groupURL string) models.RawPost {
	var parts []string
	if l.title != "" {
		parts = append(parts, l.title)
	}
	if l.price != nil && *l.price > 0 {
		parts = append(parts, fmt.Sprintf("מחיר: %s ₪", thousands(*l.price)))
	}
	if l.rooms != nil && *l.rooms > 0 {
		parts = append(parts, strconv.FormatFloat(*l.rooms, 'f', -1, 64)+" חדרים")
	}

	var location []string
	if l.neighborhood != "" {
		location = append(location, l.neighborhood)
	}
	if l.city != "" {
		location = append(location, l.city)
	}
	if len(location) > 0 {
		parts = append(parts, "מיקום: "+strings.Join(location, ", "))
	}
	if l.street != "" {
		parts = append(parts, "רחוב: "+l.street)
	}
	if l.floor != nil {
		parts = append(parts, fmt.Sprintf("קומה: %d", *l.floor))
	}
	if l.squareMeters != nil && *l.squareMeters > 0 {
		parts = append(parts, fmt.Sprintf("גודל: %d מ\"ר", *l.squareMeters))
	}
	if l.description != "" {
		parts = append(parts, "\n"+l.description)
	}

	post := models.RawPost{
		PostID:    l.id,
		Content:   strings.Join(parts, "\n"),
		PostURL:   l.url,
		Images:    l.images,
		PostedAt:  l.dateAdded,
		GroupName: groupName,
		GroupURL:  groupURL,
	}
	if l.contactName != "" {
		name := l.contactName
		post.AuthorName = &name
	}
	return post
}

func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(lineBreaks.Replace(s)))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayout {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + thousands(-n)
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := str(m[k]); v != "" {
			return v
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	}
	return false
}

func toInt(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		d := digits.ReplaceAllString(t, "")
		if d == "" {
			return nil
		}
		n, err := strconv.Atoi(d)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

func toFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

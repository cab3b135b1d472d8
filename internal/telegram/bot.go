package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"go-apartment-scout/internal/models"
)

// maxCaption is Telegram's limit for photo captions.
const maxCaption = 1024

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api           sender
	chatID        int64
	includeImages bool
}

func NewBot(token string, chatID int64, includeImages bool) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Bot{
		api:           api,
		chatID:        chatID,
		includeImages: includeImages,
	}, nil
}

var markdownReplacer = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
	")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
	"}", "\\}", ".", "\\.", "!", "\\!",
)

func escapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

// DisplayLocation turns "neve_tzedek" into "Neve Tzedek" and
// "street:ויטל" into "ויטל St".
func DisplayLocation(loc string) string {
	if street, ok := strings.CutPrefix(loc, "street:"); ok {
		return strings.TrimSpace(street) + " St"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(loc, "_", " "))
}

// formatPrice renders 6500 as "6,500".
func formatPrice(p int) string {
	s := strconv.Itoa(p)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

// FormatListing builds the MarkdownV2 message for a listing.
func FormatListing(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) string {
	var b strings.Builder

	if parsed.HasBonusFeatures() {
		b.WriteString("✨🏠 *EXCITING Apartment Found\\!* 🏠✨\n\n")
		title := cases.Title(language.English)
		features := make([]string, len(parsed.BonusFeatures))
		for i, f := range parsed.BonusFeatures {
			features[i] = title.String(f)
		}
		fmt.Fprintf(&b, "⭐ *Special Features:* %s\n\n", escapeMarkdown(strings.Join(features, ", ")))
	} else {
		b.WriteString("🏠 *New Apartment Found\\!*\n\n")
	}

	if parsed.Price != nil {
		fmt.Fprintf(&b, "💰 *Price:* ₪%s/month\n", escapeMarkdown(formatPrice(*parsed.Price)))
	}
	if parsed.Rooms != nil {
		fmt.Fprintf(&b, "🚪 *Rooms:* %s\n", escapeMarkdown(strconv.FormatFloat(*parsed.Rooms, 'g', -1, 64)))
	}
	if parsed.Location != nil {
		fmt.Fprintf(&b, "📍 *Location:* %s\n", escapeMarkdown(DisplayLocation(*parsed.Location)))
	}
	if parsed.IsRoommates != nil {
		kind := "Whole Apartment"
		if *parsed.IsRoommates {
			kind = "Roommates"
		}
		fmt.Fprintf(&b, "🏷️ *Type:* %s\n", kind)
	}
	if parsed.ContactInfo != nil {
		fmt.Fprintf(&b, "📞 *Contact:* %s\n", escapeMarkdown(*parsed.ContactInfo))
	}
	if parsed.Summary != nil {
		fmt.Fprintf(&b, "\n📝 %s\n", escapeMarkdown(*parsed.Summary))
	}

	if !result.Matches {
		b.WriteString("\n⚠️ _Partial match, some details are missing_\n")
	}
	fmt.Fprintf(&b, "🤖 Score: %s \\| Parsed by: %s\n",
		escapeMarkdown(strconv.FormatFloat(result.Score, 'f', 2, 64)), escapeMarkdown(string(parsed.ParsedBy)))
	fmt.Fprintf(&b, "\n📌 *Source:* %s\n", escapeMarkdown(listing.SourceGroup))

	return b.String()
}

// SendListing posts a listing with a link button. With images enabled and
// a short enough caption the first image is sent as a photo.
func (b *Bot) SendListing(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) error {
	text := FormatListing(listing, parsed, result)

	var markup any
	if listing.PostURL != "" {
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🔗 View Post", listing.PostURL),
			),
		)
	}

	var c tgbotapi.Chattable
	if b.includeImages && len(listing.Images) > 0 && utf8.RuneCountInString(text) <= maxCaption {
		photo := tgbotapi.NewPhoto(b.chatID, tgbotapi.FileURL(listing.Images[0]))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdownV2
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		c = photo
	} else {
		msg := tgbotapi.NewMessage(b.chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		c = msg
	}

	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("failed to send listing %s: %w", listing.ID, err)
	}
	return nil
}

// PlainText returns a sender for the same chat that drops MarkdownV2 and
// images. It delivers listings the formatted send could not.
func (b *Bot) PlainText() *PlainSender {
	return &PlainSender{bot: b}
}

type PlainSender struct {
	bot *Bot
}

func (p *PlainSender) SendListing(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) error {
	msg := tgbotapi.NewMessage(p.bot.chatID, FormatPlain(listing, parsed, result))
	msg.DisableWebPagePreview = true
	if _, err := p.bot.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send plain listing %s: %w", listing.ID, err)
	}
	return nil
}

// FormatPlain is the unformatted variant of FormatListing.
func FormatPlain(listing *models.Listing, parsed models.ParsedListing, result models.FilterResult) string {
	var b strings.Builder
	b.WriteString("🏠 New Apartment Found\n")
	if parsed.Price != nil {
		fmt.Fprintf(&b, "💰 Price: ₪%s/month\n", formatPrice(*parsed.Price))
	}
	if parsed.Rooms != nil {
		fmt.Fprintf(&b, "🚪 Rooms: %s\n", strconv.FormatFloat(*parsed.Rooms, 'g', -1, 64))
	}
	if parsed.Location != nil {
		fmt.Fprintf(&b, "📍 Location: %s\n", DisplayLocation(*parsed.Location))
	}
	if parsed.ContactInfo != nil {
		fmt.Fprintf(&b, "📞 Contact: %s\n", *parsed.ContactInfo)
	}
	if len(parsed.BonusFeatures) > 0 {
		fmt.Fprintf(&b, "⭐ Features: %s\n", strings.Join(parsed.BonusFeatures, ", "))
	}
	if !result.Matches {
		b.WriteString("⚠️ Partial match\n")
	}
	if listing.PostURL != "" {
		fmt.Fprintf(&b, "🔗 %s\n", listing.PostURL)
	}
	return b.String()
}

func (b *Bot) SendError(err error) error {
	msg := tgbotapi.NewMessage(b.chatID, fmt.Sprintf("❌ Error: %v", err))
	_, sendErr := b.api.Send(msg)
	return sendErr
}

func (b *Bot) SendStatus(message string) error {
	msg := tgbotapi.NewMessage(b.chatID, "ℹ️ "+message)
	_, err := b.api.Send(msg)
	return err
}

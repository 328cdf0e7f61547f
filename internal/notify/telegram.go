package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ebay_watcher/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends listing notifications to a single configured chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier with the given bot token and
// target chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send delivers one listing notification. Failures wrap ErrUnavailable so
// the caller can defer the listing to the next cycle.
func (t *Telegram) Send(ctx context.Context, l model.Listing) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatListing(l))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("%w: send message: %w", ErrUnavailable, err)
	}
	return nil
}

// FormatListing formats a listing as a Telegram HTML notification message.
func FormatListing(l model.Listing) string {
	price := "-"
	if l.PriceEUR > 0 {
		price = fmt.Sprintf("EUR %.2f", l.PriceEUR)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(l.Title))
	fmt.Fprintf(&b, "<b>Price:</b> %s\n", price)
	fmt.Fprintf(&b, "<b>Keyword:</b> %s\n", html.EscapeString(l.Keyword))
	fmt.Fprintf(&b, "<b>Listed:</b> %s\n", l.FirstSeenAt.Format("2006-01-02 15:04 UTC"))
	if l.URL != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Open listing</a>", html.EscapeString(l.URL))
	}
	return b.String()
}

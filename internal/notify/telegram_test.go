package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"ebay_watcher/internal/model"
)

type mockAPI struct {
	sent []tgbotapi.Chattable
	err  error
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.err != nil {
		return tgbotapi.Message{}, m.err
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func sampleListing() model.Listing {
	return model.Listing{
		ID:          "itm-1001",
		Keyword:     "playstation 5",
		Title:       "Sony Playstation 5 <Disc Edition>",
		PriceEUR:    429,
		URL:         "https://www.ebay.de/itm/1001",
		FirstSeenAt: time.Date(2026, 8, 25, 9, 15, 0, 0, time.UTC),
	}
}

func TestSend(t *testing.T) {
	api := &mockAPI{}
	n := &Telegram{api: api, chatID: -100}

	if err := n.Send(context.Background(), sampleListing()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(api.sent))
	}

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", api.sent[0])
	}
	if msg.ChatID != -100 {
		t.Errorf("chat ID: want -100, got %d", msg.ChatID)
	}
	if msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("parse mode: want HTML, got %q", msg.ParseMode)
	}
	if !strings.Contains(msg.Text, "EUR 429.00") {
		t.Errorf("message lacks price: %q", msg.Text)
	}
}

func TestSendAPIError(t *testing.T) {
	api := &mockAPI{err: errors.New("telegram: bad gateway")}
	n := &Telegram{api: api, chatID: 1}

	err := n.Send(context.Background(), sampleListing())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestSendCancelledContext(t *testing.T) {
	api := &mockAPI{}
	n := &Telegram{api: api, chatID: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, sampleListing())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if len(api.sent) != 0 {
		t.Errorf("expected no message on cancelled context, got %d", len(api.sent))
	}
}

func TestFormatListing(t *testing.T) {
	got := FormatListing(sampleListing())

	want := "<b>Sony Playstation 5 &lt;Disc Edition&gt;</b>\n\n" +
		"<b>Price:</b> EUR 429.00\n" +
		"<b>Keyword:</b> playstation 5\n" +
		"<b>Listed:</b> 2026-08-25 09:15 UTC\n" +
		"\n<a href=\"https://www.ebay.de/itm/1001\">Open listing</a>"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatListingNoPriceNoURL(t *testing.T) {
	l := sampleListing()
	l.PriceEUR = 0
	l.URL = ""

	got := FormatListing(l)
	if !strings.Contains(got, "<b>Price:</b> -") {
		t.Errorf("expected dash for unknown price, got %q", got)
	}
	if strings.Contains(got, "<a href") {
		t.Errorf("expected no link for empty URL, got %q", got)
	}
}

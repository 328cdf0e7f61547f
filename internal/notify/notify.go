// Package notify defines the notification boundary and its Telegram
// implementation.
package notify

import (
	"context"
	"errors"

	"ebay_watcher/internal/model"
)

// ErrUnavailable wraps any failure to deliver a notification. The engine
// leaves the listing unseen so the next cycle retries it.
var ErrUnavailable = errors.New("notifier unavailable")

// Notifier delivers a notification for a single listing.
type Notifier interface {
	Send(ctx context.Context, l model.Listing) error
}

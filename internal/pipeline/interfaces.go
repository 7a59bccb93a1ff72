// Package pipeline orchestrates one alert-watch run: fetch, canonicalize,
// filter, novelty-check, persist, batch, notify.
package pipeline

import (
	"context"

	"github.com/jo12no/lightrail-sydney-alerts/internal/alert"
	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
)

// FeedSource fetches the current service-alert document.
type FeedSource interface {
	FetchAlerts(ctx context.Context) (*feed.Document, error)
}

// AlertStore is the durable record of alerts already seen.
type AlertStore interface {
	// EnsureSchema creates the backing table if it does not exist.
	EnsureSchema(ctx context.Context) error

	// Exists reports whether an alert id is already recorded.
	Exists(ctx context.Context, alertID string) (bool, error)

	// Insert records one alert row, stamping creation_date store-side.
	Insert(ctx context.Context, a alert.Alert) error
}

// Notifier delivers one plain-text message to the operator.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

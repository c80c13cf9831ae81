// Package noop provides a tracker that discards every report. It backs the
// agent when no Sentry DSN is configured and keeps tests quiet.
package noop

import (
	"context"

	"coachai/pkg/errors"
)

// Tracker discards all error reports.
type Tracker struct{}

var _ errors.Tracker = (*Tracker)(nil)

// New creates a discarding tracker.
func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

func (t *Tracker) SetUser(ctx context.Context, userID string, email string, username string) {}

func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

func (t *Tracker) Flush(ctx context.Context) error {
	return nil
}

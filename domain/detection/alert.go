package detection

import (
	"context"
	"time"
)

// Alert describes the detection that triggered a notification.
type Alert struct {
	SessionID  string
	Sequence   uint64
	Confidence float64
	At         time.Time
}

type alertKey struct{}

// WithAlert attaches a to ctx for the Notifier and Archiver.
func WithAlert(ctx context.Context, a Alert) context.Context {
	return context.WithValue(ctx, alertKey{}, a)
}

// AlertFromContext returns the alert attached by the scheduler, if any.
func AlertFromContext(ctx context.Context) (Alert, bool) {
	a, ok := ctx.Value(alertKey{}).(Alert)
	return a, ok
}

// Package notify delivers the detection alert over email, SMS and a
// message broker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/metrics"
)

// Channel delivers the alert to addressed destinations it accepts.
type Channel interface {
	Name() string
	Accepts(destination string) bool
	Send(ctx context.Context, destinations []string) error
}

// Publisher emits one AlertEvent per detection regardless of destinations.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev AlertEvent) error
}

// AlertEvent is the broker payload for a detection.
type AlertEvent struct {
	SessionID    string    `json:"session_id"`
	Sequence     uint64    `json:"sequence"`
	Confidence   float64   `json:"confidence"`
	Message      string    `json:"message"`
	Host         string    `json:"host,omitempty"`
	Destinations []string  `json:"destinations"`
	At           time.Time `json:"at"`
}

// Multi routes each destination to the first channel that accepts it and
// fans the event out to every publisher. It implements detection.Notifier.
type Multi struct {
	message    string
	channels   []Channel
	publishers []Publisher
	logger     *slog.Logger
}

func NewMulti(message string, logger *slog.Logger, channels []Channel, publishers ...Publisher) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{message: message, channels: channels, publishers: publishers, logger: logger}
}

var _ detection.Notifier = (*Multi)(nil)

// Notify attempts every channel and publisher and joins their errors.
func (m *Multi) Notify(ctx context.Context, destinations []string) error {
	routed := make([][]string, len(m.channels))
	for _, d := range destinations {
		idx := m.route(d)
		if idx < 0 {
			m.logger.Warn("unroutable destination", "destination", d)
			metrics.NotificationsTotal.WithLabelValues("none", "unroutable").Inc()
			continue
		}
		routed[idx] = append(routed[idx], d)
	}

	var errs []error
	for i, ch := range m.channels {
		if len(routed[i]) == 0 {
			continue
		}
		err := ch.Send(ctx, routed[i])
		m.record(ch.Name(), len(routed[i]), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}

	if len(m.publishers) > 0 {
		ev := m.event(ctx, destinations)
		for _, p := range m.publishers {
			err := p.Publish(ctx, ev)
			m.record(p.Name(), 1, err)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) route(destination string) int {
	for i, ch := range m.channels {
		if ch.Accepts(destination) {
			return i
		}
	}
	return -1
}

func (m *Multi) record(channel string, n int, err error) {
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(channel, "error").Inc()
		m.logger.Error("alert delivery failed", "channel", channel, "recipients", n, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(channel, "sent").Inc()
	m.logger.Info("alert delivered", "channel", channel, "recipients", n)
}

func (m *Multi) event(ctx context.Context, destinations []string) AlertEvent {
	ev := AlertEvent{
		Message:      m.message,
		Destinations: append([]string(nil), destinations...),
		At:           time.Now().UTC(),
	}
	if a, ok := detection.AlertFromContext(ctx); ok {
		ev.SessionID = a.SessionID
		ev.Sequence = a.Sequence
		ev.Confidence = a.Confidence
		ev.At = a.At.UTC()
	}
	if h, err := os.Hostname(); err == nil {
		ev.Host = h
	}
	return ev
}

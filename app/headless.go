package app

import (
	"context"
	"time"

	"github.com/soocke/weapon-watch/domain/detection"
)

// logViews is the headless front end: no preview, alert changes go to the
// log.
type logViews struct{ c *AppContainer }

func (logViews) PreviewReset()                  {}
func (logViews) ConfigEditable(bool)            {}
func (logViews) SetSession(_, _ time.Duration)  {}
func (logViews) SetCounts(_, _ int)             {}
func (logViews) Display() detection.DisplaySink { return nil }

func (v logViews) SetAlert(label string) {
	if label != "" {
		v.c.Logger.Warn("alert", "label", label)
	}
}

// Headless runs a single session without a window.
type Headless struct{ c *AppContainer }

// NewHeadless binds the container's presenters to log output.
func NewHeadless(c *AppContainer) *Headless {
	c.Bind(logViews{c}, nil)
	return &Headless{c: c}
}

// Run starts the session and ticks it until ctx is done, then tears it
// down.
func (h *Headless) Run(ctx context.Context) error {
	c := h.c
	if err := c.DetectorPresenter.Enable(); err != nil {
		return err
	}
	c.Logger.Info("headless detection started", "source", c.Config.Source, "classifier", c.Config.Classifier)

	t := time.NewTimer(c.Interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return c.Close()
		case <-t.C:
			c.Loop.Tick()
			t.Reset(c.Interval())
		}
	}
}

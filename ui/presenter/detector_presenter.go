package presenter

import (
	"fmt"
	"log/slog"
	"sync"
)

// DetectorModel provides enabled state access.
type DetectorModel interface {
	Enabled() bool
	SetEnabled(bool)
}

// DetectorView updates UI elements affected by starting or stopping a
// session.
type DetectorView interface {
	PreviewReset()
	ConfigEditable(bool)
}

// DetectorPresenter owns the session lifecycle: Enable navigates into the
// live view and starts a session, Disable tears it down.
type DetectorPresenter struct {
	model  DetectorModel
	open   SessionFactory
	view   DetectorView
	logger *slog.Logger

	mu     sync.Mutex
	active DetectionSession
}

func NewDetectorPresenter(model DetectorModel, open SessionFactory, view DetectorView, logger *slog.Logger) *DetectorPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectorPresenter{model: model, open: open, view: view, logger: logger}
}

// Active returns the running session, or nil. Safe from any goroutine.
func (p *DetectorPresenter) Active() DetectionSession {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Enable opens a session and locks the config panel. Idempotent.
func (p *DetectorPresenter) Enable() error {
	if p == nil || p.model == nil || p.open == nil || p.view == nil {
		return nil
	}
	if p.model.Enabled() {
		return nil
	}
	sess, err := p.open()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	p.mu.Lock()
	p.active = sess
	p.mu.Unlock()
	p.model.SetEnabled(true)
	p.view.ConfigEditable(false)
	return nil
}

// Disable closes the session, waiting for any analysis still in flight,
// and resets the preview. Idempotent.
func (p *DetectorPresenter) Disable() error {
	if p == nil || p.model == nil || p.view == nil {
		return nil
	}
	if !p.model.Enabled() {
		return nil
	}
	p.mu.Lock()
	sess := p.active
	p.active = nil
	p.mu.Unlock()
	p.model.SetEnabled(false)

	var err error
	if sess != nil {
		err = sess.Close()
	}
	p.view.PreviewReset()
	p.view.ConfigEditable(true)
	if err != nil {
		p.logger.Error("close session", "error", err)
		return err
	}
	return nil
}

// ToggleError records which way a failed Toggle was going.
type ToggleError struct {
	Starting bool
	Err      error
}

func (e *ToggleError) Error() string {
	if e.Starting {
		return "start detection: " + e.Err.Error()
	}
	return "stop detection: " + e.Err.Error()
}

func (e *ToggleError) Unwrap() error { return e.Err }

// Message is the status-line text for the failure.
func (e *ToggleError) Message() string {
	if e.Starting {
		return "Cannot start: " + e.Err.Error()
	}
	return "Cannot stop: " + e.Err.Error()
}

// Toggle flips enabled state delegating to Enable/Disable. Failures are
// returned as *ToggleError.
func (p *DetectorPresenter) Toggle() error {
	if p == nil || p.model == nil {
		return nil
	}
	starting := !p.model.Enabled()
	var err error
	if starting {
		err = p.Enable()
	} else {
		err = p.Disable()
	}
	if err != nil {
		return &ToggleError{Starting: starting, Err: err}
	}
	return nil
}

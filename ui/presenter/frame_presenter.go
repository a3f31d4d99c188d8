package presenter

import (
	"errors"
	"log/slog"

	"github.com/soocke/weapon-watch/domain/detection"
)

// gapWarnTicks is how many consecutive empty reads are tolerated before
// the gap is logged.
const gapWarnTicks = 30

// FramePresenter drives one scheduler tick per loop iteration. Frames are
// shown through the session's DisplaySink inside Tick.
type FramePresenter struct {
	sessions ActiveSession
	logger   *slog.Logger
	gap      int
}

func NewFramePresenter(sessions ActiveSession, logger *slog.Logger) *FramePresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FramePresenter{sessions: sessions, logger: logger}
}

// ProcessFrame ticks the active session, if any.
func (p *FramePresenter) ProcessFrame() {
	if p == nil || p.sessions == nil {
		return
	}
	sess := p.sessions.Active()
	if sess == nil {
		p.gap = 0
		return
	}
	err := sess.Tick()
	switch {
	case err == nil:
		if p.gap >= gapWarnTicks {
			p.logger.Info("frames resumed", "missed", p.gap)
		}
		p.gap = 0
	case errors.Is(err, detection.ErrFrameUnavailable):
		p.gap++
		if p.gap == gapWarnTicks {
			p.logger.Warn("video source stalled", "missed", p.gap)
		}
	case errors.Is(err, detection.ErrSessionClosed):
	default:
		p.logger.Error("tick", "error", err)
	}
}

package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// Each Tick advances the active session by one frame, then refreshes the
// alert label and session stats, then invokes the scheduler callback. The
// zero value is usable (methods are nil-safe).
type Loop struct {
	Frame    *FramePresenter
	Status   *StatusPresenter
	Session  *SessionPresenter
	Schedule func()
}

func NewLoop(frame *FramePresenter, status *StatusPresenter, sess *SessionPresenter, schedule func()) *Loop {
	return &Loop{Frame: frame, Status: status, Session: sess, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	if l.Frame != nil {
		l.Frame.ProcessFrame()
	}
	if l.Status != nil {
		l.Status.Tick()
	}
	if l.Session != nil {
		l.Session.Tick(time.Now())
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}

package model

import (
	"time"
)

// SessionModel tracks how long the current detection session has been
// watching and the accumulated watch time across sessions. Presenters poll
// Values(). The zero value is ready to use.
type SessionModel struct {
	active              bool
	sessionStart        time.Time
	lastSessionDuration time.Duration
	accumulated         time.Duration
	sessions            int
	detections          int
	detectedThisSession bool
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick advances the model from the detector's enabled state and whether
// the running session has confirmed a weapon.
func (m *SessionModel) OnTick(watching, detected bool, now time.Time) {
	if m == nil {
		return
	}
	if watching {
		if !m.active { // off -> on
			m.active = true
			m.sessionStart = now
			m.lastSessionDuration = 0
			m.sessions++
			m.detectedThisSession = false
		}
		m.lastSessionDuration = now.Sub(m.sessionStart)
		if detected && !m.detectedThisSession {
			m.detectedThisSession = true
			m.detections++
		}
	} else if m.active { // on -> off
		m.lastSessionDuration = now.Sub(m.sessionStart)
		m.accumulated += m.lastSessionDuration
		m.active = false
	}
}

// Counts returns the number of sessions started and how many of them
// confirmed a weapon.
func (m *SessionModel) Counts() (sessions, detections int) {
	if m == nil {
		return 0, 0
	}
	return m.sessions, m.detections
}

// Values returns the current session duration and the total accumulated duration.
// The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.lastSessionDuration
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

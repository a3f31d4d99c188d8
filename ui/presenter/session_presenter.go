package presenter

import (
	"time"

	"github.com/soocke/weapon-watch/ui/model"
)

// SessionView displays session and total watch durations and counts.
type SessionView interface {
	SetSession(session, total time.Duration)
	SetCounts(sessions, detections int)
}

// SessionPresenter formats session durations from the model to the view.
type SessionPresenter struct {
	sess     *model.SessionModel
	sessions ActiveSession
	view     SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, sessions ActiveSession, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, sessions: sessions, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.sessions == nil || p.view == nil {
		return
	}
	active := p.sessions.Active()
	p.sess.OnTick(active != nil, active != nil && active.Detected(), now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t)
	p.view.SetCounts(p.sess.Counts())
}

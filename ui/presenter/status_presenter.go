package presenter

import (
	"github.com/soocke/weapon-watch/ui/model"
)

// StatusView shows the alert text; empty means no alert.
type StatusView interface{ SetAlert(string) }

// StatusPresenter refreshes the alert label from the active session and
// only touches the view when the text changes.
type StatusPresenter struct {
	sessions ActiveSession
	model    *model.StatusModel
	view     StatusView
}

func NewStatusPresenter(sessions ActiveSession, m *model.StatusModel, view StatusView) *StatusPresenter {
	if m == nil {
		m = model.NewStatusModel()
	}
	return &StatusPresenter{sessions: sessions, model: m, view: view}
}

// Tick reads the session label and pushes it to the view on change.
func (p *StatusPresenter) Tick() {
	if p == nil || p.view == nil {
		return
	}
	label := ""
	if p.sessions != nil {
		if sess := p.sessions.Active(); sess != nil {
			label = sess.Label()
		}
	}
	if p.model.Set(label) {
		p.view.SetAlert(label)
	}
}

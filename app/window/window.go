package window

import (
	"errors"
	"fmt"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/weapon-watch/app"
	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/ui/presenter"
	"github.com/soocke/weapon-watch/ui/view"
)

type window struct {
	c       *app.AppContainer
	root    *view.RootView
	afterID string
	closed  bool
}

// tkViews adapts the root view to the container's Views.
type tkViews struct{ *view.RootView }

func (v tkViews) Display() detection.DisplaySink { return v.Preview }

// Run builds the Tk window and blocks until it is closed.
func Run(c *app.AppContainer, title string, width, height int) {
	a := &window{c: c, root: view.NewRootView(c.Config, c.CfgPath, c.Logger)}

	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exit)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))

	a.root.Build(view.Handlers{
		OnToggle:        a.toggle,
		OnExit:          a.exit,
		OnSourceChanged: a.sourceChanged,
	})
	c.Bind(tkViews{a.root}, a.scheduleUpdate)

	a.scheduleUpdate()
	App.Wait()
}

func (a *window) toggle() {
	if err := a.c.DetectorPresenter.Toggle(); err != nil {
		a.c.Logger.Error("toggle detection", "error", err)
		msg := err.Error()
		var te *presenter.ToggleError
		if errors.As(err, &te) {
			msg = te.Message()
		}
		a.root.SetAlert(msg)
		return
	}
	a.c.Status.Reset()
}

func (a *window) sourceChanged(kind string) {
	if a.c.Detector.Enabled() {
		return
	}
	a.c.Config.Source = kind
	if err := a.c.Config.Save(a.c.CfgPath); err != nil {
		a.c.Logger.Error("config save failed", "error", err)
	}
	a.c.Logger.Info("video source changed", "source", kind)
}

// exit tears the session down (waiting for any analysis in flight) before
// destroying the window.
func (a *window) exit() {
	if a.closed {
		return
	}
	a.closed = true
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	if err := a.c.Close(); err != nil {
		a.c.Logger.Error("shutdown", "error", err)
	}
	Destroy(App)
}

func (a *window) update() {
	a.c.Loop.Tick()
}

// scheduleUpdate queues the next loop tick on Tk's event loop thread.
func (a *window) scheduleUpdate() {
	if a.closed {
		return
	}
	a.afterID = TclAfter(a.c.Interval(), a.update)
}

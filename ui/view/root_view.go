package view

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/soocke/weapon-watch/config"
	"github.com/soocke/weapon-watch/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const idleStatus = "No weapon detected"

// RootView composes the top-level layout and wires UI callbacks. It exposes
// its subviews so the container can hand them to presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	Session     SessionStats
	ConfigPanel ConfigPanel
	Preview     Preview
	Region      RegionPicker

	StatusLabel  *TLabelWidget
	SourceSelect *TComboboxWidget
	toggleBtn    *TButtonWidget
}

// Handlers are the user actions the root view forwards.
type Handlers struct {
	OnToggle        func()
	OnExit          func()
	OnSourceChanged func(kind string)
}

var sourceKinds = []string{config.SourceCamera, config.SourceFile, config.SourceScreen}

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout.
func (rv *RootView) Build(h Handlers) {
	if rv == nil {
		return
	}
	theme.InitStyles()

	// Rows 0-1: session stats, alert label, buttons frame
	rv.Session = NewSessionStats(0, 0)
	rv.StatusLabel = TLabel(Txt(idleStatus), Style(theme.StyleStatusIdle), Anchor("center"))
	Grid(rv.StatusLabel, Row(0), Column(2), Rowspan(2), Sticky("nswe"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Rowspan(2), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.toggleBtn = TButton(Txt("Start Watching"), Style(theme.StylePrimaryButton), Command(h.OnToggle))
	Grid(rv.toggleBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	rv.SourceSelect = TCombobox(Values(sourceKinds), Width(12), State("readonly"))
	Grid(rv.SourceSelect, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.SourceSelect.Current(sourceIndex(rv.cfg))
	Bind(rv.SourceSelect, "<<ComboboxSelected>>", Command(func() {
		idx, err := strconv.Atoi(rv.SourceSelect.Current(nil))
		if err != nil || idx < 0 || idx >= len(sourceKinds) {
			if rv.logger != nil {
				rv.logger.Error("source selection parse error", "error", err)
			}
			return
		}
		if h.OnSourceChanged != nil {
			h.OnSourceChanged(sourceKinds[idx])
		}
	}))

	rv.Region = NewRegionPicker(rv.cfg, rv.cfgPath, rv.logger)
	regionBtn := Button(Txt("Screen Region"), Command(rv.Region.OpenOrFocus))
	Grid(regionBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(h.OnExit))
	Grid(exitBtn, In(btnFrame), Row(3), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger)
	endRow := rv.ConfigPanel.Build(2)

	rv.Preview = NewPreview(endRow)
}

func sourceIndex(cfg *config.Config) int {
	if cfg != nil {
		for i, k := range sourceKinds {
			if k == cfg.Source {
				return i
			}
		}
	}
	return 0
}

// SetAlert shows the alert text, or the idle text when empty.
func (rv *RootView) SetAlert(text string) {
	if rv == nil || rv.StatusLabel == nil {
		return
	}
	if text == "" {
		rv.StatusLabel.Configure(Txt(idleStatus), Style(theme.StyleStatusIdle))
		return
	}
	rv.StatusLabel.Configure(Txt(text), Style(theme.StyleStatusAlert))
}

func (rv *RootView) SetSession(session, total time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(session)
	rv.Session.SetTotal(total)
}

func (rv *RootView) SetCounts(sessions, detections int) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetCounts(sessions, detections)
}

// --- DetectorPresenter view contract ---

// PreviewReset clears the preview.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

// ConfigEditable locks the settings while a session runs and flips the
// toggle button caption.
func (rv *RootView) ConfigEditable(b bool) {
	if rv == nil {
		return
	}
	if rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(b)
	}
	state := "readonly"
	caption := "Start Watching"
	if !b {
		state = "disabled"
		caption = "Stop Watching"
	}
	if rv.SourceSelect != nil {
		rv.SourceSelect.Configure(State(state))
	}
	if rv.toggleBtn != nil {
		rv.toggleBtn.Configure(Txt(caption))
	}
}

package view

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/weapon-watch/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel is the settings form. ApplyChanges writes the parsed values
// back into *config.Config and persists them. Changes take effect on the
// next session.
type ConfigPanel interface {
	Build(startRow int) (endRow int)
	SetEditable(enabled bool)
	ApplyChanges()
	Refresh()
}

type configPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget // keyed by field id
}

func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, widgets: make(map[string]*TextWidget)}
}

type panelField struct {
	id, label string
	value     func(c *config.Config) string
}

var panelFields = []panelField{
	{"videoPath", "Video File", func(c *config.Config) string { return c.VideoPath }},
	{"cameraIndex", "Camera Index", func(c *config.Config) string { return strconv.Itoa(c.CameraIndex) }},
	{"loopVideo", "Loop Video (true/false)", func(c *config.Config) string { return strconv.FormatBool(c.LoopVideo) }},
	{"fps", "FPS (0 = source rate)", func(c *config.Config) string { return fmt.Sprintf("%.1f", c.FPS) }},
	{"classifier", "Classifier (sightengine/template)", func(c *config.Config) string { return c.Classifier }},
	{"threshold", "Threshold", func(c *config.Config) string { return fmt.Sprintf("%.3f", c.Threshold) }},
	{"templatePath", "Template Image", func(c *config.Config) string { return c.TemplatePath }},
	{"destinations", "Alert Destinations", func(c *config.Config) string { return strings.Join(c.Destinations, ", ") }},
}

func (v *configPanel) Build(startRow int) (row int) {
	row = startRow
	for _, f := range panelFields {
		lbl := Label(Txt(f.label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(32))
		Grid(w, Row(row), Column(1), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		v.widgets[f.id] = w
		row++
	}
	v.Refresh()
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

// Refresh reloads widget text from the config.
func (v *configPanel) Refresh() {
	if v.cfg == nil {
		return
	}
	for _, f := range panelFields {
		if w := v.widgets[f.id]; w != nil {
			w.Delete("1.0", END)
			w.Insert("1.0", f.value(v.cfg))
		}
	}
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) text(id string) (string, bool) {
	w := v.widgets[id]
	if w == nil {
		return "", false
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), "")), true
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	cfg := *v.cfg
	cfg.Destinations = append([]string(nil), v.cfg.Destinations...)
	if s, ok := v.text("videoPath"); ok {
		cfg.VideoPath = s
	}
	if s, ok := v.text("cameraIndex"); ok {
		if i, err := strconv.Atoi(s); err == nil {
			cfg.CameraIndex = i
		}
	}
	if s, ok := v.text("loopVideo"); ok {
		if b, ok := parseBoolLoose(s); ok {
			cfg.LoopVideo = b
		}
	}
	if s, ok := v.text("fps"); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.FPS = f
		}
	}
	if s, ok := v.text("classifier"); ok && s != "" {
		cfg.Classifier = strings.ToLower(s)
	}
	if s, ok := v.text("threshold"); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.Threshold = f
		}
	}
	if s, ok := v.text("templatePath"); ok {
		cfg.TemplatePath = s
	}
	if s, ok := v.text("destinations"); ok {
		cfg.Destinations = strings.Split(s, ",")
	}
	if err := cfg.Validate(); err != nil {
		if v.logger != nil {
			v.logger.Warn("config rejected", "error", err)
		}
		return
	}
	*v.cfg = cfg
	v.Refresh()
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath)
	}
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	default:
		return false, false
	}
}

package theme

// Styling for the weapon-watch window: palette constants and InitStyles,
// which activates the base theme and configures the semantic styles below.

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	ColorBg        = "#f7f9fb" // app background
	ColorSurface   = "#ffffff" // panels
	ColorPrimary   = "#2563eb" // buttons
	ColorDanger    = "#dc2626"
	ColorDangerBg  = "#fee2e2"
	ColorAccent    = "#10b981"
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b"
)

// Style names used with Style(...).
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleStatusIdle    = "idle.TLabel"
	StyleStatusAlert   = "alert.TLabel"
)

// InitStyles applies the palette. Call once after the root window exists.
func InitStyles() {
	_ = ActivateTheme("azure light")
	App.Configure(Background(ColorBg))

	StyleConfigure(StylePrimaryButton,
		Background(ColorPrimary),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleDangerButton,
		Background(ColorDanger),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleStatusIdle,
		Foreground(ColorTextMuted),
		Background(ColorSurface),
		Padding("4p 2p"),
		Borderwidth(1),
		Relief("groove"),
	)
	// Alert label stays loud: white on red.
	StyleConfigure(StyleStatusAlert,
		Foreground("white"),
		Background(ColorDanger),
		Padding("6p 4p"),
		Borderwidth(2),
		Relief("raised"),
	)
}

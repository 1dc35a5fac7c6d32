// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chillgpt-tui/internal/config"
)

// =============================================================================
// PALETTE
// =============================================================================

// Palette is the set of colours one theme draws with.
type Palette struct {
	// Accent is the brand colour: headers, the prompt, the unread badge
	Accent lipgloss.Color
	// AccentDim backs selected or secondary accents
	AccentDim lipgloss.Color

	Surface    lipgloss.Color
	SurfaceDim lipgloss.Color
	Border     lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	TextInverse   lipgloss.Color

	UserBubbleBg     lipgloss.Color
	UserBubbleFg     lipgloss.Color
	UserBubbleBorder lipgloss.Color

	AssistantBubbleBg     lipgloss.Color
	AssistantBubbleFg     lipgloss.Color
	AssistantBubbleBorder lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// CodeStyle is the chroma style name for fenced code
	CodeStyle string
	// GlamourStyle is the glamour standard style name ("dark" or "light")
	GlamourStyle string
}

// DarkIce is the default palette: frosted blues on a near-black surface.
var DarkIce = Palette{
	Accent:    "#81D4FA",
	AccentDim: "#0288D1",

	Surface:    "#0B1620",
	SurfaceDim: "#11212E",
	Border:     "#1E3A4F",

	TextPrimary:   "#E3F2FD",
	TextSecondary: "#A7C7DC",
	TextMuted:     "#5F8398",
	TextInverse:   "#0B1620",

	UserBubbleBg:     "#163247",
	UserBubbleFg:     "#E3F2FD",
	UserBubbleBorder: "#4FC3F7",

	AssistantBubbleBg:     "#0F1C27",
	AssistantBubbleFg:     "#D6EAF8",
	AssistantBubbleBorder: "#2C5A75",

	Success: "#80CBC4",
	Warning: "#FFE082",
	Error:   "#FF8A80",
	Info:    "#81D4FA",

	CodeStyle:    "nord",
	GlamourStyle: "dark",
}

// LightSnow is the light-background palette.
var LightSnow = Palette{
	Accent:    "#0277BD",
	AccentDim: "#B3E5FC",

	Surface:    "#F5FBFF",
	SurfaceDim: "#E8F4FB",
	Border:     "#B0D4E8",

	TextPrimary:   "#0D2636",
	TextSecondary: "#37596D",
	TextMuted:     "#7A97A8",
	TextInverse:   "#FFFFFF",

	UserBubbleBg:     "#E1F3FD",
	UserBubbleFg:     "#0D2636",
	UserBubbleBorder: "#0288D1",

	AssistantBubbleBg:     "#FFFFFF",
	AssistantBubbleFg:     "#1B3A4B",
	AssistantBubbleBorder: "#B0D4E8",

	Success: "#00796B",
	Warning: "#B26A00",
	Error:   "#C62828",
	Info:    "#0277BD",

	CodeStyle:    "github",
	GlamourStyle: "light",
}

// NeonIce trades the muted blues for saturated cyan and magenta.
var NeonIce = Palette{
	Accent:    "#00F0FF",
	AccentDim: "#7B2FF7",

	Surface:    "#05050F",
	SurfaceDim: "#0E0E24",
	Border:     "#3A2A7A",

	TextPrimary:   "#F0FCFF",
	TextSecondary: "#B5C8FF",
	TextMuted:     "#6B6FA8",
	TextInverse:   "#05050F",

	UserBubbleBg:     "#1A0F3D",
	UserBubbleFg:     "#F0FCFF",
	UserBubbleBorder: "#FF2BD6",

	AssistantBubbleBg:     "#071A24",
	AssistantBubbleFg:     "#DDFBFF",
	AssistantBubbleBorder: "#00F0FF",

	Success: "#39FF14",
	Warning: "#FFE600",
	Error:   "#FF3864",
	Info:    "#00F0FF",

	CodeStyle:    "dracula",
	GlamourStyle: "dark",
}

// PaletteFor returns the palette of a concrete theme. Auto must be resolved
// first; unknown names fall back to dark-ice.
func PaletteFor(t config.Theme) Palette {
	switch t {
	case config.ThemeLightSnow:
		return LightSnow
	case config.ThemeNeonIce:
		return NeonIce
	default:
		return DarkIce
	}
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicators pair every status colour with a shape so state never
// depends on colour alone.
var StatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "✓",
	Error:   "✗",
	Warning: "⚠",
	Info:    "ℹ",
}

// ASCIIStatusIndicators replace StatusIndicators when colour is off.
var ASCIIStatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

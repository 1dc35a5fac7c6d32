// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chillgpt-tui/internal/config"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewThemeFor_ResolvesAuto(t *testing.T) {
	tests := []struct {
		name     config.Theme
		dark     bool
		want     config.Theme
		wantDark bool
	}{
		{config.ThemeAuto, true, config.ThemeDarkIce, true},
		{config.ThemeAuto, false, config.ThemeLightSnow, false},
		{config.ThemeNeonIce, false, config.ThemeNeonIce, true},
		{config.ThemeLightSnow, true, config.ThemeLightSnow, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			theme := NewThemeFor(tt.name, termenv.TrueColor, tt.dark)
			if theme.Name != tt.want {
				t.Errorf("Name = %q, want %q", theme.Name, tt.want)
			}
			if theme.IsDark != tt.wantDark {
				t.Errorf("IsDark = %v, want %v", theme.IsDark, tt.wantDark)
			}
		})
	}
}

func TestPaletteFor(t *testing.T) {
	if PaletteFor(config.ThemeLightSnow).Accent != LightSnow.Accent {
		t.Error("light-snow should use the LightSnow palette")
	}
	if PaletteFor(config.ThemeNeonIce).Accent != NeonIce.Accent {
		t.Error("neon-ice should use the NeonIce palette")
	}
	if PaletteFor("bogus").Accent != DarkIce.Accent {
		t.Error("unknown themes should fall back to dark-ice")
	}
}

func TestPalettes_CodeStylesExist(t *testing.T) {
	for _, p := range []Palette{DarkIce, LightSnow, NeonIce} {
		if styles.Get(p.CodeStyle) == styles.Fallback {
			t.Errorf("chroma style %q is not registered", p.CodeStyle)
		}
		if p.GlamourStyle != "dark" && p.GlamourStyle != "light" {
			t.Errorf("GlamourStyle = %q", p.GlamourStyle)
		}
	}
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestStatusRenderers_IncludeIndicators(t *testing.T) {
	color := NewThemeFor(config.ThemeDarkIce, termenv.TrueColor, true)
	if got := color.RenderError("boom"); !strings.Contains(got, StatusIndicators.Error) || !strings.Contains(got, "boom") {
		t.Errorf("RenderError = %q", got)
	}

	plain := NewThemeFor(config.ThemeDarkIce, termenv.Ascii, true)
	if got := plain.RenderWarning("careful"); !strings.Contains(got, ASCIIStatusIndicators.Warning) {
		t.Errorf("RenderWarning without colour = %q, want ASCII indicator", got)
	}
	if plain.TypingSpinner().Frames[0] != DotsSpinner.Frames[0] {
		t.Error("ASCII terminals should use the dots spinner")
	}
}

func TestSpinnerConfig(t *testing.T) {
	s := SnowSpinner.Bubbles()
	if len(s.Frames) != len(SnowSpinner.Frames) {
		t.Errorf("Frames = %d", len(s.Frames))
	}
	if s.FPS != SnowSpinner.Duration() {
		t.Errorf("FPS = %v, want %v", s.FPS, SnowSpinner.Duration())
	}
	if (SpinnerConfig{}).Duration() <= 0 {
		t.Error("zero FPS should not divide by zero")
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestLayoutMode(t *testing.T) {
	theme := NewThemeFor(config.ThemeDarkIce, termenv.TrueColor, true)
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode(%d) = %v, want %v", tt.width, got, tt.want)
		}
		if w := theme.BubbleWidth(); w > tt.width || w <= 0 {
			t.Errorf("BubbleWidth(%d) = %d", tt.width, w)
		}
	}
}

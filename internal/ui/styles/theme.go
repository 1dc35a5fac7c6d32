// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chillgpt-tui/internal/config"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Name is the concrete theme in use (never auto)
	Name    config.Theme
	Palette Palette

	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusValue  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// FEEDBACK STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	TypingText   lipgloss.Style
	UnreadBadge  lipgloss.Style
	ErrorBanner  lipgloss.Style
	ErrorTitle   lipgloss.Style
	Notice       lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	InfoStyle    lipgloss.Style
	Muted        lipgloss.Style

	// ==========================================================================
	// CODE BLOCK STYLES
	// ==========================================================================

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style
}

// NewTheme builds the named theme for the current terminal. Auto picks
// dark-ice or light-snow from the terminal background.
func NewTheme(name config.Theme) *Theme {
	return NewThemeFor(name, termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeFor builds a theme for an explicit profile and background, which
// keeps tests independent of the terminal they run in.
func NewThemeFor(name config.Theme, profile termenv.Profile, darkBackground bool) *Theme {
	resolved := name.Resolve(darkBackground)
	t := &Theme{
		Name:         resolved,
		Palette:      PaletteFor(resolved),
		IsDark:       resolved != config.ThemeLightSnow,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// HasColor reports whether the terminal renders any colour at all.
func (t *Theme) HasColor() bool {
	return t.ColorProfile != termenv.Ascii
}

// initStyles initializes all the lip gloss styles from the palette.
func (t *Theme) initStyles() {
	p := t.Palette

	// Header
	t.Header = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		Background(p.SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserBubbleFg).
		Background(p.UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.UserBubbleBorder).
		Padding(0, 1)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(p.AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.AssistantBubbleBorder).
		Padding(0, 1)

	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.CharCount = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.CharCountWarning = lipgloss.NewStyle().
		Foreground(p.Warning).
		Bold(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Background(p.SurfaceDim).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Background(p.SurfaceDim)

	t.StatusValue = lipgloss.NewStyle().
		Foreground(p.Accent).
		Background(p.SurfaceDim).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Feedback
	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)

	t.TypingText = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	t.UnreadBadge = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Accent).
		Bold(true).
		Padding(0, 1)

	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(p.Error).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Error).
		Padding(0, 1)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)

	t.Notice = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	t.SuccessStyle = lipgloss.NewStyle().
		Foreground(p.Success).
		Bold(true)

	t.WarningStyle = lipgloss.NewStyle().
		Foreground(p.Warning).
		Bold(true)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)

	t.InfoStyle = lipgloss.NewStyle().
		Foreground(p.Info)

	t.Muted = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Code
	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(p.Border).
		PaddingLeft(1)

	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.AccentDim).
		Padding(0, 1)
}

// =============================================================================
// STATUS RENDERING
// =============================================================================

// RenderSuccess renders a success message with its shape indicator.
func (t *Theme) RenderSuccess(message string) string {
	return t.SuccessStyle.Render(t.indicator(StatusIndicators.Success, ASCIIStatusIndicators.Success) + " " + message)
}

// RenderError renders an error message with its shape indicator.
func (t *Theme) RenderError(message string) string {
	return t.ErrorStyle.Render(t.indicator(StatusIndicators.Error, ASCIIStatusIndicators.Error) + " " + message)
}

// RenderWarning renders a warning message with its shape indicator.
func (t *Theme) RenderWarning(message string) string {
	return t.WarningStyle.Render(t.indicator(StatusIndicators.Warning, ASCIIStatusIndicators.Warning) + " " + message)
}

// RenderInfo renders an info message with its shape indicator.
func (t *Theme) RenderInfo(message string) string {
	return t.InfoStyle.Render(t.indicator(StatusIndicators.Info, ASCIIStatusIndicators.Info) + " " + message)
}

func (t *Theme) indicator(unicode, ascii string) string {
	if t.HasColor() {
		return unicode
	}
	return ascii
}

// TypingSpinner picks the spinner for the terminal's capabilities.
func (t *Theme) TypingSpinner() SpinnerConfig {
	if t.HasColor() {
		return SnowSpinner
	}
	return DotsSpinner
}

// =============================================================================
// LAYOUT
// =============================================================================

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)

// BubbleWidth is the widest a message bubble may be at the current size.
func (t *Theme) BubbleWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return max(t.Width-2, 10)
	case LayoutMedium:
		return t.Width - 6
	default:
		return min(t.Width*4/5, 120)
	}
}

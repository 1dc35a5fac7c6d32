// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ChillGPT TUI.

Each theme is a Palette of lipgloss colours. A Theme turns a palette into
the concrete styles the components render with. The colour profile and the
terminal background come from termenv, and the auto theme resolves to
dark-ice or light-snow from that background.

# Key Types

  - Palette: the colours of one theme (DarkIce, LightSnow, NeonIce)
  - Theme: styles for headers, bubbles, input, status bar and feedback
  - SpinnerConfig: frames for the "AI is typing…" indicator

# Usage

	theme := styles.NewTheme(config.ThemeAuto)
	fmt.Println(theme.RenderWarning("Long message"))

Status renderers always pair colour with a shape indicator, and fall back
to ASCII indicators when the terminal has no colour.
*/
package styles

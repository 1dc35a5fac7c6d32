// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the UI building blocks of the ChillGPT TUI.

Components render; they do not own conversation state. The chat model feeds
them the current conversation.State and reads scroll positions back.

# Key Types

  - ChatViewport: scrollable transcript over bubbles/viewport; reports
    NearBottom after every scroll and draws the unread badge
  - MessageList: user and assistant bubbles with relative timestamps
  - MarkdownRenderer: glamour for replies, with a plain fallback
  - CodeBlock: chroma-highlighted fenced code
  - InputArea: textarea where Alt+Enter inserts a newline
  - KeyPrompt: masked API key entry
  - TypingIndicator: "AI is typing…" spinner
  - StatusBar, Header, ErrorBanner

# Usage

All components share one *styles.Theme. Switching themes replaces the
theme's contents in place, so every component picks up the new palette on
its next render:

	theme := styles.NewTheme(config.ThemeDarkIce)
	md := components.NewMarkdownRenderer(theme, 76, true)
	list := components.NewMessageList(theme, md)
	vp := components.NewChatViewport(theme, 2)

	vp.SetContent(list.Render(state.Log), state.Scroll.PinnedToBottom)
	fmt.Println(vp.View(state.Scroll.UnreadCount))
*/
package components

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
	"github.com/jeranaias/chillgpt-tui/internal/ui/components"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// now is replaced in tests.
var now = time.Now

// requestTimeout bounds document calls made from the chat screen.
const requestTimeout = 2 * time.Minute

// =============================================================================
// MODEL
// =============================================================================

// Options configures a new Model.
type Options struct {
	// Config supplies the backend, chat and UI settings. Nil uses defaults.
	Config *config.Config

	// ConfigPath is where a key entered in the prompt is saved.
	// Empty keeps the key in memory only.
	ConfigPath string

	// Client is used for chat and document calls. Nil builds one from Config.
	Client *api.Client

	// Poster receives stream events until Attach replaces it.
	Poster conversation.Poster

	// Theme overrides terminal detection.
	Theme *styles.Theme
}

// Model is the chat screen.
type Model struct {
	cfg     *config.Config
	cfgPath string
	client  *api.Client
	ctrl    *conversation.Controller
	keys    KeyMap

	// theme is shared by every component; switching themes rewrites it in place
	theme *styles.Theme

	header    *components.Header
	viewport  *components.ChatViewport
	markdown  *components.MarkdownRenderer
	messages  *components.MessageList
	input     *components.InputArea
	keyPrompt *components.KeyPrompt
	typing    components.TypingIndicator
	status    *components.StatusBar
	banner    *components.ErrorBanner

	width    int
	height   int
	vpHeight int

	promptingKey bool
	quitting     bool

	// dismissed is the turn error the user closed with Esc
	dismissed *conversation.TurnError

	notice    string
	noticeErr bool
}

// New creates the chat screen. The input is focused, or the key prompt
// when no API key is configured.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	client := opts.Client
	if client == nil {
		client = api.NewClient(cfg.API.BaseURL, cfg.API.APIKey)
		if d, err := api.ParseDialect(cfg.API.Dialect); err == nil {
			client.WithDialect(d)
		}
	}
	theme := opts.Theme
	if theme == nil {
		t, _ := config.ParseTheme(cfg.UI.Theme)
		theme = styles.NewTheme(t)
	}

	ctrlOpts := conversation.Options{Greeting: cfg.Chat.Greeting}
	if mode, ok := stream.ParseMode(cfg.API.StreamFormat); ok {
		ctrlOpts.StreamMode = &mode
	}

	md := components.NewMarkdownRenderer(theme, 76, cfg.UI.Markdown)
	messages := components.NewMessageList(theme, md)
	messages.SetShowTimestamps(cfg.UI.ShowTimestamps)

	m := Model{
		cfg:       cfg,
		cfgPath:   opts.ConfigPath,
		client:    client,
		ctrl:      conversation.NewController(client, opts.Poster, ctrlOpts),
		keys:      DefaultKeyMap(),
		theme:     theme,
		header:    components.NewHeader(theme),
		viewport:  components.NewChatViewport(theme, cfg.UI.ScrollThreshold),
		markdown:  md,
		messages:  messages,
		input:     components.NewInputArea(theme, cfg.UI.LongMessageWarning),
		keyPrompt: components.NewKeyPrompt(theme),
		typing:    components.NewTypingIndicator(theme),
		status:    components.NewStatusBar(theme),
		banner:    components.NewErrorBanner(theme),
	}
	m.applySettings()
	m.applyLabels()

	if cfg.API.APIKey == "" {
		m.promptingKey = true
		m.keyPrompt.Focus()
	} else {
		m.input.Focus()
	}
	m.refresh()
	return m
}

// Attach routes stream events through p. Call it once after
// tea.NewProgram and before Run.
func (m Model) Attach(p *tea.Program) {
	m.ctrl.SetPoster(ProgramPoster(p))
}

// Controller returns the conversation controller behind the screen.
func (m Model) Controller() *conversation.Controller {
	return m.ctrl
}

// Config returns the live configuration, including in-session changes.
func (m Model) Config() *config.Config {
	return m.cfg
}

// Init starts the cursor blink and the background lookups.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.cfg.API.UseRAG && m.documentsSupported() {
		cmds = append(cmds, m.fetchDocuments(true))
	}
	if m.client.Dialect() == api.DialectPyPal && m.cfg.API.APIKey != "" {
		cmds = append(cmds, m.initializeBackend())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// SETTINGS
// =============================================================================

// applySettings pushes the request settings to the controller. A turn in
// flight keeps the settings it started with.
func (m *Model) applySettings() {
	m.ctrl.SetSettings(conversation.Settings{
		Model:        m.cfg.API.Model,
		SystemPrompt: m.cfg.SystemPrompt(),
		APIKey:       m.cfg.API.APIKey,
		UseRAG:       m.cfg.API.UseRAG,
	})
}

// applyLabels updates the header and status bar from the config.
func (m *Model) applyLabels() {
	preset, _ := config.ParsePreset(m.cfg.Chat.Preset)
	theme, _ := config.ParseTheme(m.cfg.UI.Theme)

	m.header.Subtitle = preset.Label()
	m.header.Badge = theme.Label()
	m.status.Model = m.cfg.API.Model
	m.status.Preset = string(preset)
	m.status.RAG = m.cfg.API.UseRAG
}

// setTheme swaps the shared theme and rebuilds what caches styles.
func (m *Model) setTheme(name config.Theme) tea.Cmd {
	width, height := m.theme.Width, m.theme.Height
	*m.theme = *styles.NewTheme(name)
	m.theme.SetSize(width, height)

	m.input.ThemeChanged()
	m.markdown.Reset()

	active := m.typing.Active()
	m.typing = components.NewTypingIndicator(m.theme)
	m.cfg.UI.Theme = string(name)
	m.applyLabels()
	m.refresh()
	if active {
		return m.typing.Start()
	}
	return nil
}

func (m *Model) documentsSupported() bool {
	return m.client.Dialect() != api.DialectOpenAI
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout resizes every component for the current window.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	m.theme.SetSize(m.width, m.height)
	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)
	m.banner.SetWidth(m.width)
	m.input.SetWidth(m.width)
	m.keyPrompt.SetWidth(m.width)
	m.messages.SetWidth(m.width)
	m.vpHeight = 0
	m.fit()
}

// fit gives the viewport whatever height the other sections leave.
func (m *Model) fit() {
	if m.width == 0 {
		return
	}
	used := lineCount(m.header.View()) + 1 + lineCount(m.footerView()) + lineCount(m.status.View())
	h := m.height - used
	if h < 3 {
		h = 3
	}
	if h == m.vpHeight {
		return
	}
	m.vpHeight = h
	m.viewport.SetSize(m.width, h)
	m.refresh()
}

// refresh re-renders the log into the viewport. The view follows new
// content only while the conversation is pinned to the bottom.
func (m *Model) refresh() {
	st := m.ctrl.State()
	m.messages.SetStreaming(st.Phase == conversation.PhaseStreaming)
	m.viewport.SetContent(m.messages.Render(st.Log), st.Scroll.PinnedToBottom)
	m.status.Tokens = st.Log.EstimatedTokens()
	m.status.Streaming = st.Phase.Busy()
}

// sync brings the indicator, banner and viewport in line with the
// controller state after an event.
func (m *Model) sync() tea.Cmd {
	st := m.ctrl.State()

	var cmd tea.Cmd
	if st.Phase.Busy() {
		cmd = m.typing.Start()
	} else {
		m.typing.Stop()
	}

	err := st.Err
	if err == m.dismissed {
		err = nil
	}
	m.banner.Set(err)

	m.refresh()
	return cmd
}

// recordScroll reports the viewport position to the controller.
func (m *Model) recordScroll() {
	m.ctrl.RecordScrollPosition(m.viewport.NearBottom())
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return lipgloss.Height(s)
}

// withTimeout runs fn with a bounded context.
func withTimeout(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

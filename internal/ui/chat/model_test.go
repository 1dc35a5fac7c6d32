// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/server"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// harness drives a Model against an in-process backend. Stream events land
// on events and are fed back through Update by drain.
type harness struct {
	t      *testing.T
	m      Model
	events chan conversation.Event
	url    string
}

func newHarness(t *testing.T, key string, responder server.Responder) *harness {
	t.Helper()
	store, err := storage.Open(storage.MemoryPath)
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := server.NewServer(store, responder).
		WithRateLimit(0).
		WithLogger(log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.API.BaseURL = ts.URL
	cfg.API.APIKey = key
	cfg.UI.Markdown = false

	events := make(chan conversation.Event, 256)
	theme := styles.NewThemeFor(config.ThemeDarkIce, termenv.Ascii, true)
	m := New(Options{
		Config: cfg,
		Client: api.NewClient(ts.URL, key),
		Poster: conversation.PosterFunc(func(e conversation.Event) { events <- e }),
		Theme:  theme,
	})
	t.Cleanup(func() { m.ctrl.Close() })

	h := &harness{t: t, m: m, events: events, url: ts.URL}
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	h.t.Helper()
	return h.send(tea.KeyMsg{Type: k})
}

// command types a slash command, submits it, and feeds back the result of
// any background work it started.
func (h *harness) command(line string) {
	h.t.Helper()
	h.typeText(line)
	if cmd := h.key(tea.KeyEnter); cmd != nil {
		if msg := cmd(); msg != nil {
			h.send(msg)
		}
	}
}

// drain feeds stream events to the model until the turn ends.
func (h *harness) drain() {
	h.t.Helper()
	deadline := time.After(5 * time.Second)
	for h.m.ctrl.State().Phase.Busy() {
		select {
		case e := <-h.events:
			h.send(EventMsg{Event: e})
		case <-deadline:
			h.t.Fatalf("turn did not finish; phase = %v", h.m.ctrl.State().Phase)
		}
	}
}

func (h *harness) view() string {
	return stripANSI(h.m.View())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestModel_SendStreamsReply(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})

	h.typeText("hello there")
	h.key(tea.KeyEnter)

	if !h.m.ctrl.State().Phase.Busy() {
		t.Fatal("submit should start a turn")
	}
	if !h.m.typing.Active() {
		t.Error("typing indicator should run while busy")
	}
	if h.m.input.Value() != "" {
		t.Errorf("input = %q, want cleared", h.m.input.Value())
	}

	h.drain()

	last, _ := h.m.ctrl.State().Log.LastAssistant()
	if last.Content != "You said: hello there" {
		t.Errorf("reply = %q", last.Content)
	}
	if h.m.typing.Active() {
		t.Error("typing indicator should stop after the reply")
	}
	if v := h.view(); !strings.Contains(v, "You said: hello there") {
		t.Errorf("view is missing the reply:\n%s", v)
	}
	if h.m.status.Tokens == 0 {
		t.Error("status bar should show a token estimate")
	}
}

func TestModel_AltEnterInsertsNewline(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})

	h.typeText("one")
	h.send(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	h.typeText("two")

	if got := h.m.input.Value(); got != "one\ntwo" {
		t.Errorf("input = %q, want two lines", got)
	}
	if h.m.ctrl.State().Phase.Busy() {
		t.Error("Alt+Enter must not send")
	}
}

func TestModel_EmptySubmitShowsBanner(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})

	h.key(tea.KeyEnter)

	err := h.m.ctrl.State().Err
	if err == nil || err.Kind != conversation.KindValidation {
		t.Fatalf("Err = %v, want a validation error", err)
	}
	if !h.m.banner.Visible() {
		t.Error("validation error should show the banner")
	}

	h.key(tea.KeyEsc)
	if h.m.banner.Visible() {
		t.Error("Esc should dismiss the banner")
	}
}

func TestModel_CtrlCQuitsWhenIdle(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})

	cmd := h.key(tea.KeyCtrlC)
	if cmd == nil {
		t.Fatal("Ctrl+C should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Ctrl+C while idle should quit")
	}
	if h.m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestModel_CtrlCStopsReply(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{Delay: 300 * time.Millisecond})

	h.typeText("tell me a long story")
	h.key(tea.KeyEnter)

	if cmd := h.key(tea.KeyCtrlC); cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Fatal("Ctrl+C while busy must not quit")
		}
	}
	h.drain()

	err := h.m.ctrl.State().Err
	if err == nil || err.Kind != conversation.KindCanceled {
		t.Fatalf("Err = %v, want canceled", err)
	}
	if !strings.Contains(h.view(), "■") {
		t.Error("a stopped reply should show the one-line notice")
	}
}

func TestModel_CtrlLClears(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})
	h.typeText("hi")
	h.key(tea.KeyEnter)
	h.drain()

	h.key(tea.KeyCtrlL)

	st := h.m.ctrl.State()
	if len(st.Log) != 1 {
		t.Errorf("log = %d messages, want only the greeting", len(st.Log))
	}
	if !st.IsPristine() {
		t.Error("cleared state should be pristine")
	}
}

// =============================================================================
// SCROLL TESTS
// =============================================================================

func TestModel_ScrollUnpinsAndEndRepins(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})
	h.m.input.SetValue(strings.Repeat("line\n", 60) + "end")
	h.key(tea.KeyEnter)
	h.drain()

	if !h.m.ctrl.State().Scroll.PinnedToBottom {
		t.Fatal("conversation should follow its own reply")
	}

	h.key(tea.KeyPgUp)
	if h.m.ctrl.State().Scroll.PinnedToBottom {
		t.Fatal("PgUp should unpin")
	}

	// A reply that arrives while scrolled up is counted, not followed.
	offset := h.m.viewport.YOffset()
	h.typeText("again")
	h.key(tea.KeyEnter)
	h.drain()

	st := h.m.ctrl.State()
	if st.Scroll.UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1", st.Scroll.UnreadCount)
	}
	if h.m.viewport.YOffset() != offset {
		t.Errorf("offset moved from %d to %d while unpinned", offset, h.m.viewport.YOffset())
	}
	if v := h.view(); !strings.Contains(v, "1 new message") {
		t.Errorf("view should show the unread badge:\n%s", v)
	}

	h.key(tea.KeyEnd)
	st = h.m.ctrl.State()
	if !st.Scroll.PinnedToBottom || st.Scroll.UnreadCount != 0 {
		t.Errorf("End should re-pin and clear unread, got %+v", st.Scroll)
	}
}

func TestModel_MouseWheelUnpins(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})
	h.m.input.SetValue(strings.Repeat("line\n", 60) + "end")
	h.key(tea.KeyEnter)
	h.drain()

	for i := 0; i < 3; i++ {
		h.send(tea.MouseMsg{Type: tea.MouseWheelUp})
	}
	if h.m.ctrl.State().Scroll.PinnedToBottom {
		t.Error("wheel up should unpin")
	}
}

// =============================================================================
// API KEY TESTS
// =============================================================================

func TestModel_NoKeyOpensPrompt(t *testing.T) {
	h := newHarness(t, "", server.EchoResponder{})

	if !h.m.promptingKey {
		t.Fatal("a missing key should open the prompt")
	}
	if v := h.view(); !strings.Contains(v, "API key") {
		t.Errorf("view should show the key prompt:\n%s", v)
	}

	h.typeText("sk-fresh")
	h.key(tea.KeyEnter)

	if h.m.promptingKey {
		t.Error("Enter should close the prompt")
	}
	if got := h.m.ctrl.Settings().APIKey; got != "sk-fresh" {
		t.Errorf("settings key = %q", got)
	}
	if !h.m.input.Focused() {
		t.Error("input should regain focus")
	}
}

func TestModel_SubmitWithoutKeyReopensPrompt(t *testing.T) {
	h := newHarness(t, "", server.EchoResponder{})
	h.key(tea.KeyEsc)
	if h.m.promptingKey {
		t.Fatal("Esc should skip the prompt")
	}

	h.typeText("hello")
	h.key(tea.KeyEnter)

	err := h.m.ctrl.State().Err
	if err == nil || !errors.Is(err, conversation.ErrMissingCredential) {
		t.Errorf("Err = %v, want missing credential", err)
	}
	if !h.m.promptingKey {
		t.Error("a missing key should reopen the prompt")
	}
}

func TestSaveKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.API.Model = "gpt-4o-mini"
	if err := config.SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	msg := saveKey(path, "sk-saved")().(keySavedMsg)
	if msg.err != nil {
		t.Fatalf("saveKey error = %v", msg.err)
	}

	got := config.Default()
	if err := config.LoadTOML(got, path); err != nil {
		t.Fatal(err)
	}
	if got.API.APIKey != "sk-saved" || got.API.Model != "gpt-4o-mini" {
		t.Errorf("saved config = %+v", got.API)
	}
}

// =============================================================================
// INPUT TESTS
// =============================================================================

func TestModel_LongMessageWarning(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})
	h.m.input.SetValue(strings.Repeat("a", 1200))
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})

	if v := h.view(); !strings.Contains(v, "Long messages cost more tokens") {
		t.Errorf("view should warn about the long message:\n%s", v)
	}
}

// =============================================================================
// CONFIG RELOAD TESTS
// =============================================================================

func TestModel_ConfigReload(t *testing.T) {
	h := newHarness(t, "sk-test", server.EchoResponder{})

	next := h.m.cfg.Clone()
	next.API.Model = "gpt-4o-mini"
	next.Chat.Preset = "teacher"
	next.UI.ScrollThreshold = 5
	h.send(ConfigReloadedMsg{Config: next})

	if got := h.m.ctrl.Settings().Model; got != "gpt-4o-mini" {
		t.Errorf("model = %q", got)
	}
	if h.m.ctrl.Settings().SystemPrompt == "" {
		t.Error("preset prompt should apply")
	}
	if h.m.status.Preset != "teacher" {
		t.Errorf("status preset = %q", h.m.status.Preset)
	}

	h.send(ConfigReloadedMsg{Err: errors.New("bad toml")})
	if !h.m.noticeErr || !strings.Contains(h.m.notice, "bad toml") {
		t.Errorf("notice = %q", h.m.notice)
	}
	if h.m.ctrl.Settings().Model != "gpt-4o-mini" {
		t.Error("a failed reload must keep the current settings")
	}
}

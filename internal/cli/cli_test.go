// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/server"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
)

func TestMain(m *testing.M) {
	ForceColorsEnabled(false)
	os.Exit(m.Run())
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// isolate points the config at an empty directory and clears every
// variable that would override it.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHILLGPT_HOME", dir)
	for _, key := range []string{
		"CHILLGPT_API_KEY", "OPENAI_API_KEY", "CHILLGPT_URL", "CHILLGPT_DIALECT",
		"CHILLGPT_MODEL", "CHILLGPT_RAG", "CHILLGPT_PRESET", "CHILLGPT_THEME",
		"CHILLGPT_UPSTREAM_URL", "CHILLGPT_DEBUG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

// captureIO replaces the command streams for the test.
func captureIO(t *testing.T, input string) (out, errOut *bytes.Buffer) {
	t.Helper()
	oldIn, oldOut, oldErr := stdin, stdout, stderr
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	stdin, stdout, stderr = strings.NewReader(input), out, errOut
	t.Cleanup(func() {
		stdin, stdout, stderr = oldIn, oldOut, oldErr
	})
	return out, errOut
}

// newBackendServer starts an echo backend with an in-memory store.
func newBackendServer(t *testing.T) string {
	t.Helper()
	store, err := storage.Open(storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := server.NewServer(store, server.EchoResponder{}).
		WithRateLimit(0).
		WithLogger(log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func argsFor(url string) Args {
	return Args{URL: url, Options: map[string]string{}}
}

// =============================================================================
// PARSING TESTS
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		want  Command
		check func(t *testing.T, a Args)
	}{
		{name: "no args starts the TUI", argv: nil, want: CmdTUI},
		{
			name: "ask joins words",
			argv: []string{"ask", "why", "is", "the", "sky", "blue"},
			want: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "why is the sky blue", a.Query)
			},
		},
		{
			name: "ask with file and global flags anywhere",
			argv: []string{"--json", "ask", "-f", "notes.md", "summarise", "--model", "gpt-4o"},
			want: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.Equal(t, "notes.md", a.File)
				assert.Equal(t, "summarise", a.Query)
				assert.Equal(t, "gpt-4o", a.Model)
			},
		},
		{
			name: "equals form",
			argv: []string{"--preset=coding-assistant", "--url=http://x:1", "chat"},
			want: CmdChat,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "coding-assistant", a.Preset)
				assert.Equal(t, "http://x:1", a.URL)
			},
		},
		{
			name: "docs upload keeps every path",
			argv: []string{"docs", "upload", "a.txt", "b.txt"},
			want: CmdDocs,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "upload", a.Subcommand)
				assert.Equal(t, []string{"a.txt", "b.txt"}, a.Raw)
			},
		},
		{
			name: "docs clear --yes",
			argv: []string{"docs", "clear", "--yes"},
			want: CmdDocs,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "clear", a.Subcommand)
				assert.Equal(t, "true", a.Options["yes"])
			},
		},
		{
			name: "serve flags",
			argv: []string{"serve", "--port", "9000", "--echo"},
			want: CmdServe,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, 9000, a.Port)
				assert.True(t, a.Echo)
			},
		},
		{
			name: "config set",
			argv: []string{"config", "set", "ui.theme", "neon-ice"},
			want: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
				assert.Equal(t, []string{"ui.theme", "neon-ice"}, a.Raw)
			},
		},
		{name: "help flag", argv: []string{"ask", "--help"}, want: CmdHelp},
		{name: "version flag", argv: []string{"-v"}, want: CmdVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ParseArgs(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	for _, argv := range [][]string{
		{"frobnicate"},
		{"--model"},
		{"serve", "--port", "70000"},
		{"serve", "--port=abc"},
		{"ask", "--file"},
	} {
		t.Run(strings.Join(argv, " "), func(t *testing.T) {
			_, _, err := ParseArgs(argv)
			require.Error(t, err)
			assert.Equal(t, ExitUsageError, ExitCodeFor(err))
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"set", "api.model", "gpt-4o", "--force", "--limit=5", "--dry-run=false"})

	assert.Equal(t, "set", p.Subcommand())
	assert.Equal(t, []string{"api.model", "gpt-4o"}, p.PositionalFrom(1))
	assert.True(t, p.BoolFlag("force"))
	assert.Equal(t, "5", p.Flag("limit"))
	assert.True(t, p.HasFlag("dry-run"))
	assert.False(t, p.BoolFlag("dry-run"))
	assert.Equal(t, "", p.Positional(9))
	assert.Nil(t, p.PositionalFrom(9))
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("x", "y", "bad"), ExitUsageError},
		{"config", &ConfigError{Path: "c.toml", Err: errors.New("bad toml")}, ExitConfigError},
		{"canceled turn", &conversation.TurnError{Kind: conversation.KindCanceled, Err: context.Canceled}, ExitInterrupted},
		{"missing key", fmt.Errorf("submit: %w", conversation.ErrMissingCredential), ExitAuthError},
		{"rejected key", &api.TransportError{StatusCode: 401, Err: api.ErrAuthFailed}, ExitAuthError},
		{"server error", &api.TransportError{StatusCode: 500, Err: api.ErrServer}, ExitNetworkError},
		{"broken stream", &conversation.TurnError{Kind: conversation.KindTransport, Err: io.ErrUnexpectedEOF}, ExitNetworkError},
		{"not found", NewCommandError("docs", "rm", "x", api.ErrNotFound), ExitNotFoundError},
		{"timeout", context.DeadlineExceeded, ExitTimeoutError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestHandleError_JSON(t *testing.T) {
	out, _ := captureIO(t, "")

	code := HandleError(&api.TransportError{StatusCode: 429, Err: api.ErrRateLimited}, true)

	assert.Equal(t, ExitNetworkError, code)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "slow down")
}

// =============================================================================
// ASK TESTS
// =============================================================================

func TestRunAsk_StreamsReply(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	out, _ := captureIO(t, "")

	args := argsFor(url)
	args.Query = "hello there"
	require.NoError(t, RunAsk(args))

	assert.Equal(t, "You said: hello there\n", out.String())
}

func TestRunAsk_Stdin(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	out, _ := captureIO(t, "piped question\n")

	require.NoError(t, RunAsk(argsFor(url)))

	assert.Equal(t, "You said: piped question\n", out.String())
}

func TestRunAsk_File(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	out, _ := captureIO(t, "")

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("penguins\n"), 0600))

	args := argsFor(url)
	args.Query = "summarise"
	args.File = path
	require.NoError(t, RunAsk(args))

	assert.Contains(t, out.String(), "You said: summarise")
	assert.Contains(t, out.String(), "File: notes.md")
	assert.Contains(t, out.String(), "penguins")
}

func TestRunAsk_JSON(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	out, _ := captureIO(t, "")

	args := argsFor(url)
	args.Query = "json please"
	args.JSON = true
	require.NoError(t, RunAsk(args))

	var resp struct {
		Success bool      `json:"success"`
		Data    AskResult `json:"data"`
		Command string    `json:"command"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ask", resp.Command)
	assert.Equal(t, "You said: json please", resp.Data.Reply)
	assert.Positive(t, resp.Data.Tokens)
}

func TestRunAsk_MissingKey(t *testing.T) {
	isolate(t)
	url := newBackendServer(t)
	out, _ := captureIO(t, "")

	args := argsFor(url)
	args.Query = "hello"
	err := RunAsk(args)

	require.Error(t, err)
	assert.Equal(t, ExitAuthError, ExitCodeFor(err))
	assert.Empty(t, out.String())
}

func TestRunAsk_EmptyQuestion(t *testing.T) {
	isolate(t)
	captureIO(t, "   \n")

	err := RunAsk(argsFor("http://127.0.0.1:1"))

	assert.Equal(t, ExitUsageError, ExitCodeFor(err))
}

func TestRunAsk_ServerError(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"kaput"}`)
	}))
	defer ts.Close()
	out, _ := captureIO(t, "")

	args := argsFor(ts.URL)
	args.Query = "hello"
	err := RunAsk(args)

	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, ExitCodeFor(err))
	assert.Empty(t, out.String(), "a failed reply prints nothing")
}

func TestStreamPrinter_SkipsRolledBackReplies(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf)

	st := conversation.NewState("hi", time.Now())
	apply := func(e conversation.Event) {
		var eff conversation.Effects
		st, eff = conversation.Reduce(st, e)
		p.Observe(st, eff)
	}

	apply(conversation.NewSubmitted("one", true))
	apply(conversation.SnapshotReceived{Turn: 1, Text: "Hel"})
	apply(conversation.SnapshotReceived{Turn: 1, Text: "Hello"})
	apply(conversation.StreamEnded{Turn: 1})
	p.Finish()
	assert.Equal(t, "Hello\n", buf.String())

	apply(conversation.NewSubmitted("two", true))
	apply(conversation.StreamFailed{Turn: 2, Err: errors.New("boom")})
	p.Finish()
	assert.Equal(t, "Hello\n", buf.String(), "a failure before the first chunk prints nothing")
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestRunChat_PipedInput(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	out, errOut := captureIO(t, "hi\n\n/model gpt-4o\nsecond message\n/nope\n/quit\nnever sent\n")

	require.NoError(t, RunChat(argsFor(url)))

	got := out.String()
	assert.Contains(t, got, "You said: hi\n")
	assert.Contains(t, got, "Model: gpt-4o")
	assert.Contains(t, got, "You said: second message\n")
	assert.NotContains(t, got, "never sent")
	assert.Contains(t, errOut.String(), "Unknown command")
}

func TestRunChat_ExportAndClear(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	path := filepath.Join(t.TempDir(), "chat.md")
	out, _ := captureIO(t, "remember this\n/export "+path+"\n/clear\n")

	require.NoError(t, RunChat(argsFor(url)))

	assert.Contains(t, out.String(), "Saved 3 messages")
	assert.Contains(t, out.String(), "Chat cleared.")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "You said: remember this")
}

// =============================================================================
// DOCS TESTS
// =============================================================================

func TestRunDocs_Lifecycle(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Penguins live in the southern hemisphere."), 0600))

	run := func(sub string, raw ...string) string {
		t.Helper()
		out, _ := captureIO(t, "")
		args := argsFor(url)
		args.Subcommand = sub
		args.Raw = raw
		require.NoError(t, RunDocs(args))
		return out.String()
	}

	assert.Contains(t, run("upload", path), "Uploaded notes.txt")
	assert.Contains(t, run("list"), "notes.txt")
	assert.Contains(t, run("status"), "1 document")
	assert.Contains(t, run("rm", "notes.txt"), "Removed notes.txt")
	assert.Contains(t, run(""), "No documents uploaded")
}

func TestRunDocs_ClearNeedsConfirmation(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-test")
	url := newBackendServer(t)
	captureIO(t, "")

	args := argsFor(url)
	args.Subcommand = "clear"
	err := RunDocs(args)
	assert.Equal(t, ExitUsageError, ExitCodeFor(err))

	args.Options["yes"] = "true"
	assert.NoError(t, RunDocs(args))
}

func TestRunDocs_OpenAIDialect(t *testing.T) {
	isolate(t)
	captureIO(t, "")

	args := argsFor("http://127.0.0.1:1")
	args.Dialect = "openai"
	err := RunDocs(args)

	assert.Equal(t, ExitUsageError, ExitCodeFor(err))
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestRunConfig_SetGet(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	run := func(sub string, raw ...string) (string, error) {
		out, _ := captureIO(t, "")
		args := Args{ConfigPath: path, Subcommand: sub, Raw: raw, Options: map[string]string{}}
		err := RunConfig(args)
		return out.String(), err
	}

	_, err := run("set", "ui.theme", "neon-ice")
	require.NoError(t, err)
	got, err := run("get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "neon-ice\n", got)

	_, err = run("set", "api.api_key", "sk-abcdefghijklmnop")
	require.NoError(t, err)
	got, err = run("get", "api.api_key")
	require.NoError(t, err)
	assert.NotContains(t, got, "abcdefghijklmnop", "the key is masked")

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-abcdefghijklmnop", cfg.API.APIKey)

	_, err = run("set", "ui.theme", "plaid")
	assert.Equal(t, ExitUsageError, ExitCodeFor(err))
	_, err = run("set", "ui.nope", "1")
	assert.Equal(t, ExitUsageError, ExitCodeFor(err))

	got, err = run("path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", got)
}

func TestRunConfig_SetDoesNotPersistEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	t.Setenv("CHILLGPT_API_KEY", "sk-from-env")
	captureIO(t, "")

	require.NoError(t, RunConfig(Args{ConfigPath: path, Subcommand: "set", Raw: []string{"api.model", "gpt-4o"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-from-env")
	assert.Contains(t, string(data), "gpt-4o")
}

func TestRunConfig_ShowJSONMasksKey(t *testing.T) {
	isolate(t)
	t.Setenv("CHILLGPT_API_KEY", "sk-abcdefghijklmnop")
	out, _ := captureIO(t, "")

	require.NoError(t, RunConfig(Args{Subcommand: "show", JSON: true}))

	assert.NotContains(t, out.String(), "abcdefghijklmnop")
	assert.Contains(t, out.String(), `"api.model"`)
}

// =============================================================================
// SETUP TESTS
// =============================================================================

func TestWizard(t *testing.T) {
	captureIO(t, "")
	w := &wizard{
		in:     bufio.NewReader(strings.NewReader("nope\nopenai\n\ngpt-4o\npirate\nteacher\nneon-ice\n")),
		secret: func() (string, error) { return " sk-new \n", nil },
	}
	cfg := config.Default()

	require.NoError(t, w.run(cfg))

	assert.Equal(t, "openai", cfg.API.Dialect)
	assert.Equal(t, api.DefaultOpenAIURL, cfg.API.BaseURL)
	assert.Equal(t, "sk-new", cfg.API.APIKey)
	assert.Equal(t, "gpt-4o", cfg.API.Model)
	assert.Equal(t, "teacher", cfg.Chat.Preset)
	assert.Equal(t, "neon-ice", cfg.UI.Theme)
}

func TestWizard_KeepsExistingKey(t *testing.T) {
	captureIO(t, "")
	w := &wizard{
		in:     bufio.NewReader(strings.NewReader("\nhttp://localhost:9000\n\n\n\n")),
		secret: func() (string, error) { return "", nil },
	}
	cfg := config.Default()
	cfg.API.APIKey = "sk-old"

	require.NoError(t, w.run(cfg))

	assert.Equal(t, "chillgpt", cfg.API.Dialect)
	assert.Equal(t, "http://localhost:9000", cfg.API.BaseURL)
	assert.Equal(t, "sk-old", cfg.API.APIKey)
	assert.Equal(t, config.Default().API.Model, cfg.API.Model)
	assert.Equal(t, "default", cfg.Chat.Preset)
}

// =============================================================================
// SERVE TESTS
// =============================================================================

func TestServeUntil(t *testing.T) {
	captureIO(t, "")
	cfg := config.Default()
	cfg.Server.RateLimit = 0

	srv, store, err := newBackend(cfg, true)
	require.NoError(t, err)
	defer store.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveUntil(ctx, srv, ln) }()

	client := api.NewClient("http://"+ln.Addr().String(), "")
	require.Eventually(t, func() bool {
		_, err := client.Health(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Local development backend: "chillgpt serve".
//
// Replies come from server.upstream_url, an OpenAI-compatible endpoint
// called with the client's API key, or from the echo responder when no
// upstream is configured or --echo is given.
package cli

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/server"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
)

// shutdownTimeout bounds the wait for in-flight replies on exit.
const shutdownTimeout = 10 * time.Second

// RunServe runs the backend until SIGINT or SIGTERM.
func RunServe(args Args) error {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if args.Port > 0 {
		cfg.Server.Port = args.Port
	}

	srv, store, err := newBackend(cfg, args.Echo)
	if err != nil {
		return err
	}
	defer store.Close()

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return NewCommandError("serve", "listen", srv.Addr(), err)
	}

	responder := "echo"
	if !useEcho(cfg, args.Echo) {
		responder = cfg.Server.UpstreamURL
	}
	fmt.Fprintln(stderr, TitleStyle.Render("❄ ChillGPT backend")+" "+DimStyle.Render("http://"+ln.Addr().String()))
	fmt.Fprintln(stderr, DimStyle.Render("replies: "+responder+" · documents: "+cfg.Server.DatabasePath+" · Ctrl+C stops"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serveUntil(ctx, srv, ln)
}

// newBackend builds the server and its document store from cfg.
func newBackend(cfg *config.Config, echo bool) (*server.Server, *storage.Store, error) {
	store, err := storage.Open(cfg.Server.DatabasePath)
	if err != nil {
		return nil, nil, &ConfigError{Err: fmt.Errorf("server.database_path: %w", err)}
	}

	var responder server.Responder = server.EchoResponder{}
	if !useEcho(cfg, echo) {
		upstream := server.NewUpstreamResponder(cfg.Server.UpstreamURL)
		if os.Getenv("CHILLGPT_DEBUG") != "" {
			upstream.Logger = serverLogger()
		}
		responder = upstream
	}

	srv := server.NewServer(store, responder).
		WithAddress(cfg.Server.Host, cfg.Server.Port).
		WithRateLimit(cfg.Server.RateLimit).
		WithLogger(serverLogger())
	return srv, store, nil
}

func useEcho(cfg *config.Config, echo bool) bool {
	return echo || cfg.Server.UpstreamURL == ""
}

func serverLogger() *log.Logger {
	return log.New(stderr, "", log.LstdFlags)
}

// serveUntil serves on ln until ctx is done, then shuts down gracefully.
func serveUntil(ctx context.Context, srv *server.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return NewCommandError("serve", "shutdown", "in-flight requests did not finish", err)
	}
	return <-errCh
}

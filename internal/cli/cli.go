// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command enumeration, global flags and usage text for chillgpt.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdDocs
	CmdServe
	CmdSetup
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdDocs:
		return "docs"
	case CmdServe:
		return "serve"
	case CmdSetup:
		return "setup"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config: alternate config file
	URL        string // --url: backend base URL
	Model      string
	Preset     string
	Dialect    string
	RAG        bool // --rag: answer from uploaded documents
	NoColor    bool
	Plain      bool // --plain: no markdown rendering
	JSON       bool // Output in JSON format

	// Command-specific
	Query      string
	File       string
	Subcommand string
	Port       int
	Echo       bool // serve: echo replies instead of an upstream model

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options
	Options map[string]string
}

const usageText = `chillgpt - a laid-back chat client for your terminal

Usage:
  chillgpt                       Start the chat screen (default)
  chillgpt ask "question"        Ask one question and print the reply
  chillgpt chat                  Line-mode chat with history
  chillgpt docs [subcommand]     Manage uploaded documents
  chillgpt serve                 Run a local backend
  chillgpt setup                 Store your API key
  chillgpt config [subcommand]   Show or change settings
  chillgpt version               Show version information

Ask:
  chillgpt ask "why is the sky blue?"
  chillgpt ask --file notes.md "summarise this"
  echo "hello" | chillgpt ask
    -f, --file PATH              Append a file to the question

Docs Commands:
  chillgpt docs                  Show document status
  chillgpt docs list             List uploaded documents
  chillgpt docs upload PATH...   Upload text files
  chillgpt docs rm NAME          Remove one document
  chillgpt docs clear [--yes]    Remove every document

Serve:
  chillgpt serve                 Serve on server.host:server.port
    --port N                     Listen port
    --echo                       Echo replies instead of calling server.upstream_url

Config Commands:
  chillgpt config show           Print the configuration (API key redacted)
  chillgpt config get KEY        Print one value, e.g. api.model
  chillgpt config set KEY VALUE  Change one value and save
  chillgpt config keys           List every key
  chillgpt config path           Print the config file path

Global Flags:
  --config PATH                  Use this config file
  --url URL                      Backend base URL
  --dialect NAME                 chillgpt, openai or pypal
  -m, --model ID                 Model to use
  -p, --preset NAME              Assistant personality
  --rag                          Answer from uploaded documents
  --plain                        Print replies without markdown rendering
  --no-color                     Disable colours
  --json                         Machine-readable output
  -h, --help                     Show this help
  -v, --version                  Show version

Environment:
  CHILLGPT_API_KEY, OPENAI_API_KEY, CHILLGPT_URL, CHILLGPT_MODEL,
  CHILLGPT_PRESET, CHILLGPT_THEME, CHILLGPT_HOME, NO_COLOR

Chat screen keys:
  Enter send · Alt+Enter newline · Ctrl+C stop/quit · PgUp/PgDn scroll
  End jump to latest · Ctrl+L clear · Ctrl+K API key · /help commands
`

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Fprint(stdout, usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Fprintf(stdout, "chillgpt %s\n", Version)
	fmt.Fprintf(stdout, "  commit:  %s\n", GitCommit)
	fmt.Fprintf(stdout, "  built:   %s\n", BuildDate)
	fmt.Fprintf(stdout, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv without the program name. Global flags may appear
// anywhere; the first positional word selects the command.
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if args.Options["help"] != "" {
		return CmdHelp, args, nil
	}
	if args.Options["version"] != "" {
		return CmdVersion, args, nil
	}

	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args, nil

	case "ask", "a":
		err = parseAskArgs(&args, remaining)
		return CmdAsk, args, err

	case "chat":
		return CmdChat, args, nil

	case "docs", "doc", "documents":
		p := NewArgParser(remaining)
		args.Subcommand = strings.ToLower(p.Subcommand())
		args.Raw = p.PositionalFrom(1)
		if p.BoolFlag("yes") || p.BoolFlag("y") {
			args.Options["yes"] = "true"
		}
		return CmdDocs, args, nil

	case "serve", "server":
		err = parseServeArgs(&args, remaining)
		return CmdServe, args, err

	case "setup":
		return CmdSetup, args, nil

	case "config":
		p := NewArgParser(remaining)
		args.Subcommand = strings.ToLower(p.Subcommand())
		args.Raw = p.PositionalFrom(1)
		return CmdConfig, args, nil

	case "version":
		return CmdVersion, args, nil

	case "help":
		return CmdHelp, args, nil
	}

	return CmdHelp, args, NewValidationErrorWithExample("command", cmd, "unknown command", "chillgpt --help")
}

// parseGlobalFlags strips global flags from argv.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var remaining []string
	args := Args{Options: make(map[string]string)}

	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(argv) {
			return "", NewValidationError(name, "", "requires a value")
		}
		*i++
		return argv[*i], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		// --flag=value
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			name, val, _ := strings.Cut(arg, "=")
			if setGlobal(&args, name, val) {
				continue
			}
			remaining = append(remaining, arg)
			continue
		}

		var err error
		switch arg {
		case "--json":
			args.JSON = true
		case "--no-color":
			args.NoColor = true
		case "--plain":
			args.Plain = true
		case "--rag":
			args.RAG = true
		case "-h", "--help":
			args.Options["help"] = "true"
		case "-v", "--version":
			args.Options["version"] = "true"
		case "--config", "--url", "--dialect", "-m", "--model", "-p", "--preset":
			var val string
			if val, err = value(&i, arg); err == nil {
				setGlobal(&args, arg, val)
			}
		case "--":
			remaining = append(remaining, argv[i+1:]...)
			return remaining, args, nil
		default:
			remaining = append(remaining, arg)
		}
		if err != nil {
			return nil, args, err
		}
	}
	return remaining, args, nil
}

// setGlobal assigns a value-taking global flag. It reports false for flags
// that belong to a command.
func setGlobal(args *Args, name, val string) bool {
	switch name {
	case "--config":
		args.ConfigPath = val
	case "--url":
		args.URL = val
	case "--dialect":
		args.Dialect = val
	case "-m", "--model":
		args.Model = val
	case "-p", "--preset":
		args.Preset = val
	default:
		return false
	}
	return true
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) error {
	var query []string
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch {
		case arg == "-f" || arg == "--file":
			if i+1 >= len(remaining) {
				return NewValidationErrorWithExample("--file", "", "requires a path", `chillgpt ask --file notes.md "summarise this"`)
			}
			i++
			args.File = remaining[i]
		case strings.HasPrefix(arg, "--file="):
			args.File = strings.TrimPrefix(arg, "--file=")
		default:
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
	return nil
}

// parseServeArgs parses serve command specific arguments.
func parseServeArgs(args *Args, remaining []string) error {
	p := NewArgParser(remaining)
	args.Echo = p.BoolFlag("echo")
	if p.HasFlag("port") {
		port, err := ParseIntWithValidation(p.Flag("port"), "--port")
		if err != nil {
			return err
		}
		if port < 1 || port > 65535 {
			return NewValidationError("--port", p.Flag("port"), "must be between 1 and 65535")
		}
		args.Port = port
	}
	return nil
}

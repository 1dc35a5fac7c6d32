// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs.go - Document management: "chillgpt docs".
//
// Subcommands:
//
//	(none), status     Document count and names
//	list, ls           Every document with its upload time
//	upload PATH...     Upload text files
//	rm, delete NAME    Remove one document
//	clear [--yes]      Remove every document
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// docsTimeout bounds each document request.
const docsTimeout = 2 * time.Minute

// UploadSummary is one entry of the --json upload output.
type UploadSummary struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunk_count"`
}

// RunDocs dispatches the docs subcommands.
func RunDocs(args Args) error {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	client, err := NewClient(cfg)
	if err != nil {
		return err
	}
	if client.Dialect() == api.DialectOpenAI {
		return NewValidationError("docs", "", "need a chillgpt or pypal backend (api.dialect is openai)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, docsTimeout)
	defer cancel()

	switch args.Subcommand {
	case "", "status":
		return docsStatus(ctx, client, args)
	case "list", "ls":
		return docsList(ctx, client, args)
	case "upload", "add":
		return docsUpload(ctx, client, args)
	case "rm", "delete", "remove":
		return docsRemove(ctx, client, args)
	case "clear":
		return docsClear(ctx, client, args)
	}
	return NewValidationErrorWithExample("docs subcommand", args.Subcommand, "is not status, list, upload, rm or clear", "chillgpt docs list")
}

func docsStatus(ctx context.Context, client *api.Client, args Args) error {
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("docs status", status).Print()
	}

	if !status.HasDocuments {
		fmt.Fprintln(stdout, "No documents uploaded. Try 'chillgpt docs upload <path>'.")
		return nil
	}
	fmt.Fprintln(stdout, TitleStyle.Render(util.Plural(status.DocumentCount, "document")))
	for _, d := range status.UploadedDocuments {
		fmt.Fprintln(stdout, "  "+d.Filename)
	}
	return nil
}

func docsList(ctx context.Context, client *api.Client, args Args) error {
	list, err := client.List(ctx)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("docs list", list).Print()
	}

	if len(list.Documents) == 0 {
		fmt.Fprintln(stdout, "No documents uploaded.")
		return nil
	}
	now := time.Now()
	for _, d := range list.Documents {
		printField(d.Filename, util.RelativeTime(d.UploadedAt(), now))
	}
	fmt.Fprintln(stdout, DimStyle.Render(util.Plural(list.Total, "document")))
	return nil
}

func docsUpload(ctx context.Context, client *api.Client, args Args) error {
	if len(args.Raw) == 0 {
		return NewValidationErrorWithExample("upload", "", "needs at least one file", "chillgpt docs upload notes.md")
	}

	var results []UploadSummary
	for _, path := range args.Raw {
		res, err := uploadFile(ctx, client, path)
		if err != nil {
			return err
		}
		results = append(results, UploadSummary{Filename: filepath.Base(path), Chunks: res.ChunkCount})
		if !args.JSON {
			fmt.Fprintln(stdout, SuccessStyle.Render("✓")+fmt.Sprintf(" Uploaded %s (%s)", filepath.Base(path), util.Plural(res.ChunkCount, "chunk")))
		}
	}
	if args.JSON {
		return NewJSONResponse("docs upload", results).Print()
	}
	return nil
}

func uploadFile(ctx context.Context, client *api.Client, path string) (*api.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewCommandError("docs", "upload", path, err)
	}
	defer f.Close()

	res, err := client.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, NewCommandError("docs", "upload", filepath.Base(path), err)
	}
	return res, nil
}

func docsRemove(ctx context.Context, client *api.Client, args Args) error {
	if len(args.Raw) == 0 {
		return NewValidationErrorWithExample("rm", "", "needs a document name", "chillgpt docs rm notes.md")
	}
	name := strings.Join(args.Raw, " ")
	res, err := client.Delete(ctx, name)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("docs rm", res).Print()
	}
	fmt.Fprintln(stdout, SuccessStyle.Render("✓")+" Removed "+name)
	return nil
}

func docsClear(ctx context.Context, client *api.Client, args Args) error {
	if args.Options["yes"] == "" {
		if !CanPrompt() || args.JSON {
			return NewValidationErrorWithExample("clear", "", "needs --yes when not run interactively", "chillgpt docs clear --yes")
		}
		if !confirm("Remove every uploaded document?") {
			fmt.Fprintln(stdout, "Cancelled.")
			return nil
		}
	}

	res, err := client.ClearDocuments(ctx)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("docs clear", res).Print()
	}
	fmt.Fprintln(stdout, SuccessStyle.Render("✓")+" All documents removed")
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y/yes is no.
func confirm(question string) bool {
	fmt.Fprint(stdout, question+" [y/N] ")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

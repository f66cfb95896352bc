// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigwrite/internal/config"
	"github.com/jeranaias/rigwrite/internal/index"
	"github.com/jeranaias/rigwrite/internal/keys"
	"github.com/jeranaias/rigwrite/internal/stream"
)

// interruptTrigger ends `index --watch` and aborts `ask`. Tests swap it.
var interruptTrigger = func() stream.Trigger { return keys.Interrupt() }

var (
	indexBools = []string{"watch"}
	indexFlags = []string{"watch", "update", "remove"}
)

// indexClient returns a client for the configured index server.
func indexClient(cfg *config.Config) (*index.Client, error) {
	if cfg.Index.LlamaIndexURL == "" {
		return nil, NewValidationErrorWithExample("index.llama_index_url", "",
			"no index server configured",
			"rigwrite config set index.llama_index_url http://localhost:8000")
	}
	return index.NewClient(cfg.Index.LlamaIndexURL, cfg.IndexTimeout()), nil
}

// interruptContext returns a context cancelled by Ctrl-C or SIGTERM.
func interruptContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	unregister := interruptTrigger().OnCancelEvent(cancel)
	return ctx, func() {
		unregister()
		cancel()
	}
}

// =============================================================================
// INDEX
// =============================================================================

// HandleIndex handles the "index" command.
//
//	rigwrite index [DIR]           index DIR (default: current directory)
//	rigwrite index --watch [DIR]   index DIR, then follow changes until Ctrl-C
//	rigwrite index --update PATH   reindex one created or changed path
//	rigwrite index --remove PATH   drop one path from the index
func HandleIndex(args Args) error {
	p := NewArgParser(args.Raw, indexBools...)
	if unknown := p.Unknown(indexFlags...); len(unknown) > 0 {
		return ErrUnknownFlags("index", unknown)
	}
	update, remove := p.Flag("update"), p.Flag("remove")
	watch := p.BoolFlag("watch")
	if (update != "" && remove != "") || ((update != "" || remove != "") && watch) {
		return NewValidationError("flag", strings.Join(args.Raw, " "), "--update, --remove and --watch are mutually exclusive")
	}
	if p.PositionalCount() > 1 {
		return NewValidationError("dir", JoinPositionalArgs(p, 0), "index takes one directory")
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	client, err := indexClient(cfg)
	if err != nil {
		return err
	}
	logger := newLogger(args)

	ctx, stop := interruptContext()
	defer stop()

	method, target := index.MethodAdd, p.Positional(0)
	switch {
	case update != "":
		method, target = index.MethodUpdate, update
	case remove != "":
		method, target = index.MethodRemove, remove
	case target == "":
		target = "."
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return NewCommandError("index", "resolve", target, err)
	}

	resp, err := client.Sync(ctx, method, target)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return err
	}
	logger.Printf("INDEX_SYNC | method=%s path=%s", method, target)
	if !watch {
		if args.JSON {
			return NewJSONResponse("index", IndexData{Method: method, Path: target, Response: resp}).Print(stdout)
		}
		printIndexEvent(stdout, args, index.Event{Method: method, Path: target, Response: resp})
		return nil
	}
	printIndexEvent(stdout, args, index.Event{Method: method, Path: target, Response: resp})

	w, err := index.NewWatcher(target, client, cfg.IndexDebounce())
	if err != nil {
		return NewCommandError("index", "watch", target, err)
	}
	w.SetLogger(logger)
	w.OnSync(func(e index.Event) {
		if ctx.Err() != nil {
			return
		}
		printIndexEvent(stdout, args, e)
	})
	if err := w.Start(ctx); err != nil {
		return NewCommandError("index", "watch", target, err)
	}
	if !args.Quiet && !args.JSON {
		fmt.Fprintln(stderr, DimStyle.Render("Watching "+w.Root()+" (Ctrl-C to stop)"))
	}

	<-ctx.Done()
	return w.Stop()
}

// printIndexEvent writes one indexing request: a compact JSON line in JSON
// mode, otherwise a status line. Failures go to stderr.
func printIndexEvent(w io.Writer, args Args, e index.Event) {
	if args.JSON {
		data := IndexData{Method: e.Method, Path: e.Path, Response: e.Response}
		if e.Err != nil {
			data.Error = e.Err.Error()
		}
		json.NewEncoder(w).Encode(data)
		return
	}
	if e.Err != nil {
		fmt.Fprintf(stderr, "%s %s %s: %v\n", ErrorStyle.Render("[ERROR]"), e.Method, e.Path, e.Err)
		return
	}
	if args.Quiet {
		return
	}
	line := fmt.Sprintf("%s %s", e.Method, e.Path)
	if e.Response != "" {
		line += " " + DimStyle.Render(e.Response)
	}
	fmt.Fprintln(w, line)
}

// =============================================================================
// ASK
// =============================================================================

// HandleAsk handles the "ask" command: one question answered from the
// index server, rendered as markdown on a terminal.
func HandleAsk(args Args) error {
	p := NewArgParser(args.Raw)
	if unknown := p.Unknown(); len(unknown) > 0 {
		return ErrUnknownFlags("ask", unknown)
	}
	query := JoinPositionalArgs(p, 0)
	if strings.TrimSpace(query) == "" && !isTerminal(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return NewCommandError("ask", "read", "stdin", err)
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return ErrMissingArgument("query", `rigwrite ask "What did I write about rust?"`)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	client, err := indexClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	answer, err := client.Query(ctx, query)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		return err
	}

	if args.JSON {
		return NewJSONResponse("ask", AskData{Query: strings.TrimSpace(query), Answer: answer}).Print(stdout)
	}
	out := renderForTerminal(stdout, answer)
	fmt.Fprint(stdout, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(stdout)
	}
	return nil
}

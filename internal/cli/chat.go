// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/jeranaias/rigwrite/internal/commands"
	"github.com/jeranaias/rigwrite/internal/config"
	"github.com/jeranaias/rigwrite/internal/document"
	"github.com/jeranaias/rigwrite/internal/stream"
)

// slashNames are the REPL's own commands, offered by tab completion.
var slashNames = []string{"/cmd", "/commands", "/help", "/model", "/quit", "/reset"}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI is line editing with persistent history for the chat REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the line editor. Tab completes slash commands and
// command IDs from reg.
func NewChatCLI(reg *commands.Registry) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		return commands.Complete(input, slashNames, reg)
	})

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line; non-blank lines go into the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the history file, owner read/write only.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession is the state of one REPL run. Each turn is a stream session
// writing into out; the running context of the last completed turn is
// sent with the next one so the model keeps the conversation.
type chatSession struct {
	app   *app
	out   io.Writer
	quiet bool

	model   string
	context json.RawMessage

	// placeholder is drawn only when out is a terminal.
	placeholder bool

	start    time.Time
	turns    int
	tokens   int
	canceled int
}

func newChatSession(rt *app, out io.Writer, args Args, model string) *chatSession {
	if model == "" {
		model = rt.cfg.Ollama.DefaultModel
	}
	return &chatSession{
		app:         rt,
		out:         out,
		quiet:       args.Quiet,
		model:       model,
		placeholder: isTerminal(out),
		start:       time.Now(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	p := NewArgParser(args.Raw)
	if unknown := p.Unknown("model", "m"); len(unknown) > 0 {
		return ErrUnknownFlags("chat", unknown)
	}

	rt, err := newApp(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	if err := rt.ensureRunning(ctx); err != nil {
		return err
	}

	session := newChatSession(rt, stdout, args, p.FirstFlag("model", "m"))

	if w := rt.watchCommands(ctx, args); w != nil {
		defer w.Stop()
	}

	input := NewChatCLI(rt.registry)
	defer input.Close()

	if !session.quiet {
		session.printWelcome()
	}

	for {
		line, err := input.ReadInput(PromptStyle.Render("rigwrite> "))
		if err != nil {
			// Ctrl-C at the prompt, Ctrl-D, or a closed stdin.
			fmt.Fprintln(session.out)
			session.printSummary()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			session.printSummary()
			return nil
		}

		keepGoing, err := session.handleLine(ctx, line)
		if err != nil {
			fmt.Fprintf(stderr, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
		}
		if !keepGoing {
			session.printSummary()
			return nil
		}
	}
}

// watchCommands reloads the command registry when the config file
// changes. It returns nil when there is no file to watch.
func (rt *app) watchCommands(ctx context.Context, args Args) *config.Watcher {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ActivePath(); err != nil {
			return nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := config.NewWatcher(path, config.DefaultDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			fmt.Fprintf(stderr, "\n%s config not reloaded: %v\n", WarningStyle.Render("[WARN]"), err)
			return
		}
		if err := rt.registry.Replace(cfg.PromptCommands()); err != nil {
			fmt.Fprintf(stderr, "\n%s commands not reloaded: %v\n", WarningStyle.Render("[WARN]"), err)
		}
	})
	if err != nil {
		return nil
	}
	w.SetLogger(rt.logger)
	if err := w.Start(ctx); err != nil {
		rt.logger.Printf("CONFIG_WATCH_ERROR | path=%s err=%v", path, err)
		return nil
	}
	return w
}

// =============================================================================
// LINE HANDLING
// =============================================================================

// handleLine runs one REPL line. It returns false when the REPL should
// end.
func (s *chatSession) handleLine(ctx context.Context, line string) (bool, error) {
	slash, ok := commands.ParseSlash(line)
	if !ok {
		return true, s.turn(ctx, "", line)
	}

	switch slash.Name {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h", "/?":
		s.printHelp()

	case "/reset":
		s.context = nil
		fmt.Fprintln(s.out, DimStyle.Render("Conversation context cleared."))

	case "/model":
		if name := slash.Arg(0); name != "" {
			s.model = name
			s.context = nil
			fmt.Fprintf(s.out, "Model set to %s (context cleared).\n", CommandStyle.Render(name))
		} else {
			fmt.Fprintf(s.out, "Model: %s\n", CommandStyle.Render(s.model))
		}

	case "/commands":
		for _, cmd := range s.app.registry.List() {
			fmt.Fprintf(s.out, "  %s  %s\n", CommandStyle.Render(cmd.ID), DimStyle.Render(cmd.Name))
		}

	case "/cmd":
		id := slash.Arg(0)
		if id == "" {
			return true, ErrMissingArgument("command", "/cmd summarize-selection some text to summarize")
		}
		if _, found := s.app.registry.Get(id); !found {
			return true, &NotFoundError{Resource: "command", ID: id}
		}
		return true, s.turn(ctx, id, slash.After(1))

	default:
		return true, NewValidationErrorWithExample("command", slash.Name, "unknown chat command", "/help")
	}
	return true, nil
}

// turn streams one generation. With cmdID set, text is the selection the
// command applies to; otherwise text is the prompt itself.
func (s *chatSession) turn(ctx context.Context, cmdID, text string) error {
	rt := s.app
	defaults := rt.cfg.Defaults()

	// A command's own model wins over the session's.
	if s.model != "" {
		defaults.Model = s.model
	}

	req := commands.BuildRawRequest(text, defaults)
	if cmdID != "" {
		cmd, _ := rt.registry.Get(cmdID)
		var err error
		if req, err = commands.BuildRequest(cmd, text, defaults); err != nil {
			return NewValidationErrorWithExample("text", "", err.Error(), "/cmd "+cmd.ID+" text to work on")
		}
	}
	req.Context = s.context

	sink := document.NewWriter(s.out)
	res := rt.engine(s.placeholder).Run(ctx, stream.Request{
		Generate: req,
		Sink:     sink,
		Position: sink.EndOfDocument(),
		Trigger:  rt.cancelTrigger(),
	})
	if sink.EndOfDocument().Col > 0 {
		fmt.Fprintln(s.out)
	}

	s.turns++
	s.tokens += res.Stats.CompletionTokens
	switch res.Status {
	case stream.StatusCompleted:
		if len(res.Context) > 0 {
			s.context = res.Context
		}
	case stream.StatusCancelled:
		s.canceled++
	}
	rt.record(ctx, uuid.NewString(), req.Model, cmdID, res)

	if !s.quiet {
		printSessionLine(s.out, res)
	}
	if errors.Is(resultError(res), ErrCancelled) {
		return nil
	}
	return resultError(res)
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *chatSession) printWelcome() {
	fmt.Fprintln(s.out, TitleStyle.Render("rigwrite chat"))
	fmt.Fprintln(s.out, RenderRow("Model", s.model))
	fmt.Fprintln(s.out, RenderRow("Server", s.app.cfg.Ollama.URL))
	fmt.Fprintln(s.out, RenderRow("Commands", fmt.Sprintf("%d (/commands to list)", s.app.registry.Len())))
	fmt.Fprintln(s.out, DimStyle.Render("Any key or Ctrl-C stops a reply. /help for commands, Ctrl-D to exit."))
	fmt.Fprintln(s.out)
}

func (s *chatSession) printHelp() {
	rows := [][2]string{
		{"/cmd ID TEXT", "Apply a prompt command to TEXT"},
		{"/commands", "List prompt commands"},
		{"/model [NAME]", "Show or switch the model"},
		{"/reset", "Forget the conversation context"},
		{"/help", "Show this help"},
		{"/quit", "Exit (also: exit, Ctrl-D)"},
	}
	for _, r := range rows {
		fmt.Fprintf(s.out, "  %s %s\n", CommandStyle.Render(fmt.Sprintf("%-16s", r[0])), r[1])
	}
}

func (s *chatSession) printSummary() {
	if s.quiet || s.turns == 0 {
		return
	}
	fmt.Fprintln(s.out, RenderSeparator(40))
	fmt.Fprintf(s.out, "%d turns, %s tokens, %d stopped early, %s\n",
		s.turns, formatCount(s.tokens), s.canceled, formatDurationShort(time.Since(s.start)))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rigwrite/internal/commands"
	"github.com/jeranaias/rigwrite/internal/document"
	"github.com/jeranaias/rigwrite/internal/ollama"
	"github.com/jeranaias/rigwrite/internal/stream"
	"github.com/jeranaias/rigwrite/internal/util"
)

// =============================================================================
// GEN OPTIONS
// =============================================================================

var (
	genBools = []string{"separator", "batch"}
	genFlags = []string{
		"command", "c", "prompt", "p", "text", "t", "file", "f", "at",
		"separator", "model", "m", "temperature", "context-in", "context-out", "batch",
	}
)

type genOptions struct {
	Command     string
	Prompt      string
	Text        string
	HasText     bool
	File        string
	At          string
	Separator   bool
	Model       string
	Temperature *float64
	ContextIn   string
	ContextOut  string
	Batch       bool
}

func parseGenOptions(raw []string) (genOptions, error) {
	p := NewArgParser(raw, genBools...)
	if unknown := p.Unknown(genFlags...); len(unknown) > 0 {
		return genOptions{}, ErrUnknownFlags("gen", unknown)
	}

	opts := genOptions{
		Command:    p.FirstFlag("command", "c"),
		Prompt:     p.FirstFlag("prompt", "p"),
		Text:       p.FirstFlag("text", "t"),
		HasText:    p.HasFlag("text") || p.HasFlag("t"),
		File:       p.FirstFlag("file", "f"),
		At:         p.Flag("at"),
		Separator:  p.BoolFlag("separator"),
		Model:      p.FirstFlag("model", "m"),
		ContextIn:  p.Flag("context-in"),
		ContextOut: p.Flag("context-out"),
		Batch:      p.BoolFlag("batch"),
	}
	if opts.Prompt == "" {
		opts.Prompt = JoinPositionalArgs(p, 0)
	}

	if t := p.Flag("temperature"); t != "" {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil || v < 0 || v > 2 {
			return opts, NewValidationErrorWithExample("temperature", t, "must be a number between 0 and 2", "--temperature 0.7")
		}
		opts.Temperature = &v
	}
	if opts.Command != "" && opts.Prompt != "" {
		return opts, NewValidationError("prompt", opts.Prompt, "--command and a free-form prompt are mutually exclusive")
	}
	if opts.At != "" && opts.File == "" {
		return opts, NewValidationError("at", opts.At, "--at needs --file")
	}
	return opts, nil
}

// =============================================================================
// GEN HANDLER
// =============================================================================

// HandleGen handles the "gen" command: one generation streamed into a file
// or the terminal.
func HandleGen(args Args) error {
	opts, err := parseGenOptions(args.Raw)
	if err != nil {
		return err
	}

	rt, err := newApp(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	req, cmdID, err := rt.buildGenRequest(opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := rt.ensureRunning(ctx); err != nil {
		return err
	}

	// Sink: a file, the terminal, or a buffer for --json.
	var (
		sink        stream.Sink
		file        *document.File
		captured    bytes.Buffer
		termWriter  *document.Writer
		position    stream.Position
		placeholder bool
	)
	switch {
	case opts.File != "":
		file, err = document.OpenFile(opts.File, document.WithSaveInterval(rt.cfg.SaveInterval()))
		if err != nil {
			return NewCommandError("gen", "open", opts.File, err)
		}
		position, err = genPosition(file.Document, opts)
		if err != nil {
			return err
		}
		sink, placeholder = file, true
	case args.JSON:
		termWriter = document.NewWriter(&captured)
		sink = termWriter
	default:
		termWriter = document.NewWriter(stdout)
		sink, placeholder = termWriter, isTerminal(stdout)
	}
	if opts.Separator {
		if _, err := sink.InsertAt(sink.EndOfDocument(), "\n\n"); err != nil {
			return NewCommandError("gen", "separator", "could not insert", err)
		}
		if opts.At == "" {
			position = sink.EndOfDocument()
		}
	}

	id := uuid.NewString()
	var res stream.Result
	if opts.Batch {
		markdown := termWriter != nil && !args.JSON && isTerminal(stdout)
		res = rt.runBatch(ctx, req, sink, markdown)
	} else {
		session := rt.engine(placeholder).Start(ctx, stream.Request{
			Generate: req,
			Sink:     sink,
			Position: position,
			Trigger:  rt.cancelTrigger(),
		})
		id = session.ID()
		res = session.Wait()
	}

	if file != nil {
		if err := file.Flush(); err != nil && res.Status != stream.StatusFailed {
			res.Status = stream.StatusFailed
			res.Err = &stream.SinkError{Op: "save", Err: err}
		}
	}
	if termWriter != nil && !args.JSON && termWriter.EndOfDocument().Col > 0 {
		fmt.Fprintln(stdout)
	}

	rt.record(ctx, id, req.Model, cmdID, res)

	if opts.ContextOut != "" && len(res.Context) > 0 {
		if err := util.AtomicWriteFile(opts.ContextOut, append(bytes.Clone(res.Context), '\n'), 0600); err != nil {
			return NewCommandError("gen", "save context", opts.ContextOut, err)
		}
	}

	runErr := resultError(res)
	if args.JSON {
		data := genData(id, cmdID, req.Model, opts.File, captured.String(), res)
		if runErr != nil {
			NewJSONErrorResponse("gen", runErr, data).Print(stdout)
		} else {
			NewJSONResponse("gen", data).Print(stdout)
		}
	} else if !args.Quiet {
		printSessionLine(stderr, res)
	}
	return runErr
}

// buildGenRequest resolves the prompt, selection and overrides into a
// request. It returns the command ID, or "" for a free-form prompt.
func (rt *app) buildGenRequest(opts genOptions) (ollama.GenerateRequest, string, error) {
	selection := opts.Text
	if !opts.HasText && !isTerminal(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return ollama.GenerateRequest{}, "", NewCommandError("gen", "read", "stdin", err)
		}
		selection = string(data)
	}

	var (
		req   ollama.GenerateRequest
		cmdID string
	)
	switch {
	case opts.Command != "":
		cmd, ok := rt.registry.Get(opts.Command)
		if !ok {
			return req, "", &NotFoundError{Resource: "command", ID: opts.Command}
		}
		var err error
		req, err = commands.BuildRequest(cmd, selection, rt.cfg.Defaults())
		if err != nil {
			return req, "", NewValidationErrorWithExample("text", "", err.Error(), "echo 'some text' | rigwrite gen -c "+cmd.ID)
		}
		cmdID = cmd.ID
	case opts.Prompt != "":
		prompt := opts.Prompt
		if strings.TrimSpace(selection) != "" {
			prompt += "\n\n" + selection
		}
		req = commands.BuildRawRequest(prompt, rt.cfg.Defaults())
	case strings.TrimSpace(selection) != "":
		req = commands.BuildRawRequest(selection, rt.cfg.Defaults())
	default:
		return req, "", ErrMissingArgument("prompt", `rigwrite gen -p "Write a haiku" or rigwrite gen -c summarize-selection -t "..."`)
	}

	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != nil {
		req = req.WithTemperature(*opts.Temperature)
	}
	if opts.ContextIn != "" {
		raw, err := readContext(opts.ContextIn)
		if err != nil {
			return req, "", err
		}
		req.Context = raw
	}
	return req, cmdID, nil
}

// readContext loads a running context saved by --context-out.
func readContext(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCommandError("gen", "read context", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, NewValidationError("context-in", path, "file does not hold a JSON value")
	}
	return json.RawMessage(data), nil
}

// genPosition resolves --at against doc, defaulting to its end.
func genPosition(doc *document.Document, opts genOptions) (stream.Position, error) {
	if opts.At == "" {
		return doc.EndOfDocument(), nil
	}
	pos, err := document.ParsePosition(opts.At)
	if err != nil {
		return pos, NewValidationErrorWithExample("at", opts.At, err.Error(), "--at 12:1")
	}
	lines := doc.Lines()
	if pos.Line >= len(lines) || pos.Col > util.RuneLen(lines[pos.Line]) {
		return pos, NewValidationError("at", opts.At, fmt.Sprintf("outside the document (%d lines)", len(lines)))
	}
	return pos, nil
}

// runBatch is the one-shot path: no streaming, the whole answer is
// inserted at once. With markdown set the answer is rendered for the
// terminal first.
func (rt *app) runBatch(ctx context.Context, req ollama.GenerateRequest, sink stream.Sink, markdown bool) stream.Result {
	start := time.Now()
	res := stream.Result{Stats: stream.Stats{StartTime: start}}

	resp, err := rt.client.Generate(ctx, req)
	res.Stats.EndTime = time.Now()
	if err != nil {
		res.Status = stream.StatusFailed
		res.Err = &stream.TransportError{Op: "generate", Err: err}
		return res
	}

	res.Records = 1
	res.Context = resp.Context
	res.Model = resp.Model
	res.DoneReason = resp.DoneReason
	res.Stats.Metrics = stream.Metrics{
		TotalDuration:      time.Duration(resp.TotalDuration),
		LoadDuration:       time.Duration(resp.LoadDuration),
		PromptEvalDuration: time.Duration(resp.PromptEvalDuration),
		EvalDuration:       time.Duration(resp.EvalDuration),
		PromptTokens:       resp.PromptEvalCount,
		CompletionTokens:   resp.EvalCount,
	}
	res.Stats.TokensPerSecond = resp.TokensPerSecond()
	res.Stats.TTFT = res.Stats.EndTime.Sub(start)

	if text := resp.Response; text != "" {
		if markdown {
			text = renderMarkdown(text)
		}
		end, err := sink.InsertAt(sink.EndOfDocument(), text)
		if err != nil {
			res.Status = stream.StatusFailed
			res.Err = &stream.SinkError{Op: "insert", Err: err}
			return res
		}
		sink.SetCursor(end)
	}
	res.Status = stream.StatusCompleted
	return res
}

// printSessionLine writes the one-line outcome of a session.
func printSessionLine(w io.Writer, res stream.Result) {
	line := res.Stats.Format()
	if res.DecodeErrors > 0 {
		line += fmt.Sprintf(" | %d bad lines skipped", res.DecodeErrors)
	}
	fmt.Fprintf(w, "%s %s\n", RenderStatus(res.Status.String()), DimStyle.Render(line))
}

func genData(id, cmdID, model, file, text string, res stream.Result) GenData {
	if res.Model != "" {
		model = res.Model
	}
	return GenData{
		Session:          id,
		Status:           res.Status.String(),
		Model:            model,
		Command:          cmdID,
		File:             file,
		Text:             text,
		DoneReason:       res.DoneReason,
		Records:          res.Records,
		DecodeErrors:     res.DecodeErrors,
		PromptTokens:     res.Stats.PromptTokens,
		CompletionTokens: res.Stats.CompletionTokens,
		TokensPerSecond:  res.Stats.TokensPerSecond,
		DurationMs:       res.Stats.Elapsed().Milliseconds(),
		Context:          res.Context,
	}
}

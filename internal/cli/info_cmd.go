// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/rigwrite/internal/telemetry"
	"github.com/jeranaias/rigwrite/internal/util"
)

// =============================================================================
// COMMANDS
// =============================================================================

// HandleCommands lists the prompt commands from the config.
func HandleCommands(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	cmds := cfg.PromptCommands()

	if args.JSON {
		data := make([]CommandData, 0, len(cmds))
		for _, c := range cmds {
			data = append(data, CommandData{
				ID:          c.ID,
				Name:        c.Name,
				Model:       c.Model,
				Temperature: c.Temperature,
				Prompt:      c.Prompt,
			})
		}
		return NewJSONResponse("commands", data).Print(stdout)
	}

	fmt.Fprintln(stdout, TitleStyle.Render(fmt.Sprintf("Prompt commands (%d)", len(cmds))))
	fmt.Fprintln(stdout, RenderSeparator())
	for _, c := range cmds {
		detail := c.Name
		if c.Model != "" {
			detail += "  [" + c.Model + "]"
		}
		fmt.Fprintln(stdout, RenderLabel(CommandStyle.Render(c.ID))+ValueStyle.Render(detail))
		if args.Verbose {
			fmt.Fprintln(stdout, "  "+DimStyle.Render(util.TruncateWidth(c.Prompt, GetTerminalWidth()-4)))
		}
	}
	if len(cmds) == 0 {
		fmt.Fprintln(stdout, DimStyle.Render("No commands configured."))
	}
	return nil
}

// =============================================================================
// MODELS
// =============================================================================

// HandleModels lists the models the Ollama server has pulled.
func HandleModels(args Args) error {
	rt, err := newApp(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	models, err := rt.client.ListModels(ctx)
	if err != nil {
		return err
	}
	def := rt.client.GetDefaultModel()

	if args.JSON {
		data := make([]ModelData, 0, len(models))
		for _, m := range models {
			d := ModelData{Name: m.Name, Size: m.Size, Default: m.Name == def}
			if !m.ModifiedAt.IsZero() {
				d.Modified = m.ModifiedAt.UTC().Format(time.RFC3339)
			}
			data = append(data, d)
		}
		return NewJSONResponse("models", data).Print(stdout)
	}

	fmt.Fprintln(stdout, TitleStyle.Render(fmt.Sprintf("Models on %s", rt.cfg.Ollama.URL)))
	fmt.Fprintln(stdout, RenderSeparator())
	found := false
	for _, m := range models {
		mark := " "
		if m.Name == def {
			mark, found = "*", true
		}
		fmt.Fprintf(stdout, "%s %s%s\n", SuccessStyle.Render(mark), RenderLabel(m.Name), DimStyle.Render(m.FormatSize()))
	}
	if len(models) == 0 {
		fmt.Fprintln(stdout, DimStyle.Render("No models pulled. Try: ollama pull "+def))
	} else if !found {
		fmt.Fprintln(stdout, WarningStyle.Render(fmt.Sprintf("Default model %q is not pulled.", def)))
	}
	return nil
}

// =============================================================================
// STATS
// =============================================================================

// StatsData is the data of `rigwrite stats --json`.
type StatsData struct {
	Summary telemetry.Summary `json:"summary"`
	Recent  []telemetry.Entry `json:"recent,omitempty"`
	Pruned  int64             `json:"pruned,omitempty"`
}

// HandleStats reports recorded sessions. --recent N lists the last N;
// --prune DAYS first drops sessions older than DAYS.
func HandleStats(args Args) error {
	p := NewArgParser(args.Raw)
	if unknown := p.Unknown("recent", "n", "prune"); len(unknown) > 0 {
		return ErrUnknownFlags("stats", unknown)
	}
	var recent, pruneDays int
	var err error
	if v := firstNonEmpty(p.Flag("recent"), p.Flag("n")); v != "" {
		if recent, err = ParseIntWithValidation(v, "recent"); err != nil {
			return NewValidationErrorWithExample("recent", v, err.Error(), "rigwrite stats --recent 10")
		}
	}
	if v := p.Flag("prune"); v != "" {
		if pruneDays, err = ParseIntWithValidation(v, "prune"); err != nil {
			return NewValidationErrorWithExample("prune", v, err.Error(), "rigwrite stats --prune 90")
		}
	}

	rt, err := newApp(args)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.store == nil {
		if !rt.cfg.Telemetry.Enabled {
			return NewValidationErrorWithExample("telemetry.enabled", "false", "session statistics are off",
				"rigwrite config set telemetry.enabled true")
		}
		return NewCommandError("stats", "open", rt.cfg.Telemetry.Path, fmt.Errorf("telemetry store unavailable"))
	}

	ctx := context.Background()
	var data StatsData
	if pruneDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -pruneDays)
		if data.Pruned, err = rt.store.DeleteBefore(ctx, cutoff); err != nil {
			return NewCommandError("stats", "prune", "", err)
		}
	}
	if data.Summary, err = rt.store.Summary(ctx); err != nil {
		return NewCommandError("stats", "summarize", "", err)
	}
	if recent > 0 {
		if data.Recent, err = rt.store.Recent(ctx, recent); err != nil {
			return NewCommandError("stats", "list", "", err)
		}
	}

	if args.JSON {
		return NewJSONResponse("stats", data).Print(stdout)
	}
	printStats(data)
	return nil
}

func printStats(data StatsData) {
	s := data.Summary
	fmt.Fprintln(stdout, TitleStyle.Render("Session statistics"))
	fmt.Fprintln(stdout, RenderSeparator())
	if data.Pruned > 0 {
		fmt.Fprintln(stdout, DimStyle.Render(fmt.Sprintf("Pruned %d old sessions.", data.Pruned)))
	}
	if s.Sessions == 0 {
		fmt.Fprintln(stdout, DimStyle.Render("No sessions recorded yet."))
		return
	}

	fmt.Fprintln(stdout, RenderRow("Sessions", formatCount(s.Sessions)))
	fmt.Fprintln(stdout, RenderRow("Completed", formatCount(s.ByStatus["completed"])))
	fmt.Fprintln(stdout, RenderRow("Cancelled", formatCount(s.ByStatus["cancelled"])))
	fmt.Fprintln(stdout, RenderRow("Failed", formatCount(s.ByStatus["failed"])))
	fmt.Fprintln(stdout, RenderRow("Prompt tokens", formatCount(s.PromptTokens)))
	fmt.Fprintln(stdout, RenderRow("Completion tokens", formatCount(s.CompletionTokens)))
	if s.AvgTokensPerSec > 0 {
		fmt.Fprintln(stdout, RenderRow("Average speed", fmt.Sprintf("%.1f tok/s", s.AvgTokensPerSec)))
	}
	if s.DecodeErrors > 0 {
		fmt.Fprintln(stdout, RenderRow("Bad stream lines", formatCount(s.DecodeErrors)))
	}
	fmt.Fprintln(stdout, RenderRow("Period", s.First.Local().Format("2006-01-02")+" to "+s.Last.Local().Format("2006-01-02")))

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, TitleStyle.Render("Models"))
	for _, m := range s.Models() {
		fmt.Fprintln(stdout, RenderRow(m, formatCount(s.ByModel[m])))
	}

	if len(data.Recent) == 0 {
		return
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, TitleStyle.Render("Recent"))
	for _, e := range data.Recent {
		cmd := e.Command
		if cmd == "" {
			cmd = "(prompt)"
		}
		fmt.Fprintf(stdout, "%s %s %s %s %6s %s\n",
			e.StartTime.Local().Format("01-02 15:04"),
			RenderStatus(e.Status),
			padWidth(cmd, 24),
			padWidth(e.Model, 14),
			formatDurationShort(e.Duration),
			DimStyle.Render(fmt.Sprintf("%s tok", formatCount(e.CompletionTokens))))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

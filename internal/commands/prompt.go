// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigwrite/internal/ollama"
)

// =============================================================================
// PROMPT COMMAND
// =============================================================================

// Command is a named prompt applied to a selection of text.
type Command struct {
	// ID is the kebab-case form of Name, used on the command line.
	ID string

	Name   string
	Prompt string

	// Model overrides the default model when set.
	Model string

	// Temperature overrides the default temperature when set.
	Temperature *float64
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// KebabCase derives a command ID from its name: every character other than
// an ASCII letter, digit or space becomes a space, each run of whitespace
// becomes a single "-", and the result is lower-cased. Trailing punctuation
// therefore leaves a trailing "-".
//
//	KebabCase("Rewrite selection (formal)") == "rewrite-selection-formal-"
func KebabCase(name string) string {
	s := nonAlnum.ReplaceAllString(name, " ")
	s = whitespace.ReplaceAllString(s, "-")
	return strings.ToLower(s)
}

// Defaults holds the fallbacks applied when a command leaves a field unset.
type Defaults struct {
	Model       string
	Temperature float64
}

// ErrEmptySelection is returned when a command is applied to no text.
var ErrEmptySelection = errors.New("selection is empty")

// BuildRequest turns a command and a selection into a generation request.
// The prompt is the command's prompt, a blank line, then the selection,
// NFC-normalized so composed and decomposed input produce the same request.
func BuildRequest(cmd Command, selection string, defaults Defaults) (ollama.GenerateRequest, error) {
	if strings.TrimSpace(selection) == "" {
		return ollama.GenerateRequest{}, ErrEmptySelection
	}

	model := cmd.Model
	if model == "" {
		model = defaults.Model
	}
	temperature := defaults.Temperature
	if cmd.Temperature != nil {
		temperature = *cmd.Temperature
	}

	prompt := norm.NFC.String(cmd.Prompt + "\n\n" + selection)
	return ollama.GenerateRequest{Model: model, Prompt: prompt}.WithTemperature(temperature), nil
}

// BuildRawRequest is BuildRequest for a free-form prompt with no command.
func BuildRawRequest(prompt string, defaults Defaults) ollama.GenerateRequest {
	req := ollama.GenerateRequest{Model: defaults.Model, Prompt: norm.NFC.String(prompt)}
	return req.WithTemperature(defaults.Temperature)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

const promptTail = " Output only the text and nothing else, do not chat, no preamble, get to the point."

// Builtin returns the stock writing commands.
func Builtin() []Command {
	cmds := []Command{
		{Name: "Summarize selection", Prompt: "Act as a writer. Summarize the text in a view sentences highlighting the key takeaways." + promptTail},
		{Name: "Explain selection", Prompt: "Act as a writer. Explain the text in simple and concise terms keeping the same meaning." + promptTail},
		{Name: "Expand selection", Prompt: "Act as a writer. Expand the text by adding more details while keeping the same meaning." + promptTail},
		{Name: "Rewrite selection (formal)", Prompt: "Act as a writer. Rewrite the text in a more formal style while keeping the same meaning." + promptTail},
		{Name: "Rewrite selection (casual)", Prompt: "Act as a writer. Rewrite the text in a more casual style while keeping the same meaning." + promptTail},
		{Name: "Rewrite selection (active voice)", Prompt: "Act as a writer. Rewrite the text in with an active voice while keeping the same meaning." + promptTail},
		{Name: "Rewrite selection (bullet points)", Prompt: "Act as a writer. Rewrite the text into bullet points while keeping the same meaning." + promptTail},
		{Name: "Caption selection", Prompt: "Act as a writer. Create only one single heading for the whole text that is giving a good understanding of what the reader can expect. Output only the caption and nothing else, do not chat, no preamble, get to the point. Your format should be ## Caption."},
	}
	for i := range cmds {
		cmds[i].ID = KebabCase(cmds[i].Name)
	}
	return cmds
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
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
	CmdHelp Command = iota
	CmdGen
	CmdChat
	CmdCommands
	CmdModels
	CmdStats
	CmdConfig
	CmdIndex
	CmdAsk
	CmdVersion
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose    bool
	Quiet      bool
	JSON       bool
	ConfigPath string

	// Name is the command word as typed.
	Name string

	// Raw args (remaining after global flag parsing)
	Raw []string
}

const usageText = `rigwrite - stream local LLM writing commands into your documents

Usage:
  rigwrite gen [flags] [prompt...]   Run a writing command and stream the result
  rigwrite chat [--model NAME]       Interactive session in the terminal
  rigwrite commands                  List prompt commands
  rigwrite models                    List models on the Ollama server
  rigwrite stats [--recent N]        Session statistics
  rigwrite config [show|path|init|get KEY|set KEY VALUE]
  rigwrite index [--watch] [DIR]     Send DIR to the index server, optionally follow changes
  rigwrite ask QUESTION...           Ask the index server about your documents
  rigwrite version                   Show version information
  rigwrite help                      Show this help

Gen flags:
  -c, --command ID        Prompt command to apply (see: rigwrite commands)
  -p, --prompt TEXT       Free-form prompt instead of a command
  -t, --text TEXT         Selection to apply the command to (default: stdin)
  -f, --file PATH         Stream into PATH instead of the terminal
      --at L:C            Where the result goes in --file (default: end)
      --separator         Insert a blank line before the result
  -m, --model NAME        Override the model
      --temperature N     Override the temperature (0-2)
      --context-in PATH   Continue from a saved running context
      --context-out PATH  Save the running context for a follow-up
      --batch             Wait for the whole answer instead of streaming

Index flags:
      --watch             Keep running and sync created, changed and removed files
      --update PATH       Reindex one path
      --remove PATH       Drop one path from the index

Global flags:
  -v, --verbose           Log session events to stderr
  -q, --quiet             Suppress the statistics line
      --json              Machine-readable output
      --config PATH       Use this config file

While generating, press any key or Ctrl-C to stop. Text already written
stays in place.

Examples:
  echo "Some rough notes" | rigwrite gen -c summarize-selection
  rigwrite gen -c caption-selection -f draft.md --at 1:1 -t "$(cat draft.md)"
  rigwrite gen -p "Write a haiku about rain" --context-out ctx.json
  rigwrite config set ollama.default_model mistral
  rigwrite index --watch ~/notes
  rigwrite ask "What did I decide about the cover art?"

Exit codes: 0 completed, 1 failed, 2 usage, 3 config, 130 cancelled.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rigwrite version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments (without the program name) and
// returns the command and its args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdHelp, parsedArgs
	}

	parsedArgs.Name = strings.ToLower(remaining[0])
	parsedArgs.Raw = remaining[1:]

	switch parsedArgs.Name {
	case "gen", "generate", "g":
		return CmdGen, parsedArgs
	case "chat":
		return CmdChat, parsedArgs
	case "commands", "cmds":
		return CmdCommands, parsedArgs
	case "models":
		return CmdModels, parsedArgs
	case "stats":
		return CmdStats, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "index":
		return CmdIndex, parsedArgs
	case "ask":
		return CmdAsk, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining
// args. Global flags may appear anywhere on the line.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			remaining = append(remaining, args[i:]...)
			break
		}

		switch arg {
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--json":
			parsedArgs.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

// Run executes cmd and returns the process exit code.
func Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdGen:
		err = HandleGen(args)
	case CmdChat:
		err = HandleChat(args)
	case CmdCommands:
		err = HandleCommands(args)
	case CmdModels:
		err = HandleModels(args)
	case CmdStats:
		err = HandleStats(args)
	case CmdConfig:
		err = HandleConfig(args)
	case CmdIndex:
		err = HandleIndex(args)
	case CmdAsk:
		err = HandleAsk(args)
	case CmdVersion:
		err = HandleVersion(args)
	case CmdHelp:
		PrintUsage(stdout)
	default:
		err = NewValidationErrorWithExample("command", args.Name, "unknown command", "rigwrite help")
	}

	if err != nil {
		DisplayError(stderr, err, args.JSON)
	}
	return GetExitCode(err)
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(stdout)
	}
	PrintVersion(stdout)
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigwrite command line.
//
// # Commands
//
//   - gen: run a prompt command or free-form prompt and stream the answer
//     into a file (--file) or the terminal
//   - chat: interactive REPL; each turn is one stream session and the
//     running context carries over between turns
//   - commands, models: list prompt commands and pulled models
//   - stats: per-session statistics from the telemetry store
//   - config: show, init, get and set configuration values
//   - index: send a directory to the index server, or keep it in sync
//     with --watch (created and changed files are PATCHed, removed ones
//     DELETEd)
//   - ask: query the index server and render the markdown answer
//
// # Usage
//
//	os.Exit(cli.Run(cli.Parse(os.Args[1:])))
//
// Every command accepts --json and then prints a JSONResponse envelope;
// `index --watch --json` prints one IndexData line per request instead.
// Exit codes follow the session outcome: 0 completed, 1 failed, 130
// cancelled, with 2 for usage and 3 for configuration errors.
package cli

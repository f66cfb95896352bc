// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the prompt commands applied to a selection of
// text and the slash-line parsing used by the chat REPL.
//
// # Key Types
//
//   - Command: a named prompt, optionally pinned to a model or temperature
//   - Registry: commands by kebab-case ID
//   - Slash: a parsed "/name args..." REPL line
//
// # Usage
//
//	reg, _ := commands.NewRegistry(commands.Builtin())
//	cmd, _ := reg.Get("summarize-selection")
//	req, err := commands.BuildRequest(cmd, selection, commands.Defaults{Model: "llama2"})
package commands

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigwrite.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - OllamaConfig: Server URL, default model and temperature
//   - StreamConfig: Read buffer, placeholder glyph, save throttle
//   - CommandConfig: One prompt command as written in the file
//   - Watcher: Reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGWRITE_*)
//   - $RIGWRITE_CONFIG, or ~/.rigwrite/config.toml, or ~/.rigwrite/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg, err := commands.NewRegistry(cfg.PromptCommands())
package config

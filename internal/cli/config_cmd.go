// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigwrite/internal/config"
)

// ConfigData is the data of `rigwrite config get|set --json`.
type ConfigData struct {
	Path  string      `json:"path,omitempty"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// HandleConfig handles "config" and its subcommands: show, path, init,
// get KEY, set KEY VALUE and keys.
func HandleConfig(args Args) error {
	p := NewArgParser(args.Raw, "force")
	if unknown := p.Unknown("force"); len(unknown) > 0 {
		return ErrUnknownFlags("config", unknown)
	}

	switch sub := p.Subcommand(); sub {
	case "", "show":
		return configShow(args)
	case "path":
		return configPath(args)
	case "init":
		return configInit(args, p.BoolFlag("force"))
	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "rigwrite config get ollama.default_model")
		}
		return configGet(args, key)
	case "set":
		key, value := p.Positional(1), p.Positional(2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key/value", "rigwrite config set ollama.temperature 0.7")
		}
		return configSet(args, key, value)
	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(stdout, k)
		}
		return nil
	default:
		return NewValidationErrorWithExample("subcommand", sub, "unknown config subcommand",
			"rigwrite config [show|path|init|get KEY|set KEY VALUE|keys]")
	}
}

// editPath is the file config init and config set write to.
func editPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ActivePath()
}

func configShow(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", cfg).Print(stdout)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return NewCommandError("config", "encode", "", err)
	}
	fmt.Fprint(stdout, buf.String())
	return nil
}

func configPath(args Args) error {
	path, err := editPath(args)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{
			"path":   path,
			"exists": statErr == nil,
		}).Print(stdout)
	}
	fmt.Fprintln(stdout, path)
	if statErr != nil && !args.Quiet {
		fmt.Fprintln(stderr, DimStyle.Render("(not created yet, run: rigwrite config init)"))
	}
	return nil
}

func configInit(args Args, force bool) error {
	path, err := editPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewValidationErrorWithExample("path", path, "config file already exists", "rigwrite config init --force")
	}

	cfg := config.Default()
	cfg.SetDefaults()
	if err := config.SaveToPath(cfg, path); err != nil {
		return NewCommandError("config", "write", path, err)
	}
	if args.JSON {
		return NewJSONResponse("config", ConfigData{Path: path}).Print(stdout)
	}
	fmt.Fprintf(stdout, "%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}

func configGet(args Args, key string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	if args.JSON {
		return NewJSONResponse("config", ConfigData{Key: key, Value: value}).Print(stdout)
	}
	fmt.Fprintln(stdout, value)
	return nil
}

// configSet edits the file without environment overrides, so a value
// from RIGWRITE_MODEL and friends is never written back.
func configSet(args Args, key, value string) error {
	path, err := editPath(args)
	if err != nil {
		return err
	}
	cfg, err := config.LoadForEdit(path)
	if err != nil {
		return err
	}
	if _, err := cfg.Get(key); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "rigwrite config keys")
	}
	if err := cfg.Set(key, strings.TrimSpace(value)); err != nil {
		return NewValidationError(key, value, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveToPath(cfg, path); err != nil {
		return NewCommandError("config", "write", path, err)
	}
	if args.ConfigPath == "" {
		if err := config.ReloadGlobal(); err != nil && args.Verbose {
			fmt.Fprintf(stderr, "%s %v\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	newValue, _ := cfg.Get(key)
	if args.JSON {
		return NewJSONResponse("config", ConfigData{Path: path, Key: key, Value: newValue}).Print(stdout)
	}
	fmt.Fprintf(stdout, "%s %s = %v\n", SuccessStyle.Render("[OK]"), key, newValue)
	return nil
}

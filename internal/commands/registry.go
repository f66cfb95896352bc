// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the prompt commands known to the application. It is safe
// for concurrent use; the chat REPL replaces its contents when the config
// file changes.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	order    []string
}

// NewRegistry creates a registry holding cmds. Commands without an ID get
// KebabCase(Name).
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{commands: make(map[string]*Command)}
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a command. A duplicate ID is an error.
func (r *Registry) Register(cmd Command) error {
	if strings.TrimSpace(cmd.Name) == "" {
		return fmt.Errorf("command has no name")
	}
	if strings.TrimSpace(cmd.Prompt) == "" {
		return fmt.Errorf("command %q has no prompt", cmd.Name)
	}
	if cmd.ID == "" {
		cmd.ID = KebabCase(cmd.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[cmd.ID]; exists {
		return fmt.Errorf("duplicate command id %q", cmd.ID)
	}
	r.commands[cmd.ID] = &cmd
	r.order = append(r.order, cmd.ID)
	return nil
}

// Replace swaps the registry's contents for cmds, all or nothing.
func (r *Registry) Replace(cmds []Command) error {
	next, err := NewRegistry(cmds)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = next.commands
	r.order = next.order
	return nil
}

// Get finds a command by ID or by name. The lookup also accepts an ID
// without its trailing "-", so "rewrite-selection-formal" works.
func (r *Registry) Get(idOrName string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cmd, ok := r.commands[idOrName]; ok {
		return *cmd, true
	}
	want := strings.Trim(KebabCase(idOrName), "-")
	for _, id := range r.order {
		if strings.Trim(id, "-") == want {
			return *r.commands[id], true
		}
	}
	return Command{}, false
}

// List returns all commands sorted by ID.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, *cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].ID < cmds[j].ID })
	return cmds
}

// IDs returns the command IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// KEBAB CASE
// =============================================================================

func TestKebabCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Summarize selection", "summarize-selection"},
		{"Rewrite selection (formal)", "rewrite-selection-formal-"},
		{"Rewrite selection (bullet points)", "rewrite-selection-bullet-points-"},
		{"  Leading   spaces", "-leading-spaces"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"Ünïcode wörds", "-n-code-w-rds"},
		{"ABC123", "abc123"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := KebabCase(tc.in); got != tc.want {
			t.Errorf("KebabCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// =============================================================================
// BUILD REQUEST
// =============================================================================

func TestBuildRequest_Defaults(t *testing.T) {
	cmd := Command{Name: "Summarize", Prompt: "Summarize this."}

	req, err := BuildRequest(cmd, "Some text.", Defaults{Model: "llama2", Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "llama2", req.Model)
	assert.Equal(t, "Summarize this.\n\nSome text.", req.Prompt)
	require.NotNil(t, req.Options)
	assert.Equal(t, 0.2, req.Options.Temperature)
	assert.Nil(t, req.Context)
}

func TestBuildRequest_CommandOverrides(t *testing.T) {
	temp := 0.0
	cmd := Command{Name: "Strict", Prompt: "p", Model: "mistral", Temperature: &temp}

	req, err := BuildRequest(cmd, "x", Defaults{Model: "llama2", Temperature: 0.8})
	require.NoError(t, err)
	assert.Equal(t, "mistral", req.Model)
	assert.Equal(t, 0.0, req.Options.Temperature)
}

func TestBuildRequest_NormalizesNFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	req, err := BuildRequest(Command{Name: "n", Prompt: "p"}, decomposed, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, "p\n\nCaf\u00e9", req.Prompt)
}

func TestBuildRequest_EmptySelection(t *testing.T) {
	_, err := BuildRequest(Command{Name: "n", Prompt: "p"}, " \n\t", Defaults{})
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestBuildRawRequest(t *testing.T) {
	req := BuildRawRequest("Hello", Defaults{Model: "m", Temperature: 0.5})
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, "Hello", req.Prompt)
	assert.Equal(t, 0.5, req.Options.Temperature)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestBuiltin(t *testing.T) {
	cmds := Builtin()
	require.Len(t, cmds, 8)

	reg, err := NewRegistry(cmds)
	require.NoError(t, err)
	assert.Equal(t, 8, reg.Len())

	for _, cmd := range cmds {
		assert.Equal(t, KebabCase(cmd.Name), cmd.ID)
		assert.Contains(t, cmd.Prompt, "Act as a writer.")
	}
}

func TestRegistry_Get(t *testing.T) {
	reg, err := NewRegistry(Builtin())
	require.NoError(t, err)

	for _, key := range []string{
		"rewrite-selection-formal-",
		"rewrite-selection-formal",
		"Rewrite selection (formal)",
	} {
		cmd, ok := reg.Get(key)
		require.True(t, ok, "lookup %q", key)
		assert.Equal(t, "Rewrite selection (formal)", cmd.Name)
	}

	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_RejectsBadCommands(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	assert.Error(t, reg.Register(Command{Name: "", Prompt: "p"}))
	assert.Error(t, reg.Register(Command{Name: "n", Prompt: " "}))
	require.NoError(t, reg.Register(Command{Name: "Twin", Prompt: "p"}))
	assert.Error(t, reg.Register(Command{Name: "twin", Prompt: "q"}), "same kebab id")
}

func TestRegistry_ListSorted(t *testing.T) {
	reg, err := NewRegistry([]Command{
		{Name: "Zed", Prompt: "z"},
		{Name: "Alpha", Prompt: "a"},
	})
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)
	assert.Equal(t, "zed", list[1].ID)
	assert.Equal(t, []string{"zed", "alpha"}, reg.IDs())
}

func TestRegistry_ReplaceIsAtomic(t *testing.T) {
	reg, err := NewRegistry(Builtin())
	require.NoError(t, err)

	err = reg.Replace([]Command{{Name: "A", Prompt: "1"}, {Name: "a", Prompt: "2"}})
	assert.Error(t, err)
	assert.Equal(t, 8, reg.Len(), "failed replace leaves contents alone")

	require.NoError(t, reg.Replace([]Command{{Name: "Only", Prompt: "1"}}))
	assert.Equal(t, []string{"only"}, reg.IDs())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg, err := NewRegistry(Builtin())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Get("summarize-selection")
			reg.List()
		}()
		go func() {
			defer wg.Done()
			reg.Replace(Builtin())
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, reg.Len())
}

// =============================================================================
// SLASH LINES
// =============================================================================

func TestParseSlash(t *testing.T) {
	s, ok := ParseSlash("  /cmd summarize-selection  Some   text here ")
	require.True(t, ok)
	assert.Equal(t, "/cmd", s.Name)
	assert.Equal(t, "summarize-selection", s.Arg(0))
	assert.Equal(t, "Some   text here", s.After(1))
	assert.Equal(t, "", s.Arg(9))

	s, ok = ParseSlash("/reset")
	require.True(t, ok)
	assert.Equal(t, "/reset", s.Name)
	assert.Empty(t, s.Args)
	assert.Equal(t, "", s.After(1))

	_, ok = ParseSlash("plain question?")
	assert.False(t, ok)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a b  c", []string{"a", "b", "c"}},
		{`"two words" three`, []string{"two words", "three"}},
		{`'single q' x`, []string{"single q", "x"}},
		{`"esc \"quoted\""`, []string{`esc "quoted"`}},
		{`"" empty`, []string{"", "empty"}},
		{"", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SplitArgs(tc.in), "SplitArgs(%q)", tc.in)
	}
}

func TestComplete(t *testing.T) {
	reg, err := NewRegistry(Builtin())
	require.NoError(t, err)
	names := []string{"/cmd", "/commands", "/reset", "/quit"}

	assert.Equal(t, []string{"/cmd", "/commands"}, Complete("/c", names, reg))
	assert.Equal(t, []string{"/reset"}, Complete("/r", names, reg))
	assert.Equal(t, []string{
		"/cmd rewrite-selection-active-voice-",
		"/cmd rewrite-selection-bullet-points-",
		"/cmd rewrite-selection-casual-",
		"/cmd rewrite-selection-formal-",
	}, Complete("/cmd rew", names, reg))
	assert.Nil(t, Complete("/cmd summarize-selection some", names, reg))
	assert.Nil(t, Complete("hello", names, reg))
}

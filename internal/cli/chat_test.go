// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigwrite/internal/commands"
)

func newTestChat(t *testing.T, lines ...string) (*chatSession, *fakeOllama, *bytes.Buffer) {
	t.Helper()
	srv := newFakeOllama(t, lines...)
	isolateConfig(t, srv.URL)
	captureOutput(t)

	rt, err := newApp(Args{})
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	var out bytes.Buffer
	return newChatSession(rt, &out, Args{Quiet: true}, ""), srv, &out
}

func TestChatSession_CarriesContext(t *testing.T) {
	s, srv, out := newTestChat(t, helloStream...)
	ctx := context.Background()

	keep, err := s.handleLine(ctx, "hi")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, "Hello, world\n", out.String())
	assert.Empty(t, srv.lastRequest(t).Context)
	assert.JSONEq(t, `[1,2,3]`, string(s.context))

	_, err = s.handleLine(ctx, "and again")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(srv.lastRequest(t).Context))
	assert.Equal(t, 2, s.turns)
	assert.Equal(t, 4, s.tokens)

	_, err = s.handleLine(ctx, "/reset")
	require.NoError(t, err)
	assert.Nil(t, s.context)
}

func TestChatSession_ModelSwitch(t *testing.T) {
	s, srv, out := newTestChat(t, helloStream...)
	ctx := context.Background()

	_, err := s.handleLine(ctx, "/model mistral")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "mistral")

	_, err = s.handleLine(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "mistral", srv.lastRequest(t).Model)

	out.Reset()
	_, err = s.handleLine(ctx, "/model")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Model: mistral")
}

func TestChatSession_CommandTurn(t *testing.T) {
	s, srv, _ := newTestChat(t, helloStream...)
	ctx := context.Background()

	_, err := s.handleLine(ctx, "/cmd summarize-selection  the  quick brown fox")
	require.NoError(t, err)

	req := srv.lastRequest(t)
	assert.True(t, strings.HasSuffix(req.Prompt, "\n\nthe  quick brown fox"), req.Prompt)
}

func TestChatSession_SlashErrors(t *testing.T) {
	s, srv, _ := newTestChat(t, helloStream...)
	ctx := context.Background()

	_, err := s.handleLine(ctx, "/cmd")
	assert.True(t, IsValidationError(err))

	_, err = s.handleLine(ctx, "/cmd no-such-thing text")
	assert.True(t, IsNotFoundError(err))

	_, err = s.handleLine(ctx, "/cmd summarize-selection")
	assert.True(t, IsValidationError(err))

	_, err = s.handleLine(ctx, "/frobnicate")
	assert.True(t, IsValidationError(err))

	assert.Equal(t, 0, srv.requestCount())
}

func TestChatSession_QuitAndHelp(t *testing.T) {
	s, _, out := newTestChat(t)
	ctx := context.Background()

	keep, err := s.handleLine(ctx, "/help")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Contains(t, out.String(), "/cmd ID TEXT")

	out.Reset()
	_, err = s.handleLine(ctx, "/commands")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "summarize-selection")

	keep, err = s.handleLine(ctx, "/quit")
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestChatCompletion(t *testing.T) {
	reg, err := commands.NewRegistry(commands.Builtin())
	require.NoError(t, err)

	assert.Equal(t, []string{"/reset"}, commands.Complete("/re", slashNames, reg))
	assert.Equal(t, []string{"/cmd", "/commands"}, commands.Complete("/c", slashNames, reg))
	assert.Contains(t, commands.Complete("/cmd sum", slashNames, reg), "/cmd summarize-selection")
}

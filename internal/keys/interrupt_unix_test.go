// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build unix

package keys

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/rigwrite/internal/stream"
)

func TestInterrupt_TripsOnSIGINT(t *testing.T) {
	sig := stream.NewSignal()
	unregister := Interrupt().OnCancelEvent(sig.Trip)
	defer unregister()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-sig.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("SIGINT did not trip the signal")
	}
}

func TestInterrupt_UnregisterIsIdempotent(t *testing.T) {
	unregister := Interrupt().OnCancelEvent(func() {})
	unregister()
	unregister()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package keys

import "golang.org/x/term"

// enterCbreak falls back to full raw mode where termios is unavailable.
// Ctrl-C then arrives as a key press rather than a signal, which cancels
// just the same.
func enterCbreak(fd int) (func(), error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() {
		term.Restore(fd, state)
	}, nil
}

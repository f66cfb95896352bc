// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keys provides the external cancel triggers used while a
// generation streams: any key press on the terminal, and Ctrl-C.
//
//	trigger := keys.Any(keys.NewListener(os.Stdin), keys.Interrupt())
package keys

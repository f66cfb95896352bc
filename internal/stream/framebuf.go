// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"strings"
)

// FrameBuffer accumulates raw transport bytes and yields complete
// newline-delimited lines. It holds no network state and is owned by a
// single session.
type FrameBuffer struct {
	pending []byte
}

// Append adds a chunk to the tail of the pending buffer. The chunk is copied,
// so callers may reuse their read buffer.
func (f *FrameBuffer) Append(chunk []byte) {
	f.pending = append(f.pending, chunk...)
}

// Drain removes and returns every complete line currently buffered, in
// order, without the delimiter. Whatever follows the last newline stays
// buffered for the next Append.
func (f *FrameBuffer) Drain() []string {
	var lines []string
	consumed := 0
	for {
		i := bytes.IndexByte(f.pending[consumed:], '\n')
		if i < 0 {
			break
		}
		line := f.pending[consumed : consumed+i]
		lines = append(lines, string(bytes.TrimSuffix(line, []byte{'\r'})))
		consumed += i + 1
	}

	if consumed > 0 {
		// Compact so the backing array does not grow with the stream.
		n := copy(f.pending, f.pending[consumed:])
		f.pending = f.pending[:n]
	}
	return lines
}

// Flush empties the buffer at end of stream. The residual is returned as a
// final implicit record only if it is non-blank; a blank residual is
// discarded.
func (f *FrameBuffer) Flush() (string, bool) {
	residual := string(f.pending)
	f.pending = f.pending[:0]
	if strings.TrimSpace(residual) == "" {
		return "", false
	}
	return residual, true
}

// Len reports the number of buffered bytes not yet resolved into lines.
func (f *FrameBuffer) Len() int {
	return len(f.pending)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"io"
)

// Emitter serializes records onto a line-oriented stream.
// Each record is handed to the writer in exactly one Write call.
type Emitter struct {
	layout Layout
	w      io.Writer
	buf    []byte
}

// NewEmitter returns an Emitter writing layout-formatted lines to w.
func NewEmitter(layout Layout, w io.Writer) *Emitter {
	return &Emitter{
		layout: layout,
		w:      w,
		buf:    make([]byte, 0, MaxLineLen),
	}
}

// Layout returns the variant this emitter formats.
func (e *Emitter) Layout() Layout { return e.layout }

// Emit formats rec and writes it.
func (e *Emitter) Emit(rec Record) error {
	e.buf = e.layout.AppendLine(e.buf[:0], rec)
	n, err := e.w.Write(e.buf)
	if err != nil {
		return fmt.Errorf("telemetry: write: %w", err)
	}
	if n != len(e.buf) {
		return fmt.Errorf("telemetry: short write %d/%d: %w", n, len(e.buf), io.ErrShortWrite)
	}
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
)

// ErrEmpty is returned by ReadByte when no byte is buffered.
var ErrEmpty = errors.New("gps: rx buffer empty")

// ByteSource is the non-blocking input side of the GNSS link.
type ByteSource interface {
	// Available reports how many bytes can be read without blocking.
	Available() int
	ReadByte() (byte, error)
}

// RxBuffer is a bounded ring buffer between the UART reader goroutine and
// the sampling loop. When the loop falls behind, incoming bytes are
// discarded and counted, the same way a hardware RX FIFO overflows.
type RxBuffer struct {
	mu      sync.Mutex
	buf     []byte
	head    int // next read
	size    int
	dropped uint64
}

// NewRxBuffer allocates a buffer holding up to capacity bytes.
func NewRxBuffer(capacity int) *RxBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RxBuffer{buf: make([]byte, capacity)}
}

// Write appends p, dropping whatever does not fit. It never blocks and
// never fails so it can sit behind an io.Copy.
func (b *RxBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		if b.size == len(b.buf) {
			b.dropped++
			continue
		}
		b.buf[(b.head+b.size)%len(b.buf)] = c
		b.size++
	}
	return len(p), nil
}

// Available implements ByteSource.
func (b *RxBuffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// ReadByte implements ByteSource.
func (b *RxBuffer) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return 0, ErrEmpty
	}
	c := b.buf[b.head]
	b.head = (b.head + 1) % len(b.buf)
	b.size--
	return c, nil
}

// Dropped returns the number of bytes lost to overflow.
func (b *RxBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Pump copies r into the buffer until ctx is done or r fails.
// Closing r is the caller's job; it is what unblocks a pending Read.
func (b *RxBuffer) Pump(ctx context.Context, r io.Reader) {
	chunk := make([]byte, 256)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			b.Write(chunk[:n])
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				log.Printf("gps: serial read error: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Empty is a ByteSource that never has data, used when the GNSS port could
// not be opened.
type Empty struct{}

func (Empty) Available() int          { return 0 }
func (Empty) ReadByte() (byte, error) { return 0, ErrEmpty }

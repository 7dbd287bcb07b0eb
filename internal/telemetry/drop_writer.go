// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// DropWriter decouples the sampling loop from a slow output stream.
// Writes are queued to a single drain goroutine; when the queue is full
// the whole line is dropped and counted instead of blocking the caller.
type DropWriter struct {
	out   io.Writer
	queue chan []byte
	pool  sync.Pool

	dropped atomic.Uint64
	failed  atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewDropWriter starts a drain goroutine writing to out with room for
// depth pending lines.
func NewDropWriter(out io.Writer, depth int) *DropWriter {
	if depth <= 0 {
		depth = 64
	}
	w := &DropWriter{
		out:   out,
		queue: make(chan []byte, depth),
		done:  make(chan struct{}),
	}
	w.pool.New = func() any {
		b := make([]byte, 0, MaxLineLen)
		return &b
	}
	go w.drain()
	return w
}

// Write copies p and queues it. It always reports success for the full
// length; lost lines show up in Dropped.
func (w *DropWriter) Write(p []byte) (int, error) {
	bp := w.pool.Get().(*[]byte)
	line := append((*bp)[:0], p...)

	select {
	case w.queue <- line:
	default:
		w.dropped.Add(1)
		*bp = line
		w.pool.Put(bp)
	}
	return len(p), nil
}

func (w *DropWriter) drain() {
	defer close(w.done)
	for line := range w.queue {
		if _, err := w.out.Write(line); err != nil {
			if w.failed.Add(1) == 1 {
				log.Printf("telemetry: output write error: %v", err)
			}
		}
		w.pool.Put(&line)
	}
}

// Dropped is the number of lines discarded because the queue was full.
func (w *DropWriter) Dropped() uint64 { return w.dropped.Load() }

// Failed is the number of lines the underlying writer rejected.
func (w *DropWriter) Failed() uint64 { return w.failed.Load() }

// Close stops accepting lines and waits for the queue to drain.
// Write must not be called after Close.
func (w *DropWriter) Close() error {
	w.closeOnce.Do(func() { close(w.queue) })
	<-w.done
	return nil
}

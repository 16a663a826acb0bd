// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package vramfs

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// HostBackend is a host-memory stand-in for a real compute-device
// backend. It backs every buffer with an anonymous mmap region
// instead of GPU-resident memory, so a leak-detection run (or a
// machine with no GPU at all) can still exercise the full pool,
// block, and entry-graph machinery. It implements Backend.
//
// Asynchronous writes are modeled with a goroutine per submission,
// chained through each buffer's lastEvent so that operations observe
// submission order exactly like an OpenCL in-order command queue:
// a read waits for the buffer's most recently submitted write.
type HostBackend struct {
	hasFill bool

	// zeroBuffer backs the clEnqueueCopyBuffer-style fallback used
	// when hasFill is false. Allocated once, for the lifetime of the
	// backend, exactly as the original's context-lifetime zero
	// buffer is.
	zeroBuffer *HostBuffer

	pendingMu sync.Mutex
	pending   []*hostEvent
}

// HostBackendOptions configures a HostBackend.
type HostBackendOptions struct {
	// HasFill simulates an OpenCL >= 1.2 device with a native fill
	// primitive. Set false to exercise the copy-from-zero-buffer
	// fallback path used by older devices.
	HasFill bool

	// ZeroBufferSize is the size of the preallocated zero buffer used
	// by the fallback path. Ignored when HasFill is true. Must be at
	// least the block size the pool will request fills/copies for.
	ZeroBufferSize int
}

// NewHostBackend constructs a HostBackend. When opts.HasFill is
// false, a zero buffer of opts.ZeroBufferSize bytes is allocated
// immediately.
func NewHostBackend(opts HostBackendOptions) (*HostBackend, error) {
	backend := &HostBackend{hasFill: opts.HasFill}

	if !backend.hasFill {
		if opts.ZeroBufferSize <= 0 {
			return nil, fmt.Errorf("vramfs: zero buffer size must be positive when HasFill is false")
		}
		data, err := unix.Mmap(-1, 0, opts.ZeroBufferSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			return nil, fmt.Errorf("vramfs: allocating zero buffer: %w", err)
		}
		backend.zeroBuffer = &HostBuffer{data: data}
	}

	return backend, nil
}

// HostBuffer is the Buffer implementation returned by HostBackend.
type HostBuffer struct {
	data []byte

	mu        sync.Mutex
	lastEvent *hostEvent
}

// Size returns the buffer's length in bytes.
func (b *HostBuffer) Size() int { return len(b.data) }

// hostEvent is a channel-based Event. It is closed by the goroutine
// (or synchronous call) that performs the transfer it represents.
type hostEvent struct {
	done chan struct{}
	err  error
}

func newHostEvent() *hostEvent {
	return &hostEvent{done: make(chan struct{})}
}

func completedHostEvent() *hostEvent {
	e := newHostEvent()
	close(e.done)
	return e
}

// Wait blocks until the transfer this event represents has finished.
func (e *hostEvent) Wait() error {
	<-e.done
	return e.err
}

func (e *hostEvent) finish(err error) {
	e.err = err
	close(e.done)
}

// AllocateBuffer mmaps an anonymous region of the requested size.
func (h *HostBackend) AllocateBuffer(size int) (Buffer, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("vramfs: device out of memory: %w", err)
	}
	return &HostBuffer{data: data}, nil
}

// HasFill reports whether this backend simulates a native fill
// primitive.
func (h *HostBackend) HasFill() bool { return h.hasFill }

// Zero clears the first size bytes of buf, waiting for any previously
// submitted write to the same buffer first so zeroing never races
// ahead of an in-flight transfer. When the backend was constructed
// with HasFill false, the clear is performed by copying from the
// preallocated zero buffer instead of writing zeros directly,
// exercising the same code path a pre-1.2 device would take.
func (h *HostBackend) Zero(buf Buffer, size int) error {
	hb := buf.(*HostBuffer)
	if err := hb.waitLast(); err != nil {
		return err
	}
	if size > len(hb.data) {
		size = len(hb.data)
	}

	if h.hasFill {
		for i := 0; i < size; i++ {
			hb.data[i] = 0
		}
	} else {
		n := size
		if n > len(h.zeroBuffer.data) {
			n = len(h.zeroBuffer.data)
		}
		copy(hb.data[:n], h.zeroBuffer.data[:n])
		for i := n; i < size; i++ {
			hb.data[i] = 0
		}
	}

	hb.setLast(completedHostEvent())
	return nil
}

// ReadSync reads len(data) bytes from buf at offset off, waiting for
// the buffer's most recently submitted write to complete first.
func (h *HostBackend) ReadSync(buf Buffer, off int, data []byte) error {
	hb := buf.(*HostBuffer)
	if err := hb.waitLast(); err != nil {
		return err
	}
	if off < 0 || off+len(data) > len(hb.data) {
		return fmt.Errorf("vramfs: read [%d,%d) out of bounds for %d-byte buffer", off, off+len(data), len(hb.data))
	}
	copy(data, hb.data[off:off+len(data)])
	return nil
}

// Write submits len(data) bytes to buf at offset off. The backend
// copies data immediately so the caller's slice can be reused the
// instant Write returns, regardless of async.
func (h *HostBackend) Write(buf Buffer, off int, data []byte, async bool) (Event, error) {
	hb := buf.(*HostBuffer)
	if off < 0 || off+len(data) > len(hb.data) {
		return nil, fmt.Errorf("vramfs: write [%d,%d) out of bounds for %d-byte buffer", off, off+len(data), len(hb.data))
	}

	ownCopy := make([]byte, len(data))
	copy(ownCopy, data)

	event := newHostEvent()
	prev := hb.setLast(event)

	transfer := func() {
		if prev != nil {
			prev.Wait()
		}
		copy(hb.data[off:off+len(ownCopy)], ownCopy)
		event.finish(nil)
	}

	if async {
		h.trackPending(event)
		go transfer()
	} else {
		transfer()
	}

	return event, nil
}

// Finish waits for every write submitted to this backend so far.
func (h *HostBackend) Finish() error {
	h.pendingMu.Lock()
	pending := h.pending
	h.pending = nil
	h.pendingMu.Unlock()

	for _, event := range pending {
		if err := event.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (h *HostBackend) trackPending(event *hostEvent) {
	h.pendingMu.Lock()
	h.pending = append(h.pending, event)
	h.pendingMu.Unlock()
}

// waitLast blocks on the buffer's most recently submitted event, if
// any.
func (b *HostBuffer) waitLast() error {
	b.mu.Lock()
	last := b.lastEvent
	b.mu.Unlock()
	if last == nil {
		return nil
	}
	return last.Wait()
}

// setLast installs a new last-event and returns the previous one.
func (b *HostBuffer) setLast(event *hostEvent) *hostEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.lastEvent
	b.lastEvent = event
	return prev
}

var _ Backend = (*HostBackend)(nil)
var _ Buffer = (*HostBuffer)(nil)

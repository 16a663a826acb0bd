// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

// Block owns one device buffer and the in-order submission queue's
// worth of pending writes against it, summarized by a single "last
// write" event. It is shared by multiple holders — a File's offset
// map and zero or more Sessions — via explicit reference counting
// rather than garbage-collected finalizers, so that the buffer
// returns to the pool deterministically the instant the last holder
// drops it.
//
// All fields are mutated only while the operation layer's global
// mutex is held (the one exception, the device read inside
// Block.Read, does not touch any of them).
type Block struct {
	backend Backend
	buf     Buffer

	// dirty is true until the first write. A dirty block's device
	// buffer may hold stale bytes from a previous tenant; reads
	// return zero without touching the device until the dirty flag
	// clears.
	dirty bool

	// lastWrite is the event for the most recently submitted write,
	// or nil if none has been submitted since acquisition. Because
	// the device queue is in-order, waiting on it transitively waits
	// for every earlier write to this buffer too.
	lastWrite Event

	refCount int
}

func newBlock(backend Backend, buf Buffer) *Block {
	return &Block{backend: backend, buf: buf, dirty: true}
}

// Retain increments the block's reference count. Called whenever a
// new holder (a file offset map entry, a session's last-written
// pointer) starts referencing this block.
func (b *Block) Retain() {
	b.refCount++
}

// Release decrements the block's reference count and, if it reaches
// zero, returns the buffer to pool's free list.
func (b *Block) Release(pool *Pool) {
	b.refCount--
	if b.refCount <= 0 {
		pool.release(b)
	}
}

// Read synchronously fills buf[:len(buf)] from the device at offset
// off. If the block is dirty, buf is zero-filled without touching
// the device — the buffer has not been written since acquisition and
// may contain leftover data from a previous tenant. Otherwise a
// blocking device read is issued, which implicitly waits for every
// outstanding write to this buffer by virtue of the in-order queue.
func (b *Block) Read(off int, buf []byte) error {
	if b.dirty {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	if err := b.backend.ReadSync(b.buf, off, buf); err != nil {
		return Wrap(ErrDeviceFatal, err)
	}
	return nil
}

// Write submits data at offset off. If the block is dirty and data
// does not cover the whole block, the device is cleared first so
// that later reads of the untouched remainder return zero; a
// full-block write skips the clear since it overwrites everything.
// The submission is always asynchronous: the device queue's ordering
// guarantee, combined with Sync, is what later callers rely on
// instead of blocking here.
func (b *Block) Write(off int, data []byte) error {
	if b.dirty && len(data) < BlockSize {
		if err := b.backend.Zero(b.buf, BlockSize); err != nil {
			return Wrap(ErrDeviceFatal, err)
		}
	}

	event, err := b.backend.Write(b.buf, off, data, true)
	if err != nil {
		return Wrap(ErrDeviceFatal, err)
	}

	b.lastWrite = event
	b.dirty = false
	return nil
}

// Sync waits on the block's last submitted write, if any. It is a
// no-op when nothing has been written since acquisition.
func (b *Block) Sync() error {
	if b.lastWrite == nil {
		return nil
	}
	if err := b.lastWrite.Wait(); err != nil {
		return Wrap(ErrDeviceFatal, err)
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import "time"

// blockRange walks [off, off+remaining) in block-aligned slices,
// calling fn with the block-start offset, the in-block offset, and
// the slice length for each step. fn returns false to stop early.
func blockRange(off, length int64, fn func(blockStart, blockOff, step int64) bool) {
	remaining := length
	p := off
	for remaining > 0 {
		blockStart := (p / BlockSize) * BlockSize
		blockOff := p - blockStart
		step := BlockSize - blockOff
		if step > remaining {
			step = remaining
		}
		if !fn(blockStart, blockOff, step) {
			return
		}
		p += step
		remaining -= step
	}
}

// ReadContent fills buf with up to len(buf) bytes of file content
// starting at off, clamped to the file's recorded size. Unwritten
// regions (no Block present) read as zero without touching the
// device. Bumps atime on success.
//
// unlock and relock bracket the one device read per block that
// actually touches the backend — mirroring the source's file read,
// which takes the operation layer's mutex by reference for exactly
// this purpose. Zero-filling an absent block never calls them, since
// it never touches the device.
//
// The block is Retain()'d before unlock() and Release()'d after
// relock(): the mutex is down for the duration of the device read, so
// without its own reference the block could otherwise be truncated or
// unlinked-and-released out from under the read by a concurrent
// caller, handing its buffer to a fresh Acquire while this read is
// still in flight.
func (e *Entry) ReadContent(off int64, buf []byte, now time.Time, pool *Pool, unlock, relock func()) (int, error) {
	if off >= e.size {
		return 0, nil
	}

	length := int64(len(buf))
	if off+length > e.size {
		length = e.size - off
	}

	var written int64
	var err error
	blockRange(off, length, func(blockStart, blockOff, step int64) bool {
		dst := buf[written : written+step]
		block, ok := e.blocks[blockStart]
		if !ok {
			for i := range dst {
				dst[i] = 0
			}
		} else {
			block.Retain()
			unlock()
			readErr := block.Read(int(blockOff), dst)
			relock()
			block.Release(pool)
			if readErr != nil {
				err = readErr
				return false
			}
		}
		written += step
		return true
	})
	if err != nil {
		return int(written), err
	}

	e.Atime = now
	return int(written), nil
}

// WriteContent writes buf at offset off, allocating blocks on demand.
// If a block allocation fails, it stops and returns the bytes
// written so far, or ErrNoSpace if none were written. Extends the
// recorded size if the write reaches past the current end. Bumps
// mtime and ctime on any success, partial or complete.
//
// lastBlock receives the most recently written Block, for the
// caller (a Session) to record as its flush target; it is nil if
// nothing was written.
func (e *Entry) WriteContent(off int64, buf []byte, pool *Pool, now time.Time) (int, *Block, error) {
	var written int64
	var lastBlock *Block
	var stopErr error

	blockRange(off, int64(len(buf)), func(blockStart, blockOff, step int64) bool {
		block, ok := e.blocks[blockStart]
		if !ok {
			block = pool.Acquire()
			if block == nil {
				stopErr = ErrNoSpace
				return false
			}
			if e.blocks == nil {
				e.blocks = make(map[int64]*Block)
			}
			e.blocks[blockStart] = block
		}

		src := buf[written : written+step]
		if err := block.Write(int(blockOff), src); err != nil {
			stopErr = err
			return false
		}

		lastBlock = block
		written += step
		return true
	})

	if written == 0 && stopErr != nil {
		return 0, nil, stopErr
	}

	if off+written > e.size {
		e.size = off + written
	}
	e.Mtime = now
	e.Ctime = now

	return int(written), lastBlock, nil
}

// TruncateContent sets the recorded size to newSize and releases
// every block entirely beyond the new end. Partial trailing data in
// a retained block is left untouched — ReadContent's clamp to size
// already guarantees a subsequent read past newSize returns zero.
// Bumps mtime and ctime unconditionally, even when newSize equals
// the current size.
func (e *Entry) TruncateContent(newSize int64, pool *Pool, now time.Time) {
	e.size = newSize

	cutoff := ((newSize + BlockSize - 1) / BlockSize) * BlockSize
	for blockStart, block := range e.blocks {
		if blockStart >= cutoff {
			block.Release(pool)
			delete(e.blocks, blockStart)
		}
	}

	e.Mtime = now
	e.Ctime = now
}

// SyncContent waits on the given block's last submitted write. It is
// the content-layer half of a session flush; the caller supplies the
// session's last-written block since Entry itself does not track
// per-session state.
func SyncContent(block *Block) error {
	if block == nil {
		return nil
	}
	return block.Sync()
}

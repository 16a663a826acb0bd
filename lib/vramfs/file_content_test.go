// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package vramfs

import (
	"bytes"
	"testing"
	"time"
)

func noopLock()   {}
func noopUnlock() {}

func TestWriteThenReadRoundTrip(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 4)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	data := []byte("round trip payload")
	n, _, err := file.WriteContent(10, data, pool, now)
	if err != nil {
		t.Fatalf("WriteContent: %v", err)
	}
	if n != len(data) {
		t.Fatalf("WriteContent wrote %d bytes, want %d", n, len(data))
	}

	got := make([]byte, len(data))
	n, err = file.ReadContent(10, got, now, pool, noopUnlock, noopLock)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if n != len(data) || !bytes.Equal(got, data) {
		t.Fatalf("ReadContent = %q (%d bytes), want %q", got, n, data)
	}
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 2)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	file.WriteContent(0, []byte("hi"), pool, now)

	buf := make([]byte, 10)
	n, err := file.ReadContent(100, buf, now, pool, noopUnlock, noopLock)
	if err != nil {
		t.Fatalf("ReadContent past EOF: %v", err)
	}
	if n != 0 {
		t.Fatalf("ReadContent past EOF returned %d bytes, want 0", n)
	}
}

func TestReadClampsToSize(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 2)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	file.WriteContent(0, []byte("hello"), pool, now)

	buf := make([]byte, 100)
	n, err := file.ReadContent(0, buf, now, pool, noopUnlock, noopLock)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if n != 5 {
		t.Fatalf("ReadContent clamped length = %d, want 5", n)
	}
}

func TestSparseWriteConsumesTwoBlocks(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 4)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	n, _, err := file.WriteContent(200000, []byte("x"), pool, now)
	if err != nil {
		t.Fatalf("WriteContent: %v", err)
	}
	if n != 1 {
		t.Fatalf("WriteContent wrote %d bytes, want 1", n)
	}
	if file.size != 200001 {
		t.Fatalf("file size = %d, want 200001", file.size)
	}
	if len(file.blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(file.blocks))
	}
	if pool.Available() != 2 {
		t.Fatalf("Available() = %d, want 2 (two blocks consumed)", pool.Available())
	}

	buf := make([]byte, 200001)
	n, err = file.ReadContent(0, buf, now, pool, noopUnlock, noopLock)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if n != 200001 {
		t.Fatalf("ReadContent returned %d bytes, want 200001", n)
	}
	for i := 0; i < 200000; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %x, want 0", i, buf[i])
		}
	}
	if buf[200000] != 'x' {
		t.Fatalf("last byte = %q, want 'x'", buf[200000])
	}
}

func TestTruncateReleasesTrailingBlocks(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 4)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	file.WriteContent(200000, []byte("x"), pool, now)
	if pool.Available() != 2 {
		t.Fatalf("Available() before truncate = %d, want 2", pool.Available())
	}

	file.TruncateContent(100, pool, now)
	if file.size != 100 {
		t.Fatalf("size after truncate = %d, want 100", file.size)
	}
	if len(file.blocks) != 1 {
		t.Fatalf("len(blocks) after truncate = %d, want 1 (block at offset 0 retained)", len(file.blocks))
	}
	if pool.Available() != 3 {
		t.Fatalf("Available() after truncate = %d, want 3 (one block released)", pool.Available())
	}

	buf := make([]byte, 100)
	n, err := file.ReadContent(0, buf, now, pool, noopUnlock, noopLock)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if n != 100 {
		t.Fatalf("ReadContent returned %d bytes, want 100", n)
	}
	if !bytes.Equal(buf, make([]byte, 100)) {
		t.Fatalf("read after truncate not all zero: %x", buf)
	}
}

func TestTruncateIsIdempotent(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 2)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)
	file.WriteContent(0, []byte("hello world"), pool, now)

	file.TruncateContent(5, pool, now)
	sizeAfterFirst := file.size
	blocksAfterFirst := len(file.blocks)

	file.TruncateContent(5, pool, now)
	if file.size != sizeAfterFirst || len(file.blocks) != blocksAfterFirst {
		t.Fatalf("truncate(5) twice is not equivalent to truncate(5) once")
	}
}

func TestWriteExactlyBlockSizeSkipsZeroFill(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 2)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	full := bytes.Repeat([]byte{0x9}, BlockSize)
	n, _, err := file.WriteContent(0, full, pool, now)
	if err != nil {
		t.Fatalf("WriteContent: %v", err)
	}
	if n != BlockSize {
		t.Fatalf("WriteContent wrote %d bytes, want %d", n, BlockSize)
	}

	got := make([]byte, BlockSize)
	if _, err := file.ReadContent(0, got, now, pool, noopUnlock, noopLock); err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if !bytes.Equal(got, full) {
		t.Fatalf("full-block write corrupted")
	}
}

func TestWriteOutOfSpaceReturnsPartial(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 1)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	// One block's worth fits; a second distinct offset has nowhere
	// to go since the pool has only one block.
	big := make([]byte, BlockSize+10)
	n, _, err := file.WriteContent(0, big, pool, now)
	if n != BlockSize {
		t.Fatalf("WriteContent wrote %d bytes, want %d (partial)", n, BlockSize)
	}
	if err != nil {
		t.Fatalf("partial write should not itself be an error: %v", err)
	}
}

func TestWriteOutOfSpaceZeroBytesReturnsNoSpace(t *testing.T) {
	root := newTestRoot()
	pool := newTestPool(t, 1)
	now := time.Now()
	file := newChild(root, KindFile, "f", DefaultFileMode, 0, 0, now)

	pool.Acquire() // exhaust the pool before the file ever gets a block

	_, _, err := file.WriteContent(0, []byte("x"), pool, now)
	if err != ErrNoSpace {
		t.Fatalf("WriteContent on exhausted pool = %v, want ErrNoSpace", err)
	}
}

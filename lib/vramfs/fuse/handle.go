// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/Overv/vramfs/lib/vramfs"
)

// fileHandle is the per-open-handle state the kernel bridge holds
// between Open/Create and Release. It carries nothing but a session
// id — all the bookkeeping (the file, the last-written block) lives
// in the domain layer's Session, reached only through
// *vramfs.Filesystem.
type fileHandle struct {
	fsys      *vramfs.Filesystem
	sessionID uint64
}

var _ gofuse.FileReader = (*fileHandle)(nil)
var _ gofuse.FileWriter = (*fileHandle)(nil)
var _ gofuse.FileFlusher = (*fileHandle)(nil)
var _ gofuse.FileReleaser = (*fileHandle)(nil)
var _ gofuse.FileFsyncer = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.fsys.Read(h.sessionID, off, dest)
	if err != nil {
		return nil, vramfs.Errno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := h.fsys.Write(h.sessionID, off, data)
	if err != nil && n == 0 {
		return 0, vramfs.Errno(err)
	}
	return uint32(n), 0
}

func (h *fileHandle) Flush(ctx context.Context) syscall.Errno {
	return vramfs.Errno(h.fsys.Fsync(h.sessionID))
}

func (h *fileHandle) Release(ctx context.Context) syscall.Errno {
	return vramfs.Errno(h.fsys.Release(h.sessionID))
}

func (h *fileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return vramfs.Errno(h.fsys.Fsync(h.sessionID))
}

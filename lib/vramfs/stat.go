// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import "time"

// Attr is the result of Getattr: the subset of entry metadata the
// kernel-bridge ABI reports back to the kernel.
type Attr struct {
	Kind  EntryKind
	Mode  uint32
	Size  int64
	UID   uint32
	GID   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func attrOf(e *Entry) Attr {
	return Attr{
		Kind:  e.Kind,
		Mode:  e.Mode,
		Size:  e.Size(),
		UID:   e.UID,
		GID:   e.GID,
		Atime: e.Atime,
		Mtime: e.Mtime,
		Ctime: e.Ctime,
	}
}

// DirEntry is one row of a Readdir result.
type DirEntry struct {
	Name string
	Kind EntryKind
}

// StatfsResult is the result of Statfs.
type StatfsResult struct {
	BlockSize  uint64
	Blocks     uint64
	BlocksFree uint64
	Entries    uint64
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import "time"

// EntryKind discriminates the three variants of Entry. Dispatch on
// this tag, not on separate Go types, mirrors the graph's own design:
// uniform traversal and a single table of filter/error rules (see
// Lookup) instead of scattered type switches.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
	KindSymlink
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// EntryFilter is a bitset over {file, dir, symlink}, used by Lookup
// to reject entries of the wrong kind.
type EntryFilter int

const (
	FilterFile EntryFilter = 1 << iota
	FilterDirectory
	FilterSymlink
)

const FilterAny = FilterFile | FilterDirectory | FilterSymlink

func (f EntryFilter) allows(k EntryKind) bool {
	switch k {
	case KindFile:
		return f&FilterFile != 0
	case KindDirectory:
		return f&FilterDirectory != 0
	case KindSymlink:
		return f&FilterSymlink != 0
	default:
		return false
	}
}

// Entry is one node of the filesystem tree: a file, a directory, or a
// symlink, sharing the attributes common to all three plus one
// variant-specific payload. Every field is mutated only while the
// operation layer's global mutex is held.
type Entry struct {
	Kind EntryKind

	// Parent is a non-owning back-reference; the owning link runs the
	// other way, through Parent.children. Nil only for the root.
	Parent *Entry
	Name   string

	Mode uint32
	UID  uint32
	GID  uint32

	Atime time.Time
	Mtime time.Time
	Ctime time.Time

	// children is populated for KindDirectory only.
	children map[string]*Entry

	// size and blocks are populated for KindFile only. blocks maps a
	// block-aligned offset to the Block holding that region; a key's
	// absence means the region was never written and reads as zero.
	size   int64
	blocks map[int64]*Block

	// target is populated for KindSymlink only.
	target string

	// openSessions counts live Sessions referencing this entry. A
	// File is not released back to its parent's absence (it already
	// isn't in the children map once unlinked) but its blocks are
	// only dropped once both openSessions and the directory-slot
	// reference are gone — tracked here instead of via a Go
	// finalizer because Go has no destructor to hook.
	openSessions int
	unlinked     bool
}

// newRoot constructs the mount-time root directory, owned by uid/gid.
func newRoot(now time.Time, uid, gid uint32) *Entry {
	return &Entry{
		Kind:     KindDirectory,
		Name:     "",
		Mode:     0775,
		UID:      uid,
		GID:      gid,
		Atime:    now,
		Mtime:    now,
		Ctime:    now,
		children: make(map[string]*Entry),
	}
}

// newChild constructs a non-root entry and links it into parent's
// children map under name. Callers must already have verified that
// name is not taken.
func newChild(parent *Entry, kind EntryKind, name string, mode uint32, uid, gid uint32, now time.Time) *Entry {
	e := &Entry{
		Kind:   kind,
		Parent: parent,
		Name:   name,
		Mode:   mode,
		UID:    uid,
		GID:    gid,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
	}
	switch kind {
	case KindDirectory:
		e.children = make(map[string]*Entry)
	}
	parent.children[name] = e
	parent.Mtime = now
	parent.Ctime = now
	return e
}

// Size reports the logical size the operation layer should report via
// getattr: recorded byte length for a file, the symlink target's
// length for a symlink, and a constant for directories regardless of
// child count.
func (e *Entry) Size() int64 {
	switch e.Kind {
	case KindFile:
		return e.size
	case KindSymlink:
		return int64(len(e.target))
	default:
		return 4096
	}
}

// Target returns a symlink's target string. Only meaningful when
// e.Kind == KindSymlink.
func (e *Entry) Target() string { return e.target }

// unlink detaches e from its parent's children map and bumps the
// parent's mtime/ctime. It does not by itself release e's blocks —
// that happens once openSessions also reaches zero, via
// maybeReleaseBlocks.
func (e *Entry) unlink(now time.Time, pool *Pool) {
	delete(e.Parent.children, e.Name)
	e.Parent.Mtime = now
	e.Parent.Ctime = now
	e.unlinked = true
	e.maybeReleaseBlocks(pool)
}

// maybeReleaseBlocks drops every Block this file holds once it is
// both unlinked and has no open sessions. Safe to call at any point;
// it is a no-op unless both conditions hold.
func (e *Entry) maybeReleaseBlocks(pool *Pool) {
	if e.Kind != KindFile || !e.unlinked || e.openSessions > 0 {
		return
	}
	for off, block := range e.blocks {
		block.Release(pool)
		delete(e.blocks, off)
	}
}

// move detaches e from its current parent and re-parents it under
// newParent with newName, replacing any existing entry of that name
// exactly as POSIX rename does. Both parents' mtime/ctime bump, as
// does e's own ctime.
func (e *Entry) move(newParent *Entry, newName string, now time.Time, pool *Pool) {
	if existing, ok := newParent.children[newName]; ok && existing != e {
		existing.unlink(now, pool)
	}

	delete(e.Parent.children, e.Name)
	e.Parent.Mtime = now
	e.Parent.Ctime = now

	e.Parent = newParent
	e.Name = newName
	e.Ctime = now
	newParent.children[newName] = e
	newParent.Mtime = now
	newParent.Ctime = now
}

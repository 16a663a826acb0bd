// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import (
	"sync"
	"time"
)

// Default modes assigned to newly created entries, independent of
// whatever mode the caller requested — the source always uses these
// three constants regardless of the kernel-bridge request.
const (
	DefaultFileMode    = 0664
	DefaultDirMode     = 0775
	DefaultSymlinkMode = 0777
)

// Filesystem is the operation layer: one method per kernel-bridge
// callback, each taking the global mutex for its entire body except
// for the single device-read suspension point inside Read. It
// composes the entry graph (Entry, Lookup) with the block pool
// (Pool, Block) and hands out Sessions for open file handles.
type Filesystem struct {
	mu    sync.Mutex
	pool  *Pool
	root  *Entry
	clock Clock

	sessions    map[uint64]*Session
	nextSession uint64

	// entryCount tracks every live Entry, including root, so Statfs
	// can report it without walking the tree.
	entryCount uint64
}

// NewFilesystem creates the root directory owned by uid/gid and
// wires it to pool. This is the operation layer's init: by the time
// the mount driver starts handling kernel-bridge callbacks, the
// filesystem is already fully initialized.
func NewFilesystem(pool *Pool, clock Clock, uid, gid uint32) *Filesystem {
	return &Filesystem{
		pool:     pool,
		root:     newRoot(clock.Now(), uid, gid),
		clock:    clock,
		sessions: make(map[uint64]*Session),
		entryCount: 1,
	}
}

// Statfs reports block size, pool size, pool availability, and live
// entry count.
func (fs *Filesystem) Statfs() StatfsResult {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return StatfsResult{
		BlockSize:  BlockSize,
		Blocks:     uint64(fs.pool.Size()),
		BlocksFree: uint64(fs.pool.Available()),
		Entries:    fs.entryCount,
	}
}

// Getattr resolves path to any entry kind and returns its attributes.
func (fs *Filesystem) Getattr(path string) (Attr, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterAny)
	if err != nil {
		return Attr{}, err
	}
	return attrOf(e), nil
}

// Readlink resolves path to a symlink and returns its target,
// truncated to maxLen bytes. The kernel-bridge ABI does not require
// null-termination when the target is at least maxLen bytes, and
// this preserves that: the caller gets exactly the truncated bytes,
// nothing more.
func (fs *Filesystem) Readlink(path string, maxLen int) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterSymlink)
	if err != nil {
		return "", err
	}
	target := e.Target()
	if len(target) > maxLen {
		target = target[:maxLen]
	}
	return target, nil
}

// Chmod resolves path to a file or directory and sets its mode bits
// (the permission bits only; the entry kind is not encoded in Mode).
func (fs *Filesystem) Chmod(path string, mode uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterFile|FilterDirectory)
	if err != nil {
		return err
	}
	e.Mode = mode & 07777
	e.Ctime = fs.clock.Now()
	return nil
}

// Chown resolves path to a file or directory and sets its owning
// uid/gid. A negative argument leaves the corresponding field
// unchanged, matching POSIX chown(-1, -1).
func (fs *Filesystem) Chown(path string, uid, gid int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterFile|FilterDirectory)
	if err != nil {
		return err
	}
	if uid >= 0 {
		e.UID = uint32(uid)
	}
	if gid >= 0 {
		e.GID = uint32(gid)
	}
	e.Ctime = fs.clock.Now()
	return nil
}

// Utimens resolves path to a file or directory and sets its atime
// and mtime.
func (fs *Filesystem) Utimens(path string, atime, mtime time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterFile|FilterDirectory)
	if err != nil {
		return err
	}
	e.Atime = atime
	e.Mtime = mtime
	e.Ctime = fs.clock.Now()
	return nil
}

// Readdir resolves path to a directory and lists ".", "..", and each
// child. Bumps atime, per POSIX (directory listing is a read, not a
// metadata mutation, so ctime does not move).
func (fs *Filesystem) Readdir(path string) ([]DirEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, err := Lookup(fs.root, path, FilterDirectory)
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, 0, len(dir.children)+2)
	entries = append(entries, DirEntry{Name: ".", Kind: KindDirectory})
	entries = append(entries, DirEntry{Name: "..", Kind: KindDirectory})
	for name, child := range dir.children {
		entries = append(entries, DirEntry{Name: name, Kind: child.Kind})
	}

	dir.Atime = fs.clock.Now()
	return entries, nil
}

// Create resolves path's parent as a directory, replaces an existing
// file of the same name (or fails with ErrIsDirectory if the
// existing entry is a directory), makes a new File with the default
// mode, and opens a session on it.
func (fs *Filesystem) Create(path string, uid, gid uint32) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirPath, name := Split(path)
	parent, err := Lookup(fs.root, dirPath, FilterDirectory)
	if err != nil {
		return 0, err
	}

	now := fs.clock.Now()
	if existing, ok := parent.children[name]; ok {
		if existing.Kind == KindDirectory {
			return 0, ErrIsDirectory
		}
		existing.unlink(now, fs.pool)
		fs.entryCount--
	}

	file := newChild(parent, KindFile, name, DefaultFileMode, uid, gid, now)
	fs.entryCount++

	return fs.openSession(file), nil
}

// Mkdir fails if name is taken, otherwise makes a new Directory with
// the default mode.
func (fs *Filesystem) Mkdir(path string, uid, gid uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirPath, name := Split(path)
	parent, err := Lookup(fs.root, dirPath, FilterDirectory)
	if err != nil {
		return err
	}
	if _, ok := parent.children[name]; ok {
		return ErrExists
	}

	newChild(parent, KindDirectory, name, DefaultDirMode, uid, gid, fs.clock.Now())
	fs.entryCount++
	return nil
}

// Symlink fails if name is taken, otherwise makes a new Symlink
// pointing at target.
func (fs *Filesystem) Symlink(path, target string, uid, gid uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirPath, name := Split(path)
	parent, err := Lookup(fs.root, dirPath, FilterDirectory)
	if err != nil {
		return err
	}
	if _, ok := parent.children[name]; ok {
		return ErrExists
	}

	e := newChild(parent, KindSymlink, name, DefaultSymlinkMode, uid, gid, fs.clock.Now())
	e.target = target
	fs.entryCount++
	return nil
}

// Unlink resolves path to a symlink or file and detaches it from its
// parent.
func (fs *Filesystem) Unlink(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterFile|FilterSymlink)
	if err != nil {
		return err
	}
	e.unlink(fs.clock.Now(), fs.pool)
	fs.entryCount--
	return nil
}

// Rmdir resolves path to a directory, requires it be empty, and
// detaches it.
func (fs *Filesystem) Rmdir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterDirectory)
	if err != nil {
		return err
	}
	if len(e.children) != 0 {
		return ErrDirNotEmpty
	}
	e.unlink(fs.clock.Now(), fs.pool)
	fs.entryCount--
	return nil
}

// Rename resolves the source entry (any kind) and the destination
// parent directory, replacing any existing destination entry first,
// exactly like POSIX rename.
func (fs *Filesystem) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	source, err := Lookup(fs.root, oldPath, FilterAny)
	if err != nil {
		return err
	}

	newDirPath, newName := Split(newPath)
	newParent, err := Lookup(fs.root, newDirPath, FilterDirectory)
	if err != nil {
		return err
	}

	now := fs.clock.Now()
	if existing, ok := newParent.children[newName]; ok && existing != source {
		fs.entryCount--
	}

	source.move(newParent, newName, now, fs.pool)
	return nil
}

// Open resolves path to a file and returns a new session handle.
func (fs *Filesystem) Open(path string) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterFile)
	if err != nil {
		return 0, err
	}
	return fs.openSession(e), nil
}

// openSession allocates a new session id for file. Caller must hold
// fs.mu.
func (fs *Filesystem) openSession(file *Entry) uint64 {
	fs.nextSession++
	id := fs.nextSession
	fs.sessions[id] = newSession(id, file)
	return id
}

// Read reads up to len(buf) bytes from the session's file at off.
// The global mutex is released around the one device read per block
// that actually touches the backend — see Entry.ReadContent.
func (fs *Filesystem) Read(sessionID uint64, off int64, buf []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sess, ok := fs.sessions[sessionID]
	if !ok {
		return 0, ErrNotFound
	}
	return sess.file.ReadContent(off, buf, fs.clock.Now(), fs.pool, fs.mu.Unlock, fs.mu.Lock)
}

// Write writes buf to the session's file at off, submitting each
// block asynchronously and holding the mutex throughout since a
// write never waits on the device.
func (fs *Filesystem) Write(sessionID uint64, off int64, buf []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sess, ok := fs.sessions[sessionID]
	if !ok {
		return 0, ErrNotFound
	}
	n, block, err := sess.file.WriteContent(off, buf, fs.pool, fs.clock.Now())
	sess.recordWrite(block, fs.pool)
	return n, err
}

// Fsync waits on the session's most recently written block.
func (fs *Filesystem) Fsync(sessionID uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sess, ok := fs.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	return sess.flush()
}

// Release flushes and destroys the session, dropping the file's
// blocks to the pool if this was the last reference to an unlinked
// file.
func (fs *Filesystem) Release(sessionID uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sess, ok := fs.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	delete(fs.sessions, sessionID)
	return sess.release(fs.pool)
}

// Truncate resolves path to a file and sets its size, releasing
// blocks entirely beyond the new end.
func (fs *Filesystem) Truncate(path string, newSize int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := Lookup(fs.root, path, FilterFile)
	if err != nil {
		return err
	}
	e.TruncateContent(newSize, fs.pool, fs.clock.Now())
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/Overv/vramfs/lib/vramfs"
)

// vramNode is the one InodeEmbedder type for every entry in the
// tree, root included. Unlike a fixed, append-only layout, children
// here come and go at runtime, so a node carries nothing but the
// path it resolves to in the domain filesystem and is rebuilt fresh
// on every Lookup rather than cached via AddChild.
type vramNode struct {
	gofuse.Inode
	fsys *vramfs.Filesystem
	path string
}

var _ gofuse.InodeEmbedder = (*vramNode)(nil)
var _ gofuse.NodeLookuper = (*vramNode)(nil)
var _ gofuse.NodeGetattrer = (*vramNode)(nil)
var _ gofuse.NodeSetattrer = (*vramNode)(nil)
var _ gofuse.NodeReaddirer = (*vramNode)(nil)
var _ gofuse.NodeCreater = (*vramNode)(nil)
var _ gofuse.NodeMkdirer = (*vramNode)(nil)
var _ gofuse.NodeSymlinker = (*vramNode)(nil)
var _ gofuse.NodeReadlinker = (*vramNode)(nil)
var _ gofuse.NodeUnlinker = (*vramNode)(nil)
var _ gofuse.NodeRmdirer = (*vramNode)(nil)
var _ gofuse.NodeRenamer = (*vramNode)(nil)
var _ gofuse.NodeOpener = (*vramNode)(nil)
var _ gofuse.NodeStatfser = (*vramNode)(nil)

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func modeFor(kind vramfs.EntryKind, perm uint32) uint32 {
	var kindBits uint32
	switch kind {
	case vramfs.KindDirectory:
		kindBits = syscall.S_IFDIR
	case vramfs.KindSymlink:
		kindBits = syscall.S_IFLNK
	default:
		kindBits = syscall.S_IFREG
	}
	return kindBits | perm
}

func setTime(sec *uint64, nsec *uint32, t time.Time) {
	*sec = uint64(t.Unix())
	*nsec = uint32(t.Nanosecond())
}

func fillAttr(out *fuse.Attr, attr vramfs.Attr) {
	out.Mode = modeFor(attr.Kind, attr.Mode)
	out.Size = uint64(attr.Size)
	out.Nlink = 1
	out.Owner = fuse.Owner{Uid: attr.UID, Gid: attr.GID}
	out.Blksize = vramfs.BlockSize
	setTime(&out.Atime, &out.Atimensec, attr.Atime)
	setTime(&out.Mtime, &out.Mtimensec, attr.Mtime)
	setTime(&out.Ctime, &out.Ctimensec, attr.Ctime)
}

// callerIDs returns the uid/gid the kernel bridge reports for the
// calling process, falling back to fallbackUID/fallbackGID when no
// caller information is attached to ctx (e.g. in tests that invoke
// node methods directly).
func callerIDs(ctx context.Context, fallbackUID, fallbackGID uint32) (uint32, uint32) {
	if caller, ok := fuse.FromContext(ctx); ok {
		return caller.Uid, caller.Gid
	}
	return fallbackUID, fallbackGID
}

func (n *vramNode) child(path string) *vramNode {
	return &vramNode{fsys: n.fsys, path: path}
}

func (n *vramNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := join(n.path, name)
	attr, err := n.fsys.Getattr(path)
	if err != nil {
		return nil, vramfs.Errno(err)
	}

	fillAttr(&out.Attr, attr)
	child := n.NewInode(ctx, n.child(path), gofuse.StableAttr{Mode: modeFor(attr.Kind, 0)})
	return child, 0
}

func (n *vramNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fsys.Getattr(n.path)
	if err != nil {
		return vramfs.Errno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Setattr folds chmod, chown, utimens, and truncate into the single
// callback the kernel-bridge ABI actually delivers for attribute
// changes, dispatching on which fields the kernel marked valid. The
// operation layer keeps these as four separate methods; only this
// adapter layer combines them.
func (n *vramNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if mode, ok := in.GetMode(); ok {
		if err := n.fsys.Chmod(n.path, mode&07777); err != nil {
			return vramfs.Errno(err)
		}
	}

	if uid, uok := in.GetUID(); uok {
		gid, gok := in.GetGID()
		u, g := int64(uid), int64(-1)
		if gok {
			g = int64(gid)
		}
		if err := n.fsys.Chown(n.path, u, g); err != nil {
			return vramfs.Errno(err)
		}
	} else if gid, gok := in.GetGID(); gok {
		if err := n.fsys.Chown(n.path, -1, int64(gid)); err != nil {
			return vramfs.Errno(err)
		}
	}

	if atime, mtime, ok := getTimes(in); ok {
		if err := n.fsys.Utimens(n.path, atime, mtime); err != nil {
			return vramfs.Errno(err)
		}
	}

	if size, ok := in.GetSize(); ok {
		if err := n.fsys.Truncate(n.path, int64(size)); err != nil {
			return vramfs.Errno(err)
		}
	}

	attr, err := n.fsys.Getattr(n.path)
	if err != nil {
		return vramfs.Errno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// getTimes extracts atime/mtime from a SetAttrIn. It reports ok=false
// when neither is marked valid; when only one is, the other is set to
// the current time.
func getTimes(in *fuse.SetAttrIn) (atime, mtime time.Time, ok bool) {
	now := time.Now()
	a, aok := in.GetATime()
	m, mok := in.GetMTime()
	if !aok && !mok {
		return time.Time{}, time.Time{}, false
	}
	if !aok {
		a = now
	}
	if !mok {
		m = now
	}
	return a, m, true
}

type dirStream struct {
	entries []fuse.DirEntry
	pos     int
}

func (d *dirStream) HasNext() bool { return d.pos < len(d.entries) }

func (d *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	e := d.entries[d.pos]
	d.pos++
	return e, 0
}

func (d *dirStream) Close() {}

func (n *vramNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	children, err := n.fsys.Readdir(n.path)
	if err != nil {
		return nil, vramfs.Errno(err)
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		if c.Name == "." || c.Name == ".." {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name, Mode: modeFor(c.Kind, 0)})
	}
	return &dirStream{entries: entries}, 0
}

func (n *vramNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	path := join(n.path, name)
	uid, gid := callerIDs(ctx, 0, 0)

	sessionID, err := n.fsys.Create(path, uid, gid)
	if err != nil {
		return nil, nil, 0, vramfs.Errno(err)
	}

	attr, err := n.fsys.Getattr(path)
	if err != nil {
		return nil, nil, 0, vramfs.Errno(err)
	}
	fillAttr(&out.Attr, attr)

	child := n.NewInode(ctx, n.child(path), gofuse.StableAttr{Mode: modeFor(attr.Kind, 0)})
	return child, &fileHandle{fsys: n.fsys, sessionID: sessionID}, 0, 0
}

func (n *vramNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := join(n.path, name)
	uid, gid := callerIDs(ctx, 0, 0)

	if err := n.fsys.Mkdir(path, uid, gid); err != nil {
		return nil, vramfs.Errno(err)
	}

	attr, err := n.fsys.Getattr(path)
	if err != nil {
		return nil, vramfs.Errno(err)
	}
	fillAttr(&out.Attr, attr)

	child := n.NewInode(ctx, n.child(path), gofuse.StableAttr{Mode: modeFor(attr.Kind, 0)})
	return child, 0
}

func (n *vramNode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := join(n.path, name)
	uid, gid := callerIDs(ctx, 0, 0)

	if err := n.fsys.Symlink(path, target, uid, gid); err != nil {
		return nil, vramfs.Errno(err)
	}

	attr, err := n.fsys.Getattr(path)
	if err != nil {
		return nil, vramfs.Errno(err)
	}
	fillAttr(&out.Attr, attr)

	child := n.NewInode(ctx, n.child(path), gofuse.StableAttr{Mode: modeFor(attr.Kind, 0)})
	return child, 0
}

func (n *vramNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.fsys.Readlink(n.path, 4096)
	if err != nil {
		return nil, vramfs.Errno(err)
	}
	return []byte(target), 0
}

func (n *vramNode) Unlink(ctx context.Context, name string) syscall.Errno {
	return vramfs.Errno(n.fsys.Unlink(join(n.path, name)))
}

func (n *vramNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	return vramfs.Errno(n.fsys.Rmdir(join(n.path, name)))
}

func (n *vramNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	destParent, ok := newParent.(*vramNode)
	if !ok {
		return syscall.EXDEV
	}
	oldPath := join(n.path, name)
	newPath := join(destParent.path, newName)
	return vramfs.Errno(n.fsys.Rename(oldPath, newPath))
}

func (n *vramNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	sessionID, err := n.fsys.Open(n.path)
	if err != nil {
		return nil, 0, vramfs.Errno(err)
	}
	return &fileHandle{fsys: n.fsys, sessionID: sessionID}, 0, 0
}

func (n *vramNode) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	stat := n.fsys.Statfs()
	out.Bsize = uint32(stat.BlockSize)
	out.Frsize = uint32(stat.BlockSize)
	out.Blocks = stat.Blocks
	out.Bfree = stat.BlocksFree
	out.Bavail = stat.BlocksFree
	out.Files = stat.Entries
	out.NameLen = 255
	return 0
}

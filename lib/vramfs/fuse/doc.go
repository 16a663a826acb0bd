// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse adapts the vramfs operation layer to the go-fuse node
// API: kernel-bridge callbacks arrive as method calls on vramNode and
// fileHandle, which do nothing but translate arguments and forward
// to a *vramfs.Filesystem.
//
// Unlike a read-only, content-addressed mount, this tree is fully
// dynamic — files and directories are created and removed at
// runtime — so nodes are not cached in the Inode graph the way a
// fixed tag/cas layout would be. Every Lookup, Create, Mkdir, and
// Symlink simply builds a fresh node carrying the resolved path and
// hands it to NewInode; the kernel re-resolves it on the next lookup
// once the entry timeout expires.
package fuse

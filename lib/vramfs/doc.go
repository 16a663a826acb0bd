// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vramfs implements the three coupled subsystems behind a GPU
// memory filesystem: a fixed-size pool of device buffers (Pool,
// Block, Backend), an in-memory entry graph (Entry, EntryKind), and
// the operation layer that composes them under a single mutex
// (Filesystem).
//
// The kernel-bridge ABI adapter lives in the sibling fuse package,
// which translates go-fuse node callbacks into calls on Filesystem.
package vramfs

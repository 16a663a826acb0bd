// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import (
	"errors"
	"fmt"
	"syscall"
)

// The full error taxonomy the operation layer can return. These are
// sentinel errors: callers compare with errors.Is, and the fuse
// adapter maps each to the negated errno the kernel-bridge ABI
// expects via Errno below.
var (
	ErrNotFound     = errors.New("vramfs: not found")
	ErrExists       = errors.New("vramfs: already exists")
	ErrNotDirectory = errors.New("vramfs: not a directory")
	ErrIsDirectory  = errors.New("vramfs: is a directory")
	ErrDirNotEmpty  = errors.New("vramfs: directory not empty")
	ErrNotPermitted = errors.New("vramfs: operation not permitted")
	ErrNoSpace      = errors.New("vramfs: no space left on device")
	ErrTryAgain     = errors.New("vramfs: try again")
	ErrDeviceFatal  = errors.New("vramfs: fatal device failure")
)

// Wrap annotates err with one of the sentinel errors above so that
// errors.Is(result, sentinel) succeeds while %v/%w still surfaces the
// underlying cause.
func Wrap(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// Errno maps one of the sentinel errors above to the syscall.Errno
// the go-fuse node callbacks must return. ErrDeviceFatal, which has no
// more specific errno, maps to EIO; the fuse adapter returns that EIO
// to the kernel like any other error and does not unmount.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrExists):
		return syscall.EEXIST
	case errors.Is(err, ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, ErrDirNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, ErrNotPermitted):
		return syscall.EPERM
	case errors.Is(err, ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, ErrTryAgain):
		return syscall.EAGAIN
	case errors.Is(err, ErrDeviceFatal):
		return syscall.EIO
	default:
		return syscall.EIO
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestErrnoMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want syscall.Errno
	}{
		{nil, 0},
		{ErrNotFound, syscall.ENOENT},
		{ErrExists, syscall.EEXIST},
		{ErrNotDirectory, syscall.ENOTDIR},
		{ErrIsDirectory, syscall.EISDIR},
		{ErrDirNotEmpty, syscall.ENOTEMPTY},
		{ErrNotPermitted, syscall.EPERM},
		{ErrNoSpace, syscall.ENOSPC},
		{ErrTryAgain, syscall.EAGAIN},
		{ErrDeviceFatal, syscall.EIO},
		{errors.New("something else"), syscall.EIO},
	}

	for _, c := range cases {
		if got := Errno(c.err); got != c.want {
			t.Errorf("Errno(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestWrapPreservesIs(t *testing.T) {
	underlying := fmt.Errorf("mmap failed")
	wrapped := Wrap(ErrDeviceFatal, underlying)

	if !errors.Is(wrapped, ErrDeviceFatal) {
		t.Fatalf("errors.Is(wrapped, ErrDeviceFatal) = false")
	}
	if Errno(wrapped) != syscall.EIO {
		t.Fatalf("Errno(wrapped) = %v, want EIO", Errno(wrapped))
	}
}

func TestWrapNilError(t *testing.T) {
	if got := Wrap(ErrNoSpace, nil); got != ErrNoSpace {
		t.Fatalf("Wrap(sentinel, nil) = %v, want sentinel itself", got)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package fuse

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/Overv/vramfs/lib/vramfs"
)

// fuseAvailable skips the calling test when /dev/fuse is not
// accessible, which is the case in most sandboxed CI environments.
func fuseAvailable(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// testMount builds a Filesystem over a host-backed pool and mounts it
// at a temporary directory and returns the mountpoint. The unmount is
// registered with t.Cleanup.
func testMount(t *testing.T) string {
	t.Helper()
	fuseAvailable(t)

	backend, err := vramfs.NewHostBackend(vramfs.HostBackendOptions{HasFill: true})
	if err != nil {
		t.Fatalf("NewHostBackend: %v", err)
	}
	pool, err := vramfs.NewPool(backend, 1<<20, false)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	fsys := vramfs.NewFilesystem(pool, vramfs.RealClock{}, uint32(os.Getuid()), uint32(os.Getgid()))

	mountpoint := filepath.Join(t.TempDir(), "mount")
	server, err := Mount(Options{Mountpoint: mountpoint, Filesystem: fsys})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
	})

	return mountpoint
}

func TestMountWriteReadFile(t *testing.T) {
	mountpoint := testMount(t)

	path := filepath.Join(mountpoint, "hello.txt")
	if err := os.WriteFile(path, []byte("hello vramfs"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello vramfs" {
		t.Fatalf("ReadFile = %q, want %q", got, "hello vramfs")
	}
}

func TestMountMkdirAndList(t *testing.T) {
	mountpoint := testMount(t)

	if err := os.Mkdir(filepath.Join(mountpoint, "d"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mountpoint, "d", "f"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(mountpoint, "d"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "f" {
		t.Fatalf("ReadDir = %v, want [f]", entries)
	}
}

func TestMountSymlink(t *testing.T) {
	mountpoint := testMount(t)

	if err := os.Symlink("/some/target", filepath.Join(mountpoint, "l")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	got, err := os.Readlink(filepath.Join(mountpoint, "l"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if got != "/some/target" {
		t.Fatalf("Readlink = %q, want %q", got, "/some/target")
	}
}

func TestMountRenameAndUnlink(t *testing.T) {
	mountpoint := testMount(t)

	a := filepath.Join(mountpoint, "a")
	b := filepath.Join(mountpoint, "b")
	if err := os.WriteFile(a, []byte("content"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Rename(a, b); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := os.Stat(a); !os.IsNotExist(err) {
		t.Fatalf("Stat(a) after rename = %v, want IsNotExist", err)
	}
	got, err := os.ReadFile(b)
	if err != nil {
		t.Fatalf("ReadFile(b): %v", err)
	}
	if string(got) != "content" {
		t.Fatalf("ReadFile(b) = %q, want %q", got, "content")
	}

	if err := os.Remove(b); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(b); !os.IsNotExist(err) {
		t.Fatalf("Stat(b) after remove = %v, want IsNotExist", err)
	}
}

func TestMountTruncate(t *testing.T) {
	mountpoint := testMount(t)

	path := filepath.Join(mountpoint, "f")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Truncate(path, 4); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "0123" {
		t.Fatalf("ReadFile after truncate = %q, want %q", got, "0123")
	}
}

func TestMountStatfs(t *testing.T) {
	mountpoint := testMount(t)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(mountpoint, &stat); err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if stat.Blocks == 0 {
		t.Fatalf("Statfs reported zero total blocks")
	}
}

func TestMountTimestampsSetOnCreate(t *testing.T) {
	mountpoint := testMount(t)

	path := filepath.Join(mountpoint, "f")
	before := time.Now().Add(-time.Second)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.ModTime().Before(before) {
		t.Fatalf("ModTime = %v, want after %v", info.ModTime(), before)
	}
}

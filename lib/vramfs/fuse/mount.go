// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/Overv/vramfs/lib/vramfs"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// Created if it does not already exist.
	Mountpoint string

	// Filesystem is the already-initialized operation layer. The
	// mount driver owns constructing the device backend and the
	// block pool before building this.
	Filesystem *vramfs.Filesystem

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Mount mounts the vramfs tree at the configured mountpoint in the
// foreground, with auto_unmount and default_permissions forced on as
// the driver requires — the operation layer performs no permission
// checks of its own, so default_permissions is what makes the
// mode/uid/gid bits Filesystem maintains actually enforced by the
// kernel. The caller must call Unmount on the returned Server when
// done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Filesystem == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &vramNode{fsys: options.Filesystem, path: ""}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "vramfs",
			Name:       "vramfs",
			AllowOther: options.AllowOther,
			Options:    []string{"auto_unmount", "default_permissions"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("vramfs mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

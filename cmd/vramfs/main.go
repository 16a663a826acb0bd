// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Overv/vramfs/lib/vramfs"
	vramfuse "github.com/Overv/vramfs/lib/vramfs/fuse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vramfs: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <mountdir> <size> [-d <device>] [-f]\n", os.Args[0])
		flag.PrintDefaults()
	}

	device := flag.Int("d", 0, "index of the device to use from the enumerated list")
	force := flag.Bool("f", false, "mount with less VRAM than requested instead of aborting")
	debug := flag.Bool("debug", false, "enable debug logging")
	// flag.Parse stops at the first positional argument, so parse
	// repeatedly to accept options after <mountdir> and <size> too.
	var positional []string
	for args := os.Args[1:]; ; {
		if err := flag.CommandLine.Parse(args); err != nil {
			return err
		}
		if flag.NArg() == 0 {
			break
		}
		positional = append(positional, flag.Arg(0))
		args = flag.Args()[1:]
	}

	if len(positional) != 2 {
		flag.Usage()
		return fmt.Errorf("expected exactly 2 positional arguments, got %d", len(positional))
	}
	mountpoint := positional[0]

	size, err := parseSize(positional[1])
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	backend, err := selectDevice(*device)
	if err != nil {
		return fmt.Errorf("no GPU found: %w", err)
	}

	pool, err := vramfs.NewPool(backend, size, *force)
	if err != nil {
		return fmt.Errorf("allocating VRAM pool: %w", err)
	}
	logger.Info("pool allocated", "blocks", pool.Size(), "block_size", vramfs.BlockSize)

	uid, gid := uint32(os.Getuid()), uint32(os.Getgid())
	fsys := vramfs.NewFilesystem(pool, vramfs.RealClock{}, uid, gid)

	server, err := vramfuse.Mount(vramfuse.Options{
		Mountpoint: mountpoint,
		Filesystem: fsys,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("bridge initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("unmounting", "mountpoint", mountpoint)
		server.Unmount()
	}()

	server.Wait()
	return nil
}

// selectDevice picks the Nth entry from the enumerated device list.
// Real device enumeration is out of scope here; the only backend
// available is the host-memory stand-in, so index 0 is its one
// device and anything else is an error.
func selectDevice(index int) (vramfs.Backend, error) {
	if index != 0 {
		return nil, fmt.Errorf("device index %d out of range", index)
	}
	return vramfs.NewHostBackend(vramfs.HostBackendOptions{HasFill: true})
}

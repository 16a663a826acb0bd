// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import "strings"

// Lookup resolves a slash-separated path from start, rejecting any
// entry whose kind is outside filter. An empty path resolves to
// start itself. Every intermediate component must be a directory;
// a missing component is ErrNotFound.
//
// The filter/error table below is the source's exact mapping (see
// the entry graph's find): mismatches are not all reported the same
// way, so the switch mirrors the table rather than collapsing to one
// generic "wrong type" error.
func Lookup(start *Entry, path string, filter EntryFilter) (*Entry, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return checkFilter(start, filter)
	}

	components := strings.Split(path, "/")
	current := start

	for i, name := range components {
		if name == "" {
			continue
		}
		if current.Kind != KindDirectory {
			return nil, ErrNotDirectory
		}

		child, ok := current.children[name]
		if !ok {
			return nil, ErrNotFound
		}

		if i == len(components)-1 {
			return checkFilter(child, filter)
		}
		current = child
	}

	return checkFilter(current, filter)
}

// checkFilter applies the source's exact filter/error mapping: a file
// found where a directory was required reports is-a-directory (not
// not-a-directory, despite how that reads); a directory found where
// a file was required reports not-a-directory; every other mismatch
// involving a symlink, in either direction, is operation-not-permitted,
// except that a file found where only a symlink was allowed is
// not-found.
func checkFilter(e *Entry, filter EntryFilter) (*Entry, error) {
	if filter.allows(e.Kind) {
		return e, nil
	}

	switch e.Kind {
	case KindFile:
		if filter&FilterDirectory != 0 {
			return nil, ErrIsDirectory
		}
		return nil, ErrNotFound
	case KindDirectory:
		if filter&FilterFile != 0 {
			return nil, ErrNotDirectory
		}
		return nil, ErrNotPermitted
	default: // KindSymlink
		return nil, ErrNotPermitted
	}
}

// Split divides a path into its parent directory component and final
// element, e.g. "/a/b/c" -> ("a/b", "c"), "/a" -> ("", "a").
func Split(path string) (dir, name string) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

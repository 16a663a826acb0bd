// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

// Session is the per-open-handle state the operation layer hands
// back as a file handle from open and create. It owns a reference to
// its File — keeping the entry's blocks alive even if the file is
// unlinked while the handle stays open — and tracks the most recent
// block written through it so Fsync and Release can flush without
// scanning the whole file.
type Session struct {
	file      *Entry
	lastBlock *Block

	id uint64
}

// newSession opens a session on file, incrementing its open-session
// count so unlink defers releasing its blocks until Release runs.
func newSession(id uint64, file *Entry) *Session {
	file.openSessions++
	return &Session{id: id, file: file}
}

// recordWrite updates the session's flush target to the block most
// recently written through it, retaining the new block and releasing
// whatever it previously held. Without this reference, a block the
// session still needs to flush could otherwise be released to the
// pool by a truncate or unlink that runs before this session does,
// and then reused by an unrelated write.
func (s *Session) recordWrite(block *Block, pool *Pool) {
	if block == nil || block == s.lastBlock {
		return
	}
	block.Retain()
	if s.lastBlock != nil {
		s.lastBlock.Release(pool)
	}
	s.lastBlock = block
}

// flush waits on the session's last-written block, per Sync's
// contract: because the device queue is in-order, this transitively
// waits for every write submitted through this session.
func (s *Session) flush() error {
	return SyncContent(s.lastBlock)
}

// release flushes the session, drops its reference to its
// last-written block (if any) and to file, releasing the file's
// blocks to the pool if this was the last session on an unlinked
// file.
func (s *Session) release(pool *Pool) error {
	err := s.flush()
	if s.lastBlock != nil {
		s.lastBlock.Release(pool)
		s.lastBlock = nil
	}
	s.file.openSessions--
	s.file.maybeReleaseBlocks(pool)
	return err
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vramfs

import "fmt"

// BlockSize is the fixed size of every device buffer in the pool.
const BlockSize = 128 * 1024

// Pool is the preallocated, device-resident set of fixed-size
// buffers a mounted filesystem draws Blocks from. Its size is fixed
// at construction: no reallocation happens at runtime.
//
// Pool has no lock of its own. Its free list is mutated only under
// the operation layer's global mutex, per the concurrency model — an
// internal lock here would just be redundant, uncontended overhead.
type Pool struct {
	backend Backend
	total   int
	free    []*Block
}

// NewPool allocates and zero-fills enough blocks to cover size bytes,
// rounded up to a whole number of BlockSize buffers.
//
// If an allocation fails before size is reached: with force false,
// NewPool aborts and returns the error; with force true, it proceeds
// with whatever was allocated, as long as at least one block was
// obtained. The number of blocks actually allocated is always
// pool.Size() after return.
func NewPool(backend Backend, size int64, force bool) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("vramfs: pool size must be positive")
	}

	blockCount := (size + BlockSize - 1) / BlockSize
	pool := &Pool{backend: backend}

	for i := int64(0); i < blockCount; i++ {
		buf, err := backend.AllocateBuffer(BlockSize)
		if err != nil {
			if force && pool.total > 0 {
				break
			}
			return nil, fmt.Errorf("vramfs: allocating block %d/%d: %w", i+1, blockCount, err)
		}
		if err := backend.Zero(buf, BlockSize); err != nil {
			return nil, fmt.Errorf("vramfs: zeroing block %d/%d: %w", i+1, blockCount, err)
		}
		pool.total++
		pool.free = append(pool.free, newBlock(backend, buf))
	}

	if pool.total == 0 {
		return nil, fmt.Errorf("vramfs: no blocks could be allocated")
	}

	return pool, nil
}

// Size reports the total number of blocks ever created by this pool.
func (p *Pool) Size() int { return p.total }

// Available reports the number of blocks currently on the free list.
func (p *Pool) Available() int { return len(p.free) }

// Acquire pops a block from the free list. The returned Block's
// buffer retains whatever bytes its previous holder left behind, but
// its dirty flag is set, so reads return zero until the first write.
// Acquire returns nil when the pool is exhausted — a normal, expected
// condition, not an error.
func (p *Pool) Acquire() *Block {
	n := len(p.free)
	if n == 0 {
		return nil
	}
	block := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	block.dirty = true
	block.refCount = 1
	return block
}

// release returns a block's buffer to the free list. Called by Block
// once its reference count reaches zero.
func (p *Pool) release(b *Block) {
	p.free = append(p.free, b)
}

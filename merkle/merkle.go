// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkle implements the binary keccak256 commitment tree used for
// verifier set and message payload roots. An unpaired node at the end of a
// level is promoted to the next level unchanged, so trees of any leaf count
// have a well-defined root and positional proofs.
package merkle

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

var (
	ErrNoLeaves        = errors.New("merkle tree requires at least one leaf")
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// Tree is a fixed binary hash tree over an ordered list of leaf hashes.
// The leaf order is part of the commitment.
type Tree struct {
	levels [][]common.Hash
}

// NewTree builds a tree over the given leaf hashes.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	levels := make([][]common.Hash, 0, bits.Len(uint(len(leaves))))
	level := make([]common.Hash, len(leaves))
	copy(level, leaves)
	levels = append(levels, level)

	for len(level) > 1 {
		next := make([]common.Hash, 0, len(level)/2+len(level)%2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				// Unpaired node, promoted unchanged.
				next = append(next, level[i])
			}
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the tree root. A single-leaf tree's root is the leaf itself.
func (t *Tree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built over.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Proof returns the inclusion proof for the leaf at the given index.
func (t *Tree) Proof(index int) (*Proof, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, t.LeafCount())
	}

	hashes := make([]common.Hash, 0, len(t.levels)-1)
	idx := index
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		// A promoted node has no sibling and contributes no proof hash.
		if sibling < len(level) {
			hashes = append(hashes, level[sibling])
		}
		idx /= 2
	}

	return &Proof{hashes: hashes}, nil
}

// Proof is the ordered list of sibling hashes from the leaf level up.
type Proof struct {
	hashes []common.Hash
}

// ProofFromBytes parses a proof from the concatenation of 32-byte hashes.
func ProofFromBytes(b []byte) (*Proof, error) {
	if len(b)%common.HashLength != 0 {
		return nil, fmt.Errorf("proof length %d is not a multiple of %d", len(b), common.HashLength)
	}
	hashes := make([]common.Hash, len(b)/common.HashLength)
	for i := range hashes {
		hashes[i] = common.BytesToHash(b[i*common.HashLength : (i+1)*common.HashLength])
	}
	return &Proof{hashes: hashes}, nil
}

// Bytes returns the wire form of the proof, the concatenation of its hashes.
func (p *Proof) Bytes() []byte {
	b := make([]byte, 0, len(p.hashes)*common.HashLength)
	for _, h := range p.hashes {
		b = append(b, h[:]...)
	}
	return b
}

// Len returns the number of sibling hashes in the proof.
func (p *Proof) Len() int {
	return len(p.hashes)
}

// Verify recomputes the root from the leaf hash at the given index and
// reports whether it matches. leafCount must be the total number of leaves
// the root commits to. Every proof hash must be consumed; trailing hashes
// fail verification.
func (p *Proof) Verify(root common.Hash, index int, leaf common.Hash, leafCount int) bool {
	if index < 0 || leafCount <= 0 || index >= leafCount {
		return false
	}

	current := leaf
	idx := index
	used := 0
	for n := leafCount; n > 1; n = n/2 + n%2 {
		sibling := idx ^ 1
		if sibling < n {
			if used >= len(p.hashes) {
				return false
			}
			if idx%2 == 0 {
				current = nodeHash(current, p.hashes[used])
			} else {
				current = nodeHash(p.hashes[used], current)
			}
			used++
		}
		idx /= 2
	}

	return used == len(p.hashes) && current == root
}

func nodeHash(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

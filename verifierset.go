// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/gateway/merkle"
)

// MaxVerifiers is the slot width of a verification session. A set larger
// than this cannot be tracked per-signer.
const MaxVerifiers = 256

// WeightedSigner is one member of a verifier set
type WeightedSigner struct {
	PublicKey PublicKey
	Weight    *uint256.Int
}

// Less returns true if this signer orders before the other
func (w *WeightedSigner) Less(other *WeightedSigner) bool {
	return bytes.Compare(w.PublicKey[:], other.PublicKey[:]) < 0
}

// VerifierSet is a weighted signer committee. Signers are held in canonical
// order, strictly ascending by compressed public key, so equal memberships
// always commit to the same hash.
type VerifierSet struct {
	Nonce   common.Hash
	Signers []WeightedSigner
	Quorum  *uint256.Int
}

// NewVerifierSet builds a canonical verifier set from signers in any order
func NewVerifierSet(nonce common.Hash, signers []WeightedSigner, quorum *uint256.Int) (*VerifierSet, error) {
	sorted := make([]WeightedSigner, len(signers))
	copy(sorted, signers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Less(&sorted[j])
	})

	set := &VerifierSet{
		Nonce:   nonce,
		Signers: sorted,
		Quorum:  quorum,
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate checks canonical order, weight bounds and the quorum
func (v *VerifierSet) Validate() error {
	if len(v.Signers) == 0 {
		return errors.New("empty verifier set")
	}
	if len(v.Signers) > MaxVerifiers {
		return fmt.Errorf("verifier set size %d exceeds maximum %d", len(v.Signers), MaxVerifiers)
	}
	if !validUint128(v.Quorum) || v.Quorum.IsZero() {
		return errors.New("quorum must be a nonzero 128-bit integer")
	}

	total := new(uint256.Int)
	for i := range v.Signers {
		s := &v.Signers[i]
		if !validUint128(s.Weight) || s.Weight.IsZero() {
			return fmt.Errorf("signer %d weight must be a nonzero 128-bit integer", i)
		}
		if i > 0 && bytes.Compare(v.Signers[i-1].PublicKey[:], s.PublicKey[:]) >= 0 {
			return fmt.Errorf("signers not in strictly ascending key order at index %d", i)
		}
		total.Add(total, s.Weight)
	}
	if total.BitLen() > 128 {
		return errors.New("total weight overflows 128 bits")
	}
	return nil
}

// TotalWeight returns the sum of all signer weights
func (v *VerifierSet) TotalWeight() *uint256.Int {
	total := new(uint256.Int)
	for i := range v.Signers {
		total.Add(total, v.Signers[i].Weight)
	}
	return total
}

// Leaves returns the per-signer commitment leaves in canonical order
func (v *VerifierSet) Leaves(domainSeparator common.Hash) []VerifierSetLeaf {
	leaves := make([]VerifierSetLeaf, len(v.Signers))
	for i := range v.Signers {
		leaves[i] = VerifierSetLeaf{
			Nonce:           v.Nonce,
			Quorum:          v.Quorum,
			Signer:          v.Signers[i].PublicKey,
			Weight:          v.Signers[i].Weight,
			Position:        uint16(i),
			SetSize:         uint16(len(v.Signers)),
			DomainSeparator: domainSeparator,
		}
	}
	return leaves
}

// MerkleTree builds the commitment tree over the set's leaves
func (v *VerifierSet) MerkleTree(domainSeparator common.Hash) (*merkle.Tree, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	leaves := v.Leaves(domainSeparator)
	hashes := make([]common.Hash, len(leaves))
	for i := range leaves {
		hashes[i] = leaves[i].Hash()
	}
	return merkle.NewTree(hashes)
}

// SignersHash returns the merkle root committing to the set. The root is the
// set's identity: trackers are keyed by it, sessions bind to it and rotation
// digests embed it.
func (v *VerifierSet) SignersHash(domainSeparator common.Hash) (common.Hash, error) {
	tree, err := v.MerkleTree(domainSeparator)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root(), nil
}

// VerifierSetLeaf is the commitment leaf for one signer. It carries the whole
// set context (nonce, quorum, size, domain separator) so a single leaf plus
// its proof is enough to verify a signature and account its weight.
type VerifierSetLeaf struct {
	Nonce           common.Hash
	Quorum          *uint256.Int
	Signer          PublicKey
	Weight          *uint256.Int
	Position        uint16
	SetSize         uint16
	DomainSeparator common.Hash
}

// Validate checks the leaf's integer bounds
func (l *VerifierSetLeaf) Validate() error {
	if !validUint128(l.Quorum) || l.Quorum.IsZero() {
		return errors.New("leaf quorum must be a nonzero 128-bit integer")
	}
	if !validUint128(l.Weight) || l.Weight.IsZero() {
		return errors.New("leaf weight must be a nonzero 128-bit integer")
	}
	if l.SetSize == 0 {
		return errors.New("leaf set size must be nonzero")
	}
	if l.Position >= l.SetSize {
		return fmt.Errorf("leaf position %d not below set size %d", l.Position, l.SetSize)
	}
	return nil
}

// Hash returns the hash of the canonical leaf encoding
func (l *VerifierSetLeaf) Hash() common.Hash {
	b := make([]byte, 0, 2*common.HashLength+2*16+PublicKeyLen+4)
	b = append(b, l.Nonce[:]...)
	b = appendUint128(b, l.Quorum)
	b = append(b, l.Signer[:]...)
	b = appendUint128(b, l.Weight)
	b = binary.BigEndian.AppendUint16(b, l.Position)
	b = binary.BigEndian.AppendUint16(b, l.SetSize)
	b = append(b, l.DomainSeparator[:]...)
	return crypto.Keccak256Hash(b)
}

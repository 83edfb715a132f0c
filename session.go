// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/gateway/merkle"
)

// maxUint128 is the accumulator sentinel. A session pins its weight here the
// moment the quorum is reached, so completeness survives any later reading of
// the set's weights and is a single comparison to test.
var maxUint128 = uint256.MustFromHex("0xffffffffffffffffffffffffffffffff")

// VerificationSession accumulates signature weight toward a quorum, one
// signature per step. Steps are commutative: any order of distinct valid
// signatures reaching the quorum completes the session.
type VerificationSession struct {
	// SignersHash is the root of the verifier set whose signatures the
	// session accepts, seeded at initialization
	SignersHash common.Hash

	// AccumulatedWeight is the running weight total, maxUint128 once the
	// quorum is reached
	AccumulatedWeight *uint256.Int

	// SignatureSlots marks which signer positions have been verified
	SignatureSlots Bits
}

// NewVerificationSession creates an empty session bound to a verifier set
func NewVerificationSession(signersHash common.Hash) *VerificationSession {
	return &VerificationSession{
		SignersHash:       signersHash,
		AccumulatedWeight: new(uint256.Int),
		SignatureSlots:    NewSlots(MaxVerifiers),
	}
}

// IsComplete returns true once the session has reached its quorum
func (s *VerificationSession) IsComplete() bool {
	return s.AccumulatedWeight != nil && s.AccumulatedWeight.Eq(maxUint128)
}

// ProcessSignature verifies one signature over the payload digest and
// accounts its weight. The slot is only marked after every check passes, so
// a failed step leaves the session untouched.
func (s *VerificationSession) ProcessSignature(payloadDigest common.Hash, info *SigningVerifierSetInfo) error {
	if s.IsComplete() {
		return ErrSigningSessionComplete
	}

	position := int(info.Leaf.Position)
	if position >= s.SignatureSlots.BitLen() {
		return fmt.Errorf("%w: position %d", ErrSlotOutOfBounds, position)
	}
	if s.SignatureSlots.Contains(position) {
		return fmt.Errorf("%w: position %d", ErrSlotAlreadyVerified, position)
	}

	if err := info.Leaf.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMerkleProof, err)
	}
	proof, err := merkle.ProofFromBytes(info.Proof)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMerkleProof, err)
	}
	if !proof.Verify(s.SignersHash, position, info.Leaf.Hash(), int(info.Leaf.SetSize)) {
		return fmt.Errorf("%w: leaf at position %d", ErrInvalidMerkleProof, position)
	}

	if err := info.Signature.Verify(payloadDigest, info.Leaf.Signer); err != nil {
		return err
	}

	sum := new(uint256.Int).Add(s.AccumulatedWeight, info.Leaf.Weight)
	if sum.Cmp(info.Leaf.Quorum) >= 0 {
		sum.Set(maxUint128)
	}
	s.AccumulatedWeight = sum
	s.SignatureSlots.Add(position)
	return nil
}

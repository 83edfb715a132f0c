// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// Command types tag the digests verifiers sign so an approval digest can
// never collide with a rotation digest.
const (
	CommandApproveMessages uint8 = 0
	CommandRotateSigners   uint8 = 1
)

// RotationDigest returns the digest signed to rotate to a new verifier set.
// It binds the new set's root to the root of the set authorizing the
// rotation, so a rotation signed for one signing set cannot be replayed
// under another.
func RotationDigest(newVerifierSetRoot, signingVerifierSetRoot common.Hash) common.Hash {
	return crypto.Keccak256Hash(
		[]byte{CommandRotateSigners},
		newVerifierSetRoot[:],
		signingVerifierSetRoot[:],
	)
}

// Canonical encodings are fixed big-endian byte layouts. Strings carry a
// uint32 length prefix; 128-bit integers occupy 16 bytes.

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendUint128(b []byte, v *uint256.Int) []byte {
	word := v.Bytes32()
	return append(b, word[16:]...)
}

// validUint128 reports whether v is a non-nil value representable in 128
// bits. Weights and quorums are bounded to that width.
func validUint128(v *uint256.Int) bool {
	return v != nil && v.BitLen() <= 128
}

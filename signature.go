// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"encoding/hex"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// recoveryIDIndex is the byte position of the recovery id (v) in a signature
const recoveryIDIndex = 64

// PublicKey is a compressed secp256k1 public key
type PublicKey [PublicKeyLen]byte

// PublicKeyFromBytes parses a compressed public key, rejecting points that do
// not decompress onto the curve.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLen {
		return pk, fmt.Errorf("invalid public key length: expected %d, got %d", PublicKeyLen, len(b))
	}
	if _, err := crypto.DecompressPubkey(b); err != nil {
		return pk, fmt.Errorf("invalid public key: %w", err)
	}
	copy(pk[:], b)
	return pk, nil
}

// Bytes returns the compressed key bytes
func (p PublicKey) Bytes() []byte {
	return p[:]
}

// Address returns the 20-byte address of the key
func (p PublicKey) Address() (common.Address, error) {
	pub, err := crypto.DecompressPubkey(p[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// String returns the hex representation of the compressed key
func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// Signature is a recoverable secp256k1 signature, r and s followed by the
// recovery id. Recovery ids of 27/28 are accepted and normalized to 0/1.
type Signature [SignatureLen]byte

// SignatureFromBytes parses a signature from bytes
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureLen {
		return sig, fmt.Errorf("invalid signature length: expected %d, got %d", SignatureLen, len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

// Bytes returns the signature bytes
func (s Signature) Bytes() []byte {
	return s[:]
}

// String returns the hex representation of the signature
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// normalized converts an Ethereum-format recovery id (27/28) to raw format
// (0/1). Raw ids pass through unchanged.
func (s Signature) normalized() []byte {
	normalized := make([]byte, SignatureLen)
	copy(normalized, s[:])
	if v := normalized[recoveryIDIndex]; v >= 27 {
		normalized[recoveryIDIndex] = v - 27
	}
	return normalized
}

// Recover returns the compressed public key that produced the signature over
// the given digest.
func (s Signature) Recover(digest common.Hash) (PublicKey, error) {
	var pk PublicKey
	recovered, err := crypto.SigToPub(digest[:], s.normalized())
	if err != nil {
		return pk, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	copy(pk[:], crypto.CompressPubkey(recovered))
	return pk, nil
}

// Verify checks that the signature was produced over the digest by the given
// signer. The recovered key is compared against the signer in compressed
// form.
func (s Signature) Verify(digest common.Hash, signer PublicKey) error {
	recovered, err := s.Recover(digest)
	if err != nil {
		return err
	}
	if recovered != signer {
		return fmt.Errorf("%w: recovered key %s does not match signer %s", ErrInvalidSignature, recovered, signer)
	}
	return nil
}

// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

var _ Signer = (*signer)(nil)

// Signer signs payload digests on behalf of one verifier set member
type Signer interface {
	// Sign signs the 32 byte payload digest
	Sign(digest common.Hash) (Signature, error)
	// PublicKey returns the signer's compressed public key
	PublicKey() PublicKey
}

// NewSigner creates a signer from a secp256k1 private key
func NewSigner(key *ecdsa.PrivateKey) (Signer, error) {
	public, err := PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to compress public key: %w", err)
	}
	return &signer{
		key:    key,
		public: public,
	}, nil
}

type signer struct {
	key    *ecdsa.PrivateKey
	public PublicKey
}

func (s *signer) Sign(digest common.Hash) (Signature, error) {
	raw, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return Signature{}, err
	}
	return SignatureFromBytes(raw)
}

func (s *signer) PublicKey() PublicKey {
	return s.public
}

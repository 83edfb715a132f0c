// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package encode

import (
	"crypto/ecdsa"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/merkle"
)

func newSigningSet(t *testing.T, quorum uint64, size int) (*gateway.VerifierSet, map[gateway.PublicKey]*ecdsa.PrivateKey) {
	t.Helper()

	keys := make(map[gateway.PublicKey]*ecdsa.PrivateKey, size)
	signers := make([]gateway.WeightedSigner, size)
	for i := range signers {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		public, err := gateway.PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
		require.NoError(t, err)
		keys[public] = key
		signers[i] = gateway.WeightedSigner{PublicKey: public, Weight: uint256.NewInt(1)}
	}

	set, err := gateway.NewVerifierSet(crypto.Keccak256Hash([]byte("nonce")), signers, uint256.NewInt(quorum))
	require.NoError(t, err)
	return set, keys
}

func signAll(t *testing.T, keys map[gateway.PublicKey]*ecdsa.PrivateKey, digest common.Hash) map[gateway.PublicKey]gateway.Signature {
	t.Helper()

	signatures := make(map[gateway.PublicKey]gateway.Signature, len(keys))
	for public, key := range keys {
		raw, err := crypto.Sign(digest[:], key)
		require.NoError(t, err)
		signature, err := gateway.SignatureFromBytes(raw)
		require.NoError(t, err)
		signatures[public] = signature
	}
	return signatures
}

func testMessages(n int) []gateway.Message {
	messages := make([]gateway.Message, n)
	for i := range messages {
		messages[i] = gateway.Message{
			CCID: gateway.CrossChainID{
				Chain: "ethereum",
				ID:    fmt.Sprintf("tx-%d", i),
			},
			SourceAddress:      "0x4EFE356BEDeCC817cb89B4E9b796dB8bC188DC59",
			DestinationChain:   "lux",
			DestinationAddress: "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0",
			PayloadHash:        crypto.Keccak256Hash([]byte{byte(i)}),
		}
	}
	return messages
}

func TestEncodeMessages(t *testing.T) {
	set, keys := newSigningSet(t, 2, 3)
	domainSeparator := crypto.Keccak256Hash([]byte("domain"))
	payload := Payload{Messages: testMessages(2)}

	digest, err := HashPayload(domainSeparator, set, payload)
	require.NoError(t, err)

	data, err := Encode(set, signAll(t, keys, digest), domainSeparator, payload)
	require.NoError(t, err)
	require.Equal(t, digest, data.PayloadDigest())
	require.Len(t, data.SigningVerifierSetLeaves, 3)
	require.Len(t, data.Payload.Messages, 2)
	require.False(t, data.Payload.IsRotation())

	// The encoded signatures drive a verification session to completion
	session := gateway.NewVerificationSession(data.SigningVerifierSetRoot)
	for i := range data.SigningVerifierSetLeaves {
		if session.IsComplete() {
			break
		}
		require.NoError(t, session.ProcessSignature(digest, &data.SigningVerifierSetLeaves[i]))
	}
	require.True(t, session.IsComplete())

	// Every message proof verifies against the payload root
	for _, msg := range data.Payload.Messages {
		proof, err := merkle.ProofFromBytes(msg.Proof)
		require.NoError(t, err)
		require.True(t, proof.Verify(data.PayloadRoot, int(msg.Leaf.Position), msg.Leaf.Hash(), int(msg.Leaf.SetSize)))
	}
}

func TestEncodeRotation(t *testing.T) {
	set, keys := newSigningSet(t, 2, 2)
	next, _ := newSigningSet(t, 3, 4)
	domainSeparator := crypto.Keccak256Hash([]byte("domain"))
	payload := Payload{NewVerifierSet: next}

	digest, err := HashPayload(domainSeparator, set, payload)
	require.NoError(t, err)

	data, err := Encode(set, signAll(t, keys, digest), domainSeparator, payload)
	require.NoError(t, err)
	require.True(t, data.Payload.IsRotation())
	require.Equal(t, digest, data.PayloadDigest())
	require.Equal(t, digest, data.PayloadRoot)

	newRoot, err := next.SignersHash(domainSeparator)
	require.NoError(t, err)
	require.Equal(t, newRoot, *data.Payload.NewVerifierSetRoot)
	require.Equal(t, gateway.RotationDigest(newRoot, data.SigningVerifierSetRoot), digest)

	session := gateway.NewVerificationSession(data.SigningVerifierSetRoot)
	for i := range data.SigningVerifierSetLeaves {
		require.NoError(t, session.ProcessSignature(digest, &data.SigningVerifierSetLeaves[i]))
	}
	require.True(t, session.IsComplete())
}

func TestEncodePartialSignatures(t *testing.T) {
	set, keys := newSigningSet(t, 2, 3)
	domainSeparator := crypto.Keccak256Hash([]byte("domain"))
	payload := Payload{Messages: testMessages(1)}

	digest, err := HashPayload(domainSeparator, set, payload)
	require.NoError(t, err)

	// Only the first signer in canonical order signs
	signatures := signAll(t, keys, digest)
	for public := range signatures {
		if public != set.Signers[0].PublicKey {
			delete(signatures, public)
		}
	}

	data, err := Encode(set, signatures, domainSeparator, payload)
	require.NoError(t, err)
	require.Len(t, data.SigningVerifierSetLeaves, 1)
	require.Equal(t, set.Signers[0].PublicKey, data.SigningVerifierSetLeaves[0].Leaf.Signer)
}

func TestEncodeNoSignatures(t *testing.T) {
	set, _ := newSigningSet(t, 2, 2)
	domainSeparator := crypto.Keccak256Hash([]byte("domain"))

	_, err := Encode(set, nil, domainSeparator, Payload{Messages: testMessages(1)})
	require.Error(t, err)
}

func TestPayloadValidate(t *testing.T) {
	set, _ := newSigningSet(t, 1, 1)

	require.Error(t, (&Payload{}).Validate())
	require.Error(t, (&Payload{Messages: testMessages(1), NewVerifierSet: set}).Validate())
	require.Error(t, (&Payload{Messages: make([]gateway.Message, MaxMessages+1)}).Validate())
	require.NoError(t, (&Payload{Messages: testMessages(1)}).Validate())
	require.NoError(t, (&Payload{NewVerifierSet: set}).Validate())
}

// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"testing"

	"github.com/luxfi/geth/crypto"
	"github.com/stretchr/testify/require"
)

func TestSignatureRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	public, err := PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("payload"))
	raw, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)

	recovered, err := sig.Recover(digest)
	require.NoError(t, err)
	require.Equal(t, public, recovered)

	require.NoError(t, sig.Verify(digest, public))
}

func TestSignatureRecoveryIDOffset(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	public, err := PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("payload"))
	raw, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	// Signatures with a legacy recovery id of 27 or 28 verify the same as
	// their 0 or 1 form
	raw[recoveryIDIndex] += 27
	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)
	require.NoError(t, sig.Verify(digest, public))
}

func TestSignatureVerifyRejectsWrongSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	other, err := PublicKeyFromBytes(crypto.CompressPubkey(&otherKey.PublicKey))
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("payload"))
	raw, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)
	require.ErrorIs(t, sig.Verify(digest, other), ErrInvalidSignature)
}

func TestSignatureVerifyRejectsWrongDigest(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	public, err := PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("payload"))
	raw, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)

	otherDigest := crypto.Keccak256Hash([]byte("other payload"))
	require.ErrorIs(t, sig.Verify(otherDigest, public), ErrInvalidSignature)
}

func TestSignatureFromBytesLength(t *testing.T) {
	_, err := SignatureFromBytes(nil)
	require.Error(t, err)

	_, err = SignatureFromBytes(make([]byte, SignatureLen-1))
	require.Error(t, err)

	_, err = SignatureFromBytes(make([]byte, SignatureLen+1))
	require.Error(t, err)
}

func TestPublicKeyFromBytes(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	compressed := crypto.CompressPubkey(&key.PublicKey)

	public, err := PublicKeyFromBytes(compressed)
	require.NoError(t, err)
	require.Equal(t, compressed, public.Bytes())

	addr, err := public.Address()
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	// Wrong length
	_, err = PublicKeyFromBytes(compressed[:PublicKeyLen-1])
	require.Error(t, err)

	// Right length, not a curve point
	bad := make([]byte, PublicKeyLen)
	for i := range bad {
		bad[i] = 0xff
	}
	_, err = PublicKeyFromBytes(bad)
	require.Error(t, err)
}

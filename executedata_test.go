// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/gateway/merkle"
)

func testExecuteData(t *testing.T) *ExecuteData {
	t.Helper()

	domainSeparator := crypto.Keccak256Hash([]byte("domain"))
	set, signers := newTestCommittee(t, 2, 1, 1)

	signersHash, err := set.SignersHash(domainSeparator)
	require.NoError(t, err)

	first := testMessage()
	second := testMessage()
	second.CCID.ID = "other-id"
	leaves, err := MessageLeaves([]Message{first, second}, domainSeparator, signersHash)
	require.NoError(t, err)

	hashes := make([]common.Hash, len(leaves))
	for i := range leaves {
		hashes[i] = leaves[i].Hash()
	}
	tree, err := merkle.NewTree(hashes)
	require.NoError(t, err)

	payloadRoot := tree.Root()
	merkleised := make([]MerkleisedMessage, len(leaves))
	for i := range leaves {
		proof, err := tree.Proof(i)
		require.NoError(t, err)
		merkleised[i] = MerkleisedMessage{Leaf: leaves[i], Proof: proof.Bytes()}
	}

	return &ExecuteData{
		SigningVerifierSetRoot: signersHash,
		SigningVerifierSetLeaves: []SigningVerifierSetInfo{
			*signerInfo(t, set, signers, domainSeparator, 0, payloadRoot),
			*signerInfo(t, set, signers, domainSeparator, 1, payloadRoot),
		},
		PayloadRoot: payloadRoot,
		Payload:     MerkleisedPayload{Messages: merkleised},
	}
}

func TestExecuteDataRoundTrip(t *testing.T) {
	data := testExecuteData(t)
	require.NoError(t, data.Validate())

	parsed, err := ParseExecuteData(data.Bytes())
	require.NoError(t, err)

	require.Equal(t, data.SigningVerifierSetRoot, parsed.SigningVerifierSetRoot)
	require.Equal(t, data.SigningVerifierSetLeaves, parsed.SigningVerifierSetLeaves)
	require.Equal(t, data.PayloadRoot, parsed.PayloadRoot)
	require.Nil(t, parsed.Payload.NewVerifierSetRoot)
	require.Equal(t, data.Payload.Messages, parsed.Payload.Messages)
	require.False(t, parsed.Payload.IsRotation())
}

func TestExecuteDataRotationRoundTrip(t *testing.T) {
	data := testExecuteData(t)
	newRoot := crypto.Keccak256Hash([]byte("new verifier set"))
	data.Payload = MerkleisedPayload{NewVerifierSetRoot: &newRoot}
	require.NoError(t, data.Validate())

	parsed, err := ParseExecuteData(data.Bytes())
	require.NoError(t, err)

	require.True(t, parsed.Payload.IsRotation())
	require.NotNil(t, parsed.Payload.NewVerifierSetRoot)
	require.Equal(t, newRoot, *parsed.Payload.NewVerifierSetRoot)
	require.Empty(t, parsed.Payload.Messages)
}

func TestExecuteDataValidate(t *testing.T) {
	data := testExecuteData(t)

	// No signatures
	broken := *data
	broken.SigningVerifierSetLeaves = nil
	require.Error(t, broken.Validate())

	// Both payload arms set
	newRoot := crypto.Keccak256Hash([]byte("new verifier set"))
	broken = *data
	broken.Payload.NewVerifierSetRoot = &newRoot
	require.Error(t, broken.Validate())

	// Neither payload arm set
	broken = *data
	broken.Payload = MerkleisedPayload{}
	require.Error(t, broken.Validate())
}

func TestParseExecuteDataRejectsGarbage(t *testing.T) {
	_, err := ParseExecuteData([]byte("not execute data"))
	require.Error(t, err)

	_, err = ParseExecuteData(nil)
	require.Error(t, err)
}

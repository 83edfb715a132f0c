// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"fmt"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/stretchr/testify/require"
)

func testLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = crypto.Keccak256Hash([]byte{byte(i)})
	}
	return leaves
}

func TestNewTreeEmpty(t *testing.T) {
	_, err := NewTree(nil)
	require.ErrorIs(t, err, ErrNoLeaves)
}

func TestSingleLeaf(t *testing.T) {
	leaves := testLeaves(1)

	tree, err := NewTree(leaves)
	require.NoError(t, err)

	// A single-leaf root is the leaf itself and its proof is empty.
	require.Equal(t, leaves[0], tree.Root())

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	require.Zero(t, proof.Len())
	require.True(t, proof.Verify(tree.Root(), 0, leaves[0], 1))
}

func TestTwoLeaves(t *testing.T) {
	leaves := testLeaves(2)

	tree, err := NewTree(leaves)
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash(leaves[0][:], leaves[1][:]), tree.Root())
}

func TestOddLeafPromotion(t *testing.T) {
	leaves := testLeaves(3)

	tree, err := NewTree(leaves)
	require.NoError(t, err)

	// The unpaired third leaf is promoted and pairs with the first parent.
	inner := crypto.Keccak256Hash(leaves[0][:], leaves[1][:])
	require.Equal(t, crypto.Keccak256Hash(inner[:], leaves[2][:]), tree.Root())

	// The promoted leaf's proof skips the level it was promoted through.
	proof, err := tree.Proof(2)
	require.NoError(t, err)
	require.Equal(t, 1, proof.Len())
	require.True(t, proof.Verify(tree.Root(), 2, leaves[2], 3))
}

func TestProofIndexOutOfRange(t *testing.T) {
	tree, err := NewTree(testLeaves(4))
	require.NoError(t, err)

	_, err = tree.Proof(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = tree.Proof(4)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAllProofsVerify(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 11, 16, 17, 33} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			leaves := testLeaves(n)
			tree, err := NewTree(leaves)
			require.NoError(t, err)

			for i := 0; i < n; i++ {
				proof, err := tree.Proof(i)
				require.NoError(t, err)
				require.True(t, proof.Verify(tree.Root(), i, leaves[i], n))
			}
		})
	}
}

func TestProofSoundness(t *testing.T) {
	leaves := testLeaves(7)
	tree, err := NewTree(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(3)
	require.NoError(t, err)

	// Wrong leaf
	require.False(t, proof.Verify(tree.Root(), 3, leaves[4], 7))

	// Wrong index
	require.False(t, proof.Verify(tree.Root(), 4, leaves[3], 7))

	// Wrong root
	require.False(t, proof.Verify(crypto.Keccak256Hash([]byte("other")), 3, leaves[3], 7))

	// Wrong leaf count, shrinking or growing the tree depth
	require.False(t, proof.Verify(tree.Root(), 3, leaves[3], 4))
	require.False(t, proof.Verify(tree.Root(), 3, leaves[3], 16))

	// Out-of-range index
	require.False(t, proof.Verify(tree.Root(), 7, leaves[3], 7))
	require.False(t, proof.Verify(tree.Root(), -1, leaves[3], 7))

	// Truncated proof
	truncated, err := ProofFromBytes(proof.Bytes()[:proof.Len()*common.HashLength-common.HashLength])
	require.NoError(t, err)
	require.False(t, truncated.Verify(tree.Root(), 3, leaves[3], 7))

	// Extended proof
	extended, err := ProofFromBytes(append(proof.Bytes(), make([]byte, common.HashLength)...))
	require.NoError(t, err)
	require.False(t, extended.Verify(tree.Root(), 3, leaves[3], 7))
}

func TestProofBytesRoundTrip(t *testing.T) {
	tree, err := NewTree(testLeaves(5))
	require.NoError(t, err)

	proof, err := tree.Proof(2)
	require.NoError(t, err)

	parsed, err := ProofFromBytes(proof.Bytes())
	require.NoError(t, err)
	require.Equal(t, proof.Bytes(), parsed.Bytes())
	require.True(t, parsed.Verify(tree.Root(), 2, testLeaves(5)[2], 5))
}

func TestProofFromBytesInvalidLength(t *testing.T) {
	_, err := ProofFromBytes(make([]byte, common.HashLength+1))
	require.Error(t, err)
}

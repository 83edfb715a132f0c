// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"bytes"
	"testing"

	"github.com/luxfi/geth/crypto"
	"github.com/stretchr/testify/require"
)

func TestPayloadChunkedUpload(t *testing.T) {
	// Three chunks, the last one partial
	data := bytes.Repeat([]byte{0xab}, 2*MaxPayloadChunk+100)
	payload := &MessagePayload{
		ExpectedHash: crypto.Keccak256Hash(data),
		Data:         make([]byte, len(data)),
	}

	for offset := 0; offset < len(data); offset += MaxPayloadChunk {
		end := offset + MaxPayloadChunk
		if end > len(data) {
			end = len(data)
		}
		require.NoError(t, payload.Write(uint64(offset), data[offset:end]))
	}

	require.NoError(t, payload.Commit())
	require.True(t, payload.Committed)
	require.Equal(t, data, payload.Data)
}

func TestPayloadWriteBounds(t *testing.T) {
	payload := &MessagePayload{Data: make([]byte, 100)}

	// Chunk above the per-step ceiling
	err := payload.Write(0, make([]byte, MaxPayloadChunk+1))
	require.ErrorIs(t, err, ErrPayloadChunkTooLarge)

	// Write past the end of the buffer
	err = payload.Write(90, make([]byte, 11))
	require.ErrorIs(t, err, ErrPayloadOutOfBounds)

	// Offset overflow
	err = payload.Write(^uint64(0), []byte{1})
	require.ErrorIs(t, err, ErrPayloadOutOfBounds)

	// Writes may overlap and rewrite earlier bytes
	require.NoError(t, payload.Write(0, bytes.Repeat([]byte{1}, 50)))
	require.NoError(t, payload.Write(25, bytes.Repeat([]byte{2}, 50)))
	require.Equal(t, byte(1), payload.Data[24])
	require.Equal(t, byte(2), payload.Data[25])
}

func TestPayloadCommitChecksHash(t *testing.T) {
	data := []byte("the payload")
	payload := &MessagePayload{
		ExpectedHash: crypto.Keccak256Hash(data),
		Data:         make([]byte, len(data)),
	}

	// Buffer content does not hash to the expected value yet
	err := payload.Commit()
	require.ErrorIs(t, err, ErrPayloadHashMismatch)
	require.False(t, payload.Committed)

	require.NoError(t, payload.Write(0, data))
	require.NoError(t, payload.Commit())

	// A committed buffer is sealed
	require.ErrorIs(t, payload.Write(0, []byte{0}), ErrPayloadCommitted)
	require.ErrorIs(t, payload.Commit(), ErrPayloadCommitted)
}

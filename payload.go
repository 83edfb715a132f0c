// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// MessagePayload is a staged payload buffer. Payloads larger than one step
// ceiling arrive in chunks; the commit step seals the buffer after checking
// it hashes to the payload hash the approved message committed to.
type MessagePayload struct {
	ExpectedHash common.Hash
	Committed    bool
	Data         []byte
}

// Write copies a chunk into the buffer at the given offset
func (p *MessagePayload) Write(offset uint64, chunk []byte) error {
	if p.Committed {
		return ErrPayloadCommitted
	}
	if len(chunk) > MaxPayloadChunk {
		return fmt.Errorf("%w: %d bytes, ceiling is %d", ErrPayloadChunkTooLarge, len(chunk), MaxPayloadChunk)
	}
	end, err := AddUint64(offset, uint64(len(chunk)))
	if err != nil || end > uint64(len(p.Data)) {
		return fmt.Errorf("%w: write of %d bytes at offset %d into %d byte buffer",
			ErrPayloadOutOfBounds, len(chunk), offset, len(p.Data))
	}
	copy(p.Data[offset:], chunk)
	return nil
}

// Commit seals the buffer once its content hashes to the expected hash
func (p *MessagePayload) Commit() error {
	if p.Committed {
		return ErrPayloadCommitted
	}
	if crypto.Keccak256Hash(p.Data) != p.ExpectedHash {
		return fmt.Errorf("%w: buffer hash %s", ErrPayloadHashMismatch, crypto.Keccak256Hash(p.Data))
	}
	p.Committed = true
	return nil
}

// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
)

// SigningVerifierSetInfo couples one signer's signature over the payload
// digest with the signer's commitment leaf and its inclusion proof
type SigningVerifierSetInfo struct {
	Signature Signature
	Leaf      VerifierSetLeaf
	Proof     []byte
}

// MerkleisedMessage couples a message leaf with its inclusion proof against
// the payload root
type MerkleisedMessage struct {
	Leaf  MessageLeaf
	Proof []byte
}

// MerkleisedPayload is the payload arm of execute data: a batch of messages
// or a rotation to a new verifier set. Exactly one arm is set.
type MerkleisedPayload struct {
	NewVerifierSetRoot *common.Hash `rlp:"nil"`
	Messages           []MerkleisedMessage
}

// Validate checks that exactly one payload arm is populated
func (p *MerkleisedPayload) Validate() error {
	rotation := p.NewVerifierSetRoot != nil
	messages := len(p.Messages) > 0
	switch {
	case rotation && messages:
		return errors.New("execute data payload carries both a rotation and messages")
	case !rotation && !messages:
		return errors.New("execute data payload is empty")
	}
	return nil
}

// IsRotation returns true if the payload rotates the verifier set
func (p *MerkleisedPayload) IsRotation() bool {
	return p.NewVerifierSetRoot != nil
}

// ExecuteData is everything a relayer needs to drive a payload through the
// gateway: the signing set's root, the signatures collected over the payload
// digest, and per-item proofs.
type ExecuteData struct {
	SigningVerifierSetRoot   common.Hash
	SigningVerifierSetLeaves []SigningVerifierSetInfo
	PayloadRoot              common.Hash
	Payload                  MerkleisedPayload
}

// Validate verifies the execute data is structurally sound
func (e *ExecuteData) Validate() error {
	if len(e.SigningVerifierSetLeaves) == 0 {
		return errors.New("execute data carries no signatures")
	}
	return e.Payload.Validate()
}

// PayloadDigest returns the digest the signing set signed over: the message
// root for an approval batch, the rotation digest for a rotation
func (e *ExecuteData) PayloadDigest() common.Hash {
	if e.Payload.IsRotation() {
		return RotationDigest(*e.Payload.NewVerifierSetRoot, e.SigningVerifierSetRoot)
	}
	return e.PayloadRoot
}

// Bytes returns the wire encoding of the execute data
func (e *ExecuteData) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, e)
	return b
}

// ParseExecuteData parses and validates execute data from bytes
func ParseExecuteData(b []byte) (*ExecuteData, error) {
	data := &ExecuteData{}
	if _, err := Codec.Unmarshal(b, data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execute data: %w", err)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

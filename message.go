// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"
)

const (
	CodecVersion = 0

	// MaxMessages is the number of messages one payload tree can commit to,
	// bounded by the uint16 leaf positions
	MaxMessages = math.MaxUint16
)

// CrossChainID identifies a message by its source chain and the message id
// assigned on that chain. The pair is globally unique.
type CrossChainID struct {
	Chain string
	ID    string
}

// String returns the id in its chain-qualified form
func (c CrossChainID) String() string {
	return c.Chain + "-" + c.ID
}

// Message is a cross-chain message routed through the gateway
type Message struct {
	CCID               CrossChainID
	SourceAddress      string
	DestinationChain   string
	DestinationAddress string
	PayloadHash        common.Hash
}

// Validate checks the message carries every addressing field
func (m *Message) Validate() error {
	switch {
	case m.CCID.Chain == "":
		return fmt.Errorf("message missing source chain")
	case m.CCID.ID == "":
		return fmt.Errorf("message missing id")
	case m.SourceAddress == "":
		return fmt.Errorf("message missing source address")
	case m.DestinationChain == "":
		return fmt.Errorf("message missing destination chain")
	case m.DestinationAddress == "":
		return fmt.Errorf("message missing destination address")
	}
	return nil
}

// CommandID derives the gateway-scoped id for a message. Source chains
// guarantee message id uniqueness, so the pair hashes to a unique command.
func CommandID(sourceChain, messageID string) ids.ID {
	return ids.ID(crypto.Keccak256Hash([]byte(sourceChain), []byte("-"), []byte(messageID)))
}

// CommandID returns the command id of the message
func (m *Message) CommandID() ids.ID {
	return CommandID(m.CCID.Chain, m.CCID.ID)
}

// canonical returns the canonical encoding of the message
func (m *Message) canonical() []byte {
	b := make([]byte, 0, 5*4+len(m.CCID.Chain)+len(m.CCID.ID)+len(m.SourceAddress)+
		len(m.DestinationChain)+len(m.DestinationAddress)+common.HashLength)
	b = appendString(b, m.CCID.Chain)
	b = appendString(b, m.CCID.ID)
	b = appendString(b, m.SourceAddress)
	b = appendString(b, m.DestinationChain)
	b = appendString(b, m.DestinationAddress)
	return append(b, m.PayloadHash[:]...)
}

// Hash returns the hash of the canonical message encoding. The approval
// ledger pins this hash so later executions can detect tampering.
func (m *Message) Hash() common.Hash {
	return crypto.Keccak256Hash(m.canonical())
}

// MessageLeaf places a message in a payload commitment tree. The leaf binds
// the message to the gateway's domain separator and to the verifier set that
// signs the payload, so an approval cannot be replayed across gateways or
// signing sets.
type MessageLeaf struct {
	Message                Message
	Position               uint16
	SetSize                uint16
	DomainSeparator        common.Hash
	SigningVerifierSetHash common.Hash
}

// Hash returns the leaf hash, tagged with the approve-messages command type
func (l *MessageLeaf) Hash() common.Hash {
	b := make([]byte, 0, 2*common.HashLength+4)
	b = append(b, l.DomainSeparator[:]...)
	b = append(b, l.SigningVerifierSetHash[:]...)
	b = binary.BigEndian.AppendUint16(b, l.Position)
	b = binary.BigEndian.AppendUint16(b, l.SetSize)
	b = append(b, l.Message.canonical()...)
	return crypto.Keccak256Hash([]byte{CommandApproveMessages}, b)
}

// MessageLeaves assigns tree positions to a batch of messages
func MessageLeaves(
	messages []Message,
	domainSeparator common.Hash,
	signingVerifierSetHash common.Hash,
) ([]MessageLeaf, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages")
	}
	if len(messages) > MaxMessages {
		return nil, fmt.Errorf("message count %d exceeds maximum %d", len(messages), MaxMessages)
	}

	leaves := make([]MessageLeaf, len(messages))
	for i, msg := range messages {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		leaves[i] = MessageLeaf{
			Message:                msg,
			Position:               uint16(i),
			SetSize:                uint16(len(messages)),
			DomainSeparator:        domainSeparator,
			SigningVerifierSetHash: signingVerifierSetHash,
		}
	}
	return leaves, nil
}

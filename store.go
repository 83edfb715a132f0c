// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"
)

// Store errors. Gateway operations translate these into coded errors at the
// point where the record's meaning is known.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")
)

// Store persists gateway state. Implementations must be safe for concurrent
// use on their own; the gateway serializes its check-then-act sequences above
// this interface. Create methods fail with ErrRecordExists when the record is
// present, Update methods fail with ErrRecordNotFound when it is not.
type Store interface {
	Config() (*Config, error)
	CreateConfig(cfg *Config) error
	UpdateConfig(cfg *Config) error

	Session(id ids.ID) (*VerificationSession, error)
	CreateSession(id ids.ID, session *VerificationSession) error
	UpdateSession(id ids.ID, session *VerificationSession) error

	Tracker(signersHash common.Hash) (*VerifierSetTracker, error)
	CreateTracker(tracker *VerifierSetTracker) error

	Message(commandID ids.ID) (*IncomingMessage, error)
	CreateMessage(commandID ids.ID, msg *IncomingMessage) error
	UpdateMessage(commandID ids.ID, msg *IncomingMessage) error

	Payload(id ids.ID) (*MessagePayload, error)
	CreatePayload(id ids.ID, payload *MessagePayload) error
	UpdatePayload(id ids.ID, payload *MessagePayload) error
	DeletePayload(id ids.ID) error
}

// Seed prefixes namespace derived record ids
const (
	sessionSeed = "verification-session"
	payloadSeed = "message-payload"
)

// SessionID derives the record id of a verification session. Sessions are
// keyed by both the payload digest and the signing set, so the same payload
// signed by two sets verifies in two independent sessions.
func SessionID(payloadDigest, signersHash common.Hash) ids.ID {
	return ids.ID(crypto.Keccak256Hash([]byte(sessionSeed), payloadDigest[:], signersHash[:]))
}

// PayloadID derives the record id of a staged payload buffer. Buffers are
// scoped to their uploader so concurrent uploads never interleave.
func PayloadID(commandID ids.ID, uploader common.Address) ids.ID {
	return ids.ID(crypto.Keccak256Hash([]byte(payloadSeed), commandID[:], uploader[:]))
}

// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package backend provides storage for gateway state.
package backend

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/gateway"
)

var _ gateway.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of the gateway store. Records
// are copied on the way in and out, so callers may mutate what they hold
// without aliasing stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	config   *gateway.Config
	sessions map[ids.ID]*gateway.VerificationSession
	trackers map[common.Hash]*gateway.VerifierSetTracker
	messages map[ids.ID]*gateway.IncomingMessage
	payloads map[ids.ID]*gateway.MessagePayload
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[ids.ID]*gateway.VerificationSession),
		trackers: make(map[common.Hash]*gateway.VerifierSetTracker),
		messages: make(map[ids.ID]*gateway.IncomingMessage),
		payloads: make(map[ids.ID]*gateway.MessagePayload),
	}
}

// Config returns the gateway config
func (s *MemoryStore) Config() (*gateway.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, fmt.Errorf("config: %w", gateway.ErrRecordNotFound)
	}
	cfg := *s.config
	return &cfg, nil
}

// CreateConfig stores the config
func (s *MemoryStore) CreateConfig(cfg *gateway.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return fmt.Errorf("config: %w", gateway.ErrRecordExists)
	}
	clone := *cfg
	s.config = &clone
	return nil
}

// UpdateConfig overwrites the config
func (s *MemoryStore) UpdateConfig(cfg *gateway.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return fmt.Errorf("config: %w", gateway.ErrRecordNotFound)
	}
	clone := *cfg
	s.config = &clone
	return nil
}

// Session returns a verification session by id
func (s *MemoryStore) Session(id ids.ID) (*gateway.VerificationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, gateway.ErrRecordNotFound)
	}
	return cloneSession(session), nil
}

// CreateSession stores a new verification session
func (s *MemoryStore) CreateSession(id ids.ID, session *gateway.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		return fmt.Errorf("session %s: %w", id, gateway.ErrRecordExists)
	}
	s.sessions[id] = cloneSession(session)
	return nil
}

// UpdateSession overwrites a verification session
func (s *MemoryStore) UpdateSession(id ids.ID, session *gateway.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, gateway.ErrRecordNotFound)
	}
	s.sessions[id] = cloneSession(session)
	return nil
}

// Tracker returns the tracker of a registered verifier set
func (s *MemoryStore) Tracker(signersHash common.Hash) (*gateway.VerifierSetTracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracker, ok := s.trackers[signersHash]
	if !ok {
		return nil, fmt.Errorf("tracker %s: %w", signersHash, gateway.ErrRecordNotFound)
	}
	clone := *tracker
	return &clone, nil
}

// CreateTracker registers a verifier set at its epoch
func (s *MemoryStore) CreateTracker(tracker *gateway.VerifierSetTracker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trackers[tracker.SignersHash]; ok {
		return fmt.Errorf("tracker %s: %w", tracker.SignersHash, gateway.ErrRecordExists)
	}
	clone := *tracker
	s.trackers[tracker.SignersHash] = &clone
	return nil
}

// Message returns the approval record of a command id
func (s *MemoryStore) Message(commandID ids.ID) (*gateway.IncomingMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[commandID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", commandID, gateway.ErrRecordNotFound)
	}
	clone := *msg
	return &clone, nil
}

// CreateMessage stores a new approval record. The first writer wins.
func (s *MemoryStore) CreateMessage(commandID ids.ID, msg *gateway.IncomingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[commandID]; ok {
		return fmt.Errorf("message %s: %w", commandID, gateway.ErrRecordExists)
	}
	clone := *msg
	s.messages[commandID] = &clone
	return nil
}

// UpdateMessage overwrites an approval record
func (s *MemoryStore) UpdateMessage(commandID ids.ID, msg *gateway.IncomingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[commandID]; !ok {
		return fmt.Errorf("message %s: %w", commandID, gateway.ErrRecordNotFound)
	}
	clone := *msg
	s.messages[commandID] = &clone
	return nil
}

// Payload returns a staged payload buffer
func (s *MemoryStore) Payload(id ids.ID) (*gateway.MessagePayload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.payloads[id]
	if !ok {
		return nil, fmt.Errorf("payload %s: %w", id, gateway.ErrRecordNotFound)
	}
	return clonePayload(payload), nil
}

// CreatePayload stores a new staged payload buffer
func (s *MemoryStore) CreatePayload(id ids.ID, payload *gateway.MessagePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payloads[id]; ok {
		return fmt.Errorf("payload %s: %w", id, gateway.ErrRecordExists)
	}
	s.payloads[id] = clonePayload(payload)
	return nil
}

// UpdatePayload overwrites a staged payload buffer
func (s *MemoryStore) UpdatePayload(id ids.ID, payload *gateway.MessagePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payloads[id]; !ok {
		return fmt.Errorf("payload %s: %w", id, gateway.ErrRecordNotFound)
	}
	s.payloads[id] = clonePayload(payload)
	return nil
}

// DeletePayload discards a staged payload buffer
func (s *MemoryStore) DeletePayload(id ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payloads[id]; !ok {
		return fmt.Errorf("payload %s: %w", id, gateway.ErrRecordNotFound)
	}
	delete(s.payloads, id)
	return nil
}

func cloneSession(session *gateway.VerificationSession) *gateway.VerificationSession {
	clone := &gateway.VerificationSession{SignersHash: session.SignersHash}
	if session.AccumulatedWeight != nil {
		clone.AccumulatedWeight = new(uint256.Int).Set(session.AccumulatedWeight)
	}
	if session.SignatureSlots != nil {
		clone.SignatureSlots = make(gateway.Bits, len(session.SignatureSlots))
		copy(clone.SignatureSlots, session.SignatureSlots)
	}
	return clone
}

func clonePayload(payload *gateway.MessagePayload) *gateway.MessagePayload {
	clone := &gateway.MessagePayload{
		ExpectedHash: payload.ExpectedHash,
		Committed:    payload.Committed,
	}
	if payload.Data != nil {
		clone.Data = make([]byte, len(payload.Data))
		copy(clone.Data, payload.Data)
	}
	return clone
}

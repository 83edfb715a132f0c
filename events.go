// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
)

// Event is a gateway lifecycle event
type Event interface {
	// Type returns the event name
	Type() string
}

// ContractCallEvent records an outbound contract call leaving this chain
type ContractCallEvent struct {
	Sender                     common.Address
	DestinationChain           string
	DestinationContractAddress string
	PayloadHash                common.Hash
	Payload                    []byte
}

func (ContractCallEvent) Type() string { return "contract_call" }

// MessageApprovedEvent records an inbound message reaching approved status
type MessageApprovedEvent struct {
	CommandID          ids.ID
	SourceChain        string
	MessageID          string
	SourceAddress      string
	DestinationChain   string
	DestinationAddress string
	PayloadHash        common.Hash
}

func (MessageApprovedEvent) Type() string { return "message_approved" }

// MessageExecutedEvent records an approved message being consumed by its
// destination
type MessageExecutedEvent struct {
	CommandID          ids.ID
	SourceChain        string
	MessageID          string
	SourceAddress      string
	DestinationChain   string
	DestinationAddress string
	PayloadHash        common.Hash
}

func (MessageExecutedEvent) Type() string { return "message_executed" }

// VerifierSetRotatedEvent records a rotation to a new verifier set
type VerifierSetRotatedEvent struct {
	Epoch           uint64
	VerifierSetHash common.Hash
}

func (VerifierSetRotatedEvent) Type() string { return "verifier_set_rotated" }

// OperatorshipTransferredEvent records an operator change
type OperatorshipTransferredEvent struct {
	NewOperator common.Address
}

func (OperatorshipTransferredEvent) Type() string { return "operatorship_transferred" }

// Emitter fans gateway events out to subscribers over buffered channels.
// Delivery never blocks an operation: a subscriber whose buffer is full
// misses the event and a warning is logged.
type Emitter struct {
	log  log.Logger
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewEmitter creates an emitter
func NewEmitter(logger log.Logger) *Emitter {
	return &Emitter{
		log:  logger,
		subs: make(map[int]chan Event),
	}
}

// Subscribe registers a subscription with the given buffer size. The cancel
// func unregisters it and closes the channel; cancelling twice is safe.
func (e *Emitter) Subscribe(buffer int) (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	ch := make(chan Event, buffer)
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Emit delivers the event to every subscriber
func (e *Emitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subs {
		select {
		case ch <- event:
		default:
			e.log.Warn("dropping event for slow subscriber",
				log.String("type", event.Type()),
			)
		}
	}
}

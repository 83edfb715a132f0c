// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"testing"

	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestEmitterFanOut(t *testing.T) {
	emitter := NewEmitter(log.NewNoOpLogger())

	first, cancelFirst := emitter.Subscribe(1)
	second, cancelSecond := emitter.Subscribe(1)
	defer cancelFirst()
	defer cancelSecond()

	event := VerifierSetRotatedEvent{
		Epoch:           2,
		VerifierSetHash: crypto.Keccak256Hash([]byte("set")),
	}
	emitter.Emit(event)

	require.Equal(t, event, <-first)
	require.Equal(t, event, <-second)
}

func TestEmitterDropsWhenBufferFull(t *testing.T) {
	emitter := NewEmitter(log.NewNoOpLogger())

	ch, cancel := emitter.Subscribe(1)
	defer cancel()

	emitter.Emit(OperatorshipTransferredEvent{})
	// Buffer is full now, the second event is dropped rather than blocking
	emitter.Emit(VerifierSetRotatedEvent{Epoch: 9})

	require.Equal(t, OperatorshipTransferredEvent{}, <-ch)
	select {
	case event := <-ch:
		t.Fatalf("unexpected event %v", event)
	default:
	}
}

func TestEmitterCancel(t *testing.T) {
	emitter := NewEmitter(log.NewNoOpLogger())

	ch, cancel := emitter.Subscribe(0)
	cancel()
	// Cancelling twice is safe
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Emitting after cancel reaches nobody
	emitter.Emit(OperatorshipTransferredEvent{})
}

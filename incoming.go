// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/geth/common"
)

// MessageStatus is the lifecycle state of an approved message
type MessageStatus uint8

const (
	// StatusApproved means the message passed quorum verification and is
	// waiting for its destination to execute it
	StatusApproved MessageStatus = iota + 1
	// StatusExecuted means the destination validated and consumed the
	// message
	StatusExecuted
)

// String returns a human readable status
func (s MessageStatus) String() string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// IncomingMessage is the approval ledger record for one command id. The
// first approval writes it; execution flips the status. The message hash pins
// the full message so execution can detect tampering with any field.
type IncomingMessage struct {
	Status      MessageStatus
	MessageHash common.Hash
	PayloadHash common.Hash
}

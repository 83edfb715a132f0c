// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"
	"fmt"
)

// Error is a coded gateway error. Codes below 500 mean the step was already
// performed by another actor or the submitted item was individually invalid;
// a relayer driving a batch may treat those as success for that step and move
// on. Codes of 500 and above mean the submission itself is wrong and retrying
// it unchanged can never succeed.
type Error struct {
	Code    int32
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

// Is matches errors by code so decoded copies compare equal to the
// package-level values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

const irrecoverableCodeFloor = 500

var (
	// Idempotency class: another actor already performed the step, or the
	// individual item was rejected without poisoning its batch.
	ErrSessionAlreadyInitialized     = &Error{Code: 100, Message: "verification session already initialized"}
	ErrSlotAlreadyVerified           = &Error{Code: 101, Message: "signature slot already verified"}
	ErrSigningSessionComplete        = &Error{Code: 102, Message: "signing session already reached quorum"}
	ErrMessageAlreadyInitialized     = &Error{Code: 103, Message: "message already approved"}
	ErrVerifierSetAlreadyInitialized = &Error{Code: 104, Message: "verifier set already registered"}
	ErrSlotOutOfBounds               = &Error{Code: 105, Message: "signature slot out of bounds"}
	ErrInvalidSignature              = &Error{Code: 106, Message: "invalid digital signature"}
	ErrInvalidMerkleProof            = &Error{Code: 107, Message: "invalid merkle proof"}
	ErrLeafNotInMerkleRoot           = &Error{Code: 108, Message: "leaf node not part of merkle root"}
	ErrInvalidDestinationAddress     = &Error{Code: 109, Message: "invalid destination address"}
	ErrPayloadAlreadyInitialized     = &Error{Code: 110, Message: "message payload already initialized"}
	ErrPayloadCommitted              = &Error{Code: 111, Message: "message payload already committed"}

	// Irrecoverable class: the submission is wrong as constructed.
	ErrEpochOverflow            = &Error{Code: 500, Message: "epoch calculation overflow"}
	ErrVerifierSetTooOld        = &Error{Code: 501, Message: "verifier set too old"}
	ErrSigningSessionNotValid   = &Error{Code: 502, Message: "signing session not valid"}
	ErrNotLatestVerifierSet     = &Error{Code: 503, Message: "proof not signed by latest verifier set"}
	ErrRotationCooldown         = &Error{Code: 504, Message: "rotation cooldown not done"}
	ErrNotAuthorized            = &Error{Code: 505, Message: "caller is not the operator or upgrade authority"}
	ErrMessageNotApproved       = &Error{Code: 506, Message: "message not approved"}
	ErrMessageTampered          = &Error{Code: 507, Message: "message does not match its approved hash"}
	ErrDestinationMismatch      = &Error{Code: 508, Message: "caller is not the destination address"}
	ErrInvalidDomainSeparator   = &Error{Code: 509, Message: "invalid domain separator"}
	ErrSessionNotFound          = &Error{Code: 510, Message: "verification session not found"}
	ErrSignerSetNotRegistered   = &Error{Code: 511, Message: "signing verifier set not registered"}
	ErrMessageNotInitialized    = &Error{Code: 512, Message: "message not initialized"}
	ErrConfigAlreadyInitialized = &Error{Code: 513, Message: "gateway config already initialized"}
	ErrConfigNotInitialized     = &Error{Code: 514, Message: "gateway config not initialized"}
	ErrPayloadNotInitialized    = &Error{Code: 515, Message: "message payload not initialized"}
	ErrPayloadHashMismatch      = &Error{Code: 516, Message: "message payload does not hash to the approved payload hash"}
	ErrPayloadOutOfBounds       = &Error{Code: 517, Message: "message payload write out of bounds"}
	ErrPayloadChunkTooLarge     = &Error{Code: 518, Message: "message payload chunk exceeds the step ceiling"}
)

// Class partitions gateway errors by how a submitter should react.
type Class int

const (
	// ClassUnknown marks errors that did not originate from a gateway op.
	ClassUnknown Class = iota
	// ClassIdempotent marks steps already done by another actor; a relayer
	// may count the step as succeeded.
	ClassIdempotent
	// ClassIrrecoverable marks submissions that are invalid as constructed.
	ClassIrrecoverable
)

// Classify returns the class of the first gateway error in the chain.
func Classify(err error) Class {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return ClassUnknown
	}
	if gwErr.Code < irrecoverableCodeFloor {
		return ClassIdempotent
	}
	return ClassIrrecoverable
}

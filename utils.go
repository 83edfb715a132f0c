// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"
	"math"
)

// Constants
const (
	// KiB is 1024 bytes
	KiB = 1024

	// MiB is 1024 KiB
	MiB = 1024 * KiB

	// SignatureLen is the length of a recoverable secp256k1 signature,
	// r and s followed by the recovery id
	SignatureLen = 65

	// PublicKeyLen is the length of a compressed secp256k1 public key
	PublicKeyLen = 33

	// MaxPayloadChunk is the ceiling on the bytes a single staging write
	// may carry
	MaxPayloadChunk = 10 * KiB

	// MaxStagedPayload is the ceiling on a staged payload buffer
	MaxStagedPayload = 10 * MiB
)

// AddUint64 adds two uint64 values and returns an error if overflow
func AddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, errors.New("addition would overflow")
	}
	return a + b, nil
}

// SubUint64 subtracts b from a and returns an error if underflow
func SubUint64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errors.New("subtraction would underflow")
	}
	return a - b, nil
}

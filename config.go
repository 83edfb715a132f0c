// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"fmt"
	"time"

	"github.com/luxfi/geth/common"
)

// Config is the gateway's root record: the operator, the domain separator
// scoping every digest, and the rotation bookkeeping.
type Config struct {
	Operator                 common.Address
	DomainSeparator          common.Hash
	CurrentEpoch             uint64
	PreviousSignersRetention uint64
	MinimumRotationDelay     time.Duration
	LastRotation             time.Time
}

// AssertValidEpoch checks a verifier set's registration epoch against the
// retention policy. A retention of 1 admits only the current set.
func (c *Config) AssertValidEpoch(epoch uint64) error {
	elapsed, err := SubUint64(c.CurrentEpoch, epoch)
	if err != nil {
		return fmt.Errorf("%w: epoch %d is ahead of current epoch %d", ErrEpochOverflow, epoch, c.CurrentEpoch)
	}
	if elapsed >= c.PreviousSignersRetention {
		return fmt.Errorf("%w: epoch %d is %d rotations behind current epoch %d, retention is %d",
			ErrVerifierSetTooOld, epoch, elapsed, c.CurrentEpoch, c.PreviousSignersRetention)
	}
	return nil
}

// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/geth/common"
)

// VerifierSetTracker registers one verifier set under the epoch it was
// rotated in. Epochs start at 1 and step by exactly 1, so no two sets ever
// share an epoch.
type VerifierSetTracker struct {
	Epoch       uint64
	SignersHash common.Hash
}

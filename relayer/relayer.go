// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer drives execute data through a gateway step by step. Every
// submission tolerates steps another relayer landed first, so any number of
// relayers can push the same batch concurrently.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/metric"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/cache"
	"github.com/luxfi/gateway/relayer/config"
)

const (
	completedSessionCacheSize = 1024
	approvedCommandCacheSize  = 8192
)

// errSessionIncomplete keeps incomplete completion checks out of the cache.
// Completion is monotonic, so only true results are safe to memoize.
var errSessionIncomplete = errors.New("verification session incomplete")

// Client is the gateway surface the relayer submits to. *gateway.Gateway
// implements it.
type Client interface {
	InitializeVerificationSession(payloadDigest, signersHash common.Hash) error
	VerifySignature(payloadDigest, signersHash common.Hash, info *gateway.SigningVerifierSetInfo) error
	SessionComplete(payloadDigest, signersHash common.Hash) (bool, error)
	ApproveMessage(payloadRoot, signersHash common.Hash, msg *gateway.MerkleisedMessage) error
	RotateSigners(newVerifierSetRoot, signingVerifierSetRoot common.Hash, caller common.Address) error
	InitializeMessagePayload(commandID ids.ID, uploader common.Address, size uint64) error
	WriteMessagePayload(commandID ids.ID, uploader common.Address, offset uint64, chunk []byte) error
	CommitMessagePayload(commandID ids.ID, uploader common.Address) error
}

// Relayer submits execute data and staged payloads to a gateway
type Relayer struct {
	log     log.Logger
	client  Client
	caller  common.Address
	cfg     config.Config
	metrics *metrics

	completedSessions *cache.LRUCache[ids.ID, bool]
	approvedCommands  *cache.FIFOCache[ids.ID, bool]
}

// New creates a relayer that submits to client as caller
func New(
	logger log.Logger,
	client Client,
	caller common.Address,
	cfg config.Config,
	registerer metric.Registerer,
) (*Relayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Relayer{
		log:               logger,
		client:            client,
		caller:            caller,
		cfg:               cfg,
		metrics:           m,
		completedSessions: cache.NewLRUCache[ids.ID, bool](completedSessionCacheSize),
		approvedCommands:  cache.NewFIFOCache[ids.ID, bool](approvedCommandCacheSize),
	}, nil
}

// Relay drives execute data to completion: it finishes the signature
// verification session for the payload digest, then applies the rotation or
// approves every message the payload carries.
func (r *Relayer) Relay(ctx context.Context, data *gateway.ExecuteData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid execute data: %w", err)
	}
	r.metrics.RelaysStarted.Inc()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	if err := r.relaySignatures(ctx, data); err != nil {
		r.metrics.RelaysFailed.Inc()
		return err
	}

	var err error
	if data.Payload.IsRotation() {
		err = r.relayRotation(data)
	} else {
		err = r.relayMessages(ctx, data)
	}
	if err != nil {
		r.metrics.RelaysFailed.Inc()
		return err
	}
	r.metrics.RelaysSucceeded.Inc()
	return nil
}

// relaySignatures submits signatures until the session reaches quorum. The
// completion check runs before every submission so the relayer stops as soon
// as enough weight has accumulated, wherever it came from.
func (r *Relayer) relaySignatures(ctx context.Context, data *gateway.ExecuteData) error {
	var (
		digest = data.PayloadDigest()
		root   = data.SigningVerifierSetRoot
	)

	err := r.client.InitializeVerificationSession(digest, root)
	if err != nil && gateway.Classify(err) != gateway.ClassIdempotent {
		return fmt.Errorf("failed to initialize verification session: %w", err)
	}

	for i := range data.SigningVerifierSetLeaves {
		info := &data.SigningVerifierSetLeaves[i]

		done, err := r.sessionComplete(digest, root)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if err := r.verifyWithRetry(ctx, digest, root, info); err != nil {
			return fmt.Errorf("failed to verify signature at position %d: %w", info.Leaf.Position, err)
		}
	}

	done, err := r.sessionComplete(digest, root)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf(
			"session %s below quorum after %d signatures",
			gateway.SessionID(digest, root),
			len(data.SigningVerifierSetLeaves),
		)
	}
	return nil
}

// sessionComplete memoizes completed sessions so replayed batches skip the
// gateway round trip
func (r *Relayer) sessionComplete(digest, signersHash common.Hash) (bool, error) {
	done, err := r.completedSessions.Get(
		gateway.SessionID(digest, signersHash),
		func(ids.ID) (bool, error) {
			done, err := r.client.SessionComplete(digest, signersHash)
			if err != nil {
				return false, err
			}
			if !done {
				return false, errSessionIncomplete
			}
			return true, nil
		},
		false,
	)
	if errors.Is(err, errSessionIncomplete) {
		return false, nil
	}
	return done, err
}

// verifyWithRetry submits one signature with exponential backoff. Slots
// another relayer verified count as success; submissions the gateway marks
// irrecoverable stop the retry loop.
func (r *Relayer) verifyWithRetry(
	ctx context.Context,
	digest, signersHash common.Hash,
	info *gateway.SigningVerifierSetInfo,
) error {
	operation := func() error {
		err := r.client.VerifySignature(digest, signersHash, info)
		if gateway.Classify(err) == gateway.ClassIdempotent {
			err = nil
		}
		r.metrics.submission(r.metrics.SignaturesRelayed, err)
		if gateway.Classify(err) == gateway.ClassIrrecoverable {
			return backoff.Permanent(err)
		}
		return err
	}
	expBackOff := backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(r.cfg.MaxRetryElapsedTime))
	notify := func(err error, duration time.Duration) {
		r.log.Warn("failed to verify signature, retrying",
			log.Uint64("position", uint64(info.Leaf.Position)),
			log.Stringer("retryIn", duration),
			log.Err(err),
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(expBackOff, ctx), notify)
}

func (r *Relayer) relayRotation(data *gateway.ExecuteData) error {
	newRoot := *data.Payload.NewVerifierSetRoot

	err := r.client.RotateSigners(newRoot, data.SigningVerifierSetRoot, r.caller)
	if err != nil && gateway.Classify(err) != gateway.ClassIdempotent {
		return fmt.Errorf("failed to rotate signers: %w", err)
	}
	r.metrics.Rotations.Inc()
	r.log.Info("relayed verifier set rotation",
		log.Stringer("newVerifierSetRoot", newRoot),
	)
	return nil
}

// relayMessages approves the batch concurrently. Duplicate command ids in
// one batch collapse to a single submission.
func (r *Relayer) relayMessages(ctx context.Context, data *gateway.ExecuteData) error {
	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.SetLimit(r.cfg.ApprovalConcurrency)

	seen := set.NewSet[ids.ID](len(data.Payload.Messages))
	for i := range data.Payload.Messages {
		msg := &data.Payload.Messages[i]
		commandID := msg.Leaf.Message.CommandID()
		if seen.Contains(commandID) {
			continue
		}
		seen.Add(commandID)

		errGroup.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.approveMessage(data.PayloadRoot, data.SigningVerifierSetRoot, commandID, msg)
		})
	}
	return errGroup.Wait()
}

// approveMessage submits one approval, memoizing commands that landed so
// replayed batches skip them
func (r *Relayer) approveMessage(
	payloadRoot, signersHash common.Hash,
	commandID ids.ID,
	msg *gateway.MerkleisedMessage,
) error {
	_, err := r.approvedCommands.Get(commandID, func(ids.ID) (bool, error) {
		err := r.client.ApproveMessage(payloadRoot, signersHash, msg)
		if gateway.Classify(err) == gateway.ClassIdempotent {
			err = nil
		}
		r.metrics.submission(r.metrics.MessagesSubmitted, err)
		if err != nil {
			return false, fmt.Errorf("failed to approve message %s: %w", commandID, err)
		}
		return true, nil
	})
	return err
}

// RelayPayload stages a message payload with the gateway in bounded chunks
// and commits it. The gateway checks the committed bytes against the
// approved payload hash, so relaying a payload needs no signatures.
func (r *Relayer) RelayPayload(ctx context.Context, commandID ids.ID, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	err := r.client.InitializeMessagePayload(commandID, r.caller, uint64(len(payload)))
	if err != nil && gateway.Classify(err) != gateway.ClassIdempotent {
		return fmt.Errorf("failed to initialize payload staging: %w", err)
	}

	for offset := 0; offset < len(payload); offset += gateway.MaxPayloadChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := payload[offset:min(offset+gateway.MaxPayloadChunk, len(payload))]

		err := r.client.WriteMessagePayload(commandID, r.caller, uint64(offset), chunk)
		if gateway.Classify(err) == gateway.ClassIdempotent {
			// Another relayer already committed this payload.
			break
		}
		if err != nil {
			return fmt.Errorf("failed to write payload chunk at offset %d: %w", offset, err)
		}
		r.metrics.PayloadChunks.Inc()
		r.metrics.PayloadBytesWritten.Add(float64(len(chunk)))
	}

	err = r.client.CommitMessagePayload(commandID, r.caller)
	if err != nil && gateway.Classify(err) != gateway.ClassIdempotent {
		return fmt.Errorf("failed to commit payload: %w", err)
	}
	r.log.Debug("staged message payload",
		log.Stringer("command", commandID),
		log.Int("bytes", len(payload)),
	)
	return nil
}

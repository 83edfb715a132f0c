// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway implements the approval core of a cross-chain gateway:
// weighted verifier sets committed to by merkle roots, incremental signature
// verification sessions, a first-writer-wins message approval ledger, and
// epoch-based verifier set rotation.
package gateway

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/gateway/merkle"
)

// initialEpoch is the epoch assigned to the verifier set the gateway is
// initialized with
const initialEpoch uint64 = 1

// Gateway executes the approval and rotation protocol over a Store. Every
// exported operation is one atomic step: all checks run before any write,
// serialized by the gateway mutex. Concurrent callers interleave at step
// granularity only.
type Gateway struct {
	log              log.Logger
	store            Store
	events           *Emitter
	metrics          *Metrics
	upgradeAuthority common.Address
	now              func() time.Time

	mu sync.Mutex
}

// New creates a gateway over the given store. The upgrade authority may
// transfer operatorship alongside the operator itself.
func New(
	logger log.Logger,
	store Store,
	events *Emitter,
	registerer metric.Registerer,
	upgradeAuthority common.Address,
) (*Gateway, error) {
	metrics, err := NewMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	if events == nil {
		events = NewEmitter(logger)
	}
	return &Gateway{
		log:              logger,
		store:            store,
		events:           events,
		metrics:          metrics,
		upgradeAuthority: upgradeAuthority,
		now:              time.Now,
	}, nil
}

// Events returns the gateway's event emitter
func (g *Gateway) Events() *Emitter {
	return g.events
}

// InitParams seeds the gateway config
type InitParams struct {
	Operator                 common.Address
	DomainSeparator          common.Hash
	PreviousSignersRetention uint64
	MinimumRotationDelay     time.Duration
	InitialSignersHash       common.Hash
}

// InitializeConfig creates the gateway config and registers the initial
// verifier set at the first epoch.
func (g *Gateway) InitializeConfig(params InitParams) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.store.Config(); err == nil {
		return ErrConfigAlreadyInitialized
	} else if !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	if params.PreviousSignersRetention == 0 {
		return errors.New("previous signers retention must be at least 1")
	}
	if params.InitialSignersHash == (common.Hash{}) {
		return errors.New("initial signers hash must not be zero")
	}

	tracker := &VerifierSetTracker{
		Epoch:       initialEpoch,
		SignersHash: params.InitialSignersHash,
	}
	if err := g.store.CreateTracker(tracker); err != nil {
		return fmt.Errorf("failed to register initial verifier set: %w", err)
	}

	cfg := &Config{
		Operator:                 params.Operator,
		DomainSeparator:          params.DomainSeparator,
		CurrentEpoch:             initialEpoch,
		PreviousSignersRetention: params.PreviousSignersRetention,
		MinimumRotationDelay:     params.MinimumRotationDelay,
		LastRotation:             g.now(),
	}
	if err := g.store.CreateConfig(cfg); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	g.metrics.CurrentEpoch.Set(float64(initialEpoch))
	g.log.Info("gateway config initialized",
		log.Stringer("operator", params.Operator),
		log.Stringer("signersHash", params.InitialSignersHash),
		log.Uint64("retention", params.PreviousSignersRetention),
	)
	return nil
}

// Config returns a copy of the gateway config
func (g *Gateway) Config() (Config, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg, err := g.config()
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

// InitializeVerificationSession creates the session that will verify
// signatures from the given verifier set over the given payload digest. The
// set must be registered and within the retention policy.
func (g *Gateway) InitializeVerificationSession(payloadDigest, signersHash common.Hash) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg, err := g.config()
	if err != nil {
		return err
	}
	tracker, err := g.tracker(signersHash)
	if err != nil {
		return err
	}
	if err := cfg.AssertValidEpoch(tracker.Epoch); err != nil {
		return err
	}

	id := SessionID(payloadDigest, signersHash)
	if err := g.store.CreateSession(id, NewVerificationSession(signersHash)); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return fmt.Errorf("%w: %s", ErrSessionAlreadyInitialized, id)
		}
		return err
	}

	g.metrics.SessionsInitialized.Inc()
	g.log.Debug("verification session initialized",
		log.Stringer("payloadDigest", payloadDigest),
		log.Stringer("signersHash", signersHash),
	)
	return nil
}

// VerifySignature verifies one signature over the payload digest and adds its
// weight to the session. Steps commute: any order of distinct valid
// signatures reaching the quorum completes the session, after which further
// steps fail with ErrSigningSessionComplete.
func (g *Gateway) VerifySignature(payloadDigest, signersHash common.Hash, info *SigningVerifierSetInfo) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := SessionID(payloadDigest, signersHash)
	session, err := g.store.Session(id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return err
	}

	err = session.ProcessSignature(payloadDigest, info)
	g.metrics.signatureStep(err)
	if err != nil {
		return err
	}
	if err := g.store.UpdateSession(id, session); err != nil {
		return err
	}

	if session.IsComplete() {
		g.metrics.SessionsCompleted.Inc()
		g.log.Debug("verification session reached quorum",
			log.Stringer("payloadDigest", payloadDigest),
			log.Stringer("signersHash", signersHash),
			log.Int("signatures", session.SignatureSlots.Len()),
		)
	}
	return nil
}

// SessionComplete reports whether the session has reached its quorum
func (g *Gateway) SessionComplete(payloadDigest, signersHash common.Hash) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, err := g.store.Session(SessionID(payloadDigest, signersHash))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return false, ErrSessionNotFound
		}
		return false, err
	}
	return session.IsComplete(), nil
}

// ApproveMessage records a single message approval backed by a completed
// verification session. The first writer wins; later approvals of the same
// command id fail with ErrMessageAlreadyInitialized.
func (g *Gateway) ApproveMessage(payloadRoot, signersHash common.Hash, msg *MerkleisedMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.approveMessage(payloadRoot, signersHash, msg)
}

// ApproveMessages approves a batch. Element i of the result is the outcome
// for messages[i]; one rejected message never blocks its neighbors.
func (g *Gateway) ApproveMessages(payloadRoot, signersHash common.Hash, messages []MerkleisedMessage) []error {
	g.mu.Lock()
	defer g.mu.Unlock()

	errs := make([]error, len(messages))
	for i := range messages {
		errs[i] = g.approveMessage(payloadRoot, signersHash, &messages[i])
	}
	return errs
}

func (g *Gateway) approveMessage(payloadRoot, signersHash common.Hash, msg *MerkleisedMessage) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}

	session, err := g.store.Session(SessionID(payloadRoot, signersHash))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: no session for payload %s", ErrSigningSessionNotValid, payloadRoot)
		}
		return err
	}
	if !session.IsComplete() {
		return fmt.Errorf("%w: quorum not reached", ErrSigningSessionNotValid)
	}

	// The signing set must still be within the retention policy at approval
	// time, not only when the session was initialized.
	tracker, err := g.tracker(signersHash)
	if err != nil {
		return err
	}
	if err := cfg.AssertValidEpoch(tracker.Epoch); err != nil {
		return err
	}

	leaf := &msg.Leaf
	if err := leaf.Message.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrLeafNotInMerkleRoot, err)
	}
	if leaf.DomainSeparator != cfg.DomainSeparator {
		return fmt.Errorf("%w: leaf carries %s", ErrInvalidDomainSeparator, leaf.DomainSeparator)
	}
	if leaf.SigningVerifierSetHash != signersHash {
		return fmt.Errorf("%w: leaf bound to signing set %s", ErrSigningSessionNotValid, leaf.SigningVerifierSetHash)
	}

	proof, err := merkle.ProofFromBytes(msg.Proof)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLeafNotInMerkleRoot, err)
	}
	if !proof.Verify(payloadRoot, int(leaf.Position), leaf.Hash(), int(leaf.SetSize)) {
		return fmt.Errorf("%w: position %d", ErrLeafNotInMerkleRoot, leaf.Position)
	}

	commandID := leaf.Message.CommandID()
	record := &IncomingMessage{
		Status:      StatusApproved,
		MessageHash: leaf.Message.Hash(),
		PayloadHash: leaf.Message.PayloadHash,
	}
	if err := g.store.CreateMessage(commandID, record); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return fmt.Errorf("%w: command %s", ErrMessageAlreadyInitialized, commandID)
		}
		return err
	}

	g.metrics.MessagesApproved.Inc()
	g.events.Emit(MessageApprovedEvent{
		CommandID:          commandID,
		SourceChain:        leaf.Message.CCID.Chain,
		MessageID:          leaf.Message.CCID.ID,
		SourceAddress:      leaf.Message.SourceAddress,
		DestinationChain:   leaf.Message.DestinationChain,
		DestinationAddress: leaf.Message.DestinationAddress,
		PayloadHash:        leaf.Message.PayloadHash,
	})
	g.log.Info("message approved",
		log.Stringer("command", commandID),
		log.String("sourceChain", leaf.Message.CCID.Chain),
		log.UserString("messageID", leaf.Message.CCID.ID),
	)
	return nil
}

// RotateSigners advances the gateway to a new verifier set. The rotation
// must be signed by the latest set; that rule binds the operator too. The
// operator's only privilege is bypassing the minimum rotation delay.
func (g *Gateway) RotateSigners(newVerifierSetRoot, signingVerifierSetRoot common.Hash, caller common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg, err := g.config()
	if err != nil {
		return err
	}
	if newVerifierSetRoot == (common.Hash{}) {
		return errors.New("new verifier set root must not be zero")
	}

	digest := RotationDigest(newVerifierSetRoot, signingVerifierSetRoot)
	session, err := g.store.Session(SessionID(digest, signingVerifierSetRoot))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: no session for rotation digest %s", ErrSigningSessionNotValid, digest)
		}
		return err
	}
	if !session.IsComplete() {
		return fmt.Errorf("%w: quorum not reached", ErrSigningSessionNotValid)
	}

	signingTracker, err := g.tracker(signingVerifierSetRoot)
	if err != nil {
		return err
	}

	// The duplicate check runs before the latest-set check. A relayer that
	// lost a race to land this same rotation is told the set is already
	// registered, not that its signing set went stale a moment ago.
	if _, err := g.store.Tracker(newVerifierSetRoot); err == nil {
		return fmt.Errorf("%w: %s", ErrVerifierSetAlreadyInitialized, newVerifierSetRoot)
	} else if !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	if signingTracker.Epoch != cfg.CurrentEpoch {
		return fmt.Errorf("%w: signed by epoch %d, current epoch is %d",
			ErrNotLatestVerifierSet, signingTracker.Epoch, cfg.CurrentEpoch)
	}

	if caller != cfg.Operator {
		if elapsed := g.now().Sub(cfg.LastRotation); elapsed < cfg.MinimumRotationDelay {
			return fmt.Errorf("%w: %s since last rotation, minimum is %s",
				ErrRotationCooldown, elapsed, cfg.MinimumRotationDelay)
		}
	}

	epoch, err := AddUint64(cfg.CurrentEpoch, 1)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEpochOverflow, err)
	}
	if err := g.store.CreateTracker(&VerifierSetTracker{
		Epoch:       epoch,
		SignersHash: newVerifierSetRoot,
	}); err != nil {
		return err
	}
	cfg.CurrentEpoch = epoch
	cfg.LastRotation = g.now()
	if err := g.store.UpdateConfig(cfg); err != nil {
		return err
	}

	g.metrics.Rotations.Inc()
	g.metrics.CurrentEpoch.Set(float64(epoch))
	g.events.Emit(VerifierSetRotatedEvent{
		Epoch:           epoch,
		VerifierSetHash: newVerifierSetRoot,
	})
	g.log.Info("verifier set rotated",
		log.Uint64("epoch", epoch),
		log.Stringer("verifierSet", newVerifierSetRoot),
	)
	return nil
}

// ValidateMessage marks an approved message executed. Only the destination
// address may execute, and the message must match the approved hash in every
// field.
func (g *Gateway) ValidateMessage(msg *Message, caller common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	commandID := msg.CommandID()
	record, err := g.store.Message(commandID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: command %s", ErrMessageNotApproved, commandID)
		}
		return err
	}
	if record.Status != StatusApproved {
		return fmt.Errorf("%w: command %s is %s", ErrMessageNotApproved, commandID, record.Status)
	}
	if msg.Hash() != record.MessageHash {
		return fmt.Errorf("%w: command %s", ErrMessageTampered, commandID)
	}
	if !common.IsHexAddress(msg.DestinationAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidDestinationAddress, msg.DestinationAddress)
	}
	if common.HexToAddress(msg.DestinationAddress) != caller {
		return fmt.Errorf("%w: caller %s, destination %s", ErrDestinationMismatch, caller, msg.DestinationAddress)
	}

	record.Status = StatusExecuted
	if err := g.store.UpdateMessage(commandID, record); err != nil {
		return err
	}

	g.metrics.MessagesExecuted.Inc()
	g.events.Emit(MessageExecutedEvent{
		CommandID:          commandID,
		SourceChain:        msg.CCID.Chain,
		MessageID:          msg.CCID.ID,
		SourceAddress:      msg.SourceAddress,
		DestinationChain:   msg.DestinationChain,
		DestinationAddress: msg.DestinationAddress,
		PayloadHash:        msg.PayloadHash,
	})
	g.log.Info("message executed",
		log.Stringer("command", commandID),
		log.Stringer("caller", caller),
	)
	return nil
}

// MessageStatus returns the ledger status of a command id
func (g *Gateway) MessageStatus(commandID ids.ID) (MessageStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, err := g.store.Message(commandID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: command %s", ErrMessageNotApproved, commandID)
		}
		return 0, err
	}
	return record.Status, nil
}

// CallContract emits an outbound contract call and returns the payload hash
// a counterpart gateway will approve against.
func (g *Gateway) CallContract(sender common.Address, destinationChain, destinationAddress string, payload []byte) (common.Hash, error) {
	if destinationChain == "" {
		return common.Hash{}, errors.New("destination chain must not be empty")
	}
	if destinationAddress == "" {
		return common.Hash{}, errors.New("destination address must not be empty")
	}

	payloadHash := crypto.Keccak256Hash(payload)
	g.events.Emit(ContractCallEvent{
		Sender:                     sender,
		DestinationChain:           destinationChain,
		DestinationContractAddress: destinationAddress,
		PayloadHash:                payloadHash,
		Payload:                    payload,
	})
	g.log.Debug("contract call",
		log.Stringer("sender", sender),
		log.String("destinationChain", destinationChain),
		log.Stringer("payloadHash", payloadHash),
	)
	return payloadHash, nil
}

// TransferOperatorship hands the operator role to a new address. Only the
// current operator or the upgrade authority may do this.
func (g *Gateway) TransferOperatorship(caller, newOperator common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg, err := g.config()
	if err != nil {
		return err
	}
	if caller != cfg.Operator && caller != g.upgradeAuthority {
		return fmt.Errorf("%w: caller %s", ErrNotAuthorized, caller)
	}
	if newOperator == (common.Address{}) {
		return errors.New("new operator must not be the zero address")
	}

	cfg.Operator = newOperator
	if err := g.store.UpdateConfig(cfg); err != nil {
		return err
	}

	g.events.Emit(OperatorshipTransferredEvent{NewOperator: newOperator})
	g.log.Info("operatorship transferred", log.Stringer("operator", newOperator))
	return nil
}

// InitializeMessagePayload opens a staging buffer for an approved message's
// payload. The expected hash is pinned from the approval record.
func (g *Gateway) InitializeMessagePayload(commandID ids.ID, uploader common.Address, size uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, err := g.store.Message(commandID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: command %s", ErrMessageNotInitialized, commandID)
		}
		return err
	}
	if size == 0 || size > MaxStagedPayload {
		return fmt.Errorf("payload size %d not in (0, %d]", size, MaxStagedPayload)
	}

	payload := &MessagePayload{
		ExpectedHash: record.PayloadHash,
		Data:         make([]byte, size),
	}
	if err := g.store.CreatePayload(PayloadID(commandID, uploader), payload); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return fmt.Errorf("%w: command %s", ErrPayloadAlreadyInitialized, commandID)
		}
		return err
	}
	return nil
}

// WriteMessagePayload copies one chunk into a staging buffer. Chunks are
// bounded by MaxPayloadChunk; larger payloads take multiple steps.
func (g *Gateway) WriteMessagePayload(commandID ids.ID, uploader common.Address, offset uint64, chunk []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := PayloadID(commandID, uploader)
	payload, err := g.payload(id)
	if err != nil {
		return err
	}
	if err := payload.Write(offset, chunk); err != nil {
		return err
	}
	if err := g.store.UpdatePayload(id, payload); err != nil {
		return err
	}
	g.metrics.PayloadBytesStaged.Add(float64(len(chunk)))
	return nil
}

// CommitMessagePayload seals a staging buffer once it hashes to the approved
// payload hash.
func (g *Gateway) CommitMessagePayload(commandID ids.ID, uploader common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := PayloadID(commandID, uploader)
	payload, err := g.payload(id)
	if err != nil {
		return err
	}
	if err := payload.Commit(); err != nil {
		return err
	}
	if err := g.store.UpdatePayload(id, payload); err != nil {
		return err
	}
	g.log.Debug("message payload committed",
		log.Stringer("command", commandID),
		log.Stringer("uploader", uploader),
	)
	return nil
}

// MessagePayloadData returns the staged payload bytes and whether the buffer
// has been committed.
func (g *Gateway) MessagePayloadData(commandID ids.ID, uploader common.Address) ([]byte, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	payload, err := g.payload(PayloadID(commandID, uploader))
	if err != nil {
		return nil, false, err
	}
	data := make([]byte, len(payload.Data))
	copy(data, payload.Data)
	return data, payload.Committed, nil
}

// CloseMessagePayload discards a staging buffer and reclaims its space
func (g *Gateway) CloseMessagePayload(commandID ids.ID, uploader common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.DeletePayload(PayloadID(commandID, uploader)); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: command %s", ErrPayloadNotInitialized, commandID)
		}
		return err
	}
	return nil
}

func (g *Gateway) config() (*Config, error) {
	cfg, err := g.store.Config()
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrConfigNotInitialized
		}
		return nil, err
	}
	return cfg, nil
}

func (g *Gateway) tracker(signersHash common.Hash) (*VerifierSetTracker, error) {
	tracker, err := g.store.Tracker(signersHash)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSignerSetNotRegistered, signersHash)
		}
		return nil, err
	}
	return tracker, nil
}

func (g *Gateway) payload(id ids.ID) (*MessagePayload, error) {
	payload, err := g.store.Payload(id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrPayloadNotInitialized
		}
		return nil, err
	}
	return payload, nil
}

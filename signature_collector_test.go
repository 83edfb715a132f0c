// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/p2p"
	"github.com/luxfi/p2p/p2ptest"
	"github.com/stretchr/testify/require"
)

// newCommitteePeers backs every verifier set position with a signing handler
// on its own node
func newCommitteePeers(t *testing.T, signers []testSigner) ([]CommitteeMember, map[ids.NodeID]p2p.Handler) {
	t.Helper()

	committee := make([]CommitteeMember, len(signers))
	peers := make(map[ids.NodeID]p2p.Handler, len(signers))
	for position, member := range signers {
		signer, err := NewSigner(member.key)
		require.NoError(t, err)

		nodeID := ids.GenerateTestNodeID()
		committee[position] = CommitteeMember{NodeID: nodeID, Position: position}
		peers[nodeID] = NewSignatureRequestHandler(log.NewNoOpLogger(), signer, nil)
	}
	return committee, peers
}

func newCollector(t *testing.T, ctx context.Context, peers map[ids.NodeID]p2p.Handler) *SignatureCollector {
	t.Helper()

	client := p2ptest.NewClientWithPeers(t, ctx, ids.GenerateTestNodeID(), p2p.NoOpHandler{}, peers)
	return NewSignatureCollector(log.NewNoOpLogger(), client)
}

func TestCollectorReachesQuorum(t *testing.T) {
	ctx := context.Background()
	set, signers := newTestCommittee(t, 2, 1, 1, 1)
	committee, peers := newCommitteePeers(t, signers)
	collector := newCollector(t, ctx, peers)

	domainSeparator := crypto.Keccak256Hash([]byte("test domain"))
	payloadDigest := crypto.Keccak256Hash([]byte("payload digest"))

	infos, weight, err := collector.Collect(ctx, set, domainSeparator, committee, payloadDigest)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, uint64(2), weight.Uint64())

	// The collected signatures drive a verification session to completion
	signersHash, err := set.SignersHash(domainSeparator)
	require.NoError(t, err)
	session := NewVerificationSession(signersHash)
	for i := range infos {
		require.NoError(t, session.ProcessSignature(payloadDigest, &infos[i]))
	}
	require.True(t, session.IsComplete())
}

func TestCollectorDropsRejectedResponses(t *testing.T) {
	ctx := context.Background()
	set, signers := newTestCommittee(t, 2, 1, 1, 1)
	committee, peers := newCommitteePeers(t, signers)

	// Position 0's node refuses to endorse any digest
	rejecting, err := NewSigner(signers[0].key)
	require.NoError(t, err)
	peers[committee[0].NodeID] = NewSignatureRequestHandler(log.NewNoOpLogger(), rejecting, rejectingVerifier{})

	collector := newCollector(t, ctx, peers)
	domainSeparator := crypto.Keccak256Hash([]byte("test domain"))
	payloadDigest := crypto.Keccak256Hash([]byte("payload digest"))

	infos, weight, err := collector.Collect(ctx, set, domainSeparator, committee, payloadDigest)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, uint64(2), weight.Uint64())
	require.Equal(t, uint16(1), infos[0].Leaf.Position)
	require.Equal(t, uint16(2), infos[1].Leaf.Position)
}

func TestCollectorDropsWrongKeyResponses(t *testing.T) {
	ctx := context.Background()
	set, signers := newTestCommittee(t, 2, 1, 1, 1)
	committee, peers := newCommitteePeers(t, signers)

	// Position 0's node signs with a key outside the verifier set
	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	stranger, err := NewSigner(strangerKey)
	require.NoError(t, err)
	peers[committee[0].NodeID] = NewSignatureRequestHandler(log.NewNoOpLogger(), stranger, nil)

	collector := newCollector(t, ctx, peers)
	domainSeparator := crypto.Keccak256Hash([]byte("test domain"))
	payloadDigest := crypto.Keccak256Hash([]byte("payload digest"))

	infos, weight, err := collector.Collect(ctx, set, domainSeparator, committee, payloadDigest)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, uint64(2), weight.Uint64())
	require.Equal(t, uint16(1), infos[0].Leaf.Position)
	require.Equal(t, uint16(2), infos[1].Leaf.Position)
}

func TestCollectorReturnsWholeCommitteeBelowQuorum(t *testing.T) {
	ctx := context.Background()
	set, signers := newTestCommittee(t, 5, 1, 1)
	committee, peers := newCommitteePeers(t, signers)
	collector := newCollector(t, ctx, peers)

	domainSeparator := crypto.Keccak256Hash([]byte("test domain"))
	payloadDigest := crypto.Keccak256Hash([]byte("payload digest"))

	// Every member responds, but their combined weight cannot reach the
	// quorum. The caller sees the shortfall in the returned weight.
	infos, weight, err := collector.Collect(ctx, set, domainSeparator, committee, payloadDigest)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, uint64(2), weight.Uint64())
	require.True(t, weight.Cmp(set.Quorum) < 0)
}

func TestCollectorReturnsProgressOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	set, signers := newTestCommittee(t, 2, 1, 1)
	committee, peers := newCommitteePeers(t, signers)

	// Replace both nodes with handlers that never answer, then cancel once
	// the first request lands
	hanging := &hangingHandler{received: make(chan struct{}, len(committee))}
	for _, member := range committee {
		peers[member.NodeID] = hanging
	}

	collector := newCollector(t, ctx, peers)
	domainSeparator := crypto.Keccak256Hash([]byte("test domain"))
	payloadDigest := crypto.Keccak256Hash([]byte("payload digest"))

	go func() {
		<-hanging.received
		cancel()
	}()

	infos, weight, err := collector.Collect(ctx, set, domainSeparator, committee, payloadDigest)
	require.NoError(t, err)
	require.Empty(t, infos)
	require.True(t, weight.IsZero())
}

func TestCollectorRejectsBadCommitteePosition(t *testing.T) {
	ctx := context.Background()
	set, signers := newTestCommittee(t, 2, 1, 1)
	committee, peers := newCommitteePeers(t, signers)
	committee[0].Position = len(set.Signers)
	collector := newCollector(t, ctx, peers)

	domainSeparator := crypto.Keccak256Hash([]byte("test domain"))
	payloadDigest := crypto.Keccak256Hash([]byte("payload digest"))

	_, _, err := collector.Collect(ctx, set, domainSeparator, committee, payloadDigest)
	require.Error(t, err)
}

// rejectingVerifier refuses every digest
type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, *SignatureRequest) *p2p.Error {
	return &p2p.Error{Code: 501, Message: "digest not endorsed"}
}

// hangingHandler signals each request it receives and then blocks until the
// request context is cancelled
type hangingHandler struct {
	received chan struct{}
}

func (*hangingHandler) Gossip(context.Context, ids.NodeID, []byte) {}

func (h *hangingHandler) Request(ctx context.Context, _ ids.NodeID, _ time.Time, _ []byte) ([]byte, *p2p.Error) {
	h.received <- struct{}{}
	<-ctx.Done()
	return nil, &p2p.Error{Code: 500, Message: "cancelled"}
}

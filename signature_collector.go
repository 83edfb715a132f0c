// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/p2p"

	"github.com/luxfi/gateway/merkle"
)

var (
	errFailedVerification = errors.New("failed verification")
	errWrongPublicKey     = errors.New("response public key does not match committee member")
)

// CommitteeMember pairs a network node with the verifier set position it
// signs for
type CommitteeMember struct {
	NodeID   ids.NodeID
	Position int
}

type positionedSigner struct {
	CommitteeMember
	PublicKey PublicKey
	Weight    *uint256.Int
}

type collectorResult struct {
	NodeID    ids.NodeID
	Signer    positionedSigner
	Signature Signature
	Err       error
}

// NewSignatureCollector returns an instance of SignatureCollector
func NewSignatureCollector(log log.Logger, client *p2p.Client) *SignatureCollector {
	return &SignatureCollector{
		log:    log,
		client: client,
	}
}

// SignatureCollector collects verifier signatures over payload digests
type SignatureCollector struct {
	log    log.Logger
	client *p2p.Client
}

// Collect blocks until the committee's signatures reach the verifier set's
// quorum weight or the context is cancelled. It returns the verified
// signatures paired with their commitment leaves and proofs, together with
// the accumulated weight; on cancellation it returns whatever progress was
// made and the caller judges the weight. The caller is responsible for a
// committee whose positions index into the verifier set.
func (s *SignatureCollector) Collect(
	ctx context.Context,
	verifierSet *VerifierSet,
	domainSeparator common.Hash,
	committee []CommitteeMember,
	payloadDigest common.Hash,
) ([]SigningVerifierSetInfo, *uint256.Int, error) {
	tree, err := verifierSet.MerkleTree(domainSeparator)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build verifier set tree: %w", err)
	}

	requestBytes, err := MarshalSignatureRequest(&SignatureRequest{
		PayloadDigest:          payloadDigest,
		SigningVerifierSetRoot: tree.Root(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal signature request: %w", err)
	}

	nodeIDsToSigners := make(map[ids.NodeID]positionedSigner, len(committee))
	nodeIDs := make([]ids.NodeID, 0, len(committee))
	for _, member := range committee {
		if member.Position < 0 || member.Position >= len(verifierSet.Signers) {
			return nil, nil, fmt.Errorf("committee position %d not below set size %d",
				member.Position, len(verifierSet.Signers))
		}
		signer := &verifierSet.Signers[member.Position]
		nodeIDsToSigners[member.NodeID] = positionedSigner{
			CommitteeMember: member,
			PublicKey:       signer.PublicKey,
			Weight:          signer.Weight,
		}
		nodeIDs = append(nodeIDs, member.NodeID)
	}

	results := make(chan collectorResult)
	handler := collectorResponseHandler{
		payloadDigest:    payloadDigest,
		nodeIDsToSigners: nodeIDsToSigners,
		results:          results,
	}

	if err := s.client.Request(ctx, set.Of(nodeIDs...), requestBytes, handler.HandleResponse); err != nil {
		return nil, nil, fmt.Errorf("failed to send signature request: %w", err)
	}

	var (
		leaves      = verifierSet.Leaves(domainSeparator)
		signerBits  = set.NewBits()
		signatures  = make(map[int]Signature, len(committee))
		accumulated = new(uint256.Int)
	)

	// Block until:
	// 1. The context is cancelled
	// 2. We get responses from the whole committee
	// 3. The quorum weight is reached
	for i := 0; i < len(committee); i++ {
		select {
		case <-ctx.Done():
			// Return whatever progress we have if the context is cancelled
			infos, err := assembleSignatures(tree, leaves, signatures)
			if err != nil {
				return nil, nil, err
			}
			return infos, accumulated, nil
		case result := <-results:
			if result.Err != nil {
				s.log.Debug(
					"dropping response",
					log.Stringer("nodeID", result.NodeID),
					log.Err(result.Err),
				)
				continue
			}

			// Multiple nodes may back the same signer so drop any duplicate
			// positions
			if signerBits.Contains(result.Signer.Position) {
				s.log.Debug(
					"dropping duplicate signature",
					log.Stringer("nodeID", result.NodeID),
					log.Int("position", result.Signer.Position),
				)
				continue
			}

			signatures[result.Signer.Position] = result.Signature
			signerBits.Add(result.Signer.Position)
			accumulated.Add(accumulated, result.Signer.Weight)

			if accumulated.Cmp(verifierSet.Quorum) >= 0 {
				infos, err := assembleSignatures(tree, leaves, signatures)
				if err != nil {
					return nil, nil, err
				}
				return infos, accumulated, nil
			}
		}
	}

	infos, err := assembleSignatures(tree, leaves, signatures)
	if err != nil {
		return nil, nil, err
	}
	return infos, accumulated, nil
}

// assembleSignatures pairs each collected signature with its leaf and
// inclusion proof, ordered by position
func assembleSignatures(
	tree *merkle.Tree,
	leaves []VerifierSetLeaf,
	signatures map[int]Signature,
) ([]SigningVerifierSetInfo, error) {
	infos := make([]SigningVerifierSetInfo, 0, len(signatures))
	for position := range leaves {
		signature, ok := signatures[position]
		if !ok {
			continue
		}
		proof, err := tree.Proof(position)
		if err != nil {
			return nil, err
		}
		infos = append(infos, SigningVerifierSetInfo{
			Signature: signature,
			Leaf:      leaves[position],
			Proof:     proof.Bytes(),
		})
	}
	return infos, nil
}

type collectorResponseHandler struct {
	payloadDigest    common.Hash
	nodeIDsToSigners map[ids.NodeID]positionedSigner
	results          chan collectorResult
}

func (r *collectorResponseHandler) HandleResponse(
	_ context.Context,
	nodeID ids.NodeID,
	responseBytes []byte,
	err error,
) {
	signer := r.nodeIDsToSigners[nodeID]
	if err != nil {
		r.results <- collectorResult{NodeID: nodeID, Signer: signer, Err: err}
		return
	}

	response, err := UnmarshalSignatureResponse(responseBytes)
	if err != nil {
		r.results <- collectorResult{NodeID: nodeID, Signer: signer, Err: err}
		return
	}

	if response.PublicKey != signer.PublicKey {
		r.results <- collectorResult{NodeID: nodeID, Signer: signer, Err: errWrongPublicKey}
		return
	}
	if err := response.Signature.Verify(r.payloadDigest, signer.PublicKey); err != nil {
		r.results <- collectorResult{NodeID: nodeID, Signer: signer, Err: errFailedVerification}
		return
	}

	r.results <- collectorResult{NodeID: nodeID, Signer: signer, Signature: response.Signature}
}

// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package encode builds execute data off chain: it commits a signing verifier
// set and a payload to their Merkle roots and pairs collected signatures with
// inclusion proofs, producing what a relayer submits to the gateway.
package encode

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/merkle"
)

// MaxMessages bounds an approve-messages batch in one execute data
const MaxMessages = 256

// Payload is one gateway command: an approve-messages batch or a rotation to
// a new verifier set. Exactly one arm is set.
type Payload struct {
	Messages       []gateway.Message
	NewVerifierSet *gateway.VerifierSet
}

// Validate checks that exactly one payload arm is populated and within bounds
func (p *Payload) Validate() error {
	rotation := p.NewVerifierSet != nil
	messages := len(p.Messages) > 0
	switch {
	case rotation && messages:
		return errors.New("payload carries both a rotation and messages")
	case !rotation && !messages:
		return errors.New("payload is empty")
	case len(p.Messages) > MaxMessages:
		return fmt.Errorf("%d messages exceed the %d command slots", len(p.Messages), MaxMessages)
	}
	return nil
}

// HashPayload returns the digest the signing set must sign to authorize the
// payload: the root of the message leaf tree for a batch, the rotation digest
// for a rotation.
func HashPayload(domainSeparator common.Hash, signingSet *gateway.VerifierSet, payload Payload) (common.Hash, error) {
	if err := payload.Validate(); err != nil {
		return common.Hash{}, err
	}

	signingRoot, err := signingSet.SignersHash(domainSeparator)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash signing set: %w", err)
	}

	if payload.NewVerifierSet != nil {
		newRoot, err := payload.NewVerifierSet.SignersHash(domainSeparator)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to hash new verifier set: %w", err)
		}
		return gateway.RotationDigest(newRoot, signingRoot), nil
	}

	tree, _, err := messageTree(payload.Messages, domainSeparator, signingRoot)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root(), nil
}

// Encode assembles execute data from a payload and the signatures collected
// over its digest. Signers without a signature are left out; whether the
// included weight reaches the quorum is the gateway's call.
func Encode(
	signingSet *gateway.VerifierSet,
	signatures map[gateway.PublicKey]gateway.Signature,
	domainSeparator common.Hash,
	payload Payload,
) (*gateway.ExecuteData, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := signingSet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid signing set: %w", err)
	}

	signingTree, err := signingSet.MerkleTree(domainSeparator)
	if err != nil {
		return nil, fmt.Errorf("failed to build signing set tree: %w", err)
	}
	signingRoot := signingTree.Root()

	infos := make([]gateway.SigningVerifierSetInfo, 0, len(signatures))
	for position, leaf := range signingSet.Leaves(domainSeparator) {
		signature, ok := signatures[leaf.Signer]
		if !ok {
			continue
		}
		proof, err := signingTree.Proof(position)
		if err != nil {
			return nil, err
		}
		infos = append(infos, gateway.SigningVerifierSetInfo{
			Signature: signature,
			Leaf:      leaf,
			Proof:     proof.Bytes(),
		})
	}

	data := &gateway.ExecuteData{
		SigningVerifierSetRoot:   signingRoot,
		SigningVerifierSetLeaves: infos,
	}

	if payload.NewVerifierSet != nil {
		newRoot, err := payload.NewVerifierSet.SignersHash(domainSeparator)
		if err != nil {
			return nil, fmt.Errorf("failed to hash new verifier set: %w", err)
		}
		data.PayloadRoot = gateway.RotationDigest(newRoot, signingRoot)
		data.Payload = gateway.MerkleisedPayload{NewVerifierSetRoot: &newRoot}
	} else {
		tree, leaves, err := messageTree(payload.Messages, domainSeparator, signingRoot)
		if err != nil {
			return nil, err
		}
		merkleised := make([]gateway.MerkleisedMessage, len(leaves))
		for i := range leaves {
			proof, err := tree.Proof(i)
			if err != nil {
				return nil, err
			}
			merkleised[i] = gateway.MerkleisedMessage{Leaf: leaves[i], Proof: proof.Bytes()}
		}
		data.PayloadRoot = tree.Root()
		data.Payload = gateway.MerkleisedPayload{Messages: merkleised}
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// messageTree commits a message batch against the signing context
func messageTree(messages []gateway.Message, domainSeparator, signingRoot common.Hash) (*merkle.Tree, []gateway.MessageLeaf, error) {
	leaves, err := gateway.MessageLeaves(messages, domainSeparator, signingRoot)
	if err != nil {
		return nil, nil, err
	}
	hashes := make([]common.Hash, len(leaves))
	for i := range leaves {
		hashes[i] = leaves[i].Hash()
	}
	tree, err := merkle.NewTree(hashes)
	if err != nil {
		return nil, nil, err
	}
	return tree, leaves, nil
}

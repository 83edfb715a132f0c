// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

// An end-to-end run of the gateway protocol against the in-memory store: a
// generated committee signs a one-message batch, the gateway verifies each
// signature in its own step, and the quorum approves the message.
package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	log "github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/backend"
	"github.com/luxfi/gateway/encode"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	domainSeparator := crypto.Keccak256Hash([]byte("example-domain"))

	// A committee of three equal signers, any two of which form a quorum.
	signers := make([]gateway.WeightedSigner, 3)
	keys := make(map[gateway.PublicKey]*ecdsa.PrivateKey, len(signers))
	for i := range signers {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		public, err := gateway.PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
		if err != nil {
			return err
		}
		keys[public] = key
		signers[i] = gateway.WeightedSigner{PublicKey: public, Weight: uint256.NewInt(1)}
	}
	committee, err := gateway.NewVerifierSet(crypto.Keccak256Hash([]byte("committee")), signers, uint256.NewInt(2))
	if err != nil {
		return err
	}
	signersHash, err := committee.SignersHash(domainSeparator)
	if err != nil {
		return err
	}

	operator := common.HexToAddress("0x1000000000000000000000000000000000000001")
	g, err := gateway.New(log.NewNoOpLogger(), backend.NewMemoryStore(), nil, metric.NewRegistry(), operator)
	if err != nil {
		return err
	}
	if err := g.InitializeConfig(gateway.InitParams{
		Operator:                 operator,
		DomainSeparator:          domainSeparator,
		PreviousSignersRetention: 4,
		InitialSignersHash:       signersHash,
	}); err != nil {
		return err
	}
	fmt.Printf("Gateway initialized with signers hash %s\n", signersHash)

	msg := gateway.Message{
		CCID:               gateway.CrossChainID{Chain: "ethereum", ID: "tx-0"},
		SourceAddress:      "0x00000000000000000000000000000000000000aa",
		DestinationChain:   "lux",
		DestinationAddress: "0x00000000000000000000000000000000000000bb",
		PayloadHash:        crypto.Keccak256Hash([]byte("hello from chain a")),
	}
	batch := encode.Payload{Messages: []gateway.Message{msg}}

	digest, err := encode.HashPayload(domainSeparator, committee, batch)
	if err != nil {
		return err
	}

	// Two of the three signers sign the digest.
	signatures := make(map[gateway.PublicKey]gateway.Signature, 2)
	for _, signer := range committee.Signers[:2] {
		raw, err := crypto.Sign(digest[:], keys[signer.PublicKey])
		if err != nil {
			return err
		}
		signature, err := gateway.SignatureFromBytes(raw)
		if err != nil {
			return err
		}
		signatures[signer.PublicKey] = signature
	}
	data, err := encode.Encode(committee, signatures, domainSeparator, batch)
	if err != nil {
		return err
	}
	fmt.Printf("Execute data carries %d signatures over digest %s\n", len(data.SigningVerifierSetLeaves), digest)

	// Each signature lands in its own step until the session hits quorum.
	if err := g.InitializeVerificationSession(data.PayloadDigest(), data.SigningVerifierSetRoot); err != nil {
		return err
	}
	for i := range data.SigningVerifierSetLeaves {
		info := &data.SigningVerifierSetLeaves[i]
		if err := g.VerifySignature(data.PayloadDigest(), data.SigningVerifierSetRoot, info); err != nil {
			return err
		}
		done, err := g.SessionComplete(data.PayloadDigest(), data.SigningVerifierSetRoot)
		if err != nil {
			return err
		}
		fmt.Printf("  verified signer at position %d, quorum reached: %t\n", info.Leaf.Position, done)
	}

	for _, err := range g.ApproveMessages(data.PayloadRoot, data.SigningVerifierSetRoot, data.Payload.Messages) {
		if err != nil {
			return err
		}
	}
	status, err := g.MessageStatus(msg.CommandID())
	if err != nil {
		return err
	}
	fmt.Printf("Message %s is %s as command %s\n", msg.CCID, status, msg.CommandID())
	return nil
}

// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/encode"
)

// signerJSON is one weighted signer in a verifier set file
type signerJSON struct {
	PublicKey string `json:"publicKey"`
	Weight    uint64 `json:"weight"`
}

// verifierSetJSON is the on-disk form of a verifier set
type verifierSetJSON struct {
	Nonce   string       `json:"nonce"`
	Quorum  uint64       `json:"quorum"`
	Signers []signerJSON `json:"signers"`
}

// messageJSON is one cross-chain message in a messages file
type messageJSON struct {
	SourceChain        string `json:"sourceChain"`
	MessageID          string `json:"messageId"`
	SourceAddress      string `json:"sourceAddress"`
	DestinationChain   string `json:"destinationChain"`
	DestinationAddress string `json:"destinationAddress"`
	PayloadHash        string `json:"payloadHash"`
}

// loadVerifierSet reads a verifier set file and builds the canonical set
func loadVerifierSet(path string) (*gateway.VerifierSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fileSet verifierSetJSON
	if err := json.Unmarshal(raw, &fileSet); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	signers := make([]gateway.WeightedSigner, len(fileSet.Signers))
	for i, signer := range fileSet.Signers {
		public, err := parsePublicKey(signer.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("signer %d: %w", i, err)
		}
		signers[i] = gateway.WeightedSigner{
			PublicKey: public,
			Weight:    uint256.NewInt(signer.Weight),
		}
	}
	return gateway.NewVerifierSet(
		common.HexToHash(fileSet.Nonce),
		signers,
		uint256.NewInt(fileSet.Quorum),
	)
}

// loadMessages reads a messages file and validates each entry
func loadMessages(path string) ([]gateway.Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fileMessages []messageJSON
	if err := json.Unmarshal(raw, &fileMessages); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	messages := make([]gateway.Message, len(fileMessages))
	for i, msg := range fileMessages {
		messages[i] = gateway.Message{
			CCID: gateway.CrossChainID{
				Chain: msg.SourceChain,
				ID:    msg.MessageID,
			},
			SourceAddress:      msg.SourceAddress,
			DestinationChain:   msg.DestinationChain,
			DestinationAddress: msg.DestinationAddress,
			PayloadHash:        common.HexToHash(msg.PayloadHash),
		}
		if err := messages[i].Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return messages, nil
}

// loadPayload builds the command payload from exactly one of a messages file
// or a new verifier set file
func loadPayload(messagesPath, newSetPath string) (encode.Payload, error) {
	switch {
	case messagesPath != "" && newSetPath != "":
		return encode.Payload{}, errors.New("pass either --messages or --new-set, not both")
	case messagesPath != "":
		messages, err := loadMessages(messagesPath)
		if err != nil {
			return encode.Payload{}, err
		}
		return encode.Payload{Messages: messages}, nil
	case newSetPath != "":
		newSet, err := loadVerifierSet(newSetPath)
		if err != nil {
			return encode.Payload{}, err
		}
		return encode.Payload{NewVerifierSet: newSet}, nil
	default:
		return encode.Payload{}, errors.New("pass --messages or --new-set")
	}
}

// signWithKey signs a digest with a hex private key and returns the
// compressed public key alongside the recoverable signature
func signWithKey(keyHex string, digest common.Hash) (gateway.PublicKey, gateway.Signature, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return gateway.PublicKey{}, gateway.Signature{}, err
	}
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		return gateway.PublicKey{}, gateway.Signature{}, err
	}
	signature, err := gateway.SignatureFromBytes(raw)
	if err != nil {
		return gateway.PublicKey{}, gateway.Signature{}, err
	}
	public, err := gateway.PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
	if err != nil {
		return gateway.PublicKey{}, gateway.Signature{}, err
	}
	return public, signature, nil
}

// parsePublicKey decodes a compressed 33-byte public key from hex
func parsePublicKey(s string) (gateway.PublicKey, error) {
	raw, err := parseHexBytes(s)
	if err != nil {
		return gateway.PublicKey{}, err
	}
	return gateway.PublicKeyFromBytes(raw)
}

// parseHexBytes decodes hex with an optional 0x prefix
func parseHexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

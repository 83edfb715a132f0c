// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// SignatureHandlerID is the protocol ID for gateway signature handling
const SignatureHandlerID = 0x6774

// SignatureRequest asks a verifier to sign a payload digest on behalf of the
// verifier set committed to by SigningVerifierSetRoot
type SignatureRequest struct {
	PayloadDigest          common.Hash
	SigningVerifierSetRoot common.Hash
}

// SessionID returns the verification session the requested signature feeds
func (r *SignatureRequest) SessionID() ids.ID {
	return SessionID(r.PayloadDigest, r.SigningVerifierSetRoot)
}

// SignatureResponse carries one verifier's signature over the payload digest
type SignatureResponse struct {
	PublicKey PublicKey
	Signature Signature
}

// MarshalSignatureRequest marshals a signature request to bytes
func MarshalSignatureRequest(req *SignatureRequest) ([]byte, error) {
	// Format: digest(32) + signingRoot(32)
	buf := make([]byte, 2*common.HashLength)
	copy(buf[:common.HashLength], req.PayloadDigest[:])
	copy(buf[common.HashLength:], req.SigningVerifierSetRoot[:])
	return buf, nil
}

// UnmarshalSignatureRequest unmarshals bytes to a signature request
func UnmarshalSignatureRequest(data []byte) (*SignatureRequest, error) {
	if len(data) != 2*common.HashLength {
		return nil, fmt.Errorf("invalid request length: %d", len(data))
	}
	req := &SignatureRequest{}
	copy(req.PayloadDigest[:], data[:common.HashLength])
	copy(req.SigningVerifierSetRoot[:], data[common.HashLength:])
	return req, nil
}

// MarshalSignatureResponse marshals a signature response to bytes
func MarshalSignatureResponse(resp *SignatureResponse) ([]byte, error) {
	// Format: pubkey(33) + sig(65)
	buf := make([]byte, PublicKeyLen+SignatureLen)
	copy(buf[:PublicKeyLen], resp.PublicKey[:])
	copy(buf[PublicKeyLen:], resp.Signature[:])
	return buf, nil
}

// UnmarshalSignatureResponse unmarshals bytes to a signature response
func UnmarshalSignatureResponse(data []byte) (*SignatureResponse, error) {
	if len(data) != PublicKeyLen+SignatureLen {
		return nil, fmt.Errorf("invalid response length: %d", len(data))
	}
	publicKey, err := PublicKeyFromBytes(data[:PublicKeyLen])
	if err != nil {
		return nil, err
	}
	signature, err := SignatureFromBytes(data[PublicKeyLen:])
	if err != nil {
		return nil, err
	}
	return &SignatureResponse{
		PublicKey: publicKey,
		Signature: signature,
	}, nil
}

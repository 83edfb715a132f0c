// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"bytes"
	"testing"

	"github.com/luxfi/geth/crypto"
)

func TestSignatureRequestMarshal(t *testing.T) {
	req := &SignatureRequest{
		PayloadDigest:          crypto.Keccak256Hash([]byte("digest")),
		SigningVerifierSetRoot: crypto.Keccak256Hash([]byte("signing root")),
	}

	data, err := MarshalSignatureRequest(req)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	decoded, err := UnmarshalSignatureRequest(data)
	if err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.PayloadDigest != req.PayloadDigest {
		t.Errorf("digest mismatch: expected %s, got %s", req.PayloadDigest, decoded.PayloadDigest)
	}
	if decoded.SigningVerifierSetRoot != req.SigningVerifierSetRoot {
		t.Errorf("signing root mismatch: expected %s, got %s", req.SigningVerifierSetRoot, decoded.SigningVerifierSetRoot)
	}
	if decoded.SessionID() != SessionID(req.PayloadDigest, req.SigningVerifierSetRoot) {
		t.Error("decoded request maps to a different session")
	}
}

func TestSignatureResponseMarshal(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	publicKey, err := PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
	if err != nil {
		t.Fatalf("failed to compress public key: %v", err)
	}
	digest := crypto.Keccak256Hash([]byte("digest"))
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	signature, err := SignatureFromBytes(raw)
	if err != nil {
		t.Fatalf("failed to parse signature: %v", err)
	}

	data, err := MarshalSignatureResponse(&SignatureResponse{
		PublicKey: publicKey,
		Signature: signature,
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	decoded, err := UnmarshalSignatureResponse(data)
	if err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.PublicKey != publicKey {
		t.Error("public key mismatch")
	}
	if !bytes.Equal(decoded.Signature[:], signature[:]) {
		t.Error("signature mismatch")
	}
}

func TestSignatureUnmarshalErrors(t *testing.T) {
	_, err := UnmarshalSignatureRequest(nil)
	if err == nil {
		t.Error("expected error for nil request data")
	}

	_, err = UnmarshalSignatureRequest([]byte{0, 0, 0})
	if err == nil {
		t.Error("expected error for short request data")
	}

	_, err = UnmarshalSignatureResponse(nil)
	if err == nil {
		t.Error("expected error for nil response data")
	}

	_, err = UnmarshalSignatureResponse([]byte{0, 0, 0})
	if err == nil {
		t.Error("expected error for short response data")
	}

	// Right length, but the public key bytes are not a curve point
	garbage := make([]byte, PublicKeyLen+SignatureLen)
	garbage[0] = 0xff
	_, err = UnmarshalSignatureResponse(garbage)
	if err == nil {
		t.Error("expected error for invalid public key")
	}
}

// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/p2p"

	"github.com/luxfi/gateway/cache"
)

// signatureCacheTTL bounds how long a signed response is replayed before the
// request is verified and signed again
const signatureCacheTTL = 10 * time.Minute

var _ p2p.Handler = (*SignatureRequestHandler)(nil)

// Verifier decides whether this node endorses a payload digest before the
// handler signs it. Implementations check the digest against state they
// trust, typically events finalized on the source chain.
type Verifier interface {
	Verify(ctx context.Context, request *SignatureRequest) *p2p.Error
}

// SignatureRequestHandler serves signature requests from collectors. Each
// session's response is verified and signed once and replayed from cache;
// concurrent requests for the same session share a single signing flight.
type SignatureRequestHandler struct {
	log      log.Logger
	signer   Signer
	verifier Verifier
	cache    *cache.TTLCache[ids.ID, []byte]
}

// NewSignatureRequestHandler creates a handler that signs verified requests
// with the given signer
func NewSignatureRequestHandler(logger log.Logger, signer Signer, verifier Verifier) *SignatureRequestHandler {
	return &SignatureRequestHandler{
		log:      logger,
		signer:   signer,
		verifier: verifier,
		cache:    cache.NewTTLCache[ids.ID, []byte](signatureCacheTTL),
	}
}

// Gossip implements p2p.Handler. Signature requests do not use gossip.
func (h *SignatureRequestHandler) Gossip(context.Context, ids.NodeID, []byte) {
}

// Request implements p2p.Handler. It verifies the request, signs the payload
// digest and returns the marshalled response.
func (h *SignatureRequestHandler) Request(ctx context.Context, nodeID ids.NodeID, _ time.Time, requestBytes []byte) ([]byte, *p2p.Error) {
	req, err := UnmarshalSignatureRequest(requestBytes)
	if err != nil {
		return nil, &p2p.Error{
			Code:    500,
			Message: "failed to unmarshal signature request: " + err.Error(),
		}
	}

	response, err := h.cache.Get(req.SessionID(), func(ids.ID) ([]byte, error) {
		if h.verifier != nil {
			if appErr := h.verifier.Verify(ctx, req); appErr != nil {
				return nil, appErr
			}
		}
		signature, err := h.signer.Sign(req.PayloadDigest)
		if err != nil {
			return nil, err
		}
		return MarshalSignatureResponse(&SignatureResponse{
			PublicKey: h.signer.PublicKey(),
			Signature: signature,
		})
	}, false)
	if err != nil {
		h.log.Debug("dropping signature request",
			log.Stringer("nodeID", nodeID),
			log.Stringer("payloadDigest", req.PayloadDigest),
			log.Err(err),
		)
		appErr := &p2p.Error{}
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, &p2p.Error{Code: 500, Message: err.Error()}
	}
	return response, nil
}

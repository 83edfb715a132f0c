// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	log "github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/backend"
	"github.com/luxfi/gateway/encode"
	"github.com/luxfi/gateway/relayer"
	"github.com/luxfi/gateway/relayer/config"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Relay against an in-memory gateway",
	Long: `Run the full protocol against an in-memory gateway: approve a batch of
messages signed by a generated committee, stage and commit their payloads,
execute one message, and rotate to a fresh committee.`,
	Run: func(cmd *cobra.Command, args []string) {
		signerCount, _ := cmd.Flags().GetInt("signers")
		quorum, _ := cmd.Flags().GetUint64("quorum")
		messageCount, _ := cmd.Flags().GetInt("messages")

		if err := runSimulation(signerCount, quorum, messageCount); err != nil {
			fatalf("Simulation failed: %v\n", err)
		}
	},
}

func runSimulation(signerCount int, quorum uint64, messageCount int) error {
	switch {
	case signerCount < 1:
		return fmt.Errorf("need at least one signer, got %d", signerCount)
	case messageCount < 1:
		return fmt.Errorf("need at least one message, got %d", messageCount)
	case quorum == 0 || quorum > uint64(signerCount):
		// Every simulated signer has weight one.
		return fmt.Errorf("quorum %d is not reachable by %d signers of weight one", quorum, signerCount)
	}

	operator := common.HexToAddress("0x1000000000000000000000000000000000000001")
	caller := common.HexToAddress("0x1000000000000000000000000000000000000002")
	domainSeparator := crypto.Keccak256Hash([]byte("gateway-simulation"))

	committee, keys, err := newCommittee(signerCount, quorum, "committee-0")
	if err != nil {
		return err
	}
	signersHash, err := committee.SignersHash(domainSeparator)
	if err != nil {
		return err
	}

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
	events, cancel := g.Events().Subscribe(64)
	defer cancel()

	fmt.Printf("Gateway initialized\n")
	fmt.Printf("  domain separator: %s\n", domainSeparator)
	fmt.Printf("  committee:        %d signers, quorum %d\n", signerCount, quorum)
	fmt.Printf("  signers hash:     %s\n", signersHash)

	// An outbound call leaving this chain.
	payload := []byte("simulated outbound call")
	if _, err := g.CallContract(caller, "ethereum", "0x00000000000000000000000000000000000000aa", payload); err != nil {
		return err
	}
	fmt.Printf("\nOutbound contract call\n")
	drainEvents(events)

	messages := make([]gateway.Message, messageCount)
	payloads := make([][]byte, messageCount)
	for i := range messages {
		payloads[i] = []byte(fmt.Sprintf("simulated payload %d", i))
		messages[i] = gateway.Message{
			CCID: gateway.CrossChainID{
				Chain: "ethereum",
				ID:    fmt.Sprintf("tx-%d", i),
			},
			SourceAddress:      "0x00000000000000000000000000000000000000bb",
			DestinationChain:   "lux",
			DestinationAddress: caller.Hex(),
			PayloadHash:        crypto.Keccak256Hash(payloads[i]),
		}
	}

	cfg, err := config.BuildConfig(viper.New())
	if err != nil {
		return err
	}
	r, err := relayer.New(log.NewNoOpLogger(), g, caller, cfg, metric.NewRegistry())
	if err != nil {
		return err
	}
	ctx := context.Background()

	data, err := buildExecuteData(committee, keys, domainSeparator, encode.Payload{Messages: messages})
	if err != nil {
		return err
	}
	fmt.Printf("\nRelaying %d messages (%d bytes execute data)\n", messageCount, len(data.Bytes()))
	if err := r.Relay(ctx, data); err != nil {
		return err
	}
	drainEvents(events)

	fmt.Printf("\nStaging message payloads\n")
	for i := range messages {
		commandID := messages[i].CommandID()
		if err := r.RelayPayload(ctx, commandID, payloads[i]); err != nil {
			return err
		}
		staged, committed, err := g.MessagePayloadData(commandID, caller)
		if err != nil {
			return err
		}
		fmt.Printf("  command %s: %d bytes staged, committed %t\n", commandID, len(staged), committed)
	}

	// The destination consumes the first message.
	if err := g.ValidateMessage(&messages[0], common.HexToAddress(messages[0].DestinationAddress)); err != nil {
		return err
	}
	status, err := g.MessageStatus(messages[0].CommandID())
	if err != nil {
		return err
	}
	fmt.Printf("\nExecuted message %s, status now %s\n", messages[0].CCID, status)
	drainEvents(events)

	nextCommittee, _, err := newCommittee(signerCount, quorum, "committee-1")
	if err != nil {
		return err
	}
	rotation, err := buildExecuteData(committee, keys, domainSeparator, encode.Payload{NewVerifierSet: nextCommittee})
	if err != nil {
		return err
	}
	fmt.Printf("\nRotating to a fresh committee\n")
	if err := r.Relay(ctx, rotation); err != nil {
		return err
	}
	drainEvents(events)

	finalCfg, err := g.Config()
	if err != nil {
		return err
	}
	fmt.Printf("\nSimulation complete, gateway at epoch %d\n", finalCfg.CurrentEpoch)
	return nil
}

// newCommittee generates size signers of weight one and keeps their keys
func newCommittee(size int, quorum uint64, nonce string) (*gateway.VerifierSet, map[gateway.PublicKey]*ecdsa.PrivateKey, error) {
	signers := make([]gateway.WeightedSigner, size)
	keys := make(map[gateway.PublicKey]*ecdsa.PrivateKey, size)
	for i := range signers {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, nil, err
		}
		public, err := gateway.PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
		if err != nil {
			return nil, nil, err
		}
		keys[public] = key
		signers[i] = gateway.WeightedSigner{
			PublicKey: public,
			Weight:    uint256.NewInt(1),
		}
	}
	set, err := gateway.NewVerifierSet(crypto.Keccak256Hash([]byte(nonce)), signers, uint256.NewInt(quorum))
	if err != nil {
		return nil, nil, err
	}
	return set, keys, nil
}

// buildExecuteData signs the payload digest with every committee key and
// assembles the execute data a relayer would submit
func buildExecuteData(
	signingSet *gateway.VerifierSet,
	keys map[gateway.PublicKey]*ecdsa.PrivateKey,
	domainSeparator common.Hash,
	payload encode.Payload,
) (*gateway.ExecuteData, error) {
	digest, err := encode.HashPayload(domainSeparator, signingSet, payload)
	if err != nil {
		return nil, err
	}
	signatures := make(map[gateway.PublicKey]gateway.Signature, len(keys))
	for public, key := range keys {
		raw, err := crypto.Sign(digest[:], key)
		if err != nil {
			return nil, err
		}
		signature, err := gateway.SignatureFromBytes(raw)
		if err != nil {
			return nil, err
		}
		signatures[public] = signature
	}
	return encode.Encode(signingSet, signatures, domainSeparator, payload)
}

func drainEvents(events <-chan gateway.Event) {
	for {
		select {
		case event := <-events:
			printEvent(event)
		default:
			return
		}
	}
}

func printEvent(event gateway.Event) {
	switch e := event.(type) {
	case gateway.ContractCallEvent:
		fmt.Printf("  event %s: %s -> %s/%s, payload hash %s\n",
			e.Type(), e.Sender, e.DestinationChain, e.DestinationContractAddress, e.PayloadHash)
	case gateway.MessageApprovedEvent:
		fmt.Printf("  event %s: command %s, %s-%s -> %s/%s\n",
			e.Type(), e.CommandID, e.SourceChain, e.MessageID, e.DestinationChain, e.DestinationAddress)
	case gateway.MessageExecutedEvent:
		fmt.Printf("  event %s: command %s, %s-%s\n",
			e.Type(), e.CommandID, e.SourceChain, e.MessageID)
	case gateway.VerifierSetRotatedEvent:
		fmt.Printf("  event %s: epoch %d, verifier set %s\n",
			e.Type(), e.Epoch, e.VerifierSetHash)
	case gateway.OperatorshipTransferredEvent:
		fmt.Printf("  event %s: new operator %s\n", e.Type(), e.NewOperator)
	default:
		fmt.Printf("  event %s\n", event.Type())
	}
}

// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/spf13/cobra"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/encode"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Cross-chain gateway protocol CLI",
	Long: `Tools for the cross-chain gateway protocol: generate signer keys,
compute signer set hashes and payload digests, build and inspect execute
data, and simulate a full relay against an in-memory gateway.`,
	Version: fmt.Sprintf("%s (built %s)", version, buildDate),
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(signersHashCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(simulateCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signer key pair",
	Long:  `Generate a new secp256k1 signer key and print it in hex.`,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := crypto.GenerateKey()
		if err != nil {
			fatalf("Failed to generate key: %v\n", err)
		}
		public, err := gateway.PublicKeyFromBytes(crypto.CompressPubkey(&key.PublicKey))
		if err != nil {
			fatalf("Failed to compress public key: %v\n", err)
		}
		address, err := public.Address()
		if err != nil {
			fatalf("Failed to derive address: %v\n", err)
		}

		fmt.Printf("Private key: %x\n", crypto.FromECDSA(key))
		fmt.Printf("Public key:  %s\n", public)
		fmt.Printf("Address:     %s\n", address.Hex())
	},
}

var signersHashCmd = &cobra.Command{
	Use:   "signers-hash",
	Short: "Compute the signers hash of a verifier set",
	Long:  `Compute the Merkle root committing to a verifier set file under a domain separator.`,
	Run: func(cmd *cobra.Command, args []string) {
		setPath, _ := cmd.Flags().GetString("set")
		domain, _ := cmd.Flags().GetString("domain")

		set, err := loadVerifierSet(setPath)
		if err != nil {
			fatalf("Failed to load verifier set: %v\n", err)
		}
		hash, err := set.SignersHash(common.HexToHash(domain))
		if err != nil {
			fatalf("Failed to compute signers hash: %v\n", err)
		}

		fmt.Printf("Verifier set: %d signers, total weight %s, quorum %s\n",
			len(set.Signers), set.TotalWeight(), set.Quorum)
		fmt.Printf("Signers hash: %s\n", hash)
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute a payload digest",
	Long: `Compute the digest a verifier set signs to approve a message batch
or rotate to a new verifier set.`,
	Run: func(cmd *cobra.Command, args []string) {
		setPath, _ := cmd.Flags().GetString("set")
		domain, _ := cmd.Flags().GetString("domain")
		messagesPath, _ := cmd.Flags().GetString("messages")
		newSetPath, _ := cmd.Flags().GetString("new-set")

		set, err := loadVerifierSet(setPath)
		if err != nil {
			fatalf("Failed to load verifier set: %v\n", err)
		}
		payload, err := loadPayload(messagesPath, newSetPath)
		if err != nil {
			fatalf("Failed to load payload: %v\n", err)
		}
		digest, err := encode.HashPayload(common.HexToHash(domain), set, payload)
		if err != nil {
			fatalf("Failed to compute digest: %v\n", err)
		}

		fmt.Printf("Payload digest: %s\n", digest)
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build signed execute data",
	Long: `Build execute data for a message batch or rotation, signing the
payload digest with the given private keys, and print its wire encoding.`,
	Run: func(cmd *cobra.Command, args []string) {
		setPath, _ := cmd.Flags().GetString("set")
		domain, _ := cmd.Flags().GetString("domain")
		messagesPath, _ := cmd.Flags().GetString("messages")
		newSetPath, _ := cmd.Flags().GetString("new-set")
		keyHexes, _ := cmd.Flags().GetStringArray("key")

		set, err := loadVerifierSet(setPath)
		if err != nil {
			fatalf("Failed to load verifier set: %v\n", err)
		}
		payload, err := loadPayload(messagesPath, newSetPath)
		if err != nil {
			fatalf("Failed to load payload: %v\n", err)
		}

		domainSeparator := common.HexToHash(domain)
		digest, err := encode.HashPayload(domainSeparator, set, payload)
		if err != nil {
			fatalf("Failed to compute digest: %v\n", err)
		}

		signatures := make(map[gateway.PublicKey]gateway.Signature, len(keyHexes))
		for i, keyHex := range keyHexes {
			public, signature, err := signWithKey(keyHex, digest)
			if err != nil {
				fatalf("Failed to sign with key %d: %v\n", i, err)
			}
			signatures[public] = signature
		}

		data, err := encode.Encode(set, signatures, domainSeparator, payload)
		if err != nil {
			fatalf("Failed to encode execute data: %v\n", err)
		}

		fmt.Printf("Payload digest: %s\n", digest)
		fmt.Printf("Signatures:     %d of %d signers\n", len(data.SigningVerifierSetLeaves), len(set.Signers))
		fmt.Printf("Execute data:   %x\n", data.Bytes())
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Inspect wire-encoded execute data",
	Long:  `Parse hex execute data and print what it carries.`,
	Run: func(cmd *cobra.Command, args []string) {
		dataHex, _ := cmd.Flags().GetString("data")

		raw, err := parseHexBytes(dataHex)
		if err != nil {
			fatalf("Invalid execute data hex: %v\n", err)
		}
		data, err := gateway.ParseExecuteData(raw)
		if err != nil {
			fatalf("Failed to parse execute data: %v\n", err)
		}

		fmt.Printf("Signing verifier set root: %s\n", data.SigningVerifierSetRoot)
		fmt.Printf("Payload root:              %s\n", data.PayloadRoot)
		fmt.Printf("Payload digest:            %s\n", data.PayloadDigest())
		fmt.Printf("Signatures:\n")
		for i := range data.SigningVerifierSetLeaves {
			info := &data.SigningVerifierSetLeaves[i]
			fmt.Printf("  position %d of %d: signer %s, weight %s\n",
				info.Leaf.Position, info.Leaf.SetSize, info.Leaf.Signer, info.Leaf.Weight)
		}
		if data.Payload.IsRotation() {
			fmt.Printf("Rotation to verifier set:  %s\n", *data.Payload.NewVerifierSetRoot)
			return
		}
		fmt.Printf("Messages:\n")
		for i := range data.Payload.Messages {
			msg := &data.Payload.Messages[i].Leaf.Message
			fmt.Printf("  command %s: %s -> %s/%s, payload hash %s\n",
				msg.CommandID(), msg.CCID, msg.DestinationChain, msg.DestinationAddress, msg.PayloadHash)
		}
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a signature over a digest",
	Long:  `Recover the signer of a 65-byte recoverable signature and check it against a public key.`,
	Run: func(cmd *cobra.Command, args []string) {
		digestHex, _ := cmd.Flags().GetString("digest")
		signatureHex, _ := cmd.Flags().GetString("signature")
		publicHex, _ := cmd.Flags().GetString("pubkey")

		raw, err := parseHexBytes(signatureHex)
		if err != nil {
			fatalf("Invalid signature hex: %v\n", err)
		}
		signature, err := gateway.SignatureFromBytes(raw)
		if err != nil {
			fatalf("Invalid signature: %v\n", err)
		}
		public, err := parsePublicKey(publicHex)
		if err != nil {
			fatalf("Invalid public key: %v\n", err)
		}

		digest := common.HexToHash(digestHex)
		recovered, err := signature.Recover(digest)
		if err != nil {
			fatalf("Failed to recover signer: %v\n", err)
		}

		fmt.Printf("Digest:    %s\n", digest)
		fmt.Printf("Recovered: %s\n", recovered)
		if err := signature.Verify(digest, public); err != nil {
			fatalf("Signature does not match: %v\n", err)
		}
		fmt.Println("Signature valid")
	},
}

func init() {
	signersHashCmd.Flags().StringP("set", "s", "", "Verifier set file (json)")
	signersHashCmd.Flags().StringP("domain", "d", "", "Domain separator (32-byte hex)")
	signersHashCmd.MarkFlagRequired("set")
	signersHashCmd.MarkFlagRequired("domain")

	digestCmd.Flags().StringP("set", "s", "", "Signing verifier set file (json)")
	digestCmd.Flags().StringP("domain", "d", "", "Domain separator (32-byte hex)")
	digestCmd.Flags().StringP("messages", "m", "", "Messages file (json)")
	digestCmd.Flags().String("new-set", "", "New verifier set file for a rotation (json)")
	digestCmd.MarkFlagRequired("set")
	digestCmd.MarkFlagRequired("domain")

	encodeCmd.Flags().StringP("set", "s", "", "Signing verifier set file (json)")
	encodeCmd.Flags().StringP("domain", "d", "", "Domain separator (32-byte hex)")
	encodeCmd.Flags().StringP("messages", "m", "", "Messages file (json)")
	encodeCmd.Flags().String("new-set", "", "New verifier set file for a rotation (json)")
	encodeCmd.Flags().StringArrayP("key", "k", nil, "Signer private key (hex, repeatable)")
	encodeCmd.MarkFlagRequired("set")
	encodeCmd.MarkFlagRequired("domain")
	encodeCmd.MarkFlagRequired("key")

	decodeCmd.Flags().StringP("data", "d", "", "Execute data (hex)")
	decodeCmd.MarkFlagRequired("data")

	verifyCmd.Flags().StringP("digest", "d", "", "Signed digest (32-byte hex)")
	verifyCmd.Flags().StringP("signature", "s", "", "Signature (65-byte hex)")
	verifyCmd.Flags().StringP("pubkey", "p", "", "Compressed public key (33-byte hex)")
	verifyCmd.MarkFlagRequired("digest")
	verifyCmd.MarkFlagRequired("signature")
	verifyCmd.MarkFlagRequired("pubkey")

	simulateCmd.Flags().Int("signers", 4, "Committee size")
	simulateCmd.Flags().Uint64("quorum", 3, "Quorum weight")
	simulateCmd.Flags().Int("messages", 2, "Number of messages to relay")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

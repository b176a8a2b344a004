package signer

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// EmbeddedSigner signs with a keypair held in process memory. Because the
// key never leaves the process, rebuild-and-resign after a blockhash
// expiry needs no user interaction.
type EmbeddedSigner struct {
	key solana.PrivateKey
}

func NewEmbeddedSigner(key solana.PrivateKey) (*EmbeddedSigner, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("empty private key")
	}
	return &EmbeddedSigner{key: key}, nil
}

// NewEmbeddedSignerFromBase58 parses a base58-encoded private key.
func NewEmbeddedSignerFromBase58(encoded string) (*EmbeddedSigner, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &EmbeddedSigner{key: key}, nil
}

func (s *EmbeddedSigner) Mode() Mode                  { return ModeEmbedded }
func (s *EmbeddedSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }
func (s *EmbeddedSigner) SupportsResign() bool        { return true }

func (s *EmbeddedSigner) SignAndSubmit(ctx context.Context, tx *solana.Transaction, submit SubmitFunc) (solana.Signature, error) {
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("serialize transaction: %w", err)
	}
	return submit(ctx, raw)
}

// Package signer abstracts who holds the key. The embedded path signs with
// a keypair the process owns; the external path hands the transaction to a
// wallet the user controls. The pipeline only ever sees the Signer
// interface.
package signer

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

type Mode uint8

const (
	// ModeEmbedded signs in-process with a held keypair.
	ModeEmbedded Mode = iota

	// ModeExternal defers signing to a wallet outside the process.
	ModeExternal
)

func (m Mode) String() string {
	if m == ModeExternal {
		return "external"
	}
	return "embedded"
}

// SubmitFunc receives fully signed transaction bytes. The signer invokes
// it exactly once, and only after signing succeeded.
type SubmitFunc func(ctx context.Context, raw []byte) (solana.Signature, error)

// Signer signs a transaction and hands it to the submit callback. Keeping
// sign and submit in one call guarantees nothing is ever sent for a
// transaction whose signing was rejected.
type Signer interface {
	Mode() Mode

	// PublicKey is the fee payer identity this signer signs for.
	PublicKey() solana.PublicKey

	// SupportsResign reports whether the pipeline may rebuild and re-sign
	// after a blockhash expiry without going back to the user.
	SupportsResign() bool

	SignAndSubmit(ctx context.Context, tx *solana.Transaction, submit SubmitFunc) (solana.Signature, error)
}

package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/domain"
)

// WalletAdapter is the contract an external wallet integration implements.
// SignTransaction returns the fully signed transaction bytes; any refusal
// or failure to sign counts as a rejection.
type WalletAdapter interface {
	// Authorize establishes the wallet session and returns the signing
	// identity.
	Authorize(ctx context.Context) (solana.PublicKey, error)

	SignTransaction(ctx context.Context, tx *solana.Transaction) ([]byte, error)
}

// ExternalSigner defers signing to a user-controlled wallet. It cannot
// re-sign automatically: a rebuilt transaction is a new signing request
// the user has to approve again.
type ExternalSigner struct {
	wallet WalletAdapter
	pubkey solana.PublicKey
}

// NewExternalSigner authorizes the wallet session up front so the signer
// knows its fee payer before any transaction is built.
func NewExternalSigner(ctx context.Context, wallet WalletAdapter) (*ExternalSigner, error) {
	pubkey, err := wallet.Authorize(ctx)
	if err != nil {
		return nil, domain.NewTradeError(domain.ErrUserRejected,
			fmt.Sprintf("wallet authorization failed: %v", err))
	}
	return &ExternalSigner{wallet: wallet, pubkey: pubkey}, nil
}

func (s *ExternalSigner) Mode() Mode                  { return ModeExternal }
func (s *ExternalSigner) PublicKey() solana.PublicKey { return s.pubkey }
func (s *ExternalSigner) SupportsResign() bool        { return false }

func (s *ExternalSigner) SignAndSubmit(ctx context.Context, tx *solana.Transaction, submit SubmitFunc) (solana.Signature, error) {
	raw, err := s.wallet.SignTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return solana.Signature{}, err
		}
		return solana.Signature{}, domain.NewTradeError(domain.ErrUserRejected, err.Error())
	}
	if len(raw) == 0 {
		return solana.Signature{}, domain.NewTradeError(domain.ErrUserRejected,
			"wallet returned no signed transaction")
	}
	return submit(ctx, raw)
}

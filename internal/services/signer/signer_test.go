package signer

import (
	"context"
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/domain"
)

func testTransaction(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	program := solana.NewWallet().PublicKey()
	ix := solana.NewInstruction(program, solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
	}, []byte{1})
	tx, err := solana.NewTransaction([]solana.Instruction{ix},
		solana.Hash{31: 1}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	return tx
}

func TestEmbeddedSignAndSubmit(t *testing.T) {
	wallet := solana.NewWallet()
	s, err := NewEmbeddedSigner(wallet.PrivateKey)
	if err != nil {
		t.Fatalf("NewEmbeddedSigner: %v", err)
	}
	if s.Mode() != ModeEmbedded || !s.SupportsResign() {
		t.Error("embedded signer must report embedded mode and resign support")
	}

	tx := testTransaction(t, wallet.PublicKey())
	var submitted []byte
	calls := 0
	sig, err := s.SignAndSubmit(context.Background(), tx, func(ctx context.Context, raw []byte) (solana.Signature, error) {
		calls++
		submitted = raw
		return tx.Signatures[0], nil
	})
	if err != nil {
		t.Fatalf("SignAndSubmit: %v", err)
	}
	if calls != 1 {
		t.Errorf("submit called %d times, want 1", calls)
	}
	if len(submitted) == 0 {
		t.Fatal("submit received empty transaction bytes")
	}
	if sig.IsZero() || tx.Signatures[0].IsZero() {
		t.Error("transaction was not signed")
	}

	signed, err := solana.TransactionFromDecoder(bin.NewBinDecoder(submitted))
	if err != nil {
		t.Fatalf("submitted bytes do not decode as a transaction: %v", err)
	}
	if err := signed.VerifySignatures(); err != nil {
		t.Errorf("submitted transaction has invalid signatures: %v", err)
	}
}

func TestEmbeddedSignerRejectsEmptyKey(t *testing.T) {
	if _, err := NewEmbeddedSigner(nil); err == nil {
		t.Error("empty key should be rejected")
	}
	if _, err := NewEmbeddedSignerFromBase58("not-base58!!"); err == nil {
		t.Error("malformed base58 key should be rejected")
	}
}

type fakeWallet struct {
	pubkey       solana.PublicKey
	authorizeErr error
	signErr      error
	signed       []byte
}

func (f *fakeWallet) Authorize(ctx context.Context) (solana.PublicKey, error) {
	if f.authorizeErr != nil {
		return solana.PublicKey{}, f.authorizeErr
	}
	return f.pubkey, nil
}

func (f *fakeWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) ([]byte, error) {
	if f.signErr != nil {
		return nil, f.signErr
	}
	return f.signed, nil
}

func TestExternalSignerAuthorizeFailure(t *testing.T) {
	_, err := NewExternalSigner(context.Background(), &fakeWallet{authorizeErr: errors.New("user closed prompt")})
	if !errors.Is(err, domain.ErrUserRejected) {
		t.Errorf("err = %v, want ErrUserRejected", err)
	}
}

func TestExternalSignerRejectionNeverSubmits(t *testing.T) {
	pubkey := solana.NewWallet().PublicKey()
	s, err := NewExternalSigner(context.Background(), &fakeWallet{
		pubkey:  pubkey,
		signErr: errors.New("user declined"),
	})
	if err != nil {
		t.Fatalf("NewExternalSigner: %v", err)
	}
	if s.SupportsResign() {
		t.Error("external signer must not claim resign support")
	}

	calls := 0
	_, err = s.SignAndSubmit(context.Background(), testTransaction(t, pubkey), func(ctx context.Context, raw []byte) (solana.Signature, error) {
		calls++
		return solana.Signature{}, nil
	})
	if !errors.Is(err, domain.ErrUserRejected) {
		t.Errorf("err = %v, want ErrUserRejected", err)
	}
	if calls != 0 {
		t.Errorf("submit called %d times after rejection, want 0", calls)
	}
}

func TestExternalSignerEmptyBytesIsRejection(t *testing.T) {
	pubkey := solana.NewWallet().PublicKey()
	s, err := NewExternalSigner(context.Background(), &fakeWallet{pubkey: pubkey})
	if err != nil {
		t.Fatalf("NewExternalSigner: %v", err)
	}

	calls := 0
	_, err = s.SignAndSubmit(context.Background(), testTransaction(t, pubkey), func(ctx context.Context, raw []byte) (solana.Signature, error) {
		calls++
		return solana.Signature{}, nil
	})
	if !errors.Is(err, domain.ErrUserRejected) {
		t.Errorf("err = %v, want ErrUserRejected", err)
	}
	if calls != 0 {
		t.Error("submit must not run when the wallet returned nothing")
	}
}

func TestExternalSignerContextCancellationIsNotRejection(t *testing.T) {
	pubkey := solana.NewWallet().PublicKey()
	s, err := NewExternalSigner(context.Background(), &fakeWallet{
		pubkey:  pubkey,
		signErr: context.Canceled,
	})
	if err != nil {
		t.Fatalf("NewExternalSigner: %v", err)
	}

	_, err = s.SignAndSubmit(context.Background(), testTransaction(t, pubkey), func(ctx context.Context, raw []byte) (solana.Signature, error) {
		return solana.Signature{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, domain.ErrUserRejected) {
		t.Error("cancellation must not be classified as a user rejection")
	}
}

func TestExternalSignerSubmitsWalletBytes(t *testing.T) {
	pubkey := solana.NewWallet().PublicKey()
	s, err := NewExternalSigner(context.Background(), &fakeWallet{
		pubkey: pubkey,
		signed: []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("NewExternalSigner: %v", err)
	}
	if !s.PublicKey().Equals(pubkey) {
		t.Error("signer identity must come from wallet authorization")
	}

	var submitted []byte
	_, err = s.SignAndSubmit(context.Background(), testTransaction(t, pubkey), func(ctx context.Context, raw []byte) (solana.Signature, error) {
		submitted = raw
		return solana.Signature{}, nil
	})
	if err != nil {
		t.Fatalf("SignAndSubmit: %v", err)
	}
	if len(submitted) != 3 {
		t.Errorf("submitted %d bytes, want the wallet's 3", len(submitted))
	}
}

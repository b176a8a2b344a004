package builder

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/services/chain"
)

type fakeConn struct {
	chain.Connection
	blockhash solana.Hash
	lastValid uint64
	err       error
}

func (f *fakeConn) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	return f.blockhash, f.lastValid, f.err
}

func taggedInstruction(programID solana.PublicKey, tag byte) solana.Instruction {
	return solana.NewInstruction(programID, solana.AccountMetaSlice{}, []byte{tag})
}

func TestDraft(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	program := solana.NewWallet().PublicKey()
	a := NewAssembler(&fakeConn{})

	tx, err := a.Draft([]solana.Instruction{taggedInstruction(program, 1)}, payer)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}

	if !tx.Message.RecentBlockhash.IsZero() {
		t.Error("draft must use the zero blockhash")
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		t.Errorf("signatures padded to %d, want %d", len(tx.Signatures), required)
	}
	if _, err := tx.MarshalBinary(); err != nil {
		t.Errorf("padded draft must serialize: %v", err)
	}
}

func TestAssembleOrdersBudgetFirst(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	program := solana.NewWallet().PublicKey()
	blockhash := solana.HashFromBytes(bytes.Repeat([]byte{7}, 32))
	a := NewAssembler(&fakeConn{blockhash: blockhash, lastValid: 12345})

	budget := []solana.Instruction{taggedInstruction(program, 10), taggedInstruction(program, 11)}
	venue := []solana.Instruction{taggedInstruction(program, 20)}

	tx, lastValid, err := a.Assemble(context.Background(), budget, venue, payer)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if lastValid != 12345 {
		t.Errorf("lastValid = %d, want 12345", lastValid)
	}
	if !tx.Message.RecentBlockhash.Equals(blockhash) {
		t.Error("assembled transaction must carry the fresh blockhash")
	}

	wantTags := []byte{10, 11, 20}
	if len(tx.Message.Instructions) != len(wantTags) {
		t.Fatalf("instruction count = %d, want %d", len(tx.Message.Instructions), len(wantTags))
	}
	for i, want := range wantTags {
		if got := tx.Message.Instructions[i].Data[0]; got != want {
			t.Errorf("instruction %d tag = %d, want %d (budget prefix before venue)", i, got, want)
		}
	}
}

func TestAssembleBlockhashError(t *testing.T) {
	a := NewAssembler(&fakeConn{err: errors.New("rpc down")})

	_, _, err := a.Assemble(context.Background(), nil, nil, solana.NewWallet().PublicKey())
	if err == nil {
		t.Fatal("expected error when blockhash fetch fails")
	}
}

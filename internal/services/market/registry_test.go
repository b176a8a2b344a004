package market

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solmesh/trade-engine/internal/common"
	"github.com/solmesh/trade-engine/internal/services/chain"
)

type fakeMintConn struct {
	chain.Connection
	accounts map[solana.PublicKey]*chain.AccountInfo
	calls    int
}

func (f *fakeMintConn) AccountInfo(ctx context.Context, addr solana.PublicKey) (*chain.AccountInfo, error) {
	f.calls++
	return f.accounts[addr], nil
}

func encodeMint(t *testing.T, decimals uint8, supply uint64) []byte {
	t.Helper()
	raw := splMint{
		Supply:        supply,
		Decimals:      decimals,
		IsInitialized: true,
	}
	var buf bytes.Buffer
	if err := bin.NewBinEncoder(&buf).Encode(&raw); err != nil {
		t.Fatalf("encode mint: %v", err)
	}
	return buf.Bytes()
}

func TestResolveCachesAfterFirstFetch(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	conn := &fakeMintConn{accounts: map[solana.PublicKey]*chain.AccountInfo{
		mint: {Owner: common.TokenProgramID, Data: encodeMint(t, 6, 1_000_000_000)},
	}}
	r := NewRegistry(conn, nil)

	info, err := r.Resolve(context.Background(), mint)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Decimals != 6 || info.Supply != 1_000_000_000 {
		t.Errorf("info = %+v, want decimals 6 supply 1000000000", info)
	}
	if !info.TokenProgram.Equals(common.TokenProgramID) {
		t.Errorf("token program = %s, want the account owner", info.TokenProgram)
	}

	if _, err := r.Resolve(context.Background(), mint); err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if conn.calls != 1 {
		t.Errorf("chain fetched %d times, want 1", conn.calls)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestResolveToken2022Owner(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	conn := &fakeMintConn{accounts: map[solana.PublicKey]*chain.AccountInfo{
		mint: {Owner: common.Token2022ID, Data: encodeMint(t, 9, 1)},
	}}
	r := NewRegistry(conn, nil)

	info, err := r.Resolve(context.Background(), mint)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !info.TokenProgram.Equals(common.Token2022ID) {
		t.Errorf("token program = %s, want token-2022", info.TokenProgram)
	}
}

func TestResolveErrors(t *testing.T) {
	missing := solana.NewWallet().PublicKey()
	notMint := solana.NewWallet().PublicKey()
	conn := &fakeMintConn{accounts: map[solana.PublicKey]*chain.AccountInfo{
		notMint: {Owner: solana.NewWallet().PublicKey(), Data: encodeMint(t, 6, 1)},
	}}
	r := NewRegistry(conn, nil)

	if _, err := r.Resolve(context.Background(), missing); !errors.Is(err, ErrUnknownMint) {
		t.Errorf("missing account err = %v, want ErrUnknownMint", err)
	}
	if _, err := r.Resolve(context.Background(), notMint); !errors.Is(err, ErrNotMint) {
		t.Errorf("wrong owner err = %v, want ErrNotMint", err)
	}

	if r.IsListed(context.Background(), missing) {
		t.Error("unresolvable mint must not be listed")
	}
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		ui       string
		decimals uint8
		want     int64
		wantErr  bool
	}{
		{"whole amount", "5", 6, 5_000_000, false},
		{"fractional amount", "1.5", 6, 1_500_000, false},
		{"full precision", "0.000001", 6, 1, false},
		{"zero", "0", 6, 0, false},
		{"too many decimal places", "0.0000001", 6, 0, true},
		{"negative", "-1", 6, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui, err := decimal.NewFromString(tt.ui)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.ui, err)
			}
			got, err := ToBaseUnits(ui, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ToBaseUnits(%s) = %s, want error", tt.ui, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToBaseUnits(%s): %v", tt.ui, err)
			}
			if got.Int64() != tt.want {
				t.Errorf("ToBaseUnits(%s) = %s, want %d", tt.ui, got, tt.want)
			}
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	got := FromBaseUnits(big.NewInt(1_500_000), 6)
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("FromBaseUnits = %s, want 1.5", got)
	}
}

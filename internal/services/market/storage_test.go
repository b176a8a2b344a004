package market

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/common"
)

func tempStore(t *testing.T) *TokenStore {
	t.Helper()
	store, err := NewTokenStore(filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTokenStoreRoundtrip(t *testing.T) {
	store := tempStore(t)

	saved := []*TokenInfo{
		{Mint: solana.NewWallet().PublicKey(), Decimals: 6, TokenProgram: common.TokenProgramID, Supply: 1_000_000},
		{Mint: solana.NewWallet().PublicKey(), Decimals: 9, TokenProgram: common.Token2022ID},
	}
	for _, info := range saved {
		if err := store.Save(info); err != nil {
			t.Fatalf("Save(%s): %v", info.Mint, err)
		}
	}

	loaded, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != len(saved) {
		t.Fatalf("loaded %d tokens, want %d", len(loaded), len(saved))
	}

	byMint := make(map[solana.PublicKey]*TokenInfo, len(loaded))
	for _, info := range loaded {
		byMint[info.Mint] = info
	}
	for _, want := range saved {
		got, ok := byMint[want.Mint]
		if !ok {
			t.Errorf("token %s missing after reload", want.Mint)
			continue
		}
		if got.Decimals != want.Decimals || !got.TokenProgram.Equals(want.TokenProgram) || got.Supply != want.Supply {
			t.Errorf("token %s = %+v, want %+v", want.Mint, got, want)
		}
	}
}

func TestLoadAllSkipsCorruptEntries(t *testing.T) {
	store := tempStore(t)

	good := &TokenInfo{Mint: solana.NewWallet().PublicKey(), Decimals: 6, TokenProgram: common.TokenProgramID}
	if err := store.Save(good); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.db.Set(TokensBucket, []byte("garbage"), []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	if err := store.db.Set(TokensBucket, []byte("badmint"),
		[]byte(`{"mint":"***","decimals":6,"tokenProgram":"`+common.TokenProgramID.String()+`"}`)); err != nil {
		t.Fatalf("seed bad mint entry: %v", err)
	}

	loaded, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 1 || !loaded[0].Mint.Equals(good.Mint) {
		t.Errorf("loaded %v, want only the valid token", loaded)
	}
}

func TestRegistryWarmFromStore(t *testing.T) {
	store := tempStore(t)
	info := &TokenInfo{Mint: solana.NewWallet().PublicKey(), Decimals: 6, TokenProgram: common.TokenProgramID}
	if err := store.Save(info); err != nil {
		t.Fatalf("Save: %v", err)
	}

	conn := &fakeMintConn{}
	r := NewRegistry(conn, store)
	if err := r.Warm(); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	got, err := r.Resolve(context.Background(), info.Mint)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", got.Decimals)
	}
	if conn.calls != 0 {
		t.Errorf("chain fetched %d times, want 0 after warm", conn.calls)
	}
}

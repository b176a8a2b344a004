// Package market resolves token metadata (decimals, owning token program)
// and normalizes user-facing amounts to integer base units. Venue adapters
// depend on it so that every amount crossing an adapter boundary is already
// in base units.
package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solmesh/trade-engine/internal/common"
	"github.com/solmesh/trade-engine/internal/services/chain"
)

var (
	ErrUnknownMint   = errors.New("mint account not found")
	ErrNotMint       = errors.New("account is not a token mint")
	ErrInvalidAmount = errors.New("amount is not a valid token quantity")
)

// TokenInfo is the resolved metadata for one mint.
type TokenInfo struct {
	Mint         solana.PublicKey
	Decimals     uint8
	TokenProgram solana.PublicKey
	Supply       uint64
}

// splMint mirrors the SPL mint account layout.
type splMint struct {
	MintAuthorityOption   uint32
	MintAuthority         solana.PublicKey
	Supply                uint64
	Decimals              uint8
	IsInitialized         bool
	FreezeAuthorityOption uint32
	FreezeAuthority       solana.PublicKey
}

// Registry resolves mints through a sharded in-memory map, a BoltDB cache,
// and finally the chain connection, in that order. Safe for concurrent use.
type Registry struct {
	conn   chain.Connection
	tokens *ShardedTokenMap
	store  *TokenStore
}

func NewRegistry(conn chain.Connection, store *TokenStore) *Registry {
	return &Registry{
		conn:   conn,
		tokens: NewShardedTokenMap(),
		store:  store,
	}
}

// Warm loads every cached token from the store into memory. Called once at
// startup; failures are non-fatal since the chain remains authoritative.
func (r *Registry) Warm() error {
	if r.store == nil {
		return nil
	}
	infos, err := r.store.LoadAll()
	if err != nil {
		return err
	}
	for _, info := range infos {
		r.tokens.Set(info.Mint, info)
	}
	return nil
}

// Resolve returns metadata for a mint, fetching and caching it on first use.
func (r *Registry) Resolve(ctx context.Context, mint solana.PublicKey) (*TokenInfo, error) {
	if info, ok := r.tokens.Get(mint); ok {
		return info, nil
	}

	acc, err := r.conn.AccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("resolve mint %s: %w", mint, err)
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	if !acc.Owner.Equals(common.TokenProgramID) && !acc.Owner.Equals(common.Token2022ID) {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotMint, mint, acc.Owner)
	}

	var raw splMint
	if err := bin.NewBinDecoder(acc.Data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", mint, err)
	}

	info := &TokenInfo{
		Mint:         mint,
		Decimals:     raw.Decimals,
		TokenProgram: acc.Owner,
		Supply:       raw.Supply,
	}
	r.tokens.Set(mint, info)
	if r.store != nil {
		if err := r.store.Save(info); err != nil {
			// Cache write failures only cost a refetch next process start.
			return info, nil
		}
	}
	return info, nil
}

// IsListed reports whether the mint resolves to a valid token. Used by the
// venue router as part of availability probing.
func (r *Registry) IsListed(ctx context.Context, mint solana.PublicKey) bool {
	_, err := r.Resolve(ctx, mint)
	return err == nil
}

// Count returns the number of tokens known in memory.
func (r *Registry) Count() int {
	return r.tokens.Len()
}

// ToBaseUnits converts a UI-level amount into integer base units for the
// given decimal count. Fails on negative amounts and on amounts with more
// fractional digits than the mint supports.
func ToBaseUnits(ui decimal.Decimal, decimals uint8) (*big.Int, error) {
	if ui.IsNegative() {
		return nil, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	shifted := ui.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, decimals)
	}
	return shifted.BigInt(), nil
}

// FromBaseUnits converts integer base units back to a UI-level amount.
func FromBaseUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(amount, 0).Shift(-int32(decimals))
}

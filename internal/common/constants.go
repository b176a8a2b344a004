// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID       = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ID          = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	ATAProgramID         = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	ComputeBudgetProgram = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	SystemProgramID      = solana.SystemProgramID
	WrappedSOLMint       = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// PDA seeds used by the AMM and bonding-curve venue programs.
const (
	PoolSeed           = "pool"
	OracleSeed         = "oracle"
	TickArraySeed      = "tick_array"
	BondingCurveSeed   = "bonding-curve"
	CreatorVaultSeed   = "creator-vault"
	GlobalSeed         = "global"
	EventAuthoritySeed = "__event_authority"
)

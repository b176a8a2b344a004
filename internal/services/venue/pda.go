package venue

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/common"
)

// PDA derivations are pure functions of their seeds, so every result is
// cached process-wide.
var (
	ataCache    sync.Map // owner|mint -> solana.PublicKey
	oracleCache sync.Map // pool -> solana.PublicKey
	curveCache  sync.Map // mint -> solana.PublicKey
)

// ataAddress derives the associated token account for owner and mint under
// the given token program (classic or Token-2022).
func ataAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	key := owner.String() + "|" + mint.String()
	if cached, ok := ataCache.Load(key); ok {
		return cached.(solana.PublicKey), nil
	}

	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		common.ATAProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ATA for %s/%s: %w", owner, mint, err)
	}

	ataCache.Store(key, addr)
	return addr, nil
}

// oracleAddress derives the price oracle account attached to a CLMM pool.
func oracleAddress(program, pool solana.PublicKey) (solana.PublicKey, error) {
	if cached, ok := oracleCache.Load(pool); ok {
		return cached.(solana.PublicKey), nil
	}

	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.OracleSeed), pool.Bytes()},
		program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive oracle for pool %s: %w", pool, err)
	}

	oracleCache.Store(pool, addr)
	return addr, nil
}

// curveAddress derives the bonding-curve state account for a mint.
func curveAddress(program, mint solana.PublicKey) (solana.PublicKey, error) {
	if cached, ok := curveCache.Load(mint); ok {
		return cached.(solana.PublicKey), nil
	}

	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.BondingCurveSeed), mint.Bytes()},
		program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive curve for mint %s: %w", mint, err)
	}

	curveCache.Store(mint, addr)
	return addr, nil
}

// createATAInstruction is the idempotent create-associated-token-account
// instruction. Data byte 1 selects CreateIdempotent, a no-op when the
// account already exists, so builds never need an existence check.
type createATAInstruction struct {
	payer        solana.PublicKey
	ata          solana.PublicKey
	owner        solana.PublicKey
	mint         solana.PublicKey
	tokenProgram solana.PublicKey
}

func newCreateATAInstruction(payer, owner, mint, tokenProgram solana.PublicKey) (*createATAInstruction, error) {
	ata, err := ataAddress(owner, mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return &createATAInstruction{
		payer:        payer,
		ata:          ata,
		owner:        owner,
		mint:         mint,
		tokenProgram: tokenProgram,
	}, nil
}

func (ix *createATAInstruction) ProgramID() solana.PublicKey {
	return common.ATAProgramID
}

func (ix *createATAInstruction) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: ix.payer, IsSigner: true, IsWritable: true},
		{PublicKey: ix.ata, IsWritable: true},
		{PublicKey: ix.owner},
		{PublicKey: ix.mint},
		{PublicKey: common.SystemProgramID},
		{PublicKey: ix.tokenProgram},
	}
}

func (ix *createATAInstruction) Data() ([]byte, error) {
	return []byte{1}, nil
}

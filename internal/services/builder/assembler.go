// Package builder turns instruction sets into unsigned transactions. The
// compute-budget prefix always precedes the venue instructions so the
// runtime prices the whole transaction under the declared budget.
package builder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/services/chain"
)

type Assembler struct {
	conn chain.Connection
}

func NewAssembler(conn chain.Connection) *Assembler {
	return &Assembler{conn: conn}
}

// Draft builds an unsigned transaction over a zero blockhash, for
// simulation only. The simulator replaces the blockhash server-side, so
// drafting never spends a blockhash slot from the cache.
func (a *Assembler) Draft(instructions []solana.Instruction, payer solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("draft transaction: %w", err)
	}
	padSignatures(tx)
	return tx, nil
}

// Assemble builds the final unsigned transaction: budget instructions
// first, venue instructions after, over a fresh blockhash. Returns the
// last valid block height alongside so the submitter knows when the
// transaction can no longer land.
func (a *Assembler) Assemble(ctx context.Context, budget, venue []solana.Instruction, payer solana.PublicKey) (*solana.Transaction, uint64, error) {
	blockhash, lastValid, err := a.conn.LatestBlockhash(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch blockhash: %w", err)
	}

	instructions := make([]solana.Instruction, 0, len(budget)+len(venue))
	instructions = append(instructions, budget...)
	instructions = append(instructions, venue...)

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, 0, fmt.Errorf("assemble transaction: %w", err)
	}
	return tx, lastValid, nil
}

// padSignatures fills the signature slots with zeros so the unsigned
// transaction still serializes for simulation.
func padSignatures(tx *solana.Transaction) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		tx.Signatures = make([]solana.Signature, required)
	}
}

// Package chain provides the connection capability the trade pipeline runs
// against: simulate, blockhash, raw send, and confirmation-status lookups.
// The pipeline only ever sees the Connection interface; callers decide which
// implementation backs it.
package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/domain"
)

// AccountInfo is a minimal on-chain account view used for listing probes and
// token metadata resolution.
type AccountInfo struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Connection is the stateless-per-call network capability. Implementations
// must be safe for concurrent use across independent trades.
type Connection interface {
	// Simulate dry-runs the transaction against current state. A transport
	// failure is returned as error; a program-level failure comes back in
	// the outcome's ExecErr with a nil error.
	Simulate(ctx context.Context, tx *solana.Transaction) (*domain.SimulationOutcome, error)

	// LatestBlockhash returns a current blockhash and its last valid block
	// height.
	LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)

	// SendRawTransaction submits fully signed transaction bytes.
	SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error)

	// SignatureStatus reports the current confirmation state of a
	// signature. A nil status means the network does not know the
	// signature (yet).
	SignatureStatus(ctx context.Context, sig solana.Signature) (*domain.ConfirmationStatus, error)

	// TransactionLogs fetches the execution logs of a landed transaction,
	// best effort.
	TransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error)

	// AccountInfo fetches an account, nil when the account does not exist.
	AccountInfo(ctx context.Context, addr solana.PublicKey) (*AccountInfo, error)
}

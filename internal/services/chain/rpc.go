package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
)

// blockhashTTL is how long a fetched blockhash is served from cache before a
// fresh RPC fetch. Well inside the network validity window, so "fresh at
// assembly time" still holds.
const blockhashTTL = 2 * time.Second

type cachedBlockhash struct {
	blockhash            solana.Hash
	lastValidBlockHeight uint64
	updatedAt            time.Time
}

// RPCConnection backs the Connection capability with a JSON-RPC client.
type RPCConnection struct {
	client *rpc.Client

	mu      sync.RWMutex
	current *cachedBlockhash
}

var _ Connection = (*RPCConnection)(nil)

func NewRPCConnection(client *rpc.Client) *RPCConnection {
	return &RPCConnection{client: client}
}

// Client exposes the underlying RPC client for collaborators that need
// endpoints outside the Connection contract (e.g. recent prioritization
// fees).
func (c *RPCConnection) Client() *rpc.Client {
	return c.client
}

func (c *RPCConnection) Simulate(ctx context.Context, tx *solana.Transaction) (*domain.SimulationOutcome, error) {
	opts := rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		ReplaceRecentBlockhash: true,
	}

	result, err := c.client.SimulateTransactionWithOpts(ctx, tx, &opts)
	if err != nil {
		return nil, fmt.Errorf("simulate rpc: %w", err)
	}

	outcome := &domain.SimulationOutcome{
		Logs: result.Value.Logs,
	}
	if result.Value.UnitsConsumed != nil {
		outcome.UnitsConsumed = *result.Value.UnitsConsumed
	}
	if result.Value.Err != nil {
		outcome.ExecErr = fmt.Sprintf("%v", result.Value.Err)
	}
	return outcome, nil
}

func (c *RPCConnection) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	c.mu.RLock()
	cached := c.current
	c.mu.RUnlock()

	if cached != nil && time.Since(cached.updatedAt) < blockhashTTL {
		return cached.blockhash, cached.lastValidBlockHeight, nil
	}

	res, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		// Serve the stale entry rather than failing the trade; the
		// submission path classifies an expired blockhash anyway.
		if cached != nil {
			log.Warn().Err(err).Msg("[chain] blockhash fetch failed, serving cached")
			return cached.blockhash, cached.lastValidBlockHeight, nil
		}
		return solana.Hash{}, 0, fmt.Errorf("latest blockhash: %w", err)
	}

	c.mu.Lock()
	c.current = &cachedBlockhash{
		blockhash:            res.Value.Blockhash,
		lastValidBlockHeight: res.Value.LastValidBlockHeight,
		updatedAt:            time.Now(),
	}
	c.mu.Unlock()

	return res.Value.Blockhash, res.Value.LastValidBlockHeight, nil
}

func (c *RPCConnection) SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	sig, err := c.client.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (c *RPCConnection) SignatureStatus(ctx context.Context, sig solana.Signature) (*domain.ConfirmationStatus, error) {
	res, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("signature statuses: %w", err)
	}
	if len(res.Value) == 0 || res.Value[0] == nil {
		return nil, nil
	}

	st := res.Value[0]
	status := &domain.ConfirmationStatus{
		Slot:      st.Slot,
		Confirmed: st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
		Finalized: st.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
	}
	if st.Err != nil {
		status.ExecErr = fmt.Sprintf("%v", st.Err)
	}
	return status, nil
}

func (c *RPCConnection) TransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	maxVersion := uint64(0)
	out, err := c.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if out == nil || out.Meta == nil {
		return nil, nil
	}
	return out.Meta.LogMessages, nil
}

func (c *RPCConnection) AccountInfo(ctx context.Context, addr solana.PublicKey) (*AccountInfo, error) {
	res, err := c.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("account info %s: %w", addr, err)
	}
	if res == nil || res.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Owner:    res.Value.Owner,
		Lamports: res.Value.Lamports,
	}
	if res.Value.Data != nil {
		info.Data = res.Value.Data.GetBinary()
	}
	return info, nil
}

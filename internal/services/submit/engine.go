// Package submit sends signed transactions and drives them to a terminal
// confirmation state. Network acceptance and execution success are kept
// distinct: a finalized transaction whose program errored is a failed
// trade, not a confirmed one.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/metrics"
	"github.com/solmesh/trade-engine/internal/services/chain"
)

const (
	// DefaultConfirmTimeout bounds the confirmation poll when the request
	// does not set its own.
	DefaultConfirmTimeout = 60 * time.Second

	// pollInterval is the spacing between signature status checks.
	pollInterval = 1500 * time.Millisecond

	maxSendRetries = 3
)

// Engine submits raw transactions with bounded retry and polls signatures
// to a terminal state.
type Engine struct {
	conn           chain.Connection
	confirmTimeout time.Duration
}

func NewEngine(conn chain.Connection, confirmTimeout time.Duration) *Engine {
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	return &Engine{conn: conn, confirmTimeout: confirmTimeout}
}

// Send submits signed transaction bytes. Transient transport errors retry
// with exponential backoff; errors the taxonomy marks terminal, and
// blockhash expiry, abort immediately so the caller decides what happens
// next.
func (e *Engine) Send(ctx context.Context, raw []byte) (solana.Signature, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(), maxSendRetries), ctx)

	var sig solana.Signature
	err := backoff.Retry(func() error {
		var sendErr error
		sig, sendErr = e.conn.SendRawTransaction(ctx, raw)
		if sendErr == nil {
			return nil
		}
		classified := domain.ClassifySendError(sendErr)
		if domain.Terminal(classified) || errors.Is(classified, domain.ErrBlockhashExpired) {
			return backoff.Permanent(classified)
		}
		log.Warn().Err(sendErr).Msg("[submit] send failed, retrying")
		return classified
	}, policy)
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// Confirm polls the signature until it finalizes, fails, or the timeout
// elapses. The returned status always carries the last slot seen.
func (e *Engine) Confirm(ctx context.Context, sig solana.Signature, timeout time.Duration) (*domain.ConfirmationStatus, error) {
	if timeout <= 0 {
		timeout = e.confirmTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last *domain.ConfirmationStatus
	for {
		status, err := e.conn.SignatureStatus(ctx, sig)
		if err == nil && status != nil {
			last = status
			if status.ExecErr != "" {
				return status, e.onchainFailure(ctx, sig, status)
			}
			if status.Finalized {
				metrics.ConfirmationDuration.Observe(time.Since(started).Seconds())
				return status, nil
			}
		} else if err != nil {
			log.Debug().Err(err).Str("signature", sig.String()).Msg("[submit] status poll failed")
		}

		select {
		case <-ctx.Done():
			metrics.ConfirmationTimeouts.Inc()
			return last, domain.NewTradeError(domain.ErrConfirmationTimeout,
				fmt.Sprintf("signature %s not finalized within %s", sig, timeout))
		case <-ticker.C:
		}
	}
}

// Recheck performs a single status lookup, for callers that timed out and
// want a later answer without re-entering the poll loop.
func (e *Engine) Recheck(ctx context.Context, sig solana.Signature) (*domain.ConfirmationStatus, error) {
	status, err := e.conn.SignatureStatus(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("recheck %s: %w", sig, err)
	}
	if status != nil && status.ExecErr != "" {
		return status, e.onchainFailure(ctx, sig, status)
	}
	return status, nil
}

// onchainFailure builds the terminal error for a landed-but-failed
// transaction, attaching execution logs when the node still has them.
func (e *Engine) onchainFailure(ctx context.Context, sig solana.Signature, status *domain.ConfirmationStatus) error {
	logs, logErr := e.conn.TransactionLogs(ctx, sig)
	if logErr != nil {
		log.Debug().Err(logErr).Str("signature", sig.String()).Msg("[submit] log fetch failed")
	}
	return domain.NewTradeError(domain.ErrOnchainExecution, status.ExecErr, logs...)
}

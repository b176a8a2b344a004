package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Trade error taxonomy. Every failure the pipeline surfaces wraps exactly
// one of these sentinels, so callers classify with errors.Is regardless of
// which venue or signer path produced the failure.
var (
	ErrVenueUnavailable    = errors.New("no venue can serve this pair")
	ErrQuoteExpired        = errors.New("quote exceeded staleness window")
	ErrSimulationFailed    = errors.New("transaction simulation failed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSlippageExceeded    = errors.New("slippage tolerance exceeded")
	ErrBlockhashExpired    = errors.New("blockhash expired")
	ErrUserRejected        = errors.New("user rejected signing request")
	ErrSubmissionNetwork   = errors.New("submission network error")
	ErrConfirmationTimeout = errors.New("confirmation timed out")
	ErrOnchainExecution    = errors.New("on-chain execution failed")
)

// TradeError attaches detail and on-chain logs to a taxonomy sentinel.
type TradeError struct {
	Kind   error
	Detail string
	Logs   []string
}

func (e *TradeError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *TradeError) Unwrap() error {
	return e.Kind
}

// NewTradeError wraps a taxonomy sentinel with detail.
func NewTradeError(kind error, detail string, logs ...string) *TradeError {
	return &TradeError{Kind: kind, Detail: detail, Logs: logs}
}

// ErrorLogs extracts attached on-chain logs, nil when the error carries
// none.
func ErrorLogs(err error) []string {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Logs
	}
	return nil
}

// ClassifyExecutionError maps a raw simulation or submission error string to
// the taxonomy. The match is substring-based because RPC nodes report
// program errors as opaque text.
func ClassifyExecutionError(detail string, logs []string) *TradeError {
	lower := strings.ToLower(detail)
	for _, l := range logs {
		lower += " " + strings.ToLower(l)
	}

	switch {
	case strings.Contains(lower, "insufficient") || strings.Contains(lower, "not enough"):
		return NewTradeError(ErrInsufficientFunds, detail, logs...)
	case strings.Contains(lower, "slippage") || strings.Contains(lower, "exceededslippage") ||
		strings.Contains(lower, "toomuchsolrequired") || strings.Contains(lower, "toolittlesolreceived"):
		return NewTradeError(ErrSlippageExceeded, detail, logs...)
	case strings.Contains(lower, "blockhashnotfound") || strings.Contains(lower, "blockhash not found"):
		return NewTradeError(ErrBlockhashExpired, detail, logs...)
	default:
		return NewTradeError(ErrSimulationFailed, detail, logs...)
	}
}

// ClassifySendError maps a send-path transport error to the taxonomy.
func ClassifySendError(err error) *TradeError {
	detail := err.Error()
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "blockhashnotfound") || strings.Contains(lower, "blockhash not found"):
		return NewTradeError(ErrBlockhashExpired, detail)
	case strings.Contains(lower, "insufficient"):
		return NewTradeError(ErrInsufficientFunds, detail)
	case strings.Contains(lower, "slippage") || strings.Contains(lower, "exceededslippage"):
		return NewTradeError(ErrSlippageExceeded, detail)
	default:
		return NewTradeError(ErrSubmissionNetwork, detail)
	}
}

// Terminal reports whether the error never warrants an automatic retry.
func Terminal(err error) bool {
	return errors.Is(err, ErrUserRejected) ||
		errors.Is(err, ErrOnchainExecution) ||
		errors.Is(err, ErrSimulationFailed) ||
		errors.Is(err, ErrInsufficientFunds)
}

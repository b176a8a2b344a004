package domain

import (
	"errors"
	"testing"
)

func TestClassifyExecutionError(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		logs   []string
		want   error
	}{
		{
			name:   "insufficient funds in detail",
			detail: "Transfer: insufficient lamports 100, need 200",
			want:   ErrInsufficientFunds,
		},
		{
			name:   "not enough in logs",
			detail: "custom program error: 0x1",
			logs:   []string{"Program log: not enough tokens in account"},
			want:   ErrInsufficientFunds,
		},
		{
			name:   "slippage from program error name",
			detail: "custom program error: ExceededSlippage",
			want:   ErrSlippageExceeded,
		},
		{
			name:   "slippage from curve error",
			detail: "failed: TooMuchSolRequired",
			want:   ErrSlippageExceeded,
		},
		{
			name:   "blockhash not found",
			detail: "BlockhashNotFound",
			want:   ErrBlockhashExpired,
		},
		{
			name:   "unknown program error defaults to simulation failure",
			detail: "custom program error: 0x1771",
			want:   ErrSimulationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyExecutionError(tt.detail, tt.logs)
			if !errors.Is(got, tt.want) {
				t.Errorf("ClassifyExecutionError(%q) = %v, want kind %v", tt.detail, got, tt.want)
			}
		})
	}
}

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"blockhash expiry", errors.New("rpc: BlockhashNotFound"), ErrBlockhashExpired},
		{"insufficient", errors.New("insufficient funds for fee"), ErrInsufficientFunds},
		{"network default", errors.New("connection refused"), ErrSubmissionNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySendError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("ClassifySendError(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []error{ErrUserRejected, ErrOnchainExecution, ErrSimulationFailed, ErrInsufficientFunds}
	for _, err := range terminal {
		if !Terminal(NewTradeError(err, "detail")) {
			t.Errorf("Terminal(%v) = false, want true", err)
		}
	}

	retryable := []error{ErrVenueUnavailable, ErrQuoteExpired, ErrBlockhashExpired, ErrSubmissionNetwork, ErrConfirmationTimeout}
	for _, err := range retryable {
		if Terminal(NewTradeError(err, "detail")) {
			t.Errorf("Terminal(%v) = true, want false", err)
		}
	}
}

func TestTradeErrorLogs(t *testing.T) {
	err := NewTradeError(ErrOnchainExecution, "program failed", "log1", "log2")
	logs := ErrorLogs(err)
	if len(logs) != 2 || logs[0] != "log1" {
		t.Errorf("ErrorLogs = %v, want [log1 log2]", logs)
	}

	if ErrorLogs(errors.New("plain")) != nil {
		t.Error("ErrorLogs on plain error should be nil")
	}
}

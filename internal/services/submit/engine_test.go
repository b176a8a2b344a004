package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/services/chain"
)

type fakeSubmitConn struct {
	chain.Connection

	sendCalls int
	sendErrs  []error
	sig       solana.Signature

	statuses    []*domain.ConfirmationStatus
	statusCalls int
	logs        []string
}

func (f *fakeSubmitConn) SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	call := f.sendCalls
	f.sendCalls++
	if call < len(f.sendErrs) && f.sendErrs[call] != nil {
		return solana.Signature{}, f.sendErrs[call]
	}
	return f.sig, nil
}

func (f *fakeSubmitConn) SignatureStatus(ctx context.Context, sig solana.Signature) (*domain.ConfirmationStatus, error) {
	call := f.statusCalls
	f.statusCalls++
	if call >= len(f.statuses) {
		if len(f.statuses) == 0 {
			return nil, nil
		}
		return f.statuses[len(f.statuses)-1], nil
	}
	return f.statuses[call], nil
}

func (f *fakeSubmitConn) TransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	return f.logs, nil
}

func testSignature() solana.Signature {
	var sig solana.Signature
	sig[0] = 1
	return sig
}

func TestSendRetriesTransientErrors(t *testing.T) {
	conn := &fakeSubmitConn{
		sendErrs: []error{errors.New("connection reset"), nil},
		sig:      testSignature(),
	}
	e := NewEngine(conn, time.Second)

	sig, err := e.Send(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sig != conn.sig {
		t.Error("returned signature does not match the accepted submission")
	}
	if conn.sendCalls != 2 {
		t.Errorf("send attempted %d times, want 2", conn.sendCalls)
	}
}

func TestSendTerminalErrorDoesNotRetry(t *testing.T) {
	conn := &fakeSubmitConn{
		sendErrs: []error{errors.New("insufficient funds for fee"), nil},
	}
	e := NewEngine(conn, time.Second)

	_, err := e.Send(context.Background(), []byte{1})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if conn.sendCalls != 1 {
		t.Errorf("terminal error retried: %d send calls", conn.sendCalls)
	}
}

func TestSendBlockhashExpiryAbortsImmediately(t *testing.T) {
	conn := &fakeSubmitConn{
		sendErrs: []error{errors.New("BlockhashNotFound"), nil},
	}
	e := NewEngine(conn, time.Second)

	_, err := e.Send(context.Background(), []byte{1})
	if !errors.Is(err, domain.ErrBlockhashExpired) {
		t.Fatalf("err = %v, want ErrBlockhashExpired", err)
	}
	if conn.sendCalls != 1 {
		t.Errorf("blockhash expiry retried: %d send calls", conn.sendCalls)
	}
}

func TestConfirmFinalized(t *testing.T) {
	conn := &fakeSubmitConn{
		statuses: []*domain.ConfirmationStatus{
			{Slot: 100, Finalized: true},
		},
	}
	e := NewEngine(conn, time.Second)

	status, err := e.Confirm(context.Background(), testSignature(), time.Second)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !status.Finalized || status.Slot != 100 {
		t.Errorf("status = %+v, want finalized at slot 100", status)
	}
}

func TestConfirmExecutionFailureIsTerminal(t *testing.T) {
	conn := &fakeSubmitConn{
		statuses: []*domain.ConfirmationStatus{
			{Slot: 100, Finalized: true, ExecErr: "custom program error: 0x1771"},
		},
		logs: []string{"Program log: slippage check failed"},
	}
	e := NewEngine(conn, time.Second)

	status, err := e.Confirm(context.Background(), testSignature(), time.Second)
	if !errors.Is(err, domain.ErrOnchainExecution) {
		t.Fatalf("err = %v, want ErrOnchainExecution", err)
	}
	if status == nil || status.Slot != 100 {
		t.Error("status of the landed transaction must be returned alongside the error")
	}
	logs := domain.ErrorLogs(err)
	if len(logs) != 1 || logs[0] != "Program log: slippage check failed" {
		t.Errorf("error logs = %v, want the fetched execution logs", logs)
	}
}

func TestConfirmTimeout(t *testing.T) {
	e := NewEngine(&fakeSubmitConn{}, time.Second)

	_, err := e.Confirm(context.Background(), testSignature(), 20*time.Millisecond)
	if !errors.Is(err, domain.ErrConfirmationTimeout) {
		t.Errorf("err = %v, want ErrConfirmationTimeout", err)
	}
}

func TestRecheck(t *testing.T) {
	t.Run("late finalization", func(t *testing.T) {
		conn := &fakeSubmitConn{
			statuses: []*domain.ConfirmationStatus{{Slot: 200, Finalized: true}},
		}
		e := NewEngine(conn, time.Second)

		status, err := e.Recheck(context.Background(), testSignature())
		if err != nil {
			t.Fatalf("Recheck: %v", err)
		}
		if status == nil || !status.Finalized {
			t.Errorf("status = %+v, want finalized", status)
		}
	})

	t.Run("still unknown", func(t *testing.T) {
		e := NewEngine(&fakeSubmitConn{}, time.Second)

		status, err := e.Recheck(context.Background(), testSignature())
		if err != nil {
			t.Fatalf("Recheck: %v", err)
		}
		if status != nil {
			t.Errorf("status = %+v, want nil for an unknown signature", status)
		}
	})

	t.Run("landed but failed", func(t *testing.T) {
		conn := &fakeSubmitConn{
			statuses: []*domain.ConfirmationStatus{{Slot: 200, Finalized: true, ExecErr: "failed"}},
		}
		e := NewEngine(conn, time.Second)

		_, err := e.Recheck(context.Background(), testSignature())
		if !errors.Is(err, domain.ErrOnchainExecution) {
			t.Errorf("err = %v, want ErrOnchainExecution", err)
		}
	})
}

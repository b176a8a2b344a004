package domain

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

// TradeRequest describes one trade attempt. Amounts are integer base units;
// UI-level amounts must be normalized through the token registry before a
// request is constructed.
type TradeRequest struct {
	TradeID string

	Trader solana.PublicKey

	InputMint solana.PublicKey

	OutputMint solana.PublicKey

	InputAmount *big.Int

	SlippageBps uint16

	FeeTier FeeTier

	FeeMode FeeMode

	// PreferredVenue, when set, is probed first and used without consulting
	// the rest of the priority order if it reports available.
	PreferredVenue VenueID

	// ConfirmTimeout bounds the confirmation-poll phase only. Zero means the
	// submission engine default.
	ConfirmTimeout time.Duration
}

type SubmissionState uint8

const (
	SubmissionPending SubmissionState = iota
	SubmissionConfirmed
	SubmissionFailed
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionConfirmed:
		return "confirmed"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubmissionResult is the terminal contract of the pipeline. A transaction
// can be accepted by the network and still fail on-chain; State reflects the
// execution outcome, never just network acceptance.
type SubmissionResult struct {
	TradeID   string           `json:"tradeId"`
	Signature solana.Signature `json:"signature"`
	State     SubmissionState  `json:"-"`
	StateName string           `json:"state"`
	Slot      uint64           `json:"slot,omitempty"`
	Venue     VenueID          `json:"venue,omitempty"`
	Logs      []string         `json:"logs,omitempty"`
	Err       error            `json:"-"`
	Error     string           `json:"error,omitempty"`
}

// Finalize fills the serialization-only mirror fields from State and Err.
func (r *SubmissionResult) Finalize() *SubmissionResult {
	r.StateName = r.State.String()
	if r.Err != nil {
		r.Error = r.Err.Error()
	}
	return r
}

// SimulationOutcome is the normalized result of a dry-run execution.
type SimulationOutcome struct {
	UnitsConsumed uint64
	Logs          []string

	// ExecErr carries the program-level error reported by the simulation,
	// empty when the dry run succeeded. A nil transport error with a
	// non-empty ExecErr means the network answered but the instruction set
	// cannot execute.
	ExecErr string
}

func (o *SimulationOutcome) Succeeded() bool {
	return o != nil && o.ExecErr == ""
}

// ConfirmationStatus is a point-in-time view of a submitted signature.
type ConfirmationStatus struct {
	Slot      uint64
	Confirmed bool
	Finalized bool

	// ExecErr is the on-chain execution error, empty when the transaction
	// executed successfully.
	ExecErr string
}

package domain

import "time"

// TradePhase is the pipeline phase. Phases for one trade are emitted in
// strictly increasing order; a retry re-enters an earlier phase's work but
// never re-emits a phase that already passed.
type TradePhase uint8

const (
	PhaseQuoting TradePhase = iota
	PhaseBuilding
	PhaseEstimating
	PhaseAwaitingSignature
	PhaseSubmitting
	PhaseConfirming
	PhaseConfirmed
	PhaseFailed
)

func (p TradePhase) String() string {
	switch p {
	case PhaseQuoting:
		return "quoting"
	case PhaseBuilding:
		return "building"
	case PhaseEstimating:
		return "estimating"
	case PhaseAwaitingSignature:
		return "awaiting-signature"
	case PhaseSubmitting:
		return "submitting"
	case PhaseConfirming:
		return "confirming"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends the stream for its trade.
func (p TradePhase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// StatusEvent is one entry in a trade's ordered status stream. Seq is
// monotonically increasing per trade. Terminal failures arrive on the same
// stream as progress updates, with Err set.
type StatusEvent struct {
	TradeID string     `json:"tradeId"`
	Seq     uint64     `json:"seq"`
	Phase   TradePhase `json:"-"`
	Name    string     `json:"phase"`
	Detail  string     `json:"detail,omitempty"`
	Err     error      `json:"-"`
	Error   string     `json:"error,omitempty"`
	At      time.Time  `json:"at"`
}

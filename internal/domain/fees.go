package domain

import "fmt"

// FeeTier selects how aggressively a trade bids for block inclusion.
// Tiers are totally ordered; a higher tier always yields a strictly higher
// unit price under the same base price.
type FeeTier uint8

const (
	FeeTierLow FeeTier = iota
	FeeTierMedium
	FeeTierHigh
	FeeTierVeryHigh
)

func (t FeeTier) String() string {
	switch t {
	case FeeTierLow:
		return "low"
	case FeeTierMedium:
		return "medium"
	case FeeTierHigh:
		return "high"
	case FeeTierVeryHigh:
		return "very-high"
	default:
		return "unknown"
	}
}

// Multiplier returns the per-tier constant applied to the base unit price:
// price = base * (1 + multiplier * 10).
func (t FeeTier) Multiplier() float64 {
	switch t {
	case FeeTierLow:
		return 0.2
	case FeeTierMedium:
		return 0.5
	case FeeTierHigh:
		return 0.8
	case FeeTierVeryHigh:
		return 1.2
	default:
		return 0.5
	}
}

func ParseFeeTier(s string) (FeeTier, error) {
	switch s {
	case "low":
		return FeeTierLow, nil
	case "", "medium":
		return FeeTierMedium, nil
	case "high":
		return FeeTierHigh, nil
	case "very-high", "veryHigh":
		return FeeTierVeryHigh, nil
	default:
		return FeeTierMedium, fmt.Errorf("unknown fee tier %q", s)
	}
}

// FeeMode selects the fee mechanism. Exactly one mode applies per
// transaction.
type FeeMode uint8

const (
	// FeeModePriority injects a unit-limit and a unit-price instruction, in
	// that order, ahead of the venue instructions.
	FeeModePriority FeeMode = iota

	// FeeModeBundled injects a single raised unit-limit instruction and no
	// price instruction; priority is paid out-of-band by the bundled
	// submission path.
	FeeModeBundled
)

func (m FeeMode) String() string {
	if m == FeeModeBundled {
		return "bundled"
	}
	return "priority"
}

func ParseFeeMode(s string) (FeeMode, error) {
	switch s {
	case "", "priority":
		return FeeModePriority, nil
	case "bundled":
		return FeeModeBundled, nil
	default:
		return FeeModePriority, fmt.Errorf("unknown fee mode %q", s)
	}
}

// Compute budget bounds.
const (
	// MaxComputeUnits is the network ceiling for a single transaction.
	MaxComputeUnits = 1_400_000

	// ComputeUnitMargin is the absolute safety margin added to simulated
	// consumption.
	ComputeUnitMargin = 100_000

	// ComputeUnitHeadroom is the relative safety margin; the larger of the
	// two margins wins.
	ComputeUnitHeadroom = 1.2

	// BundledUnitLimit is the unit limit used in bundled mode when no
	// simulation-backed estimate is available.
	BundledUnitLimit = 2_000_000
)

// ComputeBudget is a safety-margined compute ceiling plus an optional
// per-unit price. Invariant: UnitLimit >= simulated consumption.
type ComputeBudget struct {
	UnitLimit              uint32
	UnitPriceMicroLamports uint64
}

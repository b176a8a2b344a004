package priority

import (
	"math"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/solmesh/trade-engine/internal/domain"
)

// tierScale converts a tier multiplier into the price factor:
// price = base * (1 + multiplier * tierScale).
const tierScale = 10

// UnitPrice computes the per-unit price in microlamports for a tier on top
// of a base price. Monotonicity over tiers follows from the multipliers
// being strictly increasing.
func UnitPrice(baseMicroLamports uint64, tier domain.FeeTier) uint64 {
	price := float64(baseMicroLamports) * (1 + tier.Multiplier()*tierScale)
	if price >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(price)
}

// Budget assembles the compute budget for a fee mode. estimatedLimit is the
// margined unit limit from simulation, zero when no estimate exists.
func Budget(mode domain.FeeMode, tier domain.FeeTier, baseMicroLamports uint64, estimatedLimit uint32) domain.ComputeBudget {
	if mode == domain.FeeModeBundled {
		// Bundled submissions pay for inclusion out-of-band, so no unit
		// price is set. Without an estimate the limit is raised past the
		// single-transaction ceiling for the bundle path to partition.
		limit := estimatedLimit
		if limit == 0 {
			limit = domain.BundledUnitLimit
		}
		return domain.ComputeBudget{UnitLimit: limit}
	}

	return domain.ComputeBudget{
		UnitLimit:              estimatedLimit,
		UnitPriceMicroLamports: UnitPrice(baseMicroLamports, tier),
	}
}

// Instructions renders a compute budget as the instruction prefix of a
// transaction. Priority mode emits limit then price; bundled mode emits the
// limit alone.
func Instructions(mode domain.FeeMode, budget domain.ComputeBudget) ([]solana.Instruction, error) {
	limitIx, err := computebudget.NewSetComputeUnitLimitInstruction(budget.UnitLimit).ValidateAndBuild()
	if err != nil {
		return nil, err
	}

	if mode == domain.FeeModeBundled {
		return []solana.Instruction{limitIx}, nil
	}

	priceIx, err := computebudget.NewSetComputeUnitPriceInstruction(budget.UnitPriceMicroLamports).ValidateAndBuild()
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{limitIx, priceIx}, nil
}

package venue

import (
	"math/big"

	"github.com/holiman/uint256"
)

const bpsDenominator = 10_000

// minAmountOut applies a slippage tolerance to a quoted output amount,
// rounding down. This is the execution floor written into the venue
// instruction.
func minAmountOut(out *big.Int, slippageBps uint16) *big.Int {
	v, overflow := uint256.FromBig(out)
	if overflow {
		// Token amounts are u64 on chain; anything larger is already
		// invalid and is passed through untouched for the venue to reject.
		return new(big.Int).Set(out)
	}
	v.Mul(v, uint256.NewInt(uint64(bpsDenominator-slippageBps)))
	v.Div(v, uint256.NewInt(bpsDenominator))
	return v.ToBig()
}

// maxAmountIn applies a slippage tolerance to a quoted input amount,
// rounding up. Used by exact-output flows.
func maxAmountIn(in *big.Int, slippageBps uint16) *big.Int {
	v, overflow := uint256.FromBig(in)
	if overflow {
		return new(big.Int).Set(in)
	}
	v.Mul(v, uint256.NewInt(uint64(bpsDenominator+slippageBps)))
	v.AddUint64(v, bpsDenominator-1)
	v.Div(v, uint256.NewInt(bpsDenominator))
	return v.ToBig()
}

// priceImpactBps measures how far an executed price falls below the spot
// price implied by the reserves, in basis points.
func priceImpactBps(amountIn, amountOut *big.Int, reserveIn, reserveOut uint64) uint16 {
	if reserveIn == 0 || amountIn.Sign() <= 0 {
		return 0
	}

	in, overflow := uint256.FromBig(amountIn)
	if overflow {
		return bpsDenominator
	}
	out, overflow := uint256.FromBig(amountOut)
	if overflow {
		return 0
	}

	// expected = amountIn * reserveOut / reserveIn at the spot price
	expected := new(uint256.Int).Mul(in, uint256.NewInt(reserveOut))
	expected.Div(expected, uint256.NewInt(reserveIn))
	if expected.IsZero() || out.Cmp(expected) >= 0 {
		return 0
	}

	diff := new(uint256.Int).Sub(expected, out)
	diff.Mul(diff, uint256.NewInt(bpsDenominator))
	diff.Div(diff, expected)
	if !diff.IsUint64() || diff.Uint64() > bpsDenominator {
		return bpsDenominator
	}
	return uint16(diff.Uint64())
}

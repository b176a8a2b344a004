package priority

import (
	"context"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
)

const (
	// basePercentile is where the base unit price sits in the recent-fee
	// distribution; tier multipliers scale up from there.
	basePercentile = 75

	// minBaseFee is the floor applied to the sampled base, microlamports.
	minBaseFee = 100
)

// RecentFeeSource is the slice of the RPC client the calculator needs.
type RecentFeeSource interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error)
}

// FeeCalculator derives the base unit price from recent network fees. The
// static fallback keeps trades flowing when the fee RPC is down.
type FeeCalculator struct {
	source   RecentFeeSource
	fallback uint64
}

func NewFeeCalculator(source RecentFeeSource, fallbackMicroLamports uint64) *FeeCalculator {
	if fallbackMicroLamports == 0 {
		fallbackMicroLamports = 1000
	}
	return &FeeCalculator{source: source, fallback: fallbackMicroLamports}
}

// BaseFee samples recent prioritization fees for the given writable
// accounts and returns the base unit price in microlamports per compute
// unit.
func (f *FeeCalculator) BaseFee(ctx context.Context, accounts []solana.PublicKey) uint64 {
	if f.source == nil {
		return f.fallback
	}

	recent, err := f.source.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		log.Warn().Err(err).Msg("[priority] recent fee lookup failed, using fallback")
		return f.fallback
	}

	fees := make([]uint64, 0, len(recent))
	for _, r := range recent {
		if r.PrioritizationFee > 0 {
			fees = append(fees, r.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return f.fallback
	}

	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	base := percentile(fees, basePercentile)
	if base < minBaseFee {
		base = minBaseFee
	}
	return base
}

// percentile returns the value at the given percentile of a sorted slice,
// with linear interpolation between neighbors.
func percentile(sorted []uint64, p int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	k := float64(p) / 100.0 * float64(len(sorted)-1)
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		c = len(sorted) - 1
	}

	d := k - float64(f)
	return uint64(float64(sorted[f])*(1-d) + float64(sorted[c])*d)
}

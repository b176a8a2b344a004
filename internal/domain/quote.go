package domain

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

type VenueID string

const (
	VenueAggregator   VenueID = "aggregator"
	VenueCLMM         VenueID = "clmm-amm"
	VenueCPMM         VenueID = "cpmm-amm"
	VenueBondingCurve VenueID = "bonding-curve"
)

// QuoteMaxAge is the quote-to-build staleness window. Adapters refuse to
// build instructions from a quote older than this; the pipeline re-quotes
// once before surfacing ErrQuoteExpired.
const QuoteMaxAge = 30 * time.Second

// VenueQuote is the venue-neutral quote shape. Every adapter normalizes its
// native response into this; quotes are produced fresh per request and never
// cached because prices move.
type VenueQuote struct {
	Venue VenueID

	InputMint  solana.PublicKey
	OutputMint solana.PublicKey

	InputAmount  *big.Int
	OutputAmount *big.Int

	// MinAmountOut is OutputAmount after the request's slippage tolerance.
	MinAmountOut *big.Int

	FeeAmount      *big.Int
	PriceImpactBps uint16

	// Market is the pool / curve / route entry address, informational.
	Market solana.PublicKey

	// Route lists the mint path, [input, ..., output].
	Route []solana.PublicKey

	FetchedAt time.Time

	// Meta holds the adapter's venue-native payload needed at build time
	// (pool state, raw aggregator response). Opaque outside the owning
	// adapter.
	Meta any
}

// Age reports how long ago the quote was fetched.
func (q *VenueQuote) Age() time.Duration {
	return time.Since(q.FetchedAt)
}

// Expired reports whether the quote is past the staleness window.
func (q *VenueQuote) Expired() bool {
	return q.Age() > QuoteMaxAge
}

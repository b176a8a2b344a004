// Package venue contains the liquidity venue adapters and the venue router.
// Each adapter translates one venue's native request/response shapes into
// the common VenueQuote / instruction-set contract; everything venue
// specific stays behind the Adapter interface so the assembler and pipeline
// are venue-agnostic.
package venue

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/domain"
)

// QuoteRequest carries the normalized inputs for a quote. Amounts are
// integer base units.
type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	InputAmount *big.Int
	SlippageBps uint16
}

// Adapter is the per-venue contract. Quote and build are separate calls
// because a quote may be shown to the user before commitment; build
// re-validates the quote's age and fails with ErrQuoteExpired past the
// staleness window.
type Adapter interface {
	ID() domain.VenueID

	// IsAvailable probes whether the traded token can be served here.
	// Probe failures (network errors) count as unavailable so the router
	// can fall back instead of aborting.
	IsAvailable(ctx context.Context, mint solana.PublicKey) bool

	GetQuote(ctx context.Context, req *QuoteRequest) (*domain.VenueQuote, error)

	// BuildInstructions produces the venue instruction set for the trader.
	// Identical inputs with an unexpired quote yield byte-identical
	// instructions.
	BuildInstructions(ctx context.Context, quote *domain.VenueQuote, trader solana.PublicKey) ([]solana.Instruction, error)
}

// validateQuote applies the shared build-time checks every adapter runs
// before touching venue-native state.
func validateQuote(quote *domain.VenueQuote, id domain.VenueID) error {
	if quote == nil {
		return fmt.Errorf("quote is nil")
	}
	if quote.Venue != id {
		return fmt.Errorf("quote venue %q does not match adapter %q", quote.Venue, id)
	}
	if quote.Expired() {
		return domain.NewTradeError(domain.ErrQuoteExpired,
			fmt.Sprintf("quote is %s old, max %s", quote.Age().Round(1e9), domain.QuoteMaxAge))
	}
	return nil
}

// anchorDiscriminator derives the 8-byte instruction discriminator used by
// Anchor-based venue programs.
func anchorDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

package venue

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/common"
	"github.com/solmesh/trade-engine/internal/domain"
)

// Router selects the venue for a trade. Adapters are probed in the fixed
// priority order they were registered with; a caller-preferred venue
// short-circuits the scan when it can serve the token.
type Router struct {
	ordered []Adapter
	byID    map[domain.VenueID]Adapter
}

func NewRouter(adapters ...Adapter) *Router {
	byID := make(map[domain.VenueID]Adapter, len(adapters))
	for _, a := range adapters {
		byID[a.ID()] = a
	}
	return &Router{ordered: adapters, byID: byID}
}

// Adapter returns the registered adapter for an ID.
func (r *Router) Adapter(id domain.VenueID) (Adapter, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Venues lists the registered venue IDs in priority order.
func (r *Router) Venues() []domain.VenueID {
	ids := make([]domain.VenueID, 0, len(r.ordered))
	for _, a := range r.ordered {
		ids = append(ids, a.ID())
	}
	return ids
}

// Select picks the venue for a trade between inputMint and outputMint.
// The probe targets the non-SOL side of the pair since SOL trades
// everywhere. Returns ErrVenueUnavailable when no venue can serve the
// token.
func (r *Router) Select(ctx context.Context, inputMint, outputMint solana.PublicKey, preferred domain.VenueID) (Adapter, error) {
	return r.selectExcluding(ctx, inputMint, outputMint, preferred, "")
}

// Reroute re-runs selection with one venue excluded. Used after a selected
// venue turns out to be unavailable mid-trade.
func (r *Router) Reroute(ctx context.Context, inputMint, outputMint solana.PublicKey, exclude domain.VenueID) (Adapter, error) {
	return r.selectExcluding(ctx, inputMint, outputMint, "", exclude)
}

func (r *Router) selectExcluding(ctx context.Context, inputMint, outputMint solana.PublicKey, preferred, exclude domain.VenueID) (Adapter, error) {
	traded := tradedMint(inputMint, outputMint)

	if preferred != "" && preferred != exclude {
		a, ok := r.byID[preferred]
		if !ok {
			return nil, fmt.Errorf("unknown venue %q", preferred)
		}
		if a.IsAvailable(ctx, traded) {
			return a, nil
		}
		log.Debug().
			Str("venue", string(preferred)).
			Str("mint", traded.String()).
			Msg("[router] preferred venue unavailable, falling back")
	}

	for _, a := range r.ordered {
		if a.ID() == exclude {
			continue
		}
		if a.IsAvailable(ctx, traded) {
			return a, nil
		}
	}

	return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
		fmt.Sprintf("no venue can serve %s", traded))
}

// tradedMint picks the token being traded against SOL. For token-to-token
// pairs the input side is probed.
func tradedMint(inputMint, outputMint solana.PublicKey) solana.PublicKey {
	if inputMint.Equals(common.WrappedSOLMint) {
		return outputMint
	}
	return inputMint
}

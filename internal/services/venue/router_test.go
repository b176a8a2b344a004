package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solmesh/trade-engine/internal/common"
	"github.com/solmesh/trade-engine/internal/domain"
)

type fakeAdapter struct {
	id        domain.VenueID
	available bool
	probed    []solana.PublicKey
}

func (f *fakeAdapter) ID() domain.VenueID { return f.id }

func (f *fakeAdapter) IsAvailable(ctx context.Context, mint solana.PublicKey) bool {
	f.probed = append(f.probed, mint)
	return f.available
}

func (f *fakeAdapter) GetQuote(ctx context.Context, req *QuoteRequest) (*domain.VenueQuote, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) BuildInstructions(ctx context.Context, quote *domain.VenueQuote, trader solana.PublicKey) ([]solana.Instruction, error) {
	return nil, errors.New("not implemented")
}

func TestRouterSelectPriorityOrder(t *testing.T) {
	first := &fakeAdapter{id: domain.VenueAggregator, available: false}
	second := &fakeAdapter{id: domain.VenueCLMM, available: true}
	third := &fakeAdapter{id: domain.VenueCPMM, available: true}
	r := NewRouter(first, second, third)

	a, err := r.Select(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if a.ID() != domain.VenueCLMM {
		t.Errorf("selected %s, want first available in priority order (%s)", a.ID(), domain.VenueCLMM)
	}
	if len(third.probed) != 0 {
		t.Error("lower-priority venue should not be probed after a match")
	}
}

func TestRouterPreferredShortCircuits(t *testing.T) {
	first := &fakeAdapter{id: domain.VenueAggregator, available: true}
	last := &fakeAdapter{id: domain.VenueBondingCurve, available: true}
	r := NewRouter(first, last)

	a, err := r.Select(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), domain.VenueBondingCurve)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if a.ID() != domain.VenueBondingCurve {
		t.Errorf("selected %s, want preferred %s", a.ID(), domain.VenueBondingCurve)
	}
	if len(first.probed) != 0 {
		t.Error("priority scan should not run when the preferred venue is available")
	}
}

func TestRouterPreferredUnavailableFallsBack(t *testing.T) {
	first := &fakeAdapter{id: domain.VenueAggregator, available: true}
	preferred := &fakeAdapter{id: domain.VenueCPMM, available: false}
	r := NewRouter(first, preferred)

	a, err := r.Select(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), domain.VenueCPMM)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if a.ID() != domain.VenueAggregator {
		t.Errorf("selected %s, want fallback %s", a.ID(), domain.VenueAggregator)
	}
}

func TestRouterUnknownPreferred(t *testing.T) {
	r := NewRouter(&fakeAdapter{id: domain.VenueAggregator, available: true})

	_, err := r.Select(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), "mystery-dex")
	if err == nil {
		t.Fatal("expected error for unknown preferred venue")
	}
}

func TestRouterRerouteExcludes(t *testing.T) {
	failed := &fakeAdapter{id: domain.VenueAggregator, available: true}
	backup := &fakeAdapter{id: domain.VenueCPMM, available: true}
	r := NewRouter(failed, backup)

	a, err := r.Reroute(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), domain.VenueAggregator)
	if err != nil {
		t.Fatalf("Reroute: %v", err)
	}
	if a.ID() != domain.VenueCPMM {
		t.Errorf("rerouted to %s, want %s", a.ID(), domain.VenueCPMM)
	}
	if len(failed.probed) != 0 {
		t.Error("excluded venue must not be probed")
	}
}

func TestRouterFallsBackToBondingCurve(t *testing.T) {
	r := NewRouter(
		&fakeAdapter{id: domain.VenueAggregator},
		&fakeAdapter{id: domain.VenueCLMM},
		&fakeAdapter{id: domain.VenueCPMM},
		&fakeAdapter{id: domain.VenueBondingCurve, available: true},
	)

	a, err := r.Select(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if a.ID() != domain.VenueBondingCurve {
		t.Errorf("selected %s, want the curve as the last resort", a.ID())
	}
}

func TestRouterNoVenueAvailable(t *testing.T) {
	r := NewRouter(
		&fakeAdapter{id: domain.VenueAggregator},
		&fakeAdapter{id: domain.VenueCPMM},
	)

	_, err := r.Select(context.Background(), common.WrappedSOLMint, solana.NewWallet().PublicKey(), "")
	if !errors.Is(err, domain.ErrVenueUnavailable) {
		t.Errorf("err = %v, want ErrVenueUnavailable", err)
	}
}

func TestRouterProbesNonSolSide(t *testing.T) {
	token := solana.NewWallet().PublicKey()
	a := &fakeAdapter{id: domain.VenueCPMM, available: true}
	r := NewRouter(a)

	t.Run("sol input probes output", func(t *testing.T) {
		a.probed = nil
		if _, err := r.Select(context.Background(), common.WrappedSOLMint, token, ""); err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(a.probed) != 1 || !a.probed[0].Equals(token) {
			t.Errorf("probed %v, want [%s]", a.probed, token)
		}
	})

	t.Run("token input probes input", func(t *testing.T) {
		a.probed = nil
		if _, err := r.Select(context.Background(), token, common.WrappedSOLMint, ""); err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(a.probed) != 1 || !a.probed[0].Equals(token) {
			t.Errorf("probed %v, want [%s]", a.probed, token)
		}
	})
}

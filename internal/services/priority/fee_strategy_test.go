package priority

import (
	"testing"

	"github.com/solmesh/trade-engine/internal/domain"
)

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name string
		base uint64
		tier domain.FeeTier
		want uint64
	}{
		{"low", 1000, domain.FeeTierLow, 3000},
		{"medium", 1000, domain.FeeTierMedium, 6000},
		{"high", 1000, domain.FeeTierHigh, 9000},
		{"very high", 1000, domain.FeeTierVeryHigh, 13000},
		{"zero base stays zero", 0, domain.FeeTierVeryHigh, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnitPrice(tt.base, tt.tier); got != tt.want {
				t.Errorf("UnitPrice(%d, %s) = %d, want %d", tt.base, tt.tier, got, tt.want)
			}
		})
	}
}

func TestUnitPriceMonotonicOverTiers(t *testing.T) {
	tiers := []domain.FeeTier{domain.FeeTierLow, domain.FeeTierMedium, domain.FeeTierHigh, domain.FeeTierVeryHigh}
	prev := uint64(0)
	for _, tier := range tiers {
		price := UnitPrice(2500, tier)
		if price <= prev {
			t.Errorf("UnitPrice(2500, %s) = %d, not greater than %d", tier, price, prev)
		}
		prev = price
	}
}

func TestBudgetPriorityMode(t *testing.T) {
	b := Budget(domain.FeeModePriority, domain.FeeTierMedium, 1000, 600_000)
	if b.UnitLimit != 600_000 {
		t.Errorf("UnitLimit = %d, want 600000", b.UnitLimit)
	}
	if b.UnitPriceMicroLamports != 6000 {
		t.Errorf("UnitPriceMicroLamports = %d, want 6000", b.UnitPriceMicroLamports)
	}
}

func TestBudgetBundledMode(t *testing.T) {
	t.Run("with estimate", func(t *testing.T) {
		b := Budget(domain.FeeModeBundled, domain.FeeTierHigh, 1000, 600_000)
		if b.UnitLimit != 600_000 {
			t.Errorf("UnitLimit = %d, want 600000", b.UnitLimit)
		}
		if b.UnitPriceMicroLamports != 0 {
			t.Errorf("bundled budget must not set a unit price, got %d", b.UnitPriceMicroLamports)
		}
	})

	t.Run("without estimate", func(t *testing.T) {
		b := Budget(domain.FeeModeBundled, domain.FeeTierHigh, 1000, 0)
		if b.UnitLimit != domain.BundledUnitLimit {
			t.Errorf("UnitLimit = %d, want %d", b.UnitLimit, domain.BundledUnitLimit)
		}
		if b.UnitPriceMicroLamports != 0 {
			t.Errorf("bundled budget must not set a unit price, got %d", b.UnitPriceMicroLamports)
		}
	})
}

func TestInstructionsPriorityMode(t *testing.T) {
	ixs, err := Instructions(domain.FeeModePriority, domain.ComputeBudget{
		UnitLimit:              600_000,
		UnitPriceMicroLamports: 9000,
	})
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	if len(ixs) != 2 {
		t.Fatalf("len(ixs) = %d, want 2 (limit then price)", len(ixs))
	}

	limitData, _ := ixs[0].Data()
	if limitData[0] != 2 {
		t.Errorf("first instruction tag = %d, want 2 (SetComputeUnitLimit)", limitData[0])
	}
	priceData, _ := ixs[1].Data()
	if priceData[0] != 3 {
		t.Errorf("second instruction tag = %d, want 3 (SetComputeUnitPrice)", priceData[0])
	}
}

func TestInstructionsBundledMode(t *testing.T) {
	ixs, err := Instructions(domain.FeeModeBundled, domain.ComputeBudget{UnitLimit: domain.BundledUnitLimit})
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	if len(ixs) != 1 {
		t.Fatalf("len(ixs) = %d, want 1 (limit only)", len(ixs))
	}
	data, _ := ixs[0].Data()
	if data[0] != 2 {
		t.Errorf("instruction tag = %d, want 2 (SetComputeUnitLimit)", data[0])
	}
}

package venue

import (
	"math/big"
	"testing"
)

func TestConstantProductOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   int64
		reserveIn  uint64
		reserveOut uint64
		feeBps     uint16
		wantOut    int64
		wantFee    int64
	}{
		{
			name:       "25 bps fee on input",
			amountIn:   100_000,
			reserveIn:  1_000_000,
			reserveOut: 1_000_000,
			feeBps:     25,
			wantOut:    90_702,
			wantFee:    250,
		},
		{
			name:       "zero fee",
			amountIn:   1000,
			reserveIn:  1_000_000,
			reserveOut: 1_000_000,
			feeBps:     0,
			wantOut:    999,
			wantFee:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, fee, err := constantProductOut(big.NewInt(tt.amountIn), tt.reserveIn, tt.reserveOut, tt.feeBps)
			if err != nil {
				t.Fatalf("constantProductOut: %v", err)
			}
			if out.Int64() != tt.wantOut {
				t.Errorf("out = %s, want %d", out, tt.wantOut)
			}
			if fee.Int64() != tt.wantFee {
				t.Errorf("fee = %s, want %d", fee, tt.wantFee)
			}
		})
	}
}

func TestConstantProductOutErrors(t *testing.T) {
	if _, _, err := constantProductOut(big.NewInt(-1), 1_000_000, 1_000_000, 25); err == nil {
		t.Error("negative input should fail")
	}
	if _, _, err := constantProductOut(big.NewInt(0), 1_000_000, 1_000_000, 25); err == nil {
		t.Error("zero input should fail")
	}
	if _, _, err := constantProductOut(big.NewInt(1), 1_000_000, 10, 0); err == nil {
		t.Error("dust input rounding to zero output should fail")
	}
}

func TestConstantProductOutNeverExceedsReserve(t *testing.T) {
	reserveOut := uint64(1_000_000)
	for _, in := range []int64{1_000, 1_000_000, 1_000_000_000} {
		out, _, err := constantProductOut(big.NewInt(in), 1_000_000, reserveOut, 25)
		if err != nil {
			t.Fatalf("in=%d: %v", in, err)
		}
		if out.Uint64() >= reserveOut {
			t.Errorf("in=%d: out %s drains the reserve %d", in, out, reserveOut)
		}
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/gagliardetto/solana-go"
)

// VenueConfig carries the endpoints and program addresses of every
// liquidity venue the router can select.
type VenueConfig struct {
	// AggregatorURL is the base URL of the routing aggregator API.
	AggregatorURL string

	// CLMMQuoteURL is the base URL of the concentrated-liquidity quote API.
	CLMMQuoteURL string

	CLMMProgram solana.PublicKey
	CPMMProgram solana.PublicKey

	CurveProgram solana.PublicKey

	// Fee recipients the venue programs require as accounts.
	CPMMFeeRecipient  solana.PublicKey
	CurveFeeRecipient solana.PublicKey

	// HTTPTimeout bounds every venue API call.
	HTTPTimeout time.Duration
}

func (vc *VenueConfig) Key() string {
	return VENUE_CONFIG_KEY
}

func (vc *VenueConfig) Load() error {
	vc.AggregatorURL = common.GetEnvOrDefault("AGGREGATOR_URL", "")
	vc.CLMMQuoteURL = common.GetEnvOrDefault("CLMM_QUOTE_URL", "")
	vc.HTTPTimeout = time.Duration(common.GetEnvOrDefaultInt("VENUE_HTTP_TIMEOUT_MS", 10_000)) * time.Millisecond

	for _, f := range []struct {
		dst *solana.PublicKey
		env string
	}{
		{&vc.CLMMProgram, "CLMM_PROGRAM"},
		{&vc.CPMMProgram, "CPMM_PROGRAM"},
		{&vc.CurveProgram, "CURVE_PROGRAM"},
		{&vc.CPMMFeeRecipient, "CPMM_FEE_RECIPIENT"},
		{&vc.CurveFeeRecipient, "CURVE_FEE_RECIPIENT"},
	} {
		raw := common.GetEnvOrDefault(f.env, "")
		if raw == "" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.env, err)
		}
		*f.dst = pk
	}
	return vc.Validate()
}

func (vc *VenueConfig) Validate() error {
	if vc.AggregatorURL == "" {
		return fmt.Errorf("AGGREGATOR_URL is required")
	}
	if vc.CLMMQuoteURL == "" {
		return fmt.Errorf("CLMM_QUOTE_URL is required")
	}
	for name, pk := range map[string]solana.PublicKey{
		"CLMM_PROGRAM":        vc.CLMMProgram,
		"CPMM_PROGRAM":        vc.CPMMProgram,
		"CURVE_PROGRAM":       vc.CurveProgram,
		"CPMM_FEE_RECIPIENT":  vc.CPMMFeeRecipient,
		"CURVE_FEE_RECIPIENT": vc.CurveFeeRecipient,
	} {
		if pk.IsZero() {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solmesh/trade-engine/internal/common"
	"github.com/solmesh/trade-engine/internal/config"
	"github.com/solmesh/trade-engine/internal/engine"
	"github.com/solmesh/trade-engine/internal/http"
)

// @title Trade Engine API
// @version 1.0
// @description On-chain trade transaction pipeline for mobile trading clients.
// @description
// @description ## - Features
// @description - **Venue Routing**: Aggregator, concentrated-liquidity AMM, constant-product AMM and bonding-curve venues probed in priority order
// @description - **Compute Budgeting**: Simulation-backed compute unit estimation with safety margins
// @description - **Priority Fees**: Tiered fee pricing (low/medium/high/very-high) on top of live network fees
// @description - **Two Signing Paths**: Embedded server wallet or external user wallet
// @description - **Status Streaming**: Ordered per-trade progress events over SSE
// @description - **Confirmation Tracking**: Polls to finalization and distinguishes network acceptance from execution success
// @description
// @description ## - Usage Tips
// @description - Use smallest token units, or uiAmount to normalize through the token registry
// @description - SOL has 9 decimals: 1 SOL = 1,000,000,000 lamports
// @description - Default slippage is 50 bps (0.5%)
// @description - Quotes expire 30 seconds after they are fetched
// @host localhost:8080
// @BasePath /
// @schemes http https
// @tag.name quote
// @tag.description Get venue-routed quotes for a token pair
// @tag.name trade
// @tag.description Create, sign, submit and track trades
// @tag.name venues
// @tag.description Venue availability and token metadata

func main() {
	// Runtime tuning (GOGC, GOMAXPROCS, GOMEMLIMIT)
	common.InitRuntime()

	// load env
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.RPCConfig{},
		&config.VenueConfig{},
		&config.FeeConfig{},
		&config.WalletConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&engine.Service{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run() waits for SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}

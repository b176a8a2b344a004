// Package priority owns the compute-budget side of a trade: estimating
// consumption by simulation, pricing the compute units, and emitting the
// budget instructions for the selected fee mode.
package priority

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/metrics"
	"github.com/solmesh/trade-engine/internal/services/chain"
)

// Estimator derives a unit limit from a dry run of the unsigned
// transaction. Estimation is mandatory for the priority fee mode; a failed
// simulation aborts the trade instead of falling back to a guessed limit,
// since a transaction that cannot simulate will not execute either.
type Estimator struct {
	conn chain.Connection
}

func NewEstimator(conn chain.Connection) *Estimator {
	return &Estimator{conn: conn}
}

// Estimate simulates tx and returns the margined unit limit together with
// the raw simulation outcome. Program-level failures come back classified
// through the trade error taxonomy.
func (e *Estimator) Estimate(ctx context.Context, tx *solana.Transaction) (uint32, *domain.SimulationOutcome, error) {
	metrics.SimulationRequests.Inc()

	outcome, err := e.conn.Simulate(ctx, tx)
	if err != nil {
		metrics.SimulationFailures.WithLabelValues("transport").Inc()
		return 0, nil, fmt.Errorf("simulate: %w", err)
	}
	if !outcome.Succeeded() {
		metrics.SimulationFailures.WithLabelValues("execution").Inc()
		return 0, outcome, domain.ClassifyExecutionError(outcome.ExecErr, outcome.Logs)
	}
	if outcome.UnitsConsumed == 0 {
		metrics.SimulationFailures.WithLabelValues("no_units").Inc()
		return 0, outcome, domain.NewTradeError(domain.ErrSimulationFailed,
			"simulation reported zero units consumed", outcome.Logs...)
	}

	metrics.ComputeUnits.Observe(float64(outcome.UnitsConsumed))
	limit := UnitLimit(outcome.UnitsConsumed)
	log.Debug().
		Uint64("consumed", outcome.UnitsConsumed).
		Uint32("limit", limit).
		Msg("[priority] estimated compute budget")
	return limit, outcome, nil
}

// UnitLimit applies the safety margin to simulated consumption: the larger
// of consumed plus the absolute margin and consumed scaled by the relative
// headroom, capped at the network ceiling.
func UnitLimit(consumed uint64) uint32 {
	margined := consumed + domain.ComputeUnitMargin
	scaled := uint64(math.Ceil(float64(consumed) * domain.ComputeUnitHeadroom))
	if scaled > margined {
		margined = scaled
	}
	if margined > domain.MaxComputeUnits {
		margined = domain.MaxComputeUnits
	}
	return uint32(margined)
}

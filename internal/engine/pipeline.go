// Package engine orchestrates the trade pipeline: route, quote, build,
// estimate, price, sign, submit, confirm. Each phase is reported on the
// status hub, and every failure leaves through the trade error taxonomy.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/metrics"
	"github.com/solmesh/trade-engine/internal/services/builder"
	"github.com/solmesh/trade-engine/internal/services/priority"
	"github.com/solmesh/trade-engine/internal/services/signer"
	"github.com/solmesh/trade-engine/internal/services/status"
	"github.com/solmesh/trade-engine/internal/services/submit"
	"github.com/solmesh/trade-engine/internal/services/venue"
)

type Pipeline struct {
	router    *venue.Router
	estimator *priority.Estimator
	fees      *priority.FeeCalculator
	assembler *builder.Assembler
	submitter *submit.Engine
	hub       *status.Hub
}

func NewPipeline(router *venue.Router, estimator *priority.Estimator, fees *priority.FeeCalculator,
	assembler *builder.Assembler, submitter *submit.Engine, hub *status.Hub) *Pipeline {
	return &Pipeline{
		router:    router,
		estimator: estimator,
		fees:      fees,
		assembler: assembler,
		submitter: submitter,
		hub:       hub,
	}
}

// Quote routes the pair and returns a fresh quote without committing to a
// trade.
func (p *Pipeline) Quote(ctx context.Context, req *venue.QuoteRequest, preferred domain.VenueID) (*domain.VenueQuote, error) {
	adapter, err := p.router.Select(ctx, req.InputMint, req.OutputMint, preferred)
	if err != nil {
		return nil, err
	}
	return adapter.GetQuote(ctx, req)
}

// Execute runs the full pipeline for a signer that can complete in-process.
// The result is always terminal; the error taxonomy rides in Result.Err.
func (p *Pipeline) Execute(ctx context.Context, req *domain.TradeRequest, sgn signer.Signer) *domain.SubmissionResult {
	r := &run{p: p, req: req}

	built, err := r.buildUnsigned(ctx, sgn.PublicKey())
	if err != nil {
		return r.fail(err)
	}

	sig, err := r.signAndSend(ctx, sgn, built)
	if err != nil {
		return r.fail(err)
	}

	return r.confirm(ctx, sig)
}

// Prepare runs the pipeline up to the unsigned transaction for the
// external signing path. The caller ships the transaction to the wallet
// and completes the trade through Complete.
func (p *Pipeline) Prepare(ctx context.Context, req *domain.TradeRequest, payer solana.PublicKey) (*PreparedTrade, *domain.SubmissionResult) {
	r := &run{p: p, req: req}

	built, err := r.buildUnsigned(ctx, payer)
	if err != nil {
		return nil, r.fail(err)
	}

	tx, _, err := p.assembler.Assemble(ctx, built.budgetIxs, built.venueIxs, payer)
	if err != nil {
		return nil, r.fail(err)
	}
	r.emit(domain.PhaseAwaitingSignature, "awaiting external signature")

	return &PreparedTrade{
		Request:     req,
		Venue:       r.venueID,
		Quote:       built.quote,
		Budget:      built.budget,
		Transaction: tx,
	}, nil
}

// Complete finishes an externally signed trade: submit the signed bytes
// and poll to a terminal state.
func (p *Pipeline) Complete(ctx context.Context, prepared *PreparedTrade, raw []byte) *domain.SubmissionResult {
	r := &run{p: p, req: prepared.Request, venueID: prepared.Venue}
	r.maxEmitted = domain.PhaseAwaitingSignature

	r.emit(domain.PhaseSubmitting, "submitting signed transaction")
	sig, err := p.submitter.Send(ctx, raw)
	if err != nil {
		return r.fail(err)
	}
	return r.confirm(ctx, sig)
}

// Reject marks an externally prepared trade as refused by the user. No
// bytes were ever submitted.
func (p *Pipeline) Reject(prepared *PreparedTrade, detail string) *domain.SubmissionResult {
	r := &run{p: p, req: prepared.Request, venueID: prepared.Venue}
	r.maxEmitted = domain.PhaseAwaitingSignature
	return r.fail(domain.NewTradeError(domain.ErrUserRejected, detail))
}

// PreparedTrade is an unsigned transaction waiting on an external wallet.
type PreparedTrade struct {
	Request     *domain.TradeRequest
	Venue       domain.VenueID
	Quote       *domain.VenueQuote
	Budget      domain.ComputeBudget
	Transaction *solana.Transaction
}

// run carries the per-trade retry state. Each recoverable failure class
// gets exactly one retry; phases are never re-emitted on retry.
type run struct {
	p   *Pipeline
	req *domain.TradeRequest

	maxEmitted domain.TradePhase
	emitted    bool

	venueID  domain.VenueID
	requoted bool
	rerouted bool
	resigned bool
}

// emit publishes a phase event unless that phase already passed.
func (r *run) emit(phase domain.TradePhase, detail string) {
	if r.emitted && phase <= r.maxEmitted {
		return
	}
	r.emitted = true
	r.maxEmitted = phase
	r.p.hub.Publish(r.req.TradeID, phase, detail, nil)
	metrics.TradePhase.WithLabelValues(phase.String()).Inc()
}

type built struct {
	quote     *domain.VenueQuote
	venueIxs  []solana.Instruction
	budgetIxs []solana.Instruction
	budget    domain.ComputeBudget
}

// buildUnsigned runs quote, build and estimate, handling the one-shot
// re-quote and re-route retries.
func (r *run) buildUnsigned(ctx context.Context, payer solana.PublicKey) (*built, error) {
	r.emit(domain.PhaseQuoting, "selecting venue")

	adapter, err := r.p.router.Select(ctx, r.req.InputMint, r.req.OutputMint, r.req.PreferredVenue)
	if err != nil {
		return nil, err
	}
	r.venueID = adapter.ID()

	quoteReq := &venue.QuoteRequest{
		InputMint:   r.req.InputMint,
		OutputMint:  r.req.OutputMint,
		InputAmount: r.req.InputAmount,
		SlippageBps: r.req.SlippageBps,
	}

	quote, venueIxs, err := r.quoteAndBuild(ctx, adapter, quoteReq, payer)
	if err != nil {
		return nil, err
	}

	r.emit(domain.PhaseEstimating, "simulating for compute budget")
	limit, err := r.estimate(ctx, venueIxs, payer)
	if err != nil {
		return nil, err
	}

	var base uint64
	if r.req.FeeMode == domain.FeeModePriority {
		base = r.p.fees.BaseFee(ctx, writableAccounts(venueIxs))
	}
	budget := priority.Budget(r.req.FeeMode, r.req.FeeTier, base, limit)
	if r.req.FeeMode == domain.FeeModePriority {
		metrics.PriorityFee.WithLabelValues(r.req.FeeTier.String()).
			Observe(float64(budget.UnitPriceMicroLamports))
	}
	budgetIxs, err := priority.Instructions(r.req.FeeMode, budget)
	if err != nil {
		return nil, fmt.Errorf("build budget instructions: %w", err)
	}

	return &built{
		quote:     quote,
		venueIxs:  venueIxs,
		budgetIxs: budgetIxs,
		budget:    budget,
	}, nil
}

// quoteAndBuild fetches a quote and builds venue instructions, retrying
// once on quote expiry and once on venue unavailability.
func (r *run) quoteAndBuild(ctx context.Context, adapter venue.Adapter, quoteReq *venue.QuoteRequest, payer solana.PublicKey) (*domain.VenueQuote, []solana.Instruction, error) {
	for {
		quote, err := adapter.GetQuote(ctx, quoteReq)
		if err != nil {
			if retried, next := r.maybeReroute(ctx, err, adapter); retried {
				adapter = next
				continue
			}
			return nil, nil, err
		}

		r.emit(domain.PhaseBuilding, string(adapter.ID()))
		venueIxs, err := adapter.BuildInstructions(ctx, quote, payer)
		if err == nil {
			return quote, venueIxs, nil
		}

		if errors.Is(err, domain.ErrQuoteExpired) && !r.requoted {
			r.requoted = true
			log.Info().Str("trade_id", r.req.TradeID).Msg("[pipeline] quote expired, re-quoting once")
			continue
		}
		if retried, next := r.maybeReroute(ctx, err, adapter); retried {
			adapter = next
			continue
		}
		return nil, nil, err
	}
}

func (r *run) maybeReroute(ctx context.Context, err error, current venue.Adapter) (bool, venue.Adapter) {
	if !errors.Is(err, domain.ErrVenueUnavailable) || r.rerouted {
		return false, nil
	}
	next, rerr := r.p.router.Reroute(ctx, r.req.InputMint, r.req.OutputMint, current.ID())
	if rerr != nil {
		return false, nil
	}
	r.rerouted = true
	r.venueID = next.ID()
	metrics.Reroutes.Inc()
	log.Info().
		Str("trade_id", r.req.TradeID).
		Str("from", string(current.ID())).
		Str("to", string(next.ID())).
		Msg("[pipeline] venue unavailable, re-routed")
	return true, next
}

// estimate simulates the venue instructions. Priority mode requires a
// successful estimate; bundled mode tolerates a transport failure and
// falls back to the raised static limit.
func (r *run) estimate(ctx context.Context, venueIxs []solana.Instruction, payer solana.PublicKey) (uint32, error) {
	draft, err := r.p.assembler.Draft(venueIxs, payer)
	if err != nil {
		return 0, err
	}

	limit, _, err := r.p.estimator.Estimate(ctx, draft)
	if err == nil {
		return limit, nil
	}

	var te *domain.TradeError
	if !errors.As(err, &te) {
		// Transport-level failure, no verdict on the instructions.
		if r.req.FeeMode == domain.FeeModeBundled {
			log.Warn().Err(err).Str("trade_id", r.req.TradeID).
				Msg("[pipeline] estimate unavailable, using bundled fallback limit")
			return 0, nil
		}
		return 0, domain.NewTradeError(domain.ErrSimulationFailed, err.Error())
	}
	return 0, err
}

// signAndSend assembles the final transaction and runs it through the
// signer, retrying the whole assemble-sign-send step once when the
// blockhash expired and the signer can re-sign without the user.
func (r *run) signAndSend(ctx context.Context, sgn signer.Signer, built *built) (solana.Signature, error) {
	for {
		r.emit(domain.PhaseAwaitingSignature, sgn.Mode().String())
		tx, _, err := r.p.assembler.Assemble(ctx, built.budgetIxs, built.venueIxs, sgn.PublicKey())
		if err != nil {
			return solana.Signature{}, err
		}

		sig, err := sgn.SignAndSubmit(ctx, tx, func(ctx context.Context, raw []byte) (solana.Signature, error) {
			r.emit(domain.PhaseSubmitting, "")
			return r.p.submitter.Send(ctx, raw)
		})
		if err == nil {
			return sig, nil
		}

		if errors.Is(err, domain.ErrBlockhashExpired) && sgn.SupportsResign() && !r.resigned {
			r.resigned = true
			log.Info().Str("trade_id", r.req.TradeID).
				Msg("[pipeline] blockhash expired, rebuilding and re-signing once")
			continue
		}
		return solana.Signature{}, err
	}
}

// confirm polls the signature to a terminal state and closes out the
// trade.
func (r *run) confirm(ctx context.Context, sig solana.Signature) *domain.SubmissionResult {
	r.emit(domain.PhaseConfirming, sig.String())

	confStatus, err := r.p.submitter.Confirm(ctx, sig, r.req.ConfirmTimeout)
	if err != nil {
		res := r.fail(err)
		res.Signature = sig
		if confStatus != nil {
			res.Slot = confStatus.Slot
		}
		res.Logs = domain.ErrorLogs(err)
		return res
	}

	r.p.hub.Publish(r.req.TradeID, domain.PhaseConfirmed, sig.String(), nil)
	metrics.TradesTotal.WithLabelValues(string(r.venueID), "confirmed").Inc()
	return (&domain.SubmissionResult{
		TradeID:   r.req.TradeID,
		Signature: sig,
		State:     domain.SubmissionConfirmed,
		Slot:      confStatus.Slot,
		Venue:     r.venueID,
	}).Finalize()
}

// fail emits the terminal failure event and builds the failed result.
func (r *run) fail(err error) *domain.SubmissionResult {
	r.p.hub.Publish(r.req.TradeID, domain.PhaseFailed, "", err)
	metrics.TradesTotal.WithLabelValues(string(r.venueID), "failed").Inc()
	return (&domain.SubmissionResult{
		TradeID: r.req.TradeID,
		State:   domain.SubmissionFailed,
		Venue:   r.venueID,
		Err:     err,
		Logs:    domain.ErrorLogs(err),
	}).Finalize()
}

// writableAccounts collects the writable account set of an instruction
// list, the input to recent-fee sampling.
func writableAccounts(instructions []solana.Instruction) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var out []solana.PublicKey
	for _, ix := range instructions {
		for _, acc := range ix.Accounts() {
			if !acc.IsWritable {
				continue
			}
			if _, dup := seen[acc.PublicKey]; dup {
				continue
			}
			seen[acc.PublicKey] = struct{}{}
			out = append(out, acc.PublicKey)
		}
	}
	return out
}

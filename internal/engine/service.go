package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solmesh/trade-engine/internal/config"
	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/metrics"
	"github.com/solmesh/trade-engine/internal/services"
	"github.com/solmesh/trade-engine/internal/services/builder"
	"github.com/solmesh/trade-engine/internal/services/chain"
	"github.com/solmesh/trade-engine/internal/services/market"
	"github.com/solmesh/trade-engine/internal/services/priority"
	"github.com/solmesh/trade-engine/internal/services/signer"
	"github.com/solmesh/trade-engine/internal/services/status"
	"github.com/solmesh/trade-engine/internal/services/submit"
	"github.com/solmesh/trade-engine/internal/services/venue"
)

const ENGINE_SERVICE = "trade-engine-service"

// tradeDeadlineMargin is added to the confirmation timeout to bound a
// whole background trade run.
const tradeDeadlineMargin = 30 * time.Second

// Service owns the pipeline and its collaborators, and tracks per-trade
// results and externally pending transactions.
type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	general *config.GeneralConfig
	rpcCfg  *config.RPCConfig
	venues  *config.VenueConfig
	feeCfg  *config.FeeConfig
	wallet  *config.WalletConfig

	conn      *chain.RPCConnection
	store     *market.TokenStore
	registry  *market.Registry
	router    *venue.Router
	submitter *submit.Engine
	hub       *status.Hub
	pipeline  *Pipeline
	embedded  signer.Signer

	results sync.Map // tradeID -> *domain.SubmissionResult
	pending sync.Map // tradeID -> *PreparedTrade
	wg      sync.WaitGroup
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.general = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	svc.rpcCfg = c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.venues = c.GetConfig(config.VENUE_CONFIG_KEY).(*config.VenueConfig)
	svc.feeCfg = c.GetConfig(config.FEE_CONFIG_KEY).(*config.FeeConfig)
	svc.wallet = c.GetConfig(config.WALLET_CONFIG_KEY).(*config.WalletConfig)

	svc.conn = chain.NewRPCConnection(rpc.New(svc.rpcCfg.RPCUrl))

	store, err := market.NewTokenStore(svc.general.DBPath)
	if err != nil {
		return err
	}
	svc.store = store
	svc.registry = market.NewRegistry(svc.conn, store)

	svc.router = venue.NewRouter(
		venue.NewAggregatorAdapter(svc.venues.AggregatorURL, svc.venues.HTTPTimeout),
		venue.NewCLMMAdapter(svc.venues.CLMMProgram, svc.venues.CLMMQuoteURL, svc.venues.HTTPTimeout),
		venue.NewCPMMAdapter(svc.venues.CPMMProgram, svc.venues.CPMMFeeRecipient, svc.conn, svc.registry),
		venue.NewBondingCurveAdapter(svc.venues.CurveProgram, svc.venues.CurveFeeRecipient, svc.conn),
	)

	svc.submitter = submit.NewEngine(svc.conn, svc.feeCfg.ConfirmTimeout)
	svc.hub = status.NewHub()
	svc.pipeline = NewPipeline(
		svc.router,
		priority.NewEstimator(svc.conn),
		priority.NewFeeCalculator(svc.conn.Client(), svc.feeCfg.BaseFeeMicroLamports),
		builder.NewAssembler(svc.conn),
		svc.submitter,
		svc.hub,
	)

	if svc.wallet.PrivateKey != "" {
		embedded, err := signer.NewEmbeddedSignerFromBase58(svc.wallet.PrivateKey)
		if err != nil {
			return fmt.Errorf("embedded wallet key: %w", err)
		}
		svc.embedded = embedded
	}
	return nil
}

func (svc *Service) Start() error {
	if err := svc.registry.Warm(); err != nil {
		svc.logger.Warn().Err(err).Msg("token cache warm failed")
	}
	metrics.TokensResolved.Set(float64(svc.registry.Count()))
	svc.logger.Info().
		Int("tokens", svc.registry.Count()).
		Bool("embedded_signer", svc.embedded != nil).
		Msg("engine ready")
	return nil
}

func (svc *Service) Stop() error {
	svc.wg.Wait()
	return svc.store.Close()
}

func (svc *Service) Registry() *market.Registry { return svc.registry }
func (svc *Service) Hub() *status.Hub           { return svc.hub }
func (svc *Service) VenueIDs() []domain.VenueID { return svc.router.Venues() }
func (svc *Service) Router() *venue.Router      { return svc.router }

// HasEmbeddedSigner reports whether the embedded signing path is
// configured.
func (svc *Service) HasEmbeddedSigner() bool { return svc.embedded != nil }

// Quote routes and quotes without starting a trade.
func (svc *Service) Quote(ctx context.Context, req *venue.QuoteRequest, preferred domain.VenueID) (*domain.VenueQuote, error) {
	start := time.Now()
	quote, err := svc.pipeline.Quote(ctx, req, preferred)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(string(preferred), "error").Inc()
		return nil, err
	}
	metrics.QuoteRequests.WithLabelValues(string(quote.Venue), "ok").Inc()
	metrics.QuoteDuration.WithLabelValues(string(quote.Venue)).Observe(time.Since(start).Seconds())
	return quote, nil
}

// StartTrade launches an embedded-signer trade in the background and
// returns its trade ID. Progress streams on the status hub; the terminal
// result lands in Result.
func (svc *Service) StartTrade(req *domain.TradeRequest) (string, error) {
	if svc.embedded == nil {
		return "", fmt.Errorf("no embedded wallet configured")
	}
	if req.TradeID == "" {
		req.TradeID = uuid.NewString()
	}
	req.Trader = svc.embedded.PublicKey()

	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		started := time.Now()

		timeout := req.ConfirmTimeout
		if timeout <= 0 {
			timeout = svc.feeCfg.ConfirmTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout+tradeDeadlineMargin)
		defer cancel()

		result := svc.pipeline.Execute(ctx, req, svc.embedded)
		svc.results.Store(req.TradeID, result)
		metrics.TradeDuration.WithLabelValues(string(result.Venue)).Observe(time.Since(started).Seconds())
	}()
	return req.TradeID, nil
}

// PrepareTrade builds an unsigned transaction for an external wallet and
// parks it until the signed bytes come back.
func (svc *Service) PrepareTrade(ctx context.Context, req *domain.TradeRequest) (*PreparedTrade, error) {
	if req.TradeID == "" {
		req.TradeID = uuid.NewString()
	}
	if req.Trader.IsZero() {
		return nil, fmt.Errorf("trader public key is required for external signing")
	}

	prepared, failed := svc.pipeline.Prepare(ctx, req, req.Trader)
	if failed != nil {
		svc.results.Store(req.TradeID, failed)
		return nil, failed.Err
	}
	svc.pending.Store(req.TradeID, prepared)
	return prepared, nil
}

// SubmitSigned completes an externally prepared trade with the wallet's
// signed bytes. Confirmation runs in the background.
func (svc *Service) SubmitSigned(tradeID string, raw []byte) error {
	v, ok := svc.pending.LoadAndDelete(tradeID)
	if !ok {
		return fmt.Errorf("no pending trade %s", tradeID)
	}
	prepared := v.(*PreparedTrade)

	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()

		timeout := prepared.Request.ConfirmTimeout
		if timeout <= 0 {
			timeout = svc.feeCfg.ConfirmTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout+tradeDeadlineMargin)
		defer cancel()

		result := svc.pipeline.Complete(ctx, prepared, raw)
		svc.results.Store(tradeID, result)
	}()
	return nil
}

// RejectTrade marks a pending external trade as refused. Nothing was
// submitted.
func (svc *Service) RejectTrade(tradeID, reason string) error {
	v, ok := svc.pending.LoadAndDelete(tradeID)
	if !ok {
		return fmt.Errorf("no pending trade %s", tradeID)
	}
	result := svc.pipeline.Reject(v.(*PreparedTrade), reason)
	svc.results.Store(tradeID, result)
	return nil
}

// Result returns the terminal result of a trade, if it reached one.
func (svc *Service) Result(tradeID string) (*domain.SubmissionResult, bool) {
	v, ok := svc.results.Load(tradeID)
	if !ok {
		return nil, false
	}
	return v.(*domain.SubmissionResult), true
}

// Recheck re-queries a trade that timed out during confirmation. A landed
// transaction upgrades the stored result in place.
func (svc *Service) Recheck(ctx context.Context, tradeID string) (*domain.SubmissionResult, error) {
	v, ok := svc.results.Load(tradeID)
	if !ok {
		return nil, fmt.Errorf("unknown trade %s", tradeID)
	}
	result := v.(*domain.SubmissionResult)
	if result.State != domain.SubmissionFailed || result.Signature.IsZero() {
		return result, nil
	}

	confStatus, err := svc.submitter.Recheck(ctx, result.Signature)
	if err != nil {
		updated := &domain.SubmissionResult{
			TradeID:   tradeID,
			Signature: result.Signature,
			State:     domain.SubmissionFailed,
			Venue:     result.Venue,
			Err:       err,
			Logs:      domain.ErrorLogs(err),
		}
		if confStatus != nil {
			updated.Slot = confStatus.Slot
		}
		svc.results.Store(tradeID, updated.Finalize())
		return updated, nil
	}
	if confStatus != nil && confStatus.Finalized {
		updated := (&domain.SubmissionResult{
			TradeID:   tradeID,
			Signature: result.Signature,
			State:     domain.SubmissionConfirmed,
			Slot:      confStatus.Slot,
			Venue:     result.Venue,
		}).Finalize()
		svc.results.Store(tradeID, updated)
		return updated, nil
	}
	return result, nil
}

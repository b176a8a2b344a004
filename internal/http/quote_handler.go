package http

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/engine"
	"github.com/solmesh/trade-engine/internal/http/httputil"
	"github.com/solmesh/trade-engine/internal/services/market"
	"github.com/solmesh/trade-engine/internal/services/venue"
)

type QuoteHandler struct {
	engineSvc *engine.Service
}

func NewQuoteHandler(engineSvc *engine.Service) *QuoteHandler {
	return &QuoteHandler{engineSvc: engineSvc}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

// QuoteQuery represents the parameters for requesting a quote
type QuoteQuery struct {
	// Input token mint address (base58 public key)
	InputMint string `form:"inputMint" binding:"required" example:"So11111111111111111111111111111111111111112"`

	// Output token mint address (base58 public key)
	OutputMint string `form:"outputMint" binding:"required"`

	// Amount in smallest token units. Exactly one of amount and uiAmount
	// must be set.
	Amount string `form:"amount" example:"1000000000"`

	// UiAmount is a human-level amount normalized through the token
	// registry, e.g. "1.5".
	UiAmount string `form:"uiAmount" example:"1.5"`

	// Slippage tolerance in basis points. Default: 50 (0.5%)
	SlippageBps uint16 `form:"slippageBps" example:"50"`

	// Preferred venue identifier, optional
	Venue string `form:"venue" enums:"aggregator,clmm-amm,cpmm-amm,bonding-curve"`
}

// QuoteResponse is the venue-neutral quote shape returned to clients
type QuoteResponse struct {
	Venue          string   `json:"venue"`
	InputMint      string   `json:"inputMint"`
	OutputMint     string   `json:"outputMint"`
	AmountIn       string   `json:"amountIn"`
	AmountOut      string   `json:"amountOut"`
	MinAmountOut   string   `json:"minAmountOut"`
	FeeAmount      string   `json:"feeAmount,omitempty"`
	PriceImpactBps uint16   `json:"priceImpactBps"`
	Market         string   `json:"market,omitempty"`
	RoutePath      []string `json:"routePath"`
	FetchedAt      string   `json:"fetchedAt"`
}

func quoteToResponse(q *domain.VenueQuote) QuoteResponse {
	resp := QuoteResponse{
		Venue:          string(q.Venue),
		InputMint:      q.InputMint.String(),
		OutputMint:     q.OutputMint.String(),
		AmountIn:       q.InputAmount.String(),
		AmountOut:      q.OutputAmount.String(),
		MinAmountOut:   q.MinAmountOut.String(),
		PriceImpactBps: q.PriceImpactBps,
		FetchedAt:      q.FetchedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if q.FeeAmount != nil && q.FeeAmount.Sign() > 0 {
		resp.FeeAmount = q.FeeAmount.String()
	}
	if !q.Market.IsZero() {
		resp.Market = q.Market.String()
	}
	for _, mint := range q.Route {
		resp.RoutePath = append(resp.RoutePath, mint.String())
	}
	return resp
}

// parseAmount resolves the base-unit amount from either form, normalizing
// UI amounts through the token registry.
func parseAmount(c *gin.Context, registry *market.Registry, amount, uiAmount string, mint solana.PublicKey) (*big.Int, bool) {
	switch {
	case amount != "" && uiAmount != "":
		httputil.BadRequest(c, "set either amount or uiAmount, not both")
		return nil, false
	case amount != "":
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok || v.Sign() <= 0 {
			httputil.BadRequest(c, "invalid amount: must be a positive integer")
			return nil, false
		}
		return v, true
	case uiAmount != "":
		ui, err := decimal.NewFromString(uiAmount)
		if err != nil {
			httputil.BadRequest(c, "invalid uiAmount: "+err.Error())
			return nil, false
		}
		info, err := registry.Resolve(c.Request.Context(), mint)
		if err != nil {
			httputil.BadRequest(c, "cannot resolve input mint: "+err.Error())
			return nil, false
		}
		v, err := market.ToBaseUnits(ui, info.Decimals)
		if err != nil {
			httputil.BadRequest(c, err.Error())
			return nil, false
		}
		if v.Sign() <= 0 {
			httputil.BadRequest(c, "uiAmount must be positive")
			return nil, false
		}
		return v, true
	default:
		httputil.BadRequest(c, "amount or uiAmount is required")
		return nil, false
	}
}

// @Summary Get a trade quote
// @Description Routes the pair across the registered venues in priority order and returns a fresh quote.
// @Description Quotes are never cached; a quote older than 30 seconds is refused at build time.
// @Tags quote
// @Produce json
// @Param inputMint query string true "Input token mint (base58)"
// @Param outputMint query string true "Output token mint (base58)"
// @Param amount query string false "Amount in smallest token units"
// @Param uiAmount query string false "Human-level amount, normalized via token registry"
// @Param slippageBps query int false "Slippage tolerance in basis points" default(50)
// @Param venue query string false "Preferred venue" Enums(aggregator, clmm-amm, cpmm-amm, bonding-curve)
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 404 {object} map[string]string "No venue can serve the pair"
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	var query QuoteQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	inputMint, err := solana.PublicKeyFromBase58(query.InputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid inputMint address")
		return
	}
	outputMint, err := solana.PublicKeyFromBase58(query.OutputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid outputMint address")
		return
	}

	amount, ok := parseAmount(c, h.engineSvc.Registry(), query.Amount, query.UiAmount, inputMint)
	if !ok {
		return
	}

	slippageBps := query.SlippageBps
	if slippageBps == 0 {
		slippageBps = 50
	}

	quote, err := h.engineSvc.Quote(c.Request.Context(), &venue.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		InputAmount: amount,
		SlippageBps: slippageBps,
	}, domain.VenueID(query.Venue))
	if err != nil {
		httputil.TradeError(c, err)
		return
	}

	httputil.Success(c, quoteToResponse(quote))
}

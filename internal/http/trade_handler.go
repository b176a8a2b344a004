package http

import (
	"encoding/base64"
	"io"
	gohttp "net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/engine"
	"github.com/solmesh/trade-engine/internal/http/httputil"
)

type TradeHandler struct {
	engineSvc *engine.Service
}

func NewTradeHandler(engineSvc *engine.Service) *TradeHandler {
	return &TradeHandler{engineSvc: engineSvc}
}

func (h *TradeHandler) Root() string {
	return "/trade"
}

func (h *TradeHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.createTrade)
	pub.GET("/:id", h.getTrade)
	pub.GET("/:id/events", h.streamEvents)
	pub.POST("/:id/submit", h.submitSigned)
	pub.POST("/:id/reject", h.rejectTrade)
	pub.POST("/:id/recheck", h.recheckTrade)
}

// TradeRequest creates a new trade
type TradeRequest struct {
	InputMint  string `json:"inputMint" binding:"required"`
	OutputMint string `json:"outputMint" binding:"required"`

	// Amount in smallest token units. Exactly one of amount and uiAmount.
	Amount   string `json:"amount,omitempty"`
	UiAmount string `json:"uiAmount,omitempty"`

	SlippageBps uint16 `json:"slippageBps,omitempty"`

	// FeeTier: low, medium, high, very-high. Default: medium
	FeeTier string `json:"feeTier,omitempty" enums:"low,medium,high,very-high"`

	// FeeMode: priority or bundled. Default: priority
	FeeMode string `json:"feeMode,omitempty" enums:"priority,bundled"`

	// Venue forces a preferred venue, optional
	Venue string `json:"venue,omitempty"`

	// Signing selects who signs: embedded (server wallet) or external
	// (user wallet). Default: embedded
	Signing string `json:"signing,omitempty" enums:"embedded,external"`

	// Trader is the fee payer public key, required for external signing
	Trader string `json:"trader,omitempty"`

	// ConfirmTimeoutSec bounds the confirmation poll, optional
	ConfirmTimeoutSec int `json:"confirmTimeoutSec,omitempty"`
}

// TradeAccepted is returned for embedded trades that started in the
// background
type TradeAccepted struct {
	TradeID string `json:"tradeId"`
	Events  string `json:"events"`
}

// UnsignedTrade is returned for external trades awaiting a wallet
// signature
type UnsignedTrade struct {
	TradeID string `json:"tradeId"`
	Venue   string `json:"venue"`

	// Transaction is the unsigned transaction, base64
	Transaction string `json:"transaction"`

	UnitLimit              uint32 `json:"unitLimit"`
	UnitPriceMicroLamports uint64 `json:"unitPriceMicroLamports,omitempty"`

	SubmitTo string `json:"submitTo"`
}

// SignedSubmission carries the wallet-signed transaction bytes
type SignedSubmission struct {
	// Transaction is the fully signed transaction, base64
	Transaction string `json:"transaction" binding:"required"`
}

func (h *TradeHandler) parseTradeRequest(c *gin.Context) (*domain.TradeRequest, string, bool) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return nil, "", false
	}

	inputMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid inputMint address")
		return nil, "", false
	}
	outputMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid outputMint address")
		return nil, "", false
	}

	amount, ok := parseAmount(c, h.engineSvc.Registry(), req.Amount, req.UiAmount, inputMint)
	if !ok {
		return nil, "", false
	}

	tier, err := domain.ParseFeeTier(req.FeeTier)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return nil, "", false
	}
	mode, err := domain.ParseFeeMode(req.FeeMode)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return nil, "", false
	}

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = 50
	}

	signing := req.Signing
	if signing == "" {
		signing = "embedded"
	}
	if signing != "embedded" && signing != "external" {
		httputil.BadRequest(c, "signing must be embedded or external")
		return nil, "", false
	}

	trade := &domain.TradeRequest{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InputAmount:    amount,
		SlippageBps:    slippageBps,
		FeeTier:        tier,
		FeeMode:        mode,
		PreferredVenue: domain.VenueID(req.Venue),
		ConfirmTimeout: time.Duration(req.ConfirmTimeoutSec) * time.Second,
	}

	if signing == "external" {
		if req.Trader == "" {
			httputil.BadRequest(c, "trader is required for external signing")
			return nil, "", false
		}
		trader, err := solana.PublicKeyFromBase58(req.Trader)
		if err != nil {
			httputil.BadRequest(c, "invalid trader address")
			return nil, "", false
		}
		trade.Trader = trader
	}

	return trade, signing, true
}

// @Summary Create a trade
// @Description Starts a trade through the pipeline: venue selection, quote, instruction build,
// @Description compute-budget estimation, fee injection, signing, submission and confirmation.
// @Description
// @Description **Signing modes:**
// @Description - embedded: the server wallet signs and the trade runs in the background; follow progress on /trade/{id}/events
// @Description - external: the response carries an unsigned transaction for the user's wallet; return the signed bytes to /trade/{id}/submit
// @Tags trade
// @Accept json
// @Produce json
// @Param request body TradeRequest true "Trade parameters"
// @Success 202 {object} TradeAccepted "Embedded trade started"
// @Success 200 {object} UnsignedTrade "External trade awaiting signature"
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 404 {object} map[string]string "No venue can serve the pair"
// @Router /api/v1/trade [post]
func (h *TradeHandler) createTrade(c *gin.Context) {
	trade, signing, ok := h.parseTradeRequest(c)
	if !ok {
		return
	}

	if signing == "embedded" {
		if !h.engineSvc.HasEmbeddedSigner() {
			httputil.BadRequest(c, "no embedded wallet configured, use external signing")
			return
		}
		tradeID, err := h.engineSvc.StartTrade(trade)
		if err != nil {
			httputil.TradeError(c, err)
			return
		}
		c.JSON(gohttp.StatusAccepted, httputil.Response{
			Success: true,
			Data: TradeAccepted{
				TradeID: tradeID,
				Events:  "/api/v1/trade/" + tradeID + "/events",
			},
		})
		return
	}

	prepared, err := h.engineSvc.PrepareTrade(c.Request.Context(), trade)
	if err != nil {
		httputil.TradeError(c, err)
		return
	}

	raw, err := prepared.Transaction.MarshalBinary()
	if err != nil {
		httputil.InternalError(c, "serialize transaction: "+err.Error())
		return
	}

	httputil.Success(c, UnsignedTrade{
		TradeID:                prepared.Request.TradeID,
		Venue:                  string(prepared.Venue),
		Transaction:            base64.StdEncoding.EncodeToString(raw),
		UnitLimit:              prepared.Budget.UnitLimit,
		UnitPriceMicroLamports: prepared.Budget.UnitPriceMicroLamports,
		SubmitTo:               "/api/v1/trade/" + prepared.Request.TradeID + "/submit",
	})
}

// @Summary Submit a signed transaction
// @Description Completes an external trade with the wallet-signed bytes. Confirmation runs in the
// @Description background; follow progress on /trade/{id}/events.
// @Tags trade
// @Accept json
// @Produce json
// @Param id path string true "Trade ID"
// @Param request body SignedSubmission true "Signed transaction"
// @Success 202 {object} TradeAccepted
// @Failure 404 {object} map[string]string "No pending trade with this ID"
// @Router /api/v1/trade/{id}/submit [post]
func (h *TradeHandler) submitSigned(c *gin.Context) {
	tradeID := c.Param("id")

	var body SignedSubmission
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw, err := base64.StdEncoding.DecodeString(body.Transaction)
	if err != nil || len(raw) == 0 {
		httputil.BadRequest(c, "transaction must be non-empty base64")
		return
	}

	if err := h.engineSvc.SubmitSigned(tradeID, raw); err != nil {
		httputil.NotFound(c, err.Error())
		return
	}
	c.JSON(gohttp.StatusAccepted, httputil.Response{
		Success: true,
		Data: TradeAccepted{
			TradeID: tradeID,
			Events:  "/api/v1/trade/" + tradeID + "/events",
		},
	})
}

// @Summary Reject a pending trade
// @Description Marks an external trade as refused by the user. Nothing is submitted to the network.
// @Tags trade
// @Produce json
// @Param id path string true "Trade ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "No pending trade with this ID"
// @Router /api/v1/trade/{id}/reject [post]
func (h *TradeHandler) rejectTrade(c *gin.Context) {
	tradeID := c.Param("id")

	var body struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "user declined to sign"
	}

	if err := h.engineSvc.RejectTrade(tradeID, body.Reason); err != nil {
		httputil.NotFound(c, err.Error())
		return
	}
	httputil.Success(c, gin.H{"tradeId": tradeID, "state": "failed"})
}

// @Summary Get trade state
// @Description Returns the terminal result when the trade finished, or the status events so far.
// @Tags trade
// @Produce json
// @Param id path string true "Trade ID"
// @Success 200 {object} domain.SubmissionResult
// @Failure 404 {object} map[string]string "Unknown trade"
// @Router /api/v1/trade/{id} [get]
func (h *TradeHandler) getTrade(c *gin.Context) {
	tradeID := c.Param("id")

	if result, ok := h.engineSvc.Result(tradeID); ok {
		httputil.Success(c, result)
		return
	}

	events := h.engineSvc.Hub().Events(tradeID)
	if len(events) == 0 {
		httputil.NotFound(c, "unknown trade "+tradeID)
		return
	}
	httputil.Success(c, gin.H{
		"tradeId": tradeID,
		"state":   "in-flight",
		"phase":   events[len(events)-1].Name,
		"events":  events,
	})
}

// @Summary Stream trade status events
// @Description Server-sent events stream of the trade's phases. Past events are replayed first;
// @Description the stream closes after the terminal phase.
// @Tags trade
// @Produce text/event-stream
// @Param id path string true "Trade ID"
// @Router /api/v1/trade/{id}/events [get]
func (h *TradeHandler) streamEvents(c *gin.Context) {
	tradeID := c.Param("id")

	events, cancel := h.engineSvc.Hub().Subscribe(tradeID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("status", event)
			return true
		}
	})
}

// @Summary Recheck a timed-out trade
// @Description Re-queries the network for a trade whose confirmation poll timed out. A transaction
// @Description that landed after the timeout upgrades the stored result.
// @Tags trade
// @Produce json
// @Param id path string true "Trade ID"
// @Success 200 {object} domain.SubmissionResult
// @Failure 404 {object} map[string]string "Unknown trade"
// @Router /api/v1/trade/{id}/recheck [post]
func (h *TradeHandler) recheckTrade(c *gin.Context) {
	tradeID := c.Param("id")

	result, err := h.engineSvc.Recheck(c.Request.Context(), tradeID)
	if err != nil {
		httputil.NotFound(c, err.Error())
		return
	}
	httputil.Success(c, result)
}

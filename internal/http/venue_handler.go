package http

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/solmesh/trade-engine/internal/engine"
	"github.com/solmesh/trade-engine/internal/http/httputil"
)

type VenueHandler struct {
	engineSvc *engine.Service
}

func NewVenueHandler(engineSvc *engine.Service) *VenueHandler {
	return &VenueHandler{engineSvc: engineSvc}
}

func (h *VenueHandler) Root() string {
	return "/venues"
}

func (h *VenueHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listVenues)
	pub.GET("/availability/:mint", h.availability)
	pub.GET("/tokens/:mint", h.tokenInfo)
}

// VenueList enumerates the registered venues in priority order
type VenueList struct {
	Venues []string `json:"venues"`
}

// TokenInfoResponse is the resolved metadata for a mint
type TokenInfoResponse struct {
	Mint         string `json:"mint"`
	Decimals     uint8  `json:"decimals"`
	TokenProgram string `json:"tokenProgram"`
	Supply       uint64 `json:"supply,omitempty"`
}

// @Summary List venues
// @Description Lists the registered liquidity venues in routing priority order.
// @Tags venues
// @Produce json
// @Success 200 {object} VenueList
// @Router /api/v1/venues [get]
func (h *VenueHandler) listVenues(c *gin.Context) {
	ids := h.engineSvc.VenueIDs()
	venues := make([]string, 0, len(ids))
	for _, id := range ids {
		venues = append(venues, string(id))
	}
	httputil.Success(c, VenueList{Venues: venues})
}

// @Summary Probe venue availability for a token
// @Description Probes every venue for the given mint and reports which can serve it.
// @Tags venues
// @Produce json
// @Param mint path string true "Token mint (base58)"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Invalid mint"
// @Router /api/v1/venues/availability/{mint} [get]
func (h *VenueHandler) availability(c *gin.Context) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		httputil.BadRequest(c, "invalid mint address")
		return
	}

	router := h.engineSvc.Router()
	result := make(map[string]bool, len(router.Venues()))
	for _, id := range router.Venues() {
		adapter, ok := router.Adapter(id)
		if !ok {
			continue
		}
		result[string(id)] = adapter.IsAvailable(c.Request.Context(), mint)
	}
	httputil.Success(c, result)
}

// @Summary Resolve token metadata
// @Description Resolves a mint's decimals and owning token program through the registry cache.
// @Tags venues
// @Produce json
// @Param mint path string true "Token mint (base58)"
// @Success 200 {object} TokenInfoResponse
// @Failure 400 {object} map[string]string "Invalid mint"
// @Failure 404 {object} map[string]string "Not a token mint"
// @Router /api/v1/venues/tokens/{mint} [get]
func (h *VenueHandler) tokenInfo(c *gin.Context) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		httputil.BadRequest(c, "invalid mint address")
		return
	}

	info, err := h.engineSvc.Registry().Resolve(c.Request.Context(), mint)
	if err != nil {
		httputil.NotFound(c, err.Error())
		return
	}
	httputil.Success(c, TokenInfoResponse{
		Mint:         info.Mint.String(),
		Decimals:     info.Decimals,
		TokenProgram: info.TokenProgram.String(),
		Supply:       info.Supply,
	})
}

package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solmesh/trade-engine/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

func InternalError(c *gin.Context, err string) {
	Error(c, http.StatusInternalServerError, err)
}

func NotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

// TradeError renders a pipeline failure through the taxonomy-to-HTTP
// mapping.
func TradeError(c *gin.Context, err error) {
	httpErr := common.HTTPErrorFromTrade(err)
	Error(c, httpErr.StatusCode, httpErr.Message)
}

package handlers

import (
	"net/http"

	"github.com/fundmesh/transfer-service/internal/services"
	"github.com/fundmesh/transfer-service/internal/views"
	"github.com/fundmesh/transfer-service/pkg"
	"github.com/fundmesh/transfer-service/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransferHandler struct {
	logger  *zap.Logger
	service services.TransferService
}

func NewTransferHandler(logger *zap.Logger, svc services.TransferService) *TransferHandler {
	return &TransferHandler{logger: logger, service: svc}
}

// RegisterRoutes registers transfer routes on the provided Gin group.
// rateLimit only guards the mutating endpoint; previews stay cheap.
func (h *TransferHandler) RegisterRoutes(r *gin.RouterGroup, rateLimit gin.HandlerFunc) {
	r.POST("/transfers", rateLimit, h.CreateTransfer)
	r.GET("/transfers/preview", h.PreviewConversion)
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, pkg.ErrorResponse{
			Code:    pkg.ErrServerCode.Code,
			Message: err.Error(),
		})
		return
	}

	var req views.TransferRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), traceID, req)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *TransferHandler) PreviewConversion(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, pkg.ErrorResponse{
			Code:    pkg.ErrServerCode.Code,
			Message: err.Error(),
		})
		return
	}

	fromCurrency := c.Query("fromCurrency")
	toCurrency := c.Query("toCurrency")
	rawAmount := c.Query("amount")
	if utils.IsEmpty(fromCurrency) || utils.IsEmpty(toCurrency) || utils.IsEmpty(rawAmount) {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "fromCurrency, toCurrency and amount are required",
		})
		return
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidAmountCode.Code,
			Message: "amount must be a valid number",
		})
		return
	}

	result, err := h.service.PreviewConversion(traceID, fromCurrency, toCurrency, amount)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}

	c.JSON(http.StatusOK, result)
}

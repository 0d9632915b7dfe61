package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/platform/config"
)

// chargeOrderHandler handles HTTP requests for deposit requests.
type chargeOrderHandler struct {
	chargeOrderService portssvc.ChargeOrderSvcFacade
	depositAccount     dto.DepositAccount
}

// newChargeOrderHandler creates a new chargeOrderHandler.
func newChargeOrderHandler(cs portssvc.ChargeOrderSvcFacade, cfg *config.Config) *chargeOrderHandler {
	return &chargeOrderHandler{
		chargeOrderService: cs,
		depositAccount: dto.DepositAccount{
			BankName:      cfg.DepositBankName,
			AccountNumber: cfg.DepositAccountNumber,
			HolderName:    cfg.DepositHolderName,
		},
	}
}

// registerChargeOrderRoutes registers routes for charge orders.
func registerChargeOrderRoutes(rg *gin.RouterGroup, chargeOrderService portssvc.ChargeOrderSvcFacade, cfg *config.Config) {
	h := newChargeOrderHandler(chargeOrderService, cfg)

	orders := rg.Group("/charge-orders")
	{
		orders.POST("", h.createChargeOrder)
		orders.GET("", h.listChargeOrders)
		orders.GET("/:id", h.getChargeOrder)
		orders.DELETE("/:id", h.cancelChargeOrder)
	}

	admin := rg.Group("/admin/charge-orders", middleware.RequireAdmin())
	{
		admin.GET("", h.adminListChargeOrders)
		admin.POST("/:id/match", h.adminMatch)
	}
}

func (h *chargeOrderHandler) account() *dto.DepositAccount {
	if h.depositAccount.BankName == "" && h.depositAccount.AccountNumber == "" {
		return nil
	}
	account := h.depositAccount
	return &account
}

// createChargeOrder godoc
// @Summary Request a credit charge
// @Description Creates a deposit request with a short deposit code, or returns the organization's currently open one
// @Tags charge-orders
// @Accept json
// @Produce json
// @Param order body dto.CreateChargeOrderRequest true "Charge details"
// @Success 201 {object} dto.ChargeOrderResponse
// @Failure 400 {object} map[string]string "Invalid amount"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "No deposit codes available"
// @Failure 500 {object} map[string]string "Failed to create charge order"
// @Security BearerAuth
// @Router /charge-orders [post]
func (h *chargeOrderHandler) createChargeOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.CreateChargeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateChargeOrder", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	order, err := h.chargeOrderService.CreateChargeOrder(c.Request.Context(), organizationID, userID, req.DepositorName, req.SupplyAmount)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create charge order", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create charge order"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToChargeOrderResponse(order, h.account()))
}

// listChargeOrders godoc
// @Summary List the organization's charge orders
// @Tags charge-orders
// @Produce json
// @Success 200 {object} dto.ListChargeOrdersResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list charge orders"
// @Security BearerAuth
// @Router /charge-orders [get]
func (h *chargeOrderHandler) listChargeOrders(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orders, err := h.chargeOrderService.ListChargeOrders(c.Request.Context(), organizationID)
	if err != nil {
		logger.Error("Failed to list charge orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list charge orders"})
		return
	}

	items := make([]dto.ChargeOrderResponse, len(orders))
	for i := range orders {
		items[i] = dto.ToChargeOrderResponse(&orders[i], nil)
	}
	c.JSON(http.StatusOK, dto.ListChargeOrdersResponse{
		DepositAccount: h.depositAccount,
		Items:          items,
	})
}

// getChargeOrder godoc
// @Summary Get one charge order
// @Tags charge-orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} dto.ChargeOrderResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 500 {object} map[string]string "Failed to get charge order"
// @Security BearerAuth
// @Router /charge-orders/{id} [get]
func (h *chargeOrderHandler) getChargeOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := h.chargeOrderService.GetChargeOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		} else {
			logger.Error("Failed to get charge order", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get charge order"})
		}
		return
	}
	// Orders are organization-scoped; hide other organizations' orders entirely.
	if order.OrganizationID != organizationID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, dto.ToChargeOrderResponse(order, h.account()))
}

// cancelChargeOrder godoc
// @Summary Cancel an open charge order
// @Tags charge-orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} dto.ChargeOrderResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "Order is not cancellable"
// @Failure 500 {object} map[string]string "Failed to cancel charge order"
// @Security BearerAuth
// @Router /charge-orders/{id} [delete]
func (h *chargeOrderHandler) cancelChargeOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := h.chargeOrderService.CancelChargeOrder(c.Request.Context(), organizationID, c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		} else if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order is not cancellable"})
		} else {
			logger.Error("Failed to cancel charge order", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel charge order"})
		}
		return
	}
	c.JSON(http.StatusOK, dto.ToChargeOrderResponse(order, nil))
}

// adminListChargeOrders godoc
// @Summary List charge orders by status
// @Tags admin
// @Produce json
// @Param status query string false "Order status (default PENDING)"
// @Success 200 {object} dto.ListChargeOrdersResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 500 {object} map[string]string "Failed to list charge orders"
// @Security BearerAuth
// @Router /admin/charge-orders [get]
func (h *chargeOrderHandler) adminListChargeOrders(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	status := domain.ChargeOrderStatus(c.DefaultQuery("status", string(domain.ChargeOrderPending)))
	orders, err := h.chargeOrderService.AdminListChargeOrders(c.Request.Context(), status)
	if err != nil {
		logger.Error("Failed to list charge orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list charge orders"})
		return
	}

	items := make([]dto.ChargeOrderResponse, len(orders))
	for i := range orders {
		items[i] = dto.ToChargeOrderResponse(&orders[i], nil)
	}
	c.JSON(http.StatusOK, dto.ListChargeOrdersResponse{
		DepositAccount: h.depositAccount,
		Items:          items,
	})
}

// adminMatch godoc
// @Summary Manually match a charge order to a bank transaction
// @Description Pairs an order with a statement record; force waives the deposit-code check
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param match body dto.AdminMatchRequest true "Match details"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Amount or code mismatch"
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 404 {object} map[string]string "Order or transaction not found"
// @Failure 409 {object} map[string]string "Order or transaction already claimed"
// @Failure 500 {object} map[string]string "Failed to match"
// @Security BearerAuth
// @Router /admin/charge-orders/{id}/match [post]
func (h *chargeOrderHandler) adminMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	adminUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.AdminMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AdminMatch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	err := h.chargeOrderService.AdminMatch(c.Request.Context(), c.Param("id"), req.BankTransactionID, adminUserID, req.Force)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order or transaction not found"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to match charge order", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to match"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "matched"})
}

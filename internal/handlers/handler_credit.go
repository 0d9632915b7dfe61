package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
)

// creditHandler handles HTTP requests for balances and the ledger.
type creditHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

// newCreditHandler creates a new creditHandler.
func newCreditHandler(ls portssvc.LedgerSvcFacade) *creditHandler {
	return &creditHandler{ledgerService: ls}
}

// registerCreditRoutes registers routes for balances and the ledger.
func registerCreditRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newCreditHandler(ledgerService)

	credit := rg.Group("/credit")
	{
		credit.GET("/balance", h.getBalance)
		credit.GET("/ledger", h.listLedger)
	}
}

// getBalance godoc
// @Summary Get the organization's credit balance
// @Description Returns the derived paid and bonus balances of the caller's organization
// @Tags credit
// @Produce json
// @Success 200 {object} dto.BalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to compute balance"
// @Security BearerAuth
// @Router /credit/balance [get]
func (h *creditHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		logger.Error("Organization ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), organizationID)
	if err != nil {
		logger.Error("Failed to compute balance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute balance"})
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		Balance:      balance.Balance,
		PaidBalance:  balance.PaidBalance,
		BonusBalance: balance.BonusBalance,
	})
}

// listLedger godoc
// @Summary List ledger entries
// @Description Returns one page of the organization's ledger, newest first, with running balances
// @Tags credit
// @Produce json
// @Param type query string false "Entry type filter (CHARGE, BONUS, SPEND, REFUND, ADJUST)"
// @Param period query string false "Quick period filter (7d, 30d, 90d, all)"
// @Param from query string false "Start of range, RFC3339"
// @Param to query string false "End of range, RFC3339"
// @Param q query string false "Substring match against unique key and ref type"
// @Param page query int false "Page, 1-based"
// @Param pageSize query int false "Page size, max 200"
// @Success 200 {object} dto.LedgerPage
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list ledger"
// @Security BearerAuth
// @Router /credit/ledger [get]
func (h *creditHandler) listLedger(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		logger.Error("Organization ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListLedgerParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind ledger query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	filter, err := ledgerFilterFrom(organizationID, params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.ledgerService.ListLedger(c.Request.Context(), filter, params.Page, params.PageSize)
	if err != nil {
		logger.Error("Failed to list ledger", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list ledger"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// ledgerFilterFrom resolves the query parameters into a repository filter.
// An explicit from/to range wins over the quick period.
func ledgerFilterFrom(organizationID string, params dto.ListLedgerParams) (portsrepo.LedgerFilter, error) {
	filter := portsrepo.LedgerFilter{
		OrganizationID: organizationID,
		Query:          params.Query,
	}

	if params.Type != "" {
		entryType := domain.LedgerEntryType(params.Type)
		if !domain.ValidLedgerEntryType(entryType) {
			return filter, errors.New("unknown entry type: " + params.Type)
		}
		filter.Type = entryType
	}

	if params.From != "" {
		from, err := time.Parse(time.RFC3339, params.From)
		if err != nil {
			return filter, errors.New("invalid from timestamp")
		}
		filter.From = &from
	}
	if params.To != "" {
		to, err := time.Parse(time.RFC3339, params.To)
		if err != nil {
			return filter, errors.New("invalid to timestamp")
		}
		filter.To = &to
	}

	if filter.From == nil && filter.To == nil && params.Period != "" && params.Period != "all" {
		var days int
		switch params.Period {
		case "7d":
			days = 7
		case "30d":
			days = 30
		case "90d":
			days = 90
		default:
			return filter, errors.New("unknown period: " + params.Period)
		}
		from := time.Now().AddDate(0, 0, -days)
		filter.From = &from
	}
	return filter, nil
}

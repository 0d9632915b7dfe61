package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/denthub/credit-engine/internal/core/domain"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/platform/metrics"
)

// webhookHandler handles inbound provider push notifications.
type webhookHandler struct {
	webhookService portssvc.WebhookSvcFacade
}

// newWebhookHandler creates a new webhookHandler.
func newWebhookHandler(ws portssvc.WebhookSvcFacade) *webhookHandler {
	return &webhookHandler{webhookService: ws}
}

// RegisterWebhookRoutes registers the provider-facing intake route.
func RegisterWebhookRoutes(rg *gin.RouterGroup, webhookService portssvc.WebhookSvcFacade) {
	h := newWebhookHandler(webhookService)
	rg.POST("/webhooks/popbill", h.receive)
}

// receive godoc
// @Summary Receive a provider push notification
// @Description Records the event idempotently by transmission id and applies it inline; a failed apply still returns 200 so the provider stops retrying, and the pending sweep finishes the work
// @Tags webhooks
// @Accept json
// @Produce json
// @Param event body dto.WebhookRequest true "Event envelope"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} map[string]string "Malformed envelope"
// @Failure 500 {object} map[string]string "Failed to record event"
// @Router /webhooks/popbill [post]
func (h *webhookHandler) receive(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind webhook envelope", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	metrics.WebhooksReceived.WithLabelValues(req.EventType).Inc()

	event, err := h.webhookService.Record(c.Request.Context(), req.TransmissionID, domain.WebhookEventType(req.EventType), req.OrderID, req.Data)
	if err != nil {
		logger.Error("Failed to record webhook event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	duplicate := event.ProcessStatus != domain.WebhookReceived
	if !duplicate {
		if err := h.webhookService.Process(c.Request.Context(), *event); err != nil {
			// Recorded but not applied; the retry sweep picks it up. Acknowledge
			// so the provider does not re-deliver what we already hold.
			logger.Warn("Webhook event deferred to retry sweep",
				slog.String("transmission_id", req.TransmissionID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{
		EventID:   event.EventID,
		Status:    string(event.ProcessStatus),
		Duplicate: duplicate,
	})
}

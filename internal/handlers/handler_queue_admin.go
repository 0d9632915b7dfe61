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
)

// queueAdminHandler exposes the operator surface of the task queue.
type queueAdminHandler struct {
	queueService portssvc.QueueSvcFacade
}

// newQueueAdminHandler creates a new queueAdminHandler.
func newQueueAdminHandler(qs portssvc.QueueSvcFacade) *queueAdminHandler {
	return &queueAdminHandler{queueService: qs}
}

// registerQueueAdminRoutes registers the admin queue routes.
func registerQueueAdminRoutes(rg *gin.RouterGroup, queueService portssvc.QueueSvcFacade) {
	h := newQueueAdminHandler(queueService)

	tasks := rg.Group("/admin/tasks", middleware.RequireAdmin())
	{
		tasks.GET("", h.listTasks)
		tasks.GET("/stats", h.stats)
		tasks.GET("/:id", h.getTask)
		tasks.POST("/:id/retry", h.retryTask)
		tasks.POST("/:id/cancel", h.cancelTask)
	}
}

// listTasks godoc
// @Summary List queue tasks
// @Tags admin
// @Produce json
// @Param status query string false "Task status filter"
// @Param taskType query string false "Task type filter"
// @Param limit query int false "Max rows, default 100"
// @Success 200 {array} domain.QueueTask
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 500 {object} map[string]string "Failed to list tasks"
// @Security BearerAuth
// @Router /admin/tasks [get]
func (h *queueAdminHandler) listTasks(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListTasksParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	tasks, err := h.queueService.ListTasks(c.Request.Context(), domain.TaskStatus(params.Status), domain.TaskType(params.TaskType), params.Limit)
	if err != nil {
		logger.Error("Failed to list tasks", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// stats godoc
// @Summary Queue depth by task type and status
// @Tags admin
// @Produce json
// @Success 200 {object} dto.QueueStatsResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 500 {object} map[string]string "Failed to compute stats"
// @Security BearerAuth
// @Router /admin/tasks/stats [get]
func (h *queueAdminHandler) stats(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	stats, err := h.queueService.Stats(c.Request.Context())
	if err != nil {
		logger.Error("Failed to compute queue stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, dto.ToQueueStatsResponse(stats))
}

// getTask godoc
// @Summary Get one queue task
// @Tags admin
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} domain.QueueTask
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 404 {object} map[string]string "Task not found"
// @Failure 500 {object} map[string]string "Failed to get task"
// @Security BearerAuth
// @Router /admin/tasks/{id} [get]
func (h *queueAdminHandler) getTask(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	task, err := h.queueService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			logger.Error("Failed to get task", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

// retryTask godoc
// @Summary Reset a FAILED task for another round of attempts
// @Tags admin
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 409 {object} map[string]string "Task is not FAILED"
// @Failure 500 {object} map[string]string "Failed to retry task"
// @Security BearerAuth
// @Router /admin/tasks/{id}/retry [post]
func (h *queueAdminHandler) retryTask(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.queueService.Retry(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Task is not FAILED"})
		} else {
			logger.Error("Failed to retry task", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retry task"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rescheduled"})
}

// cancelTask godoc
// @Summary Cancel a PENDING or PROCESSING task
// @Tags admin
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 409 {object} map[string]string "Task is already terminal"
// @Failure 500 {object} map[string]string "Failed to cancel task"
// @Security BearerAuth
// @Router /admin/tasks/{id}/cancel [post]
func (h *queueAdminHandler) cancelTask(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.queueService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Task is already terminal"})
		} else {
			logger.Error("Failed to cancel task", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel task"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

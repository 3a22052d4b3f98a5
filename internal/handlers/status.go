package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/services"
)

// StatusHandler coordinates status catalog HTTP handlers. Mutations carry a
// task_id that supplies the authorization context.
type StatusHandler struct {
	statusService *services.StatusService
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(statusService *services.StatusService) *StatusHandler {
	return &StatusHandler{statusService: statusService}
}

// ListStatuses returns all status labels.
func (h *StatusHandler) ListStatuses(c *gin.Context) {
	statuses, err := h.statusService.ListStatuses()
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// GetStatus returns a status label by ID.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	statusID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.statusService.GetStatus(statusID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// CreateStatus adds a status label.
func (h *StatusHandler) CreateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateStatusRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		TaskID      uint64 `json:"task_id" binding:"required"`
	}

	var req CreateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	status, err := h.statusService.CreateStatus(actor, services.CreateStatusInput{
		Name:        req.Name,
		Description: req.Description,
		TaskID:      req.TaskID,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, status)
}

// UpdateStatus edits a status label.
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	statusID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		TaskID      uint64  `json:"task_id" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	status, err := h.statusService.UpdateStatus(actor, statusID, services.UpdateStatusInput{
		Name:        req.Name,
		Description: req.Description,
		TaskID:      req.TaskID,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// DeleteStatus removes a status label.
func (h *StatusHandler) DeleteStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	statusID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type DeleteStatusRequest struct {
		TaskID uint64 `json:"task_id" binding:"required"`
	}

	var req DeleteStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.statusService.DeleteStatus(actor, statusID, req.TaskID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Status deleted successfully",
	})
}

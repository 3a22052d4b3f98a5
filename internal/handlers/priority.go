package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/services"
)

// PriorityHandler coordinates priority catalog HTTP handlers.
type PriorityHandler struct {
	priorityService *services.PriorityService
}

// NewPriorityHandler creates a new PriorityHandler.
func NewPriorityHandler(priorityService *services.PriorityService) *PriorityHandler {
	return &PriorityHandler{priorityService: priorityService}
}

// ListPriorities returns the priority catalog. Hidden entries appear for
// superusers only.
func (h *PriorityHandler) ListPriorities(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	priorities, err := h.priorityService.ListPriorities(actor)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"priorities": priorities})
}

// GetPriority returns a priority by ID.
func (h *PriorityHandler) GetPriority(c *gin.Context) {
	priorityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	priority, err := h.priorityService.GetPriority(priorityID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, priority)
}

// CreatePriority adds a priority to the catalog. Superuser only.
func (h *PriorityHandler) CreatePriority(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreatePriorityRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	priority, err := h.priorityService.CreatePriority(actor, req.Name)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, priority)
}

// UpdatePriority renames a priority. Superuser only.
func (h *PriorityHandler) UpdatePriority(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	priorityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type UpdatePriorityRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	priority, err := h.priorityService.UpdatePriority(actor, priorityID, req.Name)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, priority)
}

// HidePriority hides a priority from the catalog listing. Superuser only.
func (h *PriorityHandler) HidePriority(c *gin.Context) {
	h.setHidden(c, true)
}

// UnhidePriority restores a hidden priority. Superuser only.
func (h *PriorityHandler) UnhidePriority(c *gin.Context) {
	h.setHidden(c, false)
}

func (h *PriorityHandler) setHidden(c *gin.Context, hidden bool) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	priorityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	priority, err := h.priorityService.SetHidden(actor, priorityID, hidden)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, priority)
}

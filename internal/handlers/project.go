package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/dto"
	"github.com/soramame/workgroup-api/internal/services"
)

// ProjectHandler coordinates project HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
	taskService    *services.TaskService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, taskService *services.TaskService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		taskService:    taskService,
	}
}

// GetProject returns a single project.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(actor, projectID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// DeleteProject soft-deletes a project.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(actor, projectID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted successfully",
	})
}

// ListMembers returns the project's members.
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.projectService.ListProjectMembers(actor, projectID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": dto.ToProjectMemberDTOs(members)})
}

// AddMember adds a group member to the project.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Username string `json:"username" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	if _, err := h.projectService.AddProjectMember(actor, projectID, req.Username); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"username": req.Username,
	})
}

// RemoveMember removes a user from the project.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.RemoveProjectMember(actor, projectID, c.Param("username")); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project member removed successfully",
	})
}

// ListTasks returns the project's tasks. ?archived=true restricts the
// listing to archived ones.
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	archivedOnly := c.Query("archived") == "true"

	tasks, err := h.taskService.ListProjectTasks(actor, projectID, archivedOnly)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// DeleteTask deletes a task through its project. This path needs project
// membership only and does not require the archived state.
func (h *ProjectHandler) DeleteTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}

	if err := h.taskService.DeleteProjectTask(actor, projectID, taskID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

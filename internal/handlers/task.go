package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/database"
	"github.com/soramame/workgroup-api/internal/dto"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/services"
	"github.com/soramame/workgroup-api/internal/utils"
)

// TaskHandler coordinates task HTTP handlers.
type TaskHandler struct {
	taskService    *services.TaskService
	commentService *services.CommentService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, commentService *services.CommentService) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		commentService: commentService,
	}
}

// ListTasks returns active tasks across the caller's work groups.
// Can filter by work_group_id.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	// Optional group filter
	groupIDStr := c.Query("work_group_id")
	var groupID uint64
	if groupIDStr != "" {
		id, err := strconv.ParseUint(groupIDStr, 10, 64)
		if err != nil {
			apperrors.BadRequest(c, "Invalid work_group_id")
			return
		}
		groupID = id

		var member models.WorkGroupMember
		if err := database.GetDB().
			Where("work_group_id = ? AND user_id = ?", groupID, actor.UserID).
			First(&member).Error; err != nil && !actor.Superuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this work group"})
			return
		}
	}

	params := utils.GetPaginationParams(c)

	var groupIDs []uint64
	database.GetDB().
		Model(&models.WorkGroupMember{}).
		Where("user_id = ?", actor.UserID).
		Pluck("work_group_id", &groupIDs)

	query := database.GetDB().
		Preload("Creator").
		Preload("Priority").
		Preload("Assignments").
		Preload("Assignments.User").
		Scopes(database.NotDeleted, database.NotArchived)

	if groupID != 0 {
		query = query.Where("work_group_id = ?", groupID)
	} else if len(groupIDs) > 0 {
		query = query.Where("work_group_id IN ?", groupIDs)
	} else {
		c.JSON(http.StatusOK, gin.H{
			"tasks": []models.Task{},
			"pagination": utils.PaginationResponse{
				Page:  params.Page,
				Limit: params.Limit,
				Total: 0,
			},
		})
		return
	}

	var total int64
	query.Model(&models.Task{}).Count(&total)

	var tasks []models.Task
	if err := query.Scopes(database.Paginate(params)).Find(&tasks).Error; err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// ListArchivedTasks returns archived tasks assigned to the caller.
func (h *TaskHandler) ListArchivedTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListArchivedTasksForUser(actor.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask creates a new task in a work group.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		PriorityID  uint64            `json:"priority_id" binding:"required"`
		Status      models.TaskStatus `json:"status"`
		WorkGroupID uint64            `json:"work_group_id" binding:"required"`
		ProjectID   *uint64           `json:"project_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		PriorityID:  req.PriorityID,
		Status:      req.Status,
		WorkGroupID: req.WorkGroupID,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTask returns a specific task by ID.
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(actor, taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask updates an existing task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		PriorityID  *uint64            `json:"priority_id"`
		Status      *models.TaskStatus `json:"status"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(actor, taskID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		PriorityID:  req.PriorityID,
		Status:      req.Status,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ArchiveTask archives a DONE task and its subtask subtree.
func (h *TaskHandler) ArchiveTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.ArchiveTask(actor, taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask soft-deletes an archived task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteArchivedTask(actor, taskID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// AssignUser assigns a group member to the task.
func (h *TaskHandler) AssignUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type AssignUserRequest struct {
		Username string `json:"username" binding:"required"`
	}

	var req AssignUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AssignUser(actor, taskID, req.Username)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "User assigned successfully",
		"assignments": task.Assignments,
	})
}

// UnassignUser removes an assignee from the task.
func (h *TaskHandler) UnassignUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.UnassignUser(actor, taskID, c.Param("username")); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User unassigned successfully",
	})
}

// ListAssignees returns the users assigned to the task.
func (h *TaskHandler) ListAssignees(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	users, err := h.taskService.GetAssignedUsers(actor, taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": dto.ToUserDTOs(users)})
}

// CreateSubtask creates a child task under the given parent.
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	parentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type CreateSubtaskRequest struct {
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		PriorityID  uint64            `json:"priority_id" binding:"required"`
		Status      models.TaskStatus `json:"status"`
	}

	var req CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	subtask, err := h.taskService.CreateSubtask(actor, parentID, services.CreateSubtaskInput{
		Title:       req.Title,
		Description: req.Description,
		PriorityID:  req.PriorityID,
		Status:      req.Status,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, subtask)
}

// LinkSubtask attaches an existing task as a subtask of the parent.
func (h *TaskHandler) LinkSubtask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	parentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	childID, ok := pathID(c, "childId")
	if !ok {
		return
	}

	child, err := h.taskService.LinkSubtask(actor, parentID, childID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, child)
}

// ListSubtasks returns the task's direct children.
func (h *TaskHandler) ListSubtasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	parentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	subtasks, err := h.taskService.ListSubtasks(actor, parentID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": subtasks})
}

// GetParentTask resolves the task's parent.
func (h *TaskHandler) GetParentTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	parent, err := h.taskService.FindParentTask(actor, taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, parent)
}

// CreateComment adds a comment to the task.
func (h *TaskHandler) CreateComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type CreateCommentRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.CreateComment(actor, taskID, req.Content)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListComments returns the task's comments.
func (h *TaskHandler) ListComments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(actor, taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

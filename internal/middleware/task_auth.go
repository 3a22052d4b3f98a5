package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/constants"
	"github.com/soramame/workgroup-api/internal/database"
	"github.com/soramame/workgroup-api/internal/models"
)

// RequireTaskAccess checks if the user has access to a task.
// User must be a member of the task's work group; soft-deleted tasks read
// as missing.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid task ID",
			})
			c.Abort()
			return
		}

		actor, exists := GetActor(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().
			Preload("Creator").
			Preload("Priority").
			Preload("Assignments").
			Preload("Assignments.User").
			Scopes(database.NotDeleted).
			First(&task, taskID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		if !actor.Superuser {
			var member models.WorkGroupMember
			err = database.GetDB().
				Where("work_group_id = ? AND user_id = ?", task.WorkGroupID, actor.UserID).
				First(&member).Error
			if err != nil {
				// Return 404 instead of 403 to avoid leaking task existence
				c.JSON(http.StatusNotFound, gin.H{
					"error": "Task not found",
				})
				c.Abort()
				return
			}
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

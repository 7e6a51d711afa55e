package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-web/internal/constants"
	apierrors "github.com/yukikurage/todo-web/internal/errors"
	"github.com/yukikurage/todo-web/internal/models"
	"github.com/yukikurage/todo-web/internal/services"
)

// RequireTaskAccess loads the task named by the :id parameter, scoped to the
// current user. Unknown ids, malformed ids and other users' tasks are all
// handed to onMissing so callers cannot tell them apart.
func RequireTaskAccess(taskService *services.TaskService, onMissing gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			onMissing(c)
			c.Abort()
			return
		}

		task, err := taskService.GetTask(taskID, userID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				onMissing(c)
				c.Abort()
				return
			}
			apierrors.InternalError(c, err)
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask returns the task stored by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}

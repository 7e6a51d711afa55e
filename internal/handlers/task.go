package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-web/internal/dto"
	apierrors "github.com/yukikurage/todo-web/internal/errors"
	"github.com/yukikurage/todo-web/internal/middleware"
	"github.com/yukikurage/todo-web/internal/models"
	"github.com/yukikurage/todo-web/internal/services"
)

const (
	indexTemplate = "index.html"
	editTemplate  = "edit.html"
)

// TaskHandler serves the task list and the task form posts.
type TaskHandler struct {
	taskService *services.TaskService
	now         func() time.Time
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		now:         time.Now,
	}
}

type taskForm struct {
	Content  string `form:"content"`
	DueDate  string `form:"due_date"`
	Priority string `form:"priority"`
}

func (f taskForm) input() services.TaskInput {
	return services.TaskInput{
		Content:  f.Content,
		DueDate:  f.DueDate,
		Priority: f.Priority,
	}
}

// Index renders the current user's tasks.
func (h *TaskHandler) Index(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	tasks, err := h.taskService.ListTasks(user.ID)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	flashes, err := popFlashes(c)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	c.HTML(http.StatusOK, indexTemplate, dto.IndexPage{
		User:               dto.ToUserDTO(*user),
		Tasks:              dto.ToTaskViews(tasks, h.now().UTC()),
		Flashes:            flashes,
		Priorities:         models.Priorities,
		SuggestionsEnabled: h.taskService.SuggestionsEnabled(),
	})
}

// Add creates a task from the list page form. Empty content is ignored.
func (h *TaskHandler) Add(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BadRequest(c, "Invalid form submission")
		return
	}

	if _, err := h.taskService.CreateTask(userID, form.input()); err != nil {
		switch {
		case errors.Is(err, services.ErrContentEmpty):
			// nothing to add
		case isValidationError(err):
			addFlash(c, err.Error())
		default:
			apierrors.InternalError(c, err)
			return
		}
	}

	redirect(c, middleware.IndexPath)
}

// Complete toggles the completed flag of the task loaded by
// middleware.RequireTaskAccess.
func (h *TaskHandler) Complete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	task, ok := middleware.GetTask(c)
	if !ok {
		redirect(c, middleware.IndexPath)
		return
	}

	if _, err := h.taskService.ToggleTask(task.ID, userID); err != nil && !errors.Is(err, services.ErrTaskNotFound) {
		apierrors.InternalError(c, err)
		return
	}

	redirect(c, middleware.IndexPath)
}

// Delete removes the task loaded by middleware.RequireTaskAccess.
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	task, ok := middleware.GetTask(c)
	if !ok {
		redirect(c, middleware.IndexPath)
		return
	}

	if err := h.taskService.DeleteTask(task.ID, userID); err != nil && !errors.Is(err, services.ErrTaskNotFound) {
		apierrors.InternalError(c, err)
		return
	}

	redirect(c, middleware.IndexPath)
}

// EditForm renders the edit page pre-filled with the task's values.
func (h *TaskHandler) EditForm(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		TaskNotFound(c)
		return
	}

	c.HTML(http.StatusOK, editTemplate, h.editPage(c, task.ID, dto.ToTaskForm(*task), ""))
}

// Edit saves the edit form. Invalid input re-renders the form with 400.
func (h *TaskHandler) Edit(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	task, ok := middleware.GetTask(c)
	if !ok {
		TaskNotFound(c)
		return
	}

	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BadRequest(c, "Invalid form submission")
		return
	}

	if _, err := h.taskService.UpdateTask(task.ID, userID, form.input()); err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			TaskNotFound(c)
		case errors.Is(err, services.ErrContentEmpty), isValidationError(err):
			c.HTML(http.StatusBadRequest, editTemplate, h.editPage(c, task.ID, dto.TaskForm{
				Content:  form.Content,
				DueDate:  form.DueDate,
				Priority: form.Priority,
			}, err.Error()))
		default:
			apierrors.InternalError(c, err)
		}
		return
	}

	redirect(c, middleware.IndexPath)
}

// Suggest creates tasks extracted from free text.
func (h *TaskHandler) Suggest(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	text := c.PostForm("text")

	tasks, err := h.taskService.SuggestTasks(c.Request.Context(), userID, text)
	switch {
	case err == nil:
		addFlash(c, fmt.Sprintf("Added %d suggested task(s).", len(tasks)))
	case errors.Is(err, services.ErrSuggestionsDisabled),
		errors.Is(err, services.ErrNoSuggestions),
		errors.Is(err, services.ErrSuggestTextTooLong):
		addFlash(c, err.Error())
	default:
		_ = c.Error(err)
		addFlash(c, "Could not get task suggestions, please try again later.")
	}

	redirect(c, middleware.IndexPath)
}

// TaskNotFound renders the 404 page for a missing or foreign task.
func TaskNotFound(c *gin.Context) {
	apierrors.NotFound(c, services.ErrTaskNotFound.Error())
}

// NotFound renders the generic 404 page.
func NotFound(c *gin.Context) {
	apierrors.NotFound(c, "")
}

func (h *TaskHandler) editPage(c *gin.Context, taskID uint64, form dto.TaskForm, message string) dto.EditPage {
	page := dto.EditPage{
		TaskID:     taskID,
		Form:       form,
		Error:      message,
		Priorities: models.Priorities,
	}
	if user, ok := middleware.CurrentUser(c); ok {
		page.User = dto.ToUserDTO(*user)
	}
	return page
}

func isValidationError(err error) bool {
	return errors.Is(err, services.ErrContentTooLong) ||
		errors.Is(err, services.ErrInvalidDueDate) ||
		errors.Is(err, services.ErrInvalidPriority)
}

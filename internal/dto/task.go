package dto

import (
	"time"

	"github.com/yukikurage/todo-web/internal/models"
	"github.com/yukikurage/todo-web/internal/utils"
)

// UserDTO represents the current user in page data
type UserDTO struct {
	ID       uint64
	Username string
}

// TaskView represents a task row in the rendered list
type TaskView struct {
	ID        uint64
	Content   string
	Completed bool
	DueDate   string
	Priority  string
	Overdue   bool
}

// TaskForm holds the values shown in the add and edit forms
type TaskForm struct {
	Content  string
	DueDate  string
	Priority string
}

// IndexPage is the data for the task list
type IndexPage struct {
	User               UserDTO
	Tasks              []TaskView
	Flashes            []string
	Priorities         []models.Priority
	SuggestionsEnabled bool
}

// EditPage is the data for the edit form
type EditPage struct {
	User       UserDTO
	TaskID     uint64
	Form       TaskForm
	Error      string
	Priorities []models.Priority
}

// AuthPage is the data for the login and register forms
type AuthPage struct {
	Username string
	Error    string
	Flashes  []string
}

// ErrorPage is the data for error.html
type ErrorPage struct {
	Status  int
	Code    string
	Message string
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToTaskView converts a Task model to TaskView. A task is overdue when it is
// open and its due date is before today.
func ToTaskView(task models.Task, today time.Time) TaskView {
	view := TaskView{
		ID:        task.ID,
		Content:   task.Content,
		Completed: task.Completed,
		DueDate:   utils.FormatDueDate(task.DueDate),
		Priority:  string(task.Priority),
	}
	if task.DueDate != nil && !task.Completed {
		y, m, d := today.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		view.Overdue = task.DueDate.Before(start)
	}
	return view
}

// ToTaskViews converts a slice of tasks, keeping their order
func ToTaskViews(tasks []models.Task, today time.Time) []TaskView {
	views := make([]TaskView, len(tasks))
	for i, task := range tasks {
		views[i] = ToTaskView(task, today)
	}
	return views
}

// ToTaskForm pre-fills the edit form from a task
func ToTaskForm(task models.Task) TaskForm {
	return TaskForm{
		Content:  task.Content,
		DueDate:  utils.FormatDueDate(task.DueDate),
		Priority: string(task.Priority),
	}
}

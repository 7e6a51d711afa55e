package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/todo-web/internal/constants"
	"github.com/yukikurage/todo-web/internal/models"
	"github.com/yukikurage/todo-web/internal/repository"
	"github.com/yukikurage/todo-web/internal/utils"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrContentEmpty        = errors.New("content is required")
	ErrContentTooLong      = fmt.Errorf("content must be at most %d characters", constants.MaxContentLength)
	ErrInvalidDueDate      = errors.New("invalid due date, expected YYYY-MM-DD")
	ErrInvalidPriority     = errors.New("priority must be Low, Medium or High")
	ErrSuggestionsDisabled = errors.New("task suggestions are not configured")
	ErrNoSuggestions       = errors.New("no tasks found in the text")
	ErrSuggestTextTooLong  = fmt.Errorf("text must be at most %d characters", constants.MaxSuggestTextLength)
)

// TaskService handles task business logic. Every operation is scoped to the
// owning user.
type TaskService struct {
	taskRepo    repository.TaskRepository
	suggestions *SuggestionService
}

// NewTaskService creates a new TaskService. suggestions may be nil.
func NewTaskService(taskRepo repository.TaskRepository, suggestions *SuggestionService) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		suggestions: suggestions,
	}
}

// TaskInput carries the raw form values for creating or editing a task.
type TaskInput struct {
	Content  string
	DueDate  string
	Priority string
}

type taskFields struct {
	content  string
	dueDate  *time.Time
	priority models.Priority
}

func validateTaskInput(input TaskInput) (taskFields, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return taskFields{}, ErrContentEmpty
	}
	if utf8.RuneCountInString(content) > constants.MaxContentLength {
		return taskFields{}, ErrContentTooLong
	}

	dueDate, err := utils.ParseDueDate(input.DueDate)
	if err != nil {
		return taskFields{}, ErrInvalidDueDate
	}

	priority, ok := models.ParsePriority(input.Priority)
	if !ok {
		return taskFields{}, ErrInvalidPriority
	}

	return taskFields{content: content, dueDate: dueDate, priority: priority}, nil
}

// ListTasks returns the user's tasks in insertion order.
func (s *TaskService) ListTasks(userID uint64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask validates input and stores a new task owned by userID.
func (s *TaskService) CreateTask(userID uint64, input TaskInput) (*models.Task, error) {
	fields, err := validateTaskInput(input)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Content:  fields.content,
		DueDate:  fields.dueDate,
		Priority: fields.priority,
		UserID:   userID,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetTask returns the user's task by ID.
func (s *TaskService) GetTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindOwned(taskID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// UpdateTask replaces content, due date and priority of the user's task.
func (s *TaskService) UpdateTask(taskID, userID uint64, input TaskInput) (*models.Task, error) {
	fields, err := validateTaskInput(input)
	if err != nil {
		return nil, err
	}

	task, err := s.GetTask(taskID, userID)
	if err != nil {
		return nil, err
	}

	task.Content = fields.content
	task.DueDate = fields.dueDate
	task.Priority = fields.priority

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// ToggleTask flips the completed flag of the user's task.
func (s *TaskService) ToggleTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.GetTask(taskID, userID)
	if err != nil {
		return nil, err
	}

	task.Completed = !task.Completed

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to toggle task: %w", err)
	}
	return task, nil
}

// DeleteTask removes the user's task.
func (s *TaskService) DeleteTask(taskID, userID uint64) error {
	deleted, err := s.taskRepo.DeleteOwned(taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}

// SuggestionsEnabled reports whether SuggestTasks can be used.
func (s *TaskService) SuggestionsEnabled() bool {
	return s.suggestions != nil
}

// SuggestTasks extracts tasks from text and stores the valid ones for userID.
// Unparseable due dates are dropped and unknown priorities fall back to Low.
func (s *TaskService) SuggestTasks(ctx context.Context, userID uint64, text string) ([]models.Task, error) {
	if utf8.RuneCountInString(text) > constants.MaxSuggestTextLength {
		return nil, ErrSuggestTextTooLong
	}
	if s.suggestions == nil {
		return nil, ErrSuggestionsDisabled
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoSuggestions
	}

	suggested, err := s.suggestions.SuggestTasks(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(suggested))
	for _, st := range suggested {
		if len(tasks) == constants.MaxSuggestedTasks {
			break
		}

		input := TaskInput{Content: st.Content, Priority: st.Priority}
		if st.DueDate != nil {
			input.DueDate = *st.DueDate
		}
		if _, err := utils.ParseDueDate(input.DueDate); err != nil {
			input.DueDate = ""
		}
		if _, ok := models.ParsePriority(input.Priority); !ok {
			input.Priority = ""
		}

		fields, err := validateTaskInput(input)
		if err != nil {
			continue
		}
		tasks = append(tasks, models.Task{
			Content:  fields.content,
			DueDate:  fields.dueDate,
			Priority: fields.priority,
			UserID:   userID,
		})
	}

	if len(tasks) == 0 {
		return nil, ErrNoSuggestions
	}

	if err := s.taskRepo.CreateBatch(tasks); err != nil {
		return nil, fmt.Errorf("failed to store suggested tasks: %w", err)
	}
	return tasks, nil
}

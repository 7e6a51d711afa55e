package repository

import (
	"errors"
	"strings"

	"github.com/yukikurage/todo-web/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateUsername is returned when a username is already registered.
var ErrDuplicateUsername = errors.New("user repository: username already exists")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task
	Create(task *models.Task) error

	// CreateBatch inserts several tasks in one transaction
	CreateBatch(tasks []models.Task) error

	// FindOwned finds a task by ID that belongs to userID
	FindOwned(id, userID uint64) (*models.Task, error)

	// ListByUser returns the user's tasks in insertion order
	ListByUser(userID uint64) ([]models.Task, error)

	// Update saves all fields of a task
	Update(task *models.Task) error

	// DeleteOwned deletes a task belonging to userID and reports whether a row was removed
	DeleteOwned(id, userID uint64) (bool, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicateKey recognises unique-constraint violations. Drivers translate
// them to gorm.ErrDuplicatedKey when TranslateError is on; the message checks
// cover connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

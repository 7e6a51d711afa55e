package repository

import (
	"github.com/yukikurage/todo-web/internal/database"
	"github.com/yukikurage/todo-web/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// CreateBatch inserts several tasks in one transaction
func (r *GormTaskRepository) CreateBatch(tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
}

// FindOwned finds a task by ID that belongs to userID
func (r *GormTaskRepository) FindOwned(id, userID uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Scopes(database.OwnedBy(userID)).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser returns the user's tasks in insertion order
func (r *GormTaskRepository) ListByUser(userID uint64) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := r.db.Scopes(database.OwnedBy(userID), database.InsertionOrder).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update saves all fields of a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// DeleteOwned deletes a task belonging to userID
func (r *GormTaskRepository) DeleteOwned(id, userID uint64) (bool, error) {
	result := r.db.Scopes(database.OwnedBy(userID)).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

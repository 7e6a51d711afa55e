package database

import (
	"fmt"
	"strings"

	"github.com/yukikurage/todo-web/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the indexes used by the task list queries. Existing
// indexes are left alone.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns []string
	}{
		{"idx_tasks_user_id", []string{"user_id"}},
		{"idx_tasks_due_date", []string{"due_date"}},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			quote(db, idx.name), quote(db, "tasks"), quoteColumns(db, idx.columns))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

func quote(db *gorm.DB, name string) string {
	return db.Statement.Quote(name)
}

func quoteColumns(db *gorm.DB, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(db, c)
	}
	return strings.Join(quoted, ", ")
}

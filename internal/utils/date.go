package utils

import (
	"strings"
	"time"

	"github.com/yukikurage/todo-web/internal/constants"
)

// ParseDueDate parses a YYYY-MM-DD form value into midnight UTC.
// An empty value yields nil without error.
func ParseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(constants.DueDateLayout, value, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDueDate renders a due date for form fields; nil yields "".
func FormatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(constants.DueDateLayout)
}

package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists the accepted priorities in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority matches s case-insensitively against the known priorities.
// An empty string yields PriorityLow.
func ParsePriority(s string) (Priority, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriorityLow, true
	}
	for _, p := range Priorities {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

type Task struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	Content   string     `gorm:"type:varchar(200);not null" json:"content"`
	Completed bool       `gorm:"not null;default:false" json:"completed"`
	DueDate   *time.Time `json:"due_date"`
	Priority  Priority   `gorm:"type:varchar(20);not null;default:'Low'" json:"priority"`
	UserID    uint64     `gorm:"not null" json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

package database

import "gorm.io/gorm"

// OwnedBy restricts a task query to the given owner.
func OwnedBy(userID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// InsertionOrder orders rows by primary key, which follows insertion order.
func InsertionOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

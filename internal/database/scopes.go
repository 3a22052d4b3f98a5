package database

import (
	"gorm.io/gorm"

	"github.com/soramame/workgroup-api/internal/utils"
)

// NotDeleted filters soft-deleted rows out of a read path. Every "active"
// query composes this single predicate instead of repeating the flag check.
func NotDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("deleted = ?", false)
}

// NotArchived filters archived tasks out of a read path.
func NotArchived(db *gorm.DB) *gorm.DB {
	return db.Where("archived = ?", false)
}

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

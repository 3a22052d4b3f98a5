package models

import "time"

// Priority is a catalog entry referenced by tasks. Retired priorities are
// hidden, never deleted, so existing tasks keep resolving.
type Priority struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Hidden    bool      `gorm:"not null;default:false" json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

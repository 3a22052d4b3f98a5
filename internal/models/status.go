package models

import "time"

// Status is a label catalog managed by group moderators. The task state
// machine itself runs on TaskStatus; these rows only feed the UI.
type Status struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

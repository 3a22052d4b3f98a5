package models

import "time"

// WorkGroup is the top-level container owning projects, tasks and memberships.
// Deletion is a soft flag: the row stays fetchable by id so that tasks and
// projects referencing it keep resolving, but active queries filter it out.
type WorkGroup struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Deleted     bool      `gorm:"not null;default:false" json:"deleted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Members  []WorkGroupMember `gorm:"foreignKey:WorkGroupID" json:"members,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkGroupID" json:"projects,omitempty"`
	Tasks    []Task            `gorm:"foreignKey:WorkGroupID" json:"tasks,omitempty"`
}

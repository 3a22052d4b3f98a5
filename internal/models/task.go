package models

import "time"

type TaskStatus string

const (
	TaskStatusNotStarted  TaskStatus = "NOT_STARTED"
	TaskStatusWorkingOnIt TaskStatus = "WORKING_ON_IT"
	TaskStatusDone        TaskStatus = "DONE"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusWorkingOnIt, TaskStatusDone:
		return true
	}
	return false
}

// Task belongs to exactly one work group and optionally one project. The
// parent link is an id back-reference, not an owning edge: subtask trees are
// reconstructed by indexed lookup on ParentTaskID.
type Task struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	PriorityID   uint64     `gorm:"not null" json:"priority_id"`
	Status       TaskStatus `gorm:"type:varchar(20);not null;default:'NOT_STARTED'" json:"status"`
	Archived     bool       `gorm:"not null;default:false" json:"archived"`
	Deleted      bool       `gorm:"not null;default:false" json:"deleted"`
	WorkGroupID  uint64     `gorm:"not null" json:"work_group_id"`
	ProjectID    *uint64    `json:"project_id"`
	ParentTaskID *uint64    `gorm:"index" json:"parent_task_id"`
	CreatorID    uint64     `gorm:"not null" json:"creator_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	Priority    Priority         `gorm:"foreignKey:PriorityID" json:"priority,omitempty"`
	WorkGroup   WorkGroup        `gorm:"foreignKey:WorkGroupID" json:"work_group,omitempty"`
	Project     *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Creator     User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Subtasks    []Task           `gorm:"foreignKey:ParentTaskID" json:"subtasks,omitempty"`
}

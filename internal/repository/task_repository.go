package repository

import (
	"github.com/soramame/workgroup-api/internal/models"
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

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading. Deleted and archived
// rows are returned too; state checks belong to the service layer, which
// needs to distinguish "gone" from "frozen".
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// ListByProject lists non-deleted tasks of a project
func (r *GormTaskRepository) ListByProject(projectID uint64, archivedOnly bool) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.Where("project_id = ? AND deleted = ?", projectID, false)
	if archivedOnly {
		query = query.Where("archived = ?", true)
	}
	if err := query.Order("tasks.created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListSubtasks lists non-deleted direct children of a task
func (r *GormTaskRepository) ListSubtasks(parentID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("parent_task_id = ? AND deleted = ?", parentID, false).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListArchivedAssignedTo lists archived, non-deleted tasks assigned to a user
func (r *GormTaskRepository) ListArchivedAssignedTo(userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("task_assignments.user_id = ? AND tasks.archived = ? AND tasks.deleted = ?", userID, true, false).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// AssignUser adds an assignment row
func (r *GormTaskRepository) AssignUser(taskID, userID uint64) error {
	assignment := models.TaskAssignment{
		TaskID: taskID,
		UserID: userID,
	}
	return r.db.Create(&assignment).Error
}

// UnassignUser deletes an assignment row
func (r *GormTaskRepository) UnassignUser(taskID, userID uint64) error {
	return r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskAssignment{}).Error
}

// FindAssignment finds a specific task assignment
func (r *GormTaskRepository) FindAssignment(taskID, userID uint64) (*models.TaskAssignment, error) {
	var assignment models.TaskAssignment
	if err := r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListAssignees lists the users assigned to a task
func (r *GormTaskRepository) ListAssignees(taskID uint64) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Joins("JOIN task_assignments ON task_assignments.user_id = users.id").
		Where("task_assignments.task_id = ?", taskID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

package repository

import (
	"time"

	"github.com/soramame/workgroup-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// CreateWithMember creates the project and its first member atomically
func (r *GormProjectRepository) CreateWithMember(project *models.Project, creatorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		member := &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    creatorID,
			AddedAt:   time.Now(),
		}
		return tx.Create(member).Error
	})
}

// FindByID finds a project by ID regardless of its deleted flag
func (r *GormProjectRepository) FindByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindActiveByID finds a non-deleted project by ID
func (r *GormProjectRepository) FindActiveByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.Where("deleted = ?", false).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// SoftDelete marks a project deleted
func (r *GormProjectRepository) SoftDelete(id uint64) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).
		Update("deleted", true).Error
}

// ListByGroup lists active projects of a group
func (r *GormProjectRepository) ListByGroup(groupID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Where("work_group_id = ? AND deleted = ?", groupID, false).
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// AddMember adds a project membership row
func (r *GormProjectRepository) AddMember(member *models.ProjectMember) error {
	return r.db.Create(member).Error
}

// RemoveMember deletes a project membership row
func (r *GormProjectRepository) RemoveMember(projectID, userID uint64) error {
	return r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

// FindMember finds a specific project membership
func (r *GormProjectRepository) FindMember(projectID, userID uint64) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists project members with users preloaded
func (r *GormProjectRepository) ListMembers(projectID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.Preload("User").
		Where("project_id = ?", projectID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

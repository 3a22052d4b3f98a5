package repository

import (
	"github.com/soramame/workgroup-api/internal/models"
	"gorm.io/gorm"
)

// GormPriorityRepository is a GORM implementation of PriorityRepository
type GormPriorityRepository struct {
	db *gorm.DB
}

func NewPriorityRepository(db *gorm.DB) PriorityRepository {
	return &GormPriorityRepository{db: db}
}

func (r *GormPriorityRepository) Create(priority *models.Priority) error {
	return r.db.Create(priority).Error
}

func (r *GormPriorityRepository) FindByID(id uint64) (*models.Priority, error) {
	var priority models.Priority
	if err := r.db.First(&priority, id).Error; err != nil {
		return nil, err
	}
	return &priority, nil
}

func (r *GormPriorityRepository) Update(priority *models.Priority) error {
	return r.db.Save(priority).Error
}

func (r *GormPriorityRepository) List(includeHidden bool) ([]models.Priority, error) {
	var priorities []models.Priority
	query := r.db
	if !includeHidden {
		query = query.Where("hidden = ?", false)
	}
	if err := query.Order("id").Find(&priorities).Error; err != nil {
		return nil, err
	}
	return priorities, nil
}

// GormStatusRepository is a GORM implementation of StatusRepository
type GormStatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &GormStatusRepository{db: db}
}

func (r *GormStatusRepository) Create(status *models.Status) error {
	return r.db.Create(status).Error
}

func (r *GormStatusRepository) FindByID(id uint64) (*models.Status, error) {
	var status models.Status
	if err := r.db.First(&status, id).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *GormStatusRepository) Update(status *models.Status) error {
	return r.db.Save(status).Error
}

func (r *GormStatusRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Status{}, id).Error
}

func (r *GormStatusRepository) List() ([]models.Status, error) {
	var statuses []models.Status
	if err := r.db.Order("id").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *GormCommentRepository) ListByTask(taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

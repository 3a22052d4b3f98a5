package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"gorm.io/gorm"
)

// StatusService manages the status label catalog. Mutations are authorized
// against a task: the caller must be MODERATOR or OWNER of that task's work
// group. Reads are open to any authenticated user.
type StatusService struct {
	statusRepo repository.StatusRepository
	taskRepo   repository.TaskRepository
	auth       *authz.Authorizer
}

// NewStatusService creates a new StatusService.
func NewStatusService(statusRepo repository.StatusRepository, taskRepo repository.TaskRepository, auth *authz.Authorizer) *StatusService {
	return &StatusService{
		statusRepo: statusRepo,
		taskRepo:   taskRepo,
		auth:       auth,
	}
}

// CreateStatusInput represents input for creating a status label.
type CreateStatusInput struct {
	Name        string
	Description string
	TaskID      uint64
}

// CreateStatus adds a status label. taskID supplies the authorization
// context: the caller must moderate that task's group.
func (s *StatusService) CreateStatus(actor authz.Actor, input CreateStatusInput) (*models.Status, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.Validation("name_required", "status name cannot be empty")
	}

	if err := s.requireTaskModerator(actor, input.TaskID); err != nil {
		return nil, err
	}

	status := &models.Status{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.statusRepo.Create(status); err != nil {
		return nil, fmt.Errorf("failed to create status: %w", err)
	}
	return status, nil
}

// UpdateStatusInput represents input for updating a status label.
type UpdateStatusInput struct {
	Name        *string
	Description *string
	TaskID      uint64
}

// UpdateStatus edits a status label under the same task-scoped gate.
func (s *StatusService) UpdateStatus(actor authz.Actor, statusID uint64, input UpdateStatusInput) (*models.Status, error) {
	if err := s.requireTaskModerator(actor, input.TaskID); err != nil {
		return nil, err
	}

	status, err := s.findStatus(statusID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.Validation("name_required", "status name cannot be empty")
		}
		status.Name = *input.Name
	}
	if input.Description != nil {
		status.Description = *input.Description
	}

	if err := s.statusRepo.Update(status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return status, nil
}

// DeleteStatus removes a status label under the same task-scoped gate.
func (s *StatusService) DeleteStatus(actor authz.Actor, statusID, taskID uint64) error {
	if err := s.requireTaskModerator(actor, taskID); err != nil {
		return err
	}

	if _, err := s.findStatus(statusID); err != nil {
		return err
	}

	if err := s.statusRepo.Delete(statusID); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return nil
}

// GetStatus returns a status label by id.
func (s *StatusService) GetStatus(statusID uint64) (*models.Status, error) {
	return s.findStatus(statusID)
}

// ListStatuses lists all status labels.
func (s *StatusService) ListStatuses() ([]models.Status, error) {
	statuses, err := s.statusRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return statuses, nil
}

func (s *StatusService) findStatus(statusID uint64) (*models.Status, error) {
	status, err := s.statusRepo.FindByID(statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("status_not_found", "status not found")
		}
		return nil, fmt.Errorf("failed to find status: %w", err)
	}
	return status, nil
}

func (s *StatusService) requireTaskModerator(actor authz.Actor, taskID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("task_not_found", "task not found")
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	if task.Deleted {
		return apperrors.NotFound("task_deleted", "task not found")
	}
	return s.auth.Require(actor, task.WorkGroupID, authz.ActionManageStatus)
}

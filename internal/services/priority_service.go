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

// PriorityService manages the shared priority catalog. Mutations are
// superuser-only; priorities are hidden, never deleted, so existing tasks
// keep a valid reference.
type PriorityService struct {
	priorityRepo repository.PriorityRepository
}

// NewPriorityService creates a new PriorityService.
func NewPriorityService(priorityRepo repository.PriorityRepository) *PriorityService {
	return &PriorityService{priorityRepo: priorityRepo}
}

// CreatePriority adds a priority to the catalog, visible by default.
func (s *PriorityService) CreatePriority(actor authz.Actor, name string) (*models.Priority, error) {
	if !actor.Superuser {
		return nil, apperrors.Forbidden("superuser_only", "only superusers can manage priorities")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("name_required", "priority name cannot be empty")
	}

	priority := &models.Priority{Name: name}
	if err := s.priorityRepo.Create(priority); err != nil {
		return nil, fmt.Errorf("failed to create priority: %w", err)
	}
	return priority, nil
}

// UpdatePriority renames a priority.
func (s *PriorityService) UpdatePriority(actor authz.Actor, priorityID uint64, name string) (*models.Priority, error) {
	if !actor.Superuser {
		return nil, apperrors.Forbidden("superuser_only", "only superusers can manage priorities")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("name_required", "priority name cannot be empty")
	}

	priority, err := s.findPriority(priorityID)
	if err != nil {
		return nil, err
	}

	priority.Name = name
	if err := s.priorityRepo.Update(priority); err != nil {
		return nil, fmt.Errorf("failed to update priority: %w", err)
	}
	return priority, nil
}

// SetHidden hides or unhides a priority. Hidden priorities disappear from
// the catalog listing but stay valid on tasks that already use them.
func (s *PriorityService) SetHidden(actor authz.Actor, priorityID uint64, hidden bool) (*models.Priority, error) {
	if !actor.Superuser {
		return nil, apperrors.Forbidden("superuser_only", "only superusers can manage priorities")
	}

	priority, err := s.findPriority(priorityID)
	if err != nil {
		return nil, err
	}

	priority.Hidden = hidden
	if err := s.priorityRepo.Update(priority); err != nil {
		return nil, fmt.Errorf("failed to update priority: %w", err)
	}
	return priority, nil
}

// GetPriority returns a priority by id, hidden or not.
func (s *PriorityService) GetPriority(priorityID uint64) (*models.Priority, error) {
	return s.findPriority(priorityID)
}

// ListPriorities lists the catalog. Hidden entries are included for
// superusers only.
func (s *PriorityService) ListPriorities(actor authz.Actor) ([]models.Priority, error) {
	priorities, err := s.priorityRepo.List(actor.Superuser)
	if err != nil {
		return nil, fmt.Errorf("failed to list priorities: %w", err)
	}
	return priorities, nil
}

func (s *PriorityService) findPriority(priorityID uint64) (*models.Priority, error) {
	priority, err := s.priorityRepo.FindByID(priorityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("priority_not_found", "priority not found")
		}
		return nil, fmt.Errorf("failed to find priority: %w", err)
	}
	return priority, nil
}

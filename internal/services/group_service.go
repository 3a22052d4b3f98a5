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

// GroupService provides business logic for work group operations.
type GroupService struct {
	groupRepo repository.WorkGroupRepository
	auth      *authz.Authorizer
}

// NewGroupService creates a new GroupService.
func NewGroupService(groupRepo repository.WorkGroupRepository, auth *authz.Authorizer) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		auth:      auth,
	}
}

// CreateGroupInput represents parameters to create a new work group.
type CreateGroupInput struct {
	Name        string
	Description string
	CreatorID   uint64
}

// CreateGroup creates a work group. Any authenticated user may create one;
// the creator becomes OWNER in the same transaction as the group row.
func (s *GroupService) CreateGroup(input CreateGroupInput) (*models.WorkGroup, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.Validation("name_required", "work group name cannot be empty")
	}

	group := &models.WorkGroup{
		Name:        input.Name,
		Description: input.Description,
	}

	if err := s.groupRepo.CreateWithOwner(group, input.CreatorID); err != nil {
		return nil, fmt.Errorf("failed to create work group: %w", err)
	}

	return group, nil
}

// GetGroup returns an active group; members only.
func (s *GroupService) GetGroup(actor authz.Actor, groupID uint64) (*models.WorkGroup, error) {
	if err := s.auth.Require(actor, groupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	group, err := s.groupRepo.FindActiveByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("group_not_found", "work group not found or deleted")
		}
		return nil, fmt.Errorf("failed to find work group: %w", err)
	}
	return group, nil
}

// RoleInGroup resolves the actor's effective role in the group. Superusers
// resolve through the audited authz bypass rather than a membership row.
func (s *GroupService) RoleInGroup(actor authz.Actor, groupID uint64) (models.GroupRole, error) {
	return s.auth.RoleInGroup(actor, groupID)
}

// UpdateGroupInput carries optional fields for a group update.
type UpdateGroupInput struct {
	Name        *string
	Description *string
}

// UpdateGroup updates name/description. MODERATOR or OWNER.
func (s *GroupService) UpdateGroup(actor authz.Actor, groupID uint64, input UpdateGroupInput) (*models.WorkGroup, error) {
	if err := s.auth.Require(actor, groupID, authz.ActionUpdateGroup); err != nil {
		return nil, err
	}

	group, err := s.groupRepo.FindActiveByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("group_not_found", "work group not found or deleted")
		}
		return nil, fmt.Errorf("failed to find work group: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.Validation("name_required", "work group name cannot be empty")
		}
		group.Name = *input.Name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}

	if err := s.groupRepo.Update(group); err != nil {
		return nil, fmt.Errorf("failed to update work group: %w", err)
	}
	return group, nil
}

// DeleteGroup soft-deletes a group. OWNER only. Memberships stay frozen in
// place; the group disappears from active reads but stays fetchable by id.
func (s *GroupService) DeleteGroup(actor authz.Actor, groupID uint64) error {
	if err := s.auth.Require(actor, groupID, authz.ActionDeleteGroup); err != nil {
		return err
	}

	if _, err := s.groupRepo.FindActiveByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("group_not_found", "work group not found or deleted")
		}
		return fmt.Errorf("failed to find work group: %w", err)
	}

	if err := s.groupRepo.SoftDelete(groupID); err != nil {
		return fmt.Errorf("failed to delete work group: %w", err)
	}
	return nil
}

// ListGroupsForUser returns the active groups the user belongs to.
func (s *GroupService) ListGroupsForUser(userID uint64) ([]models.WorkGroup, error) {
	groups, err := s.groupRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work groups: %w", err)
	}
	return groups, nil
}

// ListMembers returns all memberships of an active group; members only.
func (s *GroupService) ListMembers(actor authz.Actor, groupID uint64) ([]models.WorkGroupMember, error) {
	if err := s.auth.Require(actor, groupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	if _, err := s.groupRepo.FindActiveByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("group_not_found", "work group not found or deleted")
		}
		return nil, fmt.Errorf("failed to find work group: %w", err)
	}

	members, err := s.groupRepo.ListMembers(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

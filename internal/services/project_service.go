package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"gorm.io/gorm"
)

// ProjectService manages projects and project membership. Project members
// are always a subset of the owning group's members.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	groupRepo   repository.WorkGroupRepository
	userRepo    repository.UserRepository
	auth        *authz.Authorizer
}

// NewProjectService creates a new ProjectService.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	groupRepo repository.WorkGroupRepository,
	userRepo repository.UserRepository,
	auth *authz.Authorizer,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		auth:        auth,
	}
}

// CreateProjectInput represents input for creating a project.
type CreateProjectInput struct {
	Title       string
	Description string
	WorkGroupID uint64
}

// CreateProject creates a project inside a work group. Any group member may
// create one; the creator becomes the first project member in the same
// transaction.
func (s *ProjectService) CreateProject(actor authz.Actor, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.Validation("title_required", "project title cannot be empty")
	}

	if err := s.auth.Require(actor, input.WorkGroupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	if _, err := s.groupRepo.FindActiveByID(input.WorkGroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("group_not_found", "work group not found or deleted")
		}
		return nil, fmt.Errorf("failed to find work group: %w", err)
	}

	project := &models.Project{
		Title:       input.Title,
		Description: input.Description,
		WorkGroupID: input.WorkGroupID,
	}

	if err := s.projectRepo.CreateWithMember(project, actor.UserID); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// GetProject returns an active project; group members only.
func (s *ProjectService) GetProject(actor authz.Actor, projectID uint64) (*models.Project, error) {
	project, err := s.findActiveProject(projectID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, project.WorkGroupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject soft-deletes a project. Any project member may delete it;
// tasks keep their project reference but the project stops appearing in
// active reads.
func (s *ProjectService) DeleteProject(actor authz.Actor, projectID uint64) error {
	project, err := s.findActiveProject(projectID)
	if err != nil {
		return err
	}

	if err := s.requireMember(actor, project); err != nil {
		return err
	}

	if err := s.projectRepo.SoftDelete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// ListProjectsByGroup lists the active projects of a group; group members
// only.
func (s *ProjectService) ListProjectsByGroup(actor authz.Actor, groupID uint64) ([]models.Project, error) {
	if err := s.auth.Require(actor, groupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	projects, err := s.projectRepo.ListByGroup(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// AddProjectMember adds a group member to a project. The actor must already
// be a project member; the target must hold a role in the owning group.
func (s *ProjectService) AddProjectMember(actor authz.Actor, projectID uint64, targetUsername string) (*models.ProjectMember, error) {
	project, err := s.findActiveProject(projectID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMember(actor, project); err != nil {
		return nil, err
	}

	target, err := s.userRepo.FindByUsername(targetUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user_not_found", "user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Subset rule: project membership requires group membership.
	if _, err := s.groupRepo.FindMember(project.WorkGroupID, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.InvalidState("not_in_group", "user must belong to the work group before joining its projects")
		}
		return nil, fmt.Errorf("failed to verify group membership: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, target.ID); err == nil {
		return nil, apperrors.Conflict("already_project_member", "user is already a member of this project")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify project membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    target.ID,
		AddedAt:   time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}
	return member, nil
}

// RemoveProjectMember removes a user from a project. Group membership is
// untouched.
func (s *ProjectService) RemoveProjectMember(actor authz.Actor, projectID uint64, targetUsername string) error {
	project, err := s.findActiveProject(projectID)
	if err != nil {
		return err
	}

	if err := s.requireMember(actor, project); err != nil {
		return err
	}

	target, err := s.userRepo.FindByUsername(targetUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user_not_found", "user not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("not_project_member", "user is not a member of this project")
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}

	if err := s.projectRepo.RemoveMember(projectID, target.ID); err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	return nil
}

// ListProjectMembers lists the members of an active project; project
// members only.
func (s *ProjectService) ListProjectMembers(actor authz.Actor, projectID uint64) ([]models.ProjectMember, error) {
	project, err := s.findActiveProject(projectID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMember(actor, project); err != nil {
		return nil, err
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

func (s *ProjectService) findActiveProject(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindActiveByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("project_not_found", "project not found or deleted")
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

func (s *ProjectService) requireMember(actor authz.Actor, project *models.Project) error {
	if actor.Superuser {
		return nil
	}
	if _, err := s.projectRepo.FindMember(project.ID, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Forbidden("not_project_member", "you are not a member of this project")
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}

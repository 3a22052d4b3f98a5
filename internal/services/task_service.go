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

// TaskService runs the task state machine: active → archived → deleted.
// Archived and deleted tasks reject further mutation; archiving requires
// status DONE and walks the whole subtask subtree.
type TaskService struct {
	taskRepo     repository.TaskRepository
	groupRepo    repository.WorkGroupRepository
	projectRepo  repository.ProjectRepository
	priorityRepo repository.PriorityRepository
	userRepo     repository.UserRepository
	auth         *authz.Authorizer
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	taskRepo repository.TaskRepository,
	groupRepo repository.WorkGroupRepository,
	projectRepo repository.ProjectRepository,
	priorityRepo repository.PriorityRepository,
	userRepo repository.UserRepository,
	auth *authz.Authorizer,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		groupRepo:    groupRepo,
		projectRepo:  projectRepo,
		priorityRepo: priorityRepo,
		userRepo:     userRepo,
		auth:         auth,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	PriorityID  uint64
	Status      models.TaskStatus
	WorkGroupID uint64
	ProjectID   *uint64
}

// CreateTask creates a task in a work group. Any member may create tasks;
// the priority reference is mandatory and the creator is auto-assigned.
func (s *TaskService) CreateTask(actor authz.Actor, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.Validation("title_required", "title is required")
	}
	if input.PriorityID == 0 {
		return nil, apperrors.Validation("priority_required", "priority is required")
	}

	if err := s.auth.Require(actor, input.WorkGroupID, authz.ActionCreateTask); err != nil {
		return nil, err
	}

	if _, err := s.priorityRepo.FindByID(input.PriorityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("priority_not_found", "priority not found")
		}
		return nil, fmt.Errorf("failed to find priority: %w", err)
	}

	if input.ProjectID != nil {
		project, err := s.projectRepo.FindActiveByID(*input.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("project_not_found", "project not found or deleted")
			}
			return nil, fmt.Errorf("failed to find project: %w", err)
		}
		if project.WorkGroupID != input.WorkGroupID {
			return nil, apperrors.Validation("project_group_mismatch", "project does not belong to the given work group")
		}
	}

	if input.Status == "" {
		input.Status = models.TaskStatusNotStarted
	}
	if !input.Status.Valid() {
		return nil, apperrors.Validation("invalid_status", "unknown task status")
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		PriorityID:  input.PriorityID,
		Status:      input.Status,
		WorkGroupID: input.WorkGroupID,
		ProjectID:   input.ProjectID,
		CreatorID:   actor.UserID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := s.taskRepo.AssignUser(task.ID, actor.UserID); err != nil {
		return nil, fmt.Errorf("failed to assign creator to task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Priority", "Creator", "Assignments", "Assignments.User")
}

// GetTask returns a task with relations; members of the owning group only.
// Deleted tasks are reported as not found.
func (s *TaskService) GetTask(actor authz.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findExistingTask(taskID, "Priority", "Creator", "Assignments", "Assignments.User")
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskInput represents input for updating a task.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	PriorityID  *uint64
	Status      *models.TaskStatus
}

// UpdateTask updates an existing task. Archived or deleted tasks reject any
// further mutation.
func (s *TaskService) UpdateTask(actor authz.Actor, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionCreateTask); err != nil {
		return nil, err
	}

	if task.Archived {
		return nil, apperrors.InvalidState("task_archived", "an archived task cannot be edited")
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.Validation("title_required", "title cannot be empty")
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.PriorityID != nil {
		if _, err := s.priorityRepo.FindByID(*input.PriorityID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("priority_not_found", "priority not found")
			}
			return nil, fmt.Errorf("failed to find priority: %w", err)
		}
		task.PriorityID = *input.PriorityID
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.Validation("invalid_status", "unknown task status")
		}
		task.Status = *input.Status
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Priority", "Creator", "Assignments", "Assignments.User")
}

// ArchiveTask freezes a DONE task and its whole subtask subtree. MODERATOR
// or OWNER only. The walk is per-node and idempotent per node: descendants
// already archived are skipped, and a failure partway leaves ancestors
// archived (documented behavior, not rolled back).
func (s *TaskService) ArchiveTask(actor authz.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionArchiveTask); err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusDone {
		return nil, apperrors.InvalidState("not_done", "only DONE tasks can be archived")
	}

	if err := s.archiveSubtree(task); err != nil {
		return nil, err
	}

	return s.taskRepo.FindByID(task.ID, "Priority", "Subtasks")
}

func (s *TaskService) archiveSubtree(task *models.Task) error {
	// An archived node ends the walk: its subtree was frozen when it was
	// archived, and stopping here keeps the recursion bounded even if the
	// parent links ever form a cycle.
	if task.Archived {
		return nil
	}

	task.Archived = true
	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to archive task %d: %w", task.ID, err)
	}

	subtasks, err := s.taskRepo.ListSubtasks(task.ID)
	if err != nil {
		return fmt.Errorf("failed to list subtasks of %d: %w", task.ID, err)
	}
	for i := range subtasks {
		if err := s.archiveSubtree(&subtasks[i]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteArchivedTask soft-deletes an archived task. MODERATOR or OWNER
// only; this is the only deletion path that requires the archived state.
func (s *TaskService) DeleteArchivedTask(actor authz.Actor, taskID uint64) error {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return err
	}

	if !task.Archived {
		return apperrors.InvalidState("not_archived", "only archived tasks can be deleted here")
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionDeleteArchivedTask); err != nil {
		return err
	}

	task.Deleted = true
	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// DeleteProjectTask is the second deletion entry point: project-scoped,
// requiring only project membership and no archived state. Both paths are
// kept deliberately; see DESIGN.md.
func (s *TaskService) DeleteProjectTask(actor authz.Actor, projectID, taskID uint64) error {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return err
	}

	if task.ProjectID == nil || *task.ProjectID != projectID {
		return apperrors.Validation("project_mismatch", "task does not belong to the given project")
	}

	if err := s.requireProjectMember(actor, projectID); err != nil {
		return err
	}

	task.Deleted = true
	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// AssignUser assigns a group member to a task. The task must be active and
// not DONE, and the assignee must already belong to the task's work group.
func (s *TaskService) AssignUser(actor authz.Actor, taskID uint64, username string) (*models.Task, error) {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionAssignUser); err != nil {
		return nil, err
	}

	if task.Archived {
		return nil, apperrors.InvalidState("task_archived", "an archived task cannot be modified")
	}
	if task.Status == models.TaskStatusDone {
		return nil, apperrors.InvalidState("task_done", "users cannot be assigned to a DONE task")
	}

	target, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user_not_found", "user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.groupRepo.FindMember(task.WorkGroupID, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.InvalidState("assignee_not_in_group", "user does not belong to the task's work group")
		}
		return nil, fmt.Errorf("failed to verify group membership: %w", err)
	}

	if _, err := s.taskRepo.FindAssignment(taskID, target.ID); err == nil {
		return nil, apperrors.Conflict("already_assigned", "user is already assigned to this task")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify assignment: %w", err)
	}

	if err := s.taskRepo.AssignUser(taskID, target.ID); err != nil {
		return nil, fmt.Errorf("failed to assign user: %w", err)
	}

	return s.taskRepo.FindByID(taskID, "Priority", "Assignments", "Assignments.User")
}

// UnassignUser removes an assignee from a task.
func (s *TaskService) UnassignUser(actor authz.Actor, taskID uint64, username string) error {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionAssignUser); err != nil {
		return err
	}

	if task.Archived {
		return apperrors.InvalidState("task_archived", "an archived task cannot be modified")
	}

	target, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user_not_found", "user not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.taskRepo.FindAssignment(taskID, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("not_assigned", "user is not assigned to this task")
		}
		return fmt.Errorf("failed to verify assignment: %w", err)
	}

	if err := s.taskRepo.UnassignUser(taskID, target.ID); err != nil {
		return fmt.Errorf("failed to unassign user: %w", err)
	}
	return nil
}

// GetAssignedUsers lists the assignees of a task; group members only.
func (s *TaskService) GetAssignedUsers(actor authz.Actor, taskID uint64) ([]models.User, error) {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	users, err := s.taskRepo.ListAssignees(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %w", err)
	}
	return users, nil
}

// CreateSubtaskInput represents input for creating a subtask.
type CreateSubtaskInput struct {
	Title       string
	Description string
	PriorityID  uint64
	Status      models.TaskStatus
}

// CreateSubtask creates a child task under parent. The child inherits the
// parent's work group and project. A task cannot be its own subtask; deeper
// cycles are not checked.
func (s *TaskService) CreateSubtask(actor authz.Actor, parentID uint64, input CreateSubtaskInput) (*models.Task, error) {
	parent, err := s.findExistingTask(parentID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, parent.WorkGroupID, authz.ActionCreateTask); err != nil {
		return nil, err
	}

	if parent.Archived {
		return nil, apperrors.InvalidState("parent_archived", "cannot add subtasks to an archived task")
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.Validation("title_required", "title is required")
	}
	if input.PriorityID == 0 {
		return nil, apperrors.Validation("priority_required", "priority is required")
	}
	if _, err := s.priorityRepo.FindByID(input.PriorityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("priority_not_found", "priority not found")
		}
		return nil, fmt.Errorf("failed to find priority: %w", err)
	}

	if input.Status == "" {
		input.Status = models.TaskStatusNotStarted
	}
	if !input.Status.Valid() {
		return nil, apperrors.Validation("invalid_status", "unknown task status")
	}

	subtask := &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		PriorityID:   input.PriorityID,
		Status:       input.Status,
		WorkGroupID:  parent.WorkGroupID,
		ProjectID:    parent.ProjectID,
		ParentTaskID: &parent.ID,
		CreatorID:    actor.UserID,
	}

	if err := s.taskRepo.Create(subtask); err != nil {
		return nil, fmt.Errorf("failed to create subtask: %w", err)
	}

	return s.taskRepo.FindByID(subtask.ID, "Priority")
}

// LinkSubtask attaches an existing task as a subtask of parent, copying the
// parent's group and project onto it. Self-reference, archived endpoints and
// links that would close a cycle in the subtask tree are rejected.
func (s *TaskService) LinkSubtask(actor authz.Actor, parentID, childID uint64) (*models.Task, error) {
	if parentID == childID {
		return nil, apperrors.Conflict("self_subtask", "a task cannot be a subtask of itself")
	}

	parent, err := s.findExistingTask(parentID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, parent.WorkGroupID, authz.ActionCreateTask); err != nil {
		return nil, err
	}

	if parent.Archived {
		return nil, apperrors.InvalidState("parent_archived", "cannot add subtasks to an archived task")
	}

	child, err := s.findExistingTask(childID)
	if err != nil {
		return nil, err
	}

	if child.Archived {
		return nil, apperrors.InvalidState("task_archived", "an archived task cannot be re-parented")
	}

	// Walk the parent's ancestor chain: if it passes through the child, the
	// link would turn the tree into a cycle.
	for ancestorID := parent.ParentTaskID; ancestorID != nil; {
		if *ancestorID == childID {
			return nil, apperrors.Conflict("subtask_cycle", "linking would create a cycle in the subtask tree")
		}
		ancestor, err := s.taskRepo.FindByID(*ancestorID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve task ancestry: %w", err)
		}
		ancestorID = ancestor.ParentTaskID
	}

	child.ParentTaskID = &parent.ID
	child.WorkGroupID = parent.WorkGroupID
	child.ProjectID = parent.ProjectID

	if err := s.taskRepo.Update(child); err != nil {
		return nil, fmt.Errorf("failed to link subtask: %w", err)
	}
	return child, nil
}

// ListSubtasks lists the non-deleted children of a task; group members only.
func (s *TaskService) ListSubtasks(actor authz.Actor, parentID uint64) ([]models.Task, error) {
	parent, err := s.findExistingTask(parentID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, parent.WorkGroupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	subtasks, err := s.taskRepo.ListSubtasks(parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	return subtasks, nil
}

// FindParentTask resolves the parent of a task. Both the task and the
// parent must be non-deleted.
func (s *TaskService) FindParentTask(actor authz.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findExistingTask(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionViewGroup); err != nil {
		return nil, err
	}

	if task.ParentTaskID == nil {
		return nil, apperrors.NotFound("no_parent", "task has no parent")
	}

	return s.findExistingTask(*task.ParentTaskID, "Priority")
}

// ListProjectTasks lists the non-deleted tasks of a project; project
// members only. archivedOnly restricts to the archived ones.
func (s *TaskService) ListProjectTasks(actor authz.Actor, projectID uint64, archivedOnly bool) ([]models.Task, error) {
	if err := s.requireProjectMember(actor, projectID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByProject(projectID, archivedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	return tasks, nil
}

// ListArchivedTasksForUser lists archived tasks assigned to the caller.
func (s *TaskService) ListArchivedTasksForUser(userID uint64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListArchivedAssignedTo(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived tasks: %w", err)
	}
	return tasks, nil
}

// findExistingTask fetches a task and reports deleted ones as not found.
func (s *TaskService) findExistingTask(taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("task_not_found", "task not found")
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.Deleted {
		return nil, apperrors.NotFound("task_deleted", "task not found")
	}
	return task, nil
}

// requireProjectMember checks that the actor belongs to an active project.
// Superusers pass without a membership row.
func (s *TaskService) requireProjectMember(actor authz.Actor, projectID uint64) error {
	if _, err := s.projectRepo.FindActiveByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("project_not_found", "project not found or deleted")
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if actor.Superuser {
		return nil
	}

	if _, err := s.projectRepo.FindMember(projectID, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Forbidden("not_project_member", "you are not a member of this project")
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}

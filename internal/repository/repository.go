package repository

import (
	"github.com/soramame/workgroup-api/internal/models"
)

// WorkGroupRepository defines the interface for work group and membership data access
type WorkGroupRepository interface {
	// CreateWithOwner creates a group and its OWNER membership in one transaction
	CreateWithOwner(group *models.WorkGroup, ownerID uint64) error

	// FindByID finds a group by ID regardless of its deleted flag
	FindByID(id uint64) (*models.WorkGroup, error)

	// FindActiveByID finds a non-deleted group by ID
	FindActiveByID(id uint64) (*models.WorkGroup, error)

	// Update updates a group
	Update(group *models.WorkGroup) error

	// SoftDelete marks a group deleted; membership rows are left in place
	SoftDelete(id uint64) error

	// ListForUser lists the active groups a user belongs to
	ListForUser(userID uint64) ([]models.WorkGroup, error)

	// AddMember adds a membership row
	AddMember(member *models.WorkGroupMember) error

	// RemoveMember deletes a membership row
	RemoveMember(groupID, userID uint64) error

	// FindMember finds a specific membership
	FindMember(groupID, userID uint64) (*models.WorkGroupMember, error)

	// UpdateMemberRole sets the role of an existing membership
	UpdateMemberRole(groupID, userID uint64, role models.GroupRole) error

	// TransferOwnership swaps OWNER to the new owner and demotes the old
	// owner to MODERATOR; both rows change in one transaction
	TransferOwnership(groupID, oldOwnerID, newOwnerID uint64) error

	// ListMembers lists all memberships of a group with users preloaded
	ListMembers(groupID uint64) ([]models.WorkGroupMember, error)

	// RoleOf returns the role of a user in a group (authz.RoleStore)
	RoleOf(userID, groupID uint64) (models.GroupRole, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// CreateWithMember creates a project and its first member in one transaction
	CreateWithMember(project *models.Project, creatorID uint64) error

	// FindByID finds a project by ID regardless of its deleted flag
	FindByID(id uint64) (*models.Project, error)

	// FindActiveByID finds a non-deleted project by ID
	FindActiveByID(id uint64) (*models.Project, error)

	// SoftDelete marks a project deleted
	SoftDelete(id uint64) error

	// ListByGroup lists active projects of a group
	ListByGroup(groupID uint64) ([]models.Project, error)

	// AddMember adds a project membership row
	AddMember(member *models.ProjectMember) error

	// RemoveMember deletes a project membership row
	RemoveMember(projectID, userID uint64) error

	// FindMember finds a specific project membership
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists project members with users preloaded
	ListMembers(projectID uint64) ([]models.ProjectMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading, regardless of flags
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// ListByProject lists non-deleted tasks of a project; archivedOnly
	// restricts to archived ones
	ListByProject(projectID uint64, archivedOnly bool) ([]models.Task, error)

	// ListSubtasks lists non-deleted direct children of a task
	ListSubtasks(parentID uint64) ([]models.Task, error)

	// ListArchivedAssignedTo lists archived, non-deleted tasks assigned to a user
	ListArchivedAssignedTo(userID uint64) ([]models.Task, error)

	// AssignUser adds an assignment row
	AssignUser(taskID, userID uint64) error

	// UnassignUser deletes an assignment row
	UnassignUser(taskID, userID uint64) error

	// FindAssignment finds a specific task assignment
	FindAssignment(taskID, userID uint64) (*models.TaskAssignment, error)

	// ListAssignees lists the users assigned to a task
	ListAssignees(taskID uint64) ([]models.User, error)
}

// PriorityRepository defines the interface for priority catalog access
type PriorityRepository interface {
	Create(priority *models.Priority) error
	FindByID(id uint64) (*models.Priority, error)
	Update(priority *models.Priority) error
	List(includeHidden bool) ([]models.Priority, error)
}

// StatusRepository defines the interface for status catalog access
type StatusRepository interface {
	Create(status *models.Status) error
	FindByID(id uint64) (*models.Status, error)
	Update(status *models.Status) error
	Delete(id uint64) error
	List() ([]models.Status, error)
}

// CommentRepository defines the interface for task comment access
type CommentRepository interface {
	Create(comment *models.Comment) error
	ListByTask(taskID uint64) ([]models.Comment, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}

package services

import (
	"testing"

	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskServiceTestSuite covers the task state machine: creation, archive
// recursion, the two deletion paths, and assignment rules.
type TaskServiceTestSuite struct {
	suite.Suite
	db             *gorm.DB
	taskRepo       repository.TaskRepository
	service        *TaskService
	groupService   *GroupService
	memberService  *MembershipService
	projectService *ProjectService

	priority *models.Priority
}

func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.WorkGroup{},
		&models.WorkGroupMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Priority{},
		&models.Task{},
		&models.TaskAssignment{},
	)
	suite.Require().NoError(err)

	groupRepo := repository.NewWorkGroupRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	priorityRepo := repository.NewPriorityRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	suite.taskRepo = repository.NewTaskRepository(suite.db)
	auth := authz.NewAuthorizer(groupRepo)

	suite.service = NewTaskService(suite.taskRepo, groupRepo, projectRepo, priorityRepo, userRepo, auth)
	suite.groupService = NewGroupService(groupRepo, auth)
	suite.memberService = NewMembershipService(groupRepo, userRepo, auth)
	suite.projectService = NewProjectService(projectRepo, groupRepo, userRepo, auth)

	suite.priority = &models.Priority{Name: "Normal"}
	suite.Require().NoError(suite.db.Create(suite.priority).Error)
}

func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskServiceTestSuite) createTestGroup(owner *models.User) *models.WorkGroup {
	group, err := suite.groupService.CreateGroup(CreateGroupInput{
		Name:      "Test Group",
		CreatorID: owner.ID,
	})
	suite.Require().NoError(err)
	return group
}

func (suite *TaskServiceTestSuite) addMember(owner, user *models.User, groupID uint64, role models.GroupRole) {
	_, err := suite.memberService.AddMember(actorFor(owner), groupID, user.Username, role)
	suite.Require().NoError(err)
}

func (suite *TaskServiceTestSuite) createTask(creator *models.User, groupID uint64, status models.TaskStatus) *models.Task {
	task, err := suite.service.CreateTask(actorFor(creator), CreateTaskInput{
		Title:       "Test Task",
		PriorityID:  suite.priority.ID,
		Status:      status,
		WorkGroupID: groupID,
	})
	suite.Require().NoError(err)
	return task
}

func (suite *TaskServiceTestSuite) TestCreateTask_DefaultsAndAutoAssign() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	task, err := suite.service.CreateTask(actorFor(owner), CreateTaskInput{
		Title:       "New Task",
		PriorityID:  suite.priority.ID,
		WorkGroupID: group.ID,
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusNotStarted, task.Status)
	assert.False(suite.T(), task.Archived)
	assert.Len(suite.T(), task.Assignments, 1)
	assert.Equal(suite.T(), owner.ID, task.Assignments[0].UserID)
}

func (suite *TaskServiceTestSuite) TestCreateTask_PriorityRequired() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	_, err := suite.service.CreateTask(actorFor(owner), CreateTaskInput{
		Title:       "No Priority",
		WorkGroupID: group.ID,
	})
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindValidation))
}

func (suite *TaskServiceTestSuite) TestCreateTask_NonMemberForbidden() {
	owner := suite.createTestUser("owner")
	outsider := suite.createTestUser("outsider")
	group := suite.createTestGroup(owner)

	_, err := suite.service.CreateTask(actorFor(outsider), CreateTaskInput{
		Title:       "Sneaky Task",
		PriorityID:  suite.priority.ID,
		WorkGroupID: group.ID,
	})
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ArchivedRejected() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.ArchiveTask(actorFor(owner), task.ID)
	suite.Require().NoError(err)

	newTitle := "Edited"
	_, err = suite.service.UpdateTask(actorFor(owner), task.ID, UpdateTaskInput{Title: &newTitle})
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *TaskServiceTestSuite) TestArchiveTask_RequiresDone() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusWorkingOnIt)

	_, err := suite.service.ArchiveTask(actorFor(owner), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *TaskServiceTestSuite) TestArchiveTask_MemberForbidden() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.ArchiveTask(actorFor(member), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TaskServiceTestSuite) TestArchiveTask_RecursesIntoSubtasks() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	parent := suite.createTask(owner, group.ID, models.TaskStatusDone)

	child, err := suite.service.CreateSubtask(actorFor(owner), parent.ID, CreateSubtaskInput{
		Title:      "Child",
		PriorityID: suite.priority.ID,
		Status:     models.TaskStatusWorkingOnIt,
	})
	suite.Require().NoError(err)

	grandchild, err := suite.service.CreateSubtask(actorFor(owner), child.ID, CreateSubtaskInput{
		Title:      "Grandchild",
		PriorityID: suite.priority.ID,
	})
	suite.Require().NoError(err)

	_, err = suite.service.ArchiveTask(actorFor(owner), parent.ID)
	suite.Require().NoError(err)

	// the whole subtree is archived regardless of descendant status
	for _, id := range []uint64{parent.ID, child.ID, grandchild.ID} {
		stored, err := suite.taskRepo.FindByID(id)
		suite.Require().NoError(err)
		assert.True(suite.T(), stored.Archived, "task %d should be archived", id)
	}
}

func (suite *TaskServiceTestSuite) TestArchiveTask_Idempotent() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.ArchiveTask(actorFor(owner), task.ID)
	suite.Require().NoError(err)

	_, err = suite.service.ArchiveTask(actorFor(owner), task.ID)
	assert.NoError(suite.T(), err)
}

func (suite *TaskServiceTestSuite) TestDeleteArchivedTask_RequiresArchived() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	err := suite.service.DeleteArchivedTask(actorFor(owner), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *TaskServiceTestSuite) TestDeleteArchivedTask_MemberForbidden() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.ArchiveTask(actorFor(owner), task.ID)
	suite.Require().NoError(err)

	err = suite.service.DeleteArchivedTask(actorFor(member), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TaskServiceTestSuite) TestDeletedTask_ReadsAsMissingButRowSurvives() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.ArchiveTask(actorFor(owner), task.ID)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.DeleteArchivedTask(actorFor(owner), task.ID))

	_, err = suite.service.GetTask(actorFor(owner), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindNotFound))

	stored, err := suite.taskRepo.FindByID(task.ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), stored.Deleted)
}

func (suite *TaskServiceTestSuite) TestAssignUser_DoneTaskRejected() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)
	task := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.AssignUser(actorFor(owner), task.ID, member.Username)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *TaskServiceTestSuite) TestAssignUser_TargetMustBeGroupMember() {
	owner := suite.createTestUser("owner")
	outsider := suite.createTestUser("outsider")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	_, err := suite.service.AssignUser(actorFor(owner), task.ID, outsider.Username)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (suite *TaskServiceTestSuite) TestAssignUser_DuplicateConflict() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)
	task := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	_, err := suite.service.AssignUser(actorFor(owner), task.ID, member.Username)
	suite.Require().NoError(err)

	_, err = suite.service.AssignUser(actorFor(owner), task.ID, member.Username)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindConflict))
}

func (suite *TaskServiceTestSuite) TestUnassignUser_RemovesAssignment() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)
	task := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	_, err := suite.service.AssignUser(actorFor(owner), task.ID, member.Username)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.UnassignUser(actorFor(owner), task.ID, member.Username))

	users, err := suite.service.GetAssignedUsers(actorFor(owner), task.ID)
	suite.Require().NoError(err)
	assert.Len(suite.T(), users, 1) // only the auto-assigned creator remains
}

func (suite *TaskServiceTestSuite) TestCreateSubtask_InheritsGroupAndProject() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	project, err := suite.projectService.CreateProject(actorFor(owner), CreateProjectInput{
		Title:       "Project",
		WorkGroupID: group.ID,
	})
	suite.Require().NoError(err)

	parent, err := suite.service.CreateTask(actorFor(owner), CreateTaskInput{
		Title:       "Parent",
		PriorityID:  suite.priority.ID,
		WorkGroupID: group.ID,
		ProjectID:   &project.ID,
	})
	suite.Require().NoError(err)

	child, err := suite.service.CreateSubtask(actorFor(owner), parent.ID, CreateSubtaskInput{
		Title:      "Child",
		PriorityID: suite.priority.ID,
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), group.ID, child.WorkGroupID)
	suite.Require().NotNil(child.ProjectID)
	assert.Equal(suite.T(), project.ID, *child.ProjectID)
	suite.Require().NotNil(child.ParentTaskID)
	assert.Equal(suite.T(), parent.ID, *child.ParentTaskID)
}

func (suite *TaskServiceTestSuite) TestLinkSubtask_SelfReferenceRejected() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	task := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	_, err := suite.service.LinkSubtask(actorFor(owner), task.ID, task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindConflict))
}

func (suite *TaskServiceTestSuite) TestLinkSubtask_CycleRejected() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	a := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)
	b := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)
	c := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	_, err := suite.service.LinkSubtask(actorFor(owner), a.ID, b.ID)
	suite.Require().NoError(err)
	_, err = suite.service.LinkSubtask(actorFor(owner), b.ID, c.ID)
	suite.Require().NoError(err)

	// direct back-link and grandparent back-link both close a cycle
	_, err = suite.service.LinkSubtask(actorFor(owner), b.ID, a.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindConflict))

	_, err = suite.service.LinkSubtask(actorFor(owner), c.ID, a.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindConflict))

	stored, err := suite.taskRepo.FindByID(a.ID)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), stored.ParentTaskID)
}

func (suite *TaskServiceTestSuite) TestLinkSubtask_ArchivedChildRejected() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	parent := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)
	child := suite.createTask(owner, group.ID, models.TaskStatusDone)

	_, err := suite.service.ArchiveTask(actorFor(owner), child.ID)
	suite.Require().NoError(err)

	_, err = suite.service.LinkSubtask(actorFor(owner), parent.ID, child.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))

	stored, err := suite.taskRepo.FindByID(child.ID)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), stored.ParentTaskID)
}

func (suite *TaskServiceTestSuite) TestLinkSubtask_ArchivedParentRejected() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	parent := suite.createTask(owner, group.ID, models.TaskStatusDone)
	child := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	_, err := suite.service.ArchiveTask(actorFor(owner), parent.ID)
	suite.Require().NoError(err)

	_, err = suite.service.LinkSubtask(actorFor(owner), parent.ID, child.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindInvalidState))
}

// Archiving stops at nodes that are already archived, so the walk stays
// bounded even if the stored parent links loop.
func (suite *TaskServiceTestSuite) TestArchiveTask_TerminatesOnLoopedParentLinks() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	parent := suite.createTask(owner, group.ID, models.TaskStatusDone)

	child, err := suite.service.CreateSubtask(actorFor(owner), parent.ID, CreateSubtaskInput{
		Title:      "Child",
		PriorityID: suite.priority.ID,
	})
	suite.Require().NoError(err)

	// corrupt the tree behind the service's back: parent <-> child loop
	err = suite.db.Model(&models.Task{}).Where("id = ?", parent.ID).
		Update("parent_task_id", child.ID).Error
	suite.Require().NoError(err)

	_, err = suite.service.ArchiveTask(actorFor(owner), parent.ID)
	suite.Require().NoError(err)

	for _, id := range []uint64{parent.ID, child.ID} {
		stored, err := suite.taskRepo.FindByID(id)
		suite.Require().NoError(err)
		assert.True(suite.T(), stored.Archived, "task %d should be archived", id)
	}
}

func (suite *TaskServiceTestSuite) TestFindParentTask() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)
	parent := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	child, err := suite.service.CreateSubtask(actorFor(owner), parent.ID, CreateSubtaskInput{
		Title:      "Child",
		PriorityID: suite.priority.ID,
	})
	suite.Require().NoError(err)

	resolved, err := suite.service.FindParentTask(actorFor(owner), child.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), parent.ID, resolved.ID)

	_, err = suite.service.FindParentTask(actorFor(owner), parent.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindNotFound))
}

func (suite *TaskServiceTestSuite) TestDeleteProjectTask_ProjectScoped() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)

	project, err := suite.projectService.CreateProject(actorFor(owner), CreateProjectInput{
		Title:       "Project",
		WorkGroupID: group.ID,
	})
	suite.Require().NoError(err)

	task, err := suite.service.CreateTask(actorFor(owner), CreateTaskInput{
		Title:       "Project Task",
		PriorityID:  suite.priority.ID,
		WorkGroupID: group.ID,
		ProjectID:   &project.ID,
	})
	suite.Require().NoError(err)

	// group member outside the project cannot delete through it
	err = suite.service.DeleteProjectTask(actorFor(member), project.ID, task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindForbidden))

	// the project member can, no archive required
	suite.Require().NoError(suite.service.DeleteProjectTask(actorFor(owner), project.ID, task.ID))

	_, err = suite.service.GetTask(actorFor(owner), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindNotFound))
}

func (suite *TaskServiceTestSuite) TestDeleteProjectTask_WrongProject() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	project, err := suite.projectService.CreateProject(actorFor(owner), CreateProjectInput{
		Title:       "Project",
		WorkGroupID: group.ID,
	})
	suite.Require().NoError(err)

	task := suite.createTask(owner, group.ID, models.TaskStatusNotStarted)

	err = suite.service.DeleteProjectTask(actorFor(owner), project.ID, task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindValidation))
}

// TestFullLifecycle walks the whole flow: group, member, task, DONE,
// archive with a subtask, delete archived, gone.
func (suite *TaskServiceTestSuite) TestFullLifecycle() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)
	suite.addMember(owner, member, group.ID, models.RoleMember)

	task, err := suite.service.CreateTask(actorFor(member), CreateTaskInput{
		Title:       "Ship it",
		PriorityID:  suite.priority.ID,
		WorkGroupID: group.ID,
	})
	suite.Require().NoError(err)

	sub, err := suite.service.CreateSubtask(actorFor(member), task.ID, CreateSubtaskInput{
		Title:      "Write docs",
		PriorityID: suite.priority.ID,
	})
	suite.Require().NoError(err)

	done := models.TaskStatusDone
	_, err = suite.service.UpdateTask(actorFor(member), task.ID, UpdateTaskInput{Status: &done})
	suite.Require().NoError(err)

	// plain member cannot archive
	_, err = suite.service.ArchiveTask(actorFor(member), task.ID)
	suite.Require().True(apperrors.IsKind(err, apperrors.KindForbidden))

	_, err = suite.service.ArchiveTask(actorFor(owner), task.ID)
	suite.Require().NoError(err)

	storedSub, err := suite.taskRepo.FindByID(sub.ID)
	suite.Require().NoError(err)
	suite.Require().True(storedSub.Archived)

	suite.Require().NoError(suite.service.DeleteArchivedTask(actorFor(owner), task.ID))

	_, err = suite.service.GetTask(actorFor(member), task.ID)
	assert.True(suite.T(), apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

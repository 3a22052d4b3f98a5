package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/constants"
	"github.com/soramame/workgroup-api/internal/database"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"github.com/soramame/workgroup-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// GroupHandlerTestSuite checks the HTTP mapping of the failure taxonomy on
// top of the group and membership endpoints.
type GroupHandlerTestSuite struct {
	suite.Suite
	db            *gorm.DB
	handler       *GroupHandler
	groupService  *services.GroupService
	memberService *services.MembershipService
}

func (suite *GroupHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.WorkGroup{},
		&models.WorkGroupMember{},
		&models.Project{},
		&models.ProjectMember{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	groupRepo := repository.NewWorkGroupRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	auth := authz.NewAuthorizer(groupRepo)

	suite.groupService = services.NewGroupService(groupRepo, auth)
	suite.memberService = services.NewMembershipService(groupRepo, userRepo, auth)
	projectService := services.NewProjectService(projectRepo, groupRepo, userRepo, auth)

	suite.handler = NewGroupHandler(suite.groupService, suite.memberService, projectService)

	gin.SetMode(gin.TestMode)
}

func (suite *GroupHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *GroupHandlerTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *GroupHandlerTestSuite) createTestGroup(owner *models.User) *models.WorkGroup {
	group, err := suite.groupService.CreateGroup(services.CreateGroupInput{
		Name:      "Test Group",
		CreatorID: owner.ID,
	})
	suite.Require().NoError(err)
	return group
}

func (suite *GroupHandlerTestSuite) createAuthContext(method, url string, body []byte, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, user.ID)
	c.Set(constants.ContextKeySuperuser, user.Superuser)

	return c, w
}

func (suite *GroupHandlerTestSuite) setGroupParam(c *gin.Context, groupID uint64) {
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(groupID, 10)}}
}

func (suite *GroupHandlerTestSuite) TestCreateGroup() {
	user := suite.createTestUser("owner")

	body, err := json.Marshal(map[string]string{"name": "New Group"})
	suite.Require().NoError(err)

	c, w := suite.createAuthContext(http.MethodPost, "/api/groups", body, user)

	suite.handler.CreateGroup(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "New Group", response["name"])
}

func (suite *GroupHandlerTestSuite) TestCreateGroup_EmptyName() {
	user := suite.createTestUser("owner")

	body, err := json.Marshal(map[string]string{"name": "   "})
	suite.Require().NoError(err)

	c, w := suite.createAuthContext(http.MethodPost, "/api/groups", body, user)

	suite.handler.CreateGroup(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *GroupHandlerTestSuite) TestAddMember_ForbiddenMapsTo403() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	outsider := suite.createTestUser("outsider")
	group := suite.createTestGroup(owner)

	_, err := suite.memberService.AddMember(authz.Actor{UserID: owner.ID}, group.ID, member.Username, "")
	suite.Require().NoError(err)

	body, err := json.Marshal(map[string]string{"username": outsider.Username})
	suite.Require().NoError(err)

	c, w := suite.createAuthContext(http.MethodPost, "/api/groups/1/members", body, member)
	suite.setGroupParam(c, group.ID)

	suite.handler.AddMember(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *GroupHandlerTestSuite) TestAddMember_DuplicateMapsTo409() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	group := suite.createTestGroup(owner)

	_, err := suite.memberService.AddMember(authz.Actor{UserID: owner.ID}, group.ID, member.Username, "")
	suite.Require().NoError(err)

	body, err := json.Marshal(map[string]string{"username": member.Username})
	suite.Require().NoError(err)

	c, w := suite.createAuthContext(http.MethodPost, "/api/groups/1/members", body, owner)
	suite.setGroupParam(c, group.ID)

	suite.handler.AddMember(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *GroupHandlerTestSuite) TestLeave_OwnerMapsTo422() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	c, w := suite.createAuthContext(http.MethodPost, "/api/groups/1/leave", nil, owner)
	suite.setGroupParam(c, group.ID)

	suite.handler.Leave(c)

	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *GroupHandlerTestSuite) TestGetGroup_RendersCallerRole() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	c, w := suite.createAuthContext(http.MethodGet, "/api/groups/1", nil, owner)
	suite.setGroupParam(c, group.ID)

	suite.handler.GetGroup(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), string(models.RoleOwner), response["your_role"])
}

// Superusers have no membership row; their role is resolved through the
// authz bypass rather than a synthesized membership.
func (suite *GroupHandlerTestSuite) TestGetGroup_SuperuserRoleWithoutMembership() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	admin := suite.createTestUser("admin")
	admin.Superuser = true
	suite.Require().NoError(suite.db.Save(admin).Error)

	c, w := suite.createAuthContext(http.MethodGet, "/api/groups/1", nil, admin)
	suite.setGroupParam(c, group.ID)

	suite.handler.GetGroup(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), string(models.RoleOwner), response["your_role"])

	var count int64
	suite.db.Model(&models.WorkGroupMember{}).
		Where("work_group_id = ? AND user_id = ?", group.ID, admin.ID).
		Count(&count)
	assert.Zero(suite.T(), count)
}

func (suite *GroupHandlerTestSuite) TestGetGroup_DeletedMapsTo404() {
	owner := suite.createTestUser("owner")
	group := suite.createTestGroup(owner)

	suite.Require().NoError(suite.groupService.DeleteGroup(authz.Actor{UserID: owner.ID}, group.ID))

	c, w := suite.createAuthContext(http.MethodGet, "/api/groups/1", nil, owner)
	suite.setGroupParam(c, group.ID)

	suite.handler.GetGroup(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func TestGroupHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(GroupHandlerTestSuite))
}

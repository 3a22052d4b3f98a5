package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/dto"
	"github.com/soramame/workgroup-api/internal/middleware"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/services"
)

// GroupHandler coordinates work group and membership HTTP handlers.
type GroupHandler struct {
	groupService      *services.GroupService
	membershipService *services.MembershipService
	projectService    *services.ProjectService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(
	groupService *services.GroupService,
	membershipService *services.MembershipService,
	projectService *services.ProjectService,
) *GroupHandler {
	return &GroupHandler{
		groupService:      groupService,
		membershipService: membershipService,
		projectService:    projectService,
	}
}

// requireActor pulls the authenticated principal or writes a 401.
func requireActor(c *gin.Context) (authz.Actor, bool) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apperrors.Unauthorized(c, "Not authenticated")
		return authz.Actor{}, false
	}
	return actor, true
}

// pathID parses a numeric path parameter or writes a 400.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, "Invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

// CreateGroup creates a new work group owned by the caller.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateGroupRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	group, err := h.groupService.CreateGroup(services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   actor.UserID,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkGroupDTO(*group))
}

// ListGroups returns the active groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroupsForUser(actor.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	dtos := make([]dto.WorkGroupDTO, len(groups))
	for i, group := range groups {
		dtos[i] = dto.ToWorkGroupDTO(group)
	}
	c.JSON(http.StatusOK, gin.H{"groups": dtos})
}

// GetGroup returns a single group with the caller's role.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	group, err := h.groupService.GetGroup(actor, groupID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	role, err := h.groupService.RoleInGroup(actor, groupID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":     dto.ToWorkGroupDTO(*group),
		"your_role": role,
	})
}

// UpdateGroup updates the group's name or description.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type UpdateGroupRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	group, err := h.groupService.UpdateGroup(actor, groupID, services.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkGroupDTO(*group))
}

// DeleteGroup soft-deletes the group.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.groupService.DeleteGroup(actor, groupID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work group deleted successfully",
	})
}

// ListMembers returns all members of the group.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.groupService.ListMembers(actor, groupID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": dto.ToGroupMemberDTOs(members)})
}

// AddMember adds a user to the group as MEMBER or MODERATOR.
func (h *GroupHandler) AddMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Username string           `json:"username" binding:"required"`
		Role     models.GroupRole `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.membershipService.AddMember(actor, groupID, req.Username, req.Role)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"username": req.Username,
		"role":     member.Role,
	})
}

// RemoveMember removes a user from the group.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.membershipService.RemoveMember(actor, groupID, c.Param("username")); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// Leave removes the caller's own membership.
func (h *GroupHandler) Leave(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.membershipService.Leave(actor, groupID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Left the work group",
	})
}

// PromoteMember raises a MEMBER to MODERATOR.
func (h *GroupHandler) PromoteMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.membershipService.Promote(actor, groupID, c.Param("username")); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": c.Param("username"),
		"role":     models.RoleModerator,
	})
}

// DemoteMember lowers a MODERATOR to MEMBER.
func (h *GroupHandler) DemoteMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.membershipService.Demote(actor, groupID, c.Param("username")); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": c.Param("username"),
		"role":     models.RoleMember,
	})
}

// TransferOwnership hands the OWNER role to another member.
func (h *GroupHandler) TransferOwnership(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type TransferRequest struct {
		Username string `json:"username" binding:"required"`
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.membershipService.TransferOwnership(actor, groupID, req.Username); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Ownership transferred",
		"new_owner": req.Username,
	})
}

// ListProjects returns the active projects of the group.
func (h *GroupHandler) ListProjects(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjectsByGroup(actor, groupID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject creates a project inside the group.
func (h *GroupHandler) CreateProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(actor, services.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		WorkGroupID: groupID,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

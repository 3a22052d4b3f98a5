package dto

import (
	"time"

	"github.com/soramame/workgroup-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// WorkGroupDTO represents a work group in API responses
type WorkGroupDTO struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GroupMemberDTO represents a member of a work group
type GroupMemberDTO struct {
	User     UserDTO          `json:"user"`
	Role     models.GroupRole `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

// ProjectMemberDTO represents a member of a project
type ProjectMemberDTO struct {
	User    UserDTO   `json:"user"`
	AddedAt time.Time `json:"added_at"`
}

// ToUserDTO converts a user to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToUserDTOs converts a user slice to DTOs
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = ToUserDTO(user)
	}
	return dtos
}

// ToWorkGroupDTO converts a work group to DTO
func ToWorkGroupDTO(group models.WorkGroup) WorkGroupDTO {
	return WorkGroupDTO{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
	}
}

// ToGroupMemberDTO converts a membership to DTO
func ToGroupMemberDTO(member models.WorkGroupMember) GroupMemberDTO {
	return GroupMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToGroupMemberDTOs converts a membership slice to DTOs
func ToGroupMemberDTOs(members []models.WorkGroupMember) []GroupMemberDTO {
	dtos := make([]GroupMemberDTO, len(members))
	for i, member := range members {
		dtos[i] = ToGroupMemberDTO(member)
	}
	return dtos
}

// ToProjectMemberDTO converts a project membership to DTO
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:    ToUserDTO(member.User),
		AddedAt: member.AddedAt,
	}
}

// ToProjectMemberDTOs converts a project membership slice to DTOs
func ToProjectMemberDTOs(members []models.ProjectMember) []ProjectMemberDTO {
	dtos := make([]ProjectMemberDTO, len(members))
	for i, member := range members {
		dtos[i] = ToProjectMemberDTO(member)
	}
	return dtos
}

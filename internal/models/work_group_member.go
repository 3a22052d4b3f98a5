package models

import "time"

type GroupRole string

const (
	RoleOwner     GroupRole = "OWNER"
	RoleModerator GroupRole = "MODERATOR"
	RoleMember    GroupRole = "MEMBER"
)

var roleRank = map[GroupRole]int{
	RoleMember:    1,
	RoleModerator: 2,
	RoleOwner:     3,
}

// Valid reports whether r is one of the three known roles.
func (r GroupRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above other in the strict
// OWNER > MODERATOR > MEMBER order.
func (r GroupRole) AtLeast(other GroupRole) bool {
	return roleRank[r] >= roleRank[other]
}

// WorkGroupMember ties one user to one work group with exactly one role.
// The composite primary key guarantees at most one membership per pair.
type WorkGroupMember struct {
	WorkGroupID uint64    `gorm:"primarykey" json:"work_group_id"`
	UserID      uint64    `gorm:"primarykey" json:"user_id"`
	Role        GroupRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt    time.Time `json:"joined_at"`

	// Relations
	WorkGroup WorkGroup `gorm:"foreignKey:WorkGroupID" json:"work_group,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

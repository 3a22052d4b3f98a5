// Package authz is the single policy point consulted by every mutating
// operation. It derives a yes/no answer from (actor role, action, entity
// state) and never mutates anything itself.
package authz

import (
	"errors"
	"log"

	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/models"
	"gorm.io/gorm"
)

// Actor is the authenticated principal performing an action. Superuser is
// the platform-level administrator flag; it is not a membership.
type Actor struct {
	UserID    uint64
	Superuser bool
}

// Action names a permission-gated operation on a work group.
type Action string

const (
	ActionViewGroup          Action = "view_group"
	ActionUpdateGroup        Action = "update_group"
	ActionDeleteGroup        Action = "delete_group"
	ActionAddMember          Action = "add_member"
	ActionRemoveMember       Action = "remove_member"
	ActionPromoteMember      Action = "promote_member"
	ActionDemoteModerator    Action = "demote_moderator"
	ActionTransferOwnership  Action = "transfer_ownership"
	ActionCreateTask         Action = "create_task"
	ActionAssignUser         Action = "assign_user"
	ActionComment            Action = "comment"
	ActionArchiveTask        Action = "archive_task"
	ActionDeleteArchivedTask Action = "delete_archived_task"
	ActionManageStatus       Action = "manage_status"
)

// minRoleFor is the policy table: the minimum role required per action,
// under the strict OWNER > MODERATOR > MEMBER order. Per-target constraints
// (a MODERATOR may only remove MEMBERs, the OWNER cannot remove themself)
// live in the membership service next to the mutation they guard.
var minRoleFor = map[Action]models.GroupRole{
	ActionViewGroup:          models.RoleMember,
	ActionUpdateGroup:        models.RoleModerator,
	ActionDeleteGroup:        models.RoleOwner,
	ActionAddMember:          models.RoleModerator,
	ActionRemoveMember:       models.RoleModerator,
	ActionPromoteMember:      models.RoleOwner,
	ActionDemoteModerator:    models.RoleOwner,
	ActionTransferOwnership:  models.RoleOwner,
	ActionCreateTask:         models.RoleMember,
	ActionAssignUser:         models.RoleMember,
	ActionComment:            models.RoleMember,
	ActionArchiveTask:        models.RoleModerator,
	ActionDeleteArchivedTask: models.RoleModerator,
	ActionManageStatus:       models.RoleModerator,
}

// RoleStore resolves the stored role of a user within a group. Absent
// membership is reported as gorm.ErrRecordNotFound.
type RoleStore interface {
	RoleOf(userID, groupID uint64) (models.GroupRole, error)
}

type Authorizer struct {
	roles RoleStore
}

func NewAuthorizer(roles RoleStore) *Authorizer {
	return &Authorizer{roles: roles}
}

// RoleInGroup returns the effective role of the actor in the group. The
// superuser bypass is evaluated before the role lookup and audited on its
// own log line so it can be traced independently of normal resolution.
func (a *Authorizer) RoleInGroup(actor Actor, groupID uint64) (models.GroupRole, error) {
	if actor.Superuser {
		log.Printf("authz: superuser bypass user=%d group=%d", actor.UserID, groupID)
		return models.RoleOwner, nil
	}

	role, err := a.roles.RoleOf(actor.UserID, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.Forbidden("not_a_member", "user has no role in this work group")
		}
		return "", err
	}
	return role, nil
}

// Require checks that the actor may perform action within the group.
func (a *Authorizer) Require(actor Actor, groupID uint64, action Action) error {
	required, ok := minRoleFor[action]
	if !ok {
		return apperrors.Forbidden("unknown_action", "action is not permitted")
	}

	role, err := a.RoleInGroup(actor, groupID)
	if err != nil {
		return err
	}

	if !role.AtLeast(required) {
		return apperrors.Forbidden("insufficient_role", "role "+string(role)+" may not perform this action")
	}
	return nil
}

// IsMember reports whether the actor belongs to the group (superuser counts).
func (a *Authorizer) IsMember(actor Actor, groupID uint64) (bool, error) {
	_, err := a.RoleInGroup(actor, groupID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindForbidden) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

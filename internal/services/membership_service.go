package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"gorm.io/gorm"
)

// MembershipService runs the per-(user, group) state machine: absent,
// MEMBER, MODERATOR, OWNER. Every transition is gated by the authorizer and
// requires the group to be active.
type MembershipService struct {
	groupRepo repository.WorkGroupRepository
	userRepo  repository.UserRepository
	auth      *authz.Authorizer
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(groupRepo repository.WorkGroupRepository, userRepo repository.UserRepository, auth *authz.Authorizer) *MembershipService {
	return &MembershipService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		auth:      auth,
	}
}

// requireActiveGroup loads the group and fails with NotFound when it is
// missing or soft-deleted.
func (s *MembershipService) requireActiveGroup(groupID uint64) (*models.WorkGroup, error) {
	group, err := s.groupRepo.FindActiveByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("group_not_found", "work group not found or deleted")
		}
		return nil, fmt.Errorf("failed to find work group: %w", err)
	}
	return group, nil
}

// AddMember adds a user to a group with role MEMBER or MODERATOR. The actor
// must be MODERATOR or OWNER (superusers bypass); the target must exist and
// must not already be a member. An empty role defaults to MEMBER.
func (s *MembershipService) AddMember(actor authz.Actor, groupID uint64, targetUsername string, role models.GroupRole) (*models.WorkGroupMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleModerator {
		return nil, apperrors.Validation("invalid_role", "members can only be added as MEMBER or MODERATOR")
	}

	if err := s.auth.Require(actor, groupID, authz.ActionAddMember); err != nil {
		return nil, err
	}

	if _, err := s.requireActiveGroup(groupID); err != nil {
		return nil, err
	}

	target, err := s.userRepo.FindByUsername(targetUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user_not_found", "user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.groupRepo.FindMember(groupID, target.ID); err == nil {
		return nil, apperrors.Conflict("already_member", "user is already a member of this work group")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.WorkGroupMember{
		WorkGroupID: groupID,
		UserID:      target.ID,
		Role:        role,
		JoinedAt:    time.Now(),
	}
	if err := s.groupRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// RemoveMember removes a user from a group. A MODERATOR may only remove
// MEMBERs; the OWNER may remove anyone except themself (leave or transfer
// are the exits for an owner).
func (s *MembershipService) RemoveMember(actor authz.Actor, groupID uint64, targetUsername string) error {
	if _, err := s.requireActiveGroup(groupID); err != nil {
		return err
	}

	actorRole, err := s.auth.RoleInGroup(actor, groupID)
	if err != nil {
		return err
	}
	if !actorRole.AtLeast(models.RoleModerator) {
		return apperrors.Forbidden("insufficient_role", "only MODERATOR or OWNER can remove members")
	}

	target, err := s.userRepo.FindByUsername(targetUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user_not_found", "user not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	targetMember, err := s.groupRepo.FindMember(groupID, target.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("not_in_group", "user to remove is not a member of the group")
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if actorRole == models.RoleModerator && targetMember.Role != models.RoleMember {
		return apperrors.Forbidden("moderator_target", "a MODERATOR cannot remove other MODERATORs or the OWNER")
	}

	if target.ID == actor.UserID && actorRole == models.RoleOwner {
		return apperrors.InvalidState("owner_self_remove", "the OWNER cannot remove themself; transfer ownership or leave instead")
	}

	if targetMember.Role == models.RoleOwner {
		return apperrors.Forbidden("target_is_owner", "the OWNER cannot be removed from the group")
	}

	if err := s.groupRepo.RemoveMember(groupID, target.ID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// Leave removes the caller's own membership. The OWNER must transfer
// ownership first.
func (s *MembershipService) Leave(actor authz.Actor, groupID uint64) error {
	if _, err := s.requireActiveGroup(groupID); err != nil {
		return err
	}

	member, err := s.groupRepo.FindMember(groupID, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("not_in_group", "you are not a member of this group")
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if member.Role == models.RoleOwner {
		return apperrors.InvalidState("owner_leave", "the OWNER cannot leave the group; transfer ownership first")
	}

	if err := s.groupRepo.RemoveMember(groupID, actor.UserID); err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	return nil
}

// Promote raises a MEMBER to MODERATOR. OWNER only, one step at a time.
func (s *MembershipService) Promote(actor authz.Actor, groupID uint64, targetUsername string) error {
	if _, err := s.requireActiveGroup(groupID); err != nil {
		return err
	}

	if err := s.auth.Require(actor, groupID, authz.ActionPromoteMember); err != nil {
		return err
	}

	target, member, err := s.findTargetMember(groupID, targetUsername)
	if err != nil {
		return err
	}

	if member.Role != models.RoleMember {
		return apperrors.InvalidState("promote_not_member", "only users with role MEMBER can be promoted to MODERATOR")
	}

	if err := s.groupRepo.UpdateMemberRole(groupID, target.ID, models.RoleModerator); err != nil {
		return fmt.Errorf("failed to promote member: %w", err)
	}
	return nil
}

// Demote lowers a MODERATOR back to MEMBER. OWNER only; the OWNER itself
// can never be demoted this way.
func (s *MembershipService) Demote(actor authz.Actor, groupID uint64, targetUsername string) error {
	if _, err := s.requireActiveGroup(groupID); err != nil {
		return err
	}

	if err := s.auth.Require(actor, groupID, authz.ActionDemoteModerator); err != nil {
		return err
	}

	target, member, err := s.findTargetMember(groupID, targetUsername)
	if err != nil {
		return err
	}

	if member.Role == models.RoleOwner {
		return apperrors.InvalidState("demote_owner", "the OWNER of the group cannot be demoted")
	}
	if member.Role != models.RoleModerator {
		return apperrors.InvalidState("demote_not_moderator", "only users with role MODERATOR can be demoted")
	}

	if err := s.groupRepo.UpdateMemberRole(groupID, target.ID, models.RoleMember); err != nil {
		return fmt.Errorf("failed to demote member: %w", err)
	}
	return nil
}

// TransferOwnership swaps roles atomically: the current OWNER becomes
// MODERATOR and the target member becomes OWNER. Only the current OWNER may
// call it and the new owner must already hold a membership.
func (s *MembershipService) TransferOwnership(actor authz.Actor, groupID uint64, newOwnerUsername string) error {
	if _, err := s.requireActiveGroup(groupID); err != nil {
		return err
	}

	actorRole, err := s.auth.RoleInGroup(actor, groupID)
	if err != nil {
		return err
	}
	if actorRole != models.RoleOwner {
		return apperrors.Forbidden("insufficient_role", "only the OWNER can transfer ownership")
	}

	newOwner, _, err := s.findTargetMember(groupID, newOwnerUsername)
	if err != nil {
		return err
	}

	if newOwner.ID == actor.UserID {
		return apperrors.InvalidState("transfer_to_self", "ownership is already held by this user")
	}

	if err := s.groupRepo.TransferOwnership(groupID, actor.UserID, newOwner.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.InvalidState("owner_row_missing", "current OWNER membership could not be updated")
		}
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	return nil
}

// RoleOf exposes the stored role of a user for callers that render it.
func (s *MembershipService) RoleOf(groupID uint64, username string) (models.GroupRole, error) {
	_, member, err := s.findTargetMember(groupID, username)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *MembershipService) findTargetMember(groupID uint64, username string) (*models.User, *models.WorkGroupMember, error) {
	target, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("user_not_found", "user not found")
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	member, err := s.groupRepo.FindMember(groupID, target.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("not_in_group", "user is not a member of the group")
		}
		return nil, nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return target, member, nil
}

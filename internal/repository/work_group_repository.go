package repository

import (
	"time"

	"github.com/soramame/workgroup-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkGroupRepository is a GORM implementation of WorkGroupRepository
type GormWorkGroupRepository struct {
	db *gorm.DB
}

// NewWorkGroupRepository creates a new WorkGroupRepository
func NewWorkGroupRepository(db *gorm.DB) WorkGroupRepository {
	return &GormWorkGroupRepository{db: db}
}

// CreateWithOwner creates the group row and the creator's OWNER membership
// atomically, so no reader ever observes a group without an owner.
func (r *GormWorkGroupRepository) CreateWithOwner(group *models.WorkGroup, ownerID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		member := &models.WorkGroupMember{
			WorkGroupID: group.ID,
			UserID:      ownerID,
			Role:        models.RoleOwner,
			JoinedAt:    time.Now(),
		}
		return tx.Create(member).Error
	})
}

// FindByID finds a group by ID regardless of its deleted flag
func (r *GormWorkGroupRepository) FindByID(id uint64) (*models.WorkGroup, error) {
	var group models.WorkGroup
	if err := r.db.First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// FindActiveByID finds a non-deleted group by ID
func (r *GormWorkGroupRepository) FindActiveByID(id uint64) (*models.WorkGroup, error) {
	var group models.WorkGroup
	if err := r.db.Where("deleted = ?", false).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// Update updates a group
func (r *GormWorkGroupRepository) Update(group *models.WorkGroup) error {
	return r.db.Save(group).Error
}

// SoftDelete marks a group deleted. Memberships, projects and tasks stay in
// place; active queries filter the group out from now on.
func (r *GormWorkGroupRepository) SoftDelete(id uint64) error {
	return r.db.Model(&models.WorkGroup{}).Where("id = ?", id).
		Update("deleted", true).Error
}

// ListForUser lists the active groups a user belongs to
func (r *GormWorkGroupRepository) ListForUser(userID uint64) ([]models.WorkGroup, error) {
	var groups []models.WorkGroup
	err := r.db.
		Joins("JOIN work_group_members ON work_group_members.work_group_id = work_groups.id").
		Where("work_group_members.user_id = ? AND work_groups.deleted = ?", userID, false).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// AddMember adds a membership row
func (r *GormWorkGroupRepository) AddMember(member *models.WorkGroupMember) error {
	return r.db.Create(member).Error
}

// RemoveMember deletes a membership row
func (r *GormWorkGroupRepository) RemoveMember(groupID, userID uint64) error {
	return r.db.Where("work_group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.WorkGroupMember{}).Error
}

// FindMember finds a specific membership
func (r *GormWorkGroupRepository) FindMember(groupID, userID uint64) (*models.WorkGroupMember, error) {
	var member models.WorkGroupMember
	if err := r.db.Where("work_group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMemberRole sets the role of an existing membership
func (r *GormWorkGroupRepository) UpdateMemberRole(groupID, userID uint64, role models.GroupRole) error {
	return r.db.Model(&models.WorkGroupMember{}).
		Where("work_group_id = ? AND user_id = ?", groupID, userID).
		Update("role", role).Error
}

// TransferOwnership updates both membership rows in one transaction: the old
// owner becomes MODERATOR and the new owner becomes OWNER. If either update
// fails the whole swap rolls back, so a concurrent reader never sees a group
// with zero or two owners.
func (r *GormWorkGroupRepository) TransferOwnership(groupID, oldOwnerID, newOwnerID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.WorkGroupMember{}).
			Where("work_group_id = ? AND user_id = ? AND role = ?", groupID, oldOwnerID, models.RoleOwner).
			Update("role", models.RoleModerator)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		res = tx.Model(&models.WorkGroupMember{}).
			Where("work_group_id = ? AND user_id = ?", groupID, newOwnerID).
			Update("role", models.RoleOwner)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListMembers lists all memberships of a group with users preloaded
func (r *GormWorkGroupRepository) ListMembers(groupID uint64) ([]models.WorkGroupMember, error) {
	var members []models.WorkGroupMember
	if err := r.db.Preload("User").
		Where("work_group_id = ?", groupID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// RoleOf returns the role of a user in a group
func (r *GormWorkGroupRepository) RoleOf(userID, groupID uint64) (models.GroupRole, error) {
	member, err := r.FindMember(groupID, userID)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

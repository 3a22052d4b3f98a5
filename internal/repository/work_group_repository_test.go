package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockRepo(t *testing.T) (WorkGroupRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return NewWorkGroupRepository(db), mock
}

// The ownership swap must run both updates inside one transaction and roll
// back when the old owner row is gone.
func TestTransferOwnership_CommitsBothUpdates(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `work_group_members` SET").
		WithArgs(string(models.RoleModerator), uint64(10), uint64(1), string(models.RoleOwner)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `work_group_members` SET").
		WithArgs(string(models.RoleOwner), uint64(10), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.TransferOwnership(10, 1, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferOwnership_RollsBackWhenOwnerRowMissing(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `work_group_members` SET").
		WithArgs(string(models.RoleModerator), uint64(10), uint64(1), string(models.RoleOwner)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.TransferOwnership(10, 1, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferOwnership_RollsBackWhenNewOwnerRowMissing(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `work_group_members` SET").
		WithArgs(string(models.RoleModerator), uint64(10), uint64(1), string(models.RoleOwner)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `work_group_members` SET").
		WithArgs(string(models.RoleOwner), uint64(10), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.TransferOwnership(10, 1, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete_FlagsTheRow(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `work_groups` SET").
		WithArgs(true, sqlmock.AnyArg(), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SoftDelete(10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

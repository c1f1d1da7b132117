package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db))
	// Seeding twice must not fail or duplicate rows.
	require.NoError(t, SeedData(db))

	var toolCount int64
	require.NoError(t, db.Model(&models.Tool{}).Count(&toolCount).Error)
	require.EqualValues(t, len(DefaultTools()), toolCount)

	migrator := db.Migrator()
	for _, table := range []string{"users", "projects", "invites", "credentials", "tools", "project_owners", "project_contributors", "system_settings"} {
		require.True(t, migrator.HasTable(table), "expected table %s", table)
	}
}

func TestInviteForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	err := db.Create(&models.Invite{
		ProjectInvitedToID:              uuid.NewString(),
		UserInvitedID:                   uuid.NewString(),
		ProjectName:                     "ghost",
		Status:                          models.InviteOpen,
		DaysFromCreationUntilExpiration: 30,
	}).Error
	require.Error(t, err)
}

func TestInviteStatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{Username: "leo", Email: "leo@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	project := models.Project{Name: "TMNT", Version: "0.1.0"}
	require.NoError(t, db.Create(&project).Error)

	err := db.Create(&models.Invite{
		ProjectInvitedToID: project.ID,
		UserInvitedID:      user.ID,
		ProjectName:        project.Name,
		Status:             "pending",
	}).Error
	require.Error(t, err)
}

func TestInviteZeroDaysPersistsAsZero(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{Username: "raph", Email: "raph@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	project := models.Project{Name: "Sewer", Version: "0.1.0"}
	require.NoError(t, db.Create(&project).Error)

	invite := models.Invite{
		ProjectInvitedToID:              project.ID,
		UserInvitedID:                   user.ID,
		ProjectName:                     project.Name,
		Status:                          models.InviteExpired,
		DaysFromCreationUntilExpiration: 0,
	}
	require.NoError(t, db.Create(&invite).Error)

	var stored models.Invite
	require.NoError(t, db.First(&stored, "id = ?", invite.ID).Error)
	require.Equal(t, 0, stored.DaysFromCreationUntilExpiration)
	require.Equal(t, models.InviteExpired, stored.Status)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := Open(Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

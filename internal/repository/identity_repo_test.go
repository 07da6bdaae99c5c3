package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

func TestIdentityRepositoryFindByIdentifier(t *testing.T) {
	db := setupTestDB(t, "identity_find")
	repo := NewIdentityRepository(db)

	identity := models.Identity{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true}
	require.NoError(t, db.Create(&identity).Error)

	byUsername, err := repo.FindByIdentifier(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, identity.ID, byUsername.ID)

	byEmail, err := repo.FindByIdentifier(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, identity.ID, byEmail.ID)

	_, err = repo.FindByIdentifier(context.Background(), "nobody")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordFailureLocksAtThreshold(t *testing.T) {
	db := setupTestDB(t, "identity_lock")
	repo := NewIdentityRepository(db)

	identity := models.Identity{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true}
	require.NoError(t, db.Create(&identity).Error)

	for i := 1; i <= 4; i++ {
		updated, err := repo.RecordFailure(context.Background(), identity.ID, 5, 15*time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, updated.FailedAttempts)
		require.Nil(t, updated.LockedUntil)
	}

	updated, err := repo.RecordFailure(context.Background(), identity.ID, 5, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 5, updated.FailedAttempts)
	require.NotNil(t, updated.LockedUntil)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), *updated.LockedUntil, 5*time.Second)
}

func TestRecordFailureAfterExpiredLockStartsFreshWindow(t *testing.T) {
	db := setupTestDB(t, "identity_expired")
	repo := NewIdentityRepository(db)

	expired := time.Now().Add(-time.Minute)
	identity := models.Identity{Username: "carol", Email: "carol@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true, FailedAttempts: 5, LockedUntil: &expired}
	require.NoError(t, db.Create(&identity).Error)

	updated, err := repo.RecordFailure(context.Background(), identity.ID, 5, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, updated.FailedAttempts, "expired lock should reset the window")
	require.Nil(t, updated.LockedUntil)
}

func TestRecordFailureDoesNotLoseConcurrentIncrements(t *testing.T) {
	db := setupTestDB(t, "identity_concurrent")
	repo := NewIdentityRepository(db)

	identity := models.Identity{Username: "dave", Email: "dave@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true}
	require.NoError(t, db.Create(&identity).Error)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = repo.RecordFailure(context.Background(), identity.ID, 5, 15*time.Minute)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	final, err := repo.FindByID(context.Background(), identity.ID)
	require.NoError(t, err)
	require.Equal(t, attempts, final.FailedAttempts)
	require.NotNil(t, final.LockedUntil)
}

func TestRecordSuccessResetsLockoutState(t *testing.T) {
	db := setupTestDB(t, "identity_success")
	repo := NewIdentityRepository(db)

	lockedUntil := time.Now().Add(10 * time.Minute)
	identity := models.Identity{Username: "erin", Email: "erin@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true, FailedAttempts: 5, LockedUntil: &lockedUntil}
	require.NoError(t, db.Create(&identity).Error)

	loginAt := time.Now()
	require.NoError(t, repo.RecordSuccess(context.Background(), identity.ID, loginAt))

	final, err := repo.FindByID(context.Background(), identity.ID)
	require.NoError(t, err)
	require.Zero(t, final.FailedAttempts)
	require.Nil(t, final.LockedUntil)
	require.NotNil(t, final.LastLogin)
	require.WithinDuration(t, loginAt, *final.LastLogin, time.Second)
}

func TestSetRoleAndSetActive(t *testing.T) {
	db := setupTestDB(t, "identity_admin")
	repo := NewIdentityRepository(db)

	identity := models.Identity{Username: "frank", Email: "frank@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true}
	require.NoError(t, db.Create(&identity).Error)

	require.NoError(t, repo.SetRole(context.Background(), identity.ID, models.RoleInstructor))
	require.NoError(t, repo.SetActive(context.Background(), identity.ID, false))

	final, err := repo.FindByID(context.Background(), identity.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleInstructor, final.Role)
	require.False(t, final.Active)

	require.ErrorIs(t, repo.SetRole(context.Background(), 9999, models.RoleAdmin), gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.SetActive(context.Background(), 9999, true), gorm.ErrRecordNotFound)
}

func TestIdentityListFilters(t *testing.T) {
	db := setupTestDB(t, "identity_list")
	repo := NewIdentityRepository(db)

	inactive := false
	require.NoError(t, db.Create(&models.Identity{Username: "ga", Email: "ga@example.com", PasswordHash: "x", Role: models.RoleStudent, Active: true}).Error)
	require.NoError(t, db.Create(&models.Identity{Username: "gb", Email: "gb@example.com", PasswordHash: "x", Role: models.RoleAdmin, Active: false}).Error)

	admins, total, err := repo.List(context.Background(), IdentityFilter{Role: models.RoleAdmin, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, admins, 1)
	require.Equal(t, "gb", admins[0].Username)

	inactives, total, err := repo.List(context.Background(), IdentityFilter{Active: &inactive, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "gb", inactives[0].Username)

	matches, total, err := repo.List(context.Background(), IdentityFilter{Search: "ga@", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "ga", matches[0].Username)
}

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Identity{}, &models.SecurityEvent{}))
	return db
}

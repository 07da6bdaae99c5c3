package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/models"
)

func TestVerifyDoesNotRevealWhichFieldWasWrong(t *testing.T) {
	db, repo := setupServiceDB(t, "verify")
	svc := NewCredentialService(repo, testValidator(), bcrypt.MinCost, 24*time.Hour, testLogger())
	seedIdentity(t, db, "alice", "correct-horse-battery", models.RoleStudent)

	_, unknownErr := svc.Verify(context.Background(), "nobody", "whatever-password")
	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)

	_, wrongErr := svc.Verify(context.Background(), "alice", "not-the-password")
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)

	identity, err := svc.Verify(context.Background(), "alice", "correct-horse-battery")
	require.NoError(t, err)
	require.Equal(t, "alice", identity.Username)

	byEmail, err := svc.Verify(context.Background(), "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)
	require.Equal(t, identity.ID, byEmail.ID)
}

func TestRegisterRejectsDuplicatesAndAdminRole(t *testing.T) {
	db, repo := setupServiceDB(t, "register")
	svc := NewCredentialService(repo, testValidator(), bcrypt.MinCost, 24*time.Hour, testLogger())
	seedIdentity(t, db, "taken", "some-password-123", models.RoleStudent)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "taken",
		Email:    "fresh@example.com",
		Password: "a-long-password-123",
	})
	require.ErrorIs(t, err, ErrDuplicateIdentity)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "fresh",
		Email:    "taken@example.com",
		Password: "a-long-password-123",
	})
	require.ErrorIs(t, err, ErrDuplicateIdentity)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "wannabe",
		Email:    "wannabe@example.com",
		Password: "a-long-password-123",
		Role:     "admin",
	})
	require.Error(t, err, "self-service admin registration is rejected by validation")

	created, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "newuser",
		Email:    "newuser@example.com",
		Password: "a-long-password-123",
		Role:     "instructor",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleInstructor, created.Role)
	require.True(t, created.Active)
	require.NotEqual(t, "a-long-password-123", created.PasswordHash)
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	db, repo := setupServiceDB(t, "change_current")
	svc := NewCredentialService(repo, testValidator(), bcrypt.MinCost, 24*time.Hour, testLogger())
	identity := seedIdentity(t, db, "bob", "original-password-1", models.RoleStudent)

	err := svc.ChangePassword(context.Background(), identity, "wrong-password", "brand-new-password-1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	stored, findErr := repo.FindByID(context.Background(), identity.ID)
	require.NoError(t, findErr)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("original-password-1")), "stored hash must be unchanged")
}

func TestChangePasswordFirstRotationAlwaysAllowed(t *testing.T) {
	db, repo := setupServiceDB(t, "change_first")
	svc := NewCredentialService(repo, testValidator(), bcrypt.MinCost, 24*time.Hour, testLogger())
	identity := seedIdentity(t, db, "carol", "original-password-1", models.RoleStudent)
	require.Nil(t, identity.PasswordChangedAt)

	require.NoError(t, svc.ChangePassword(context.Background(), identity, "original-password-1", "brand-new-password-1"))

	stored, err := repo.FindByID(context.Background(), identity.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordChangedAt)
	require.Len(t, stored.PasswordHistory, 1)
}

func TestChangePasswordEnforcesMinimumAge(t *testing.T) {
	db, repo := setupServiceDB(t, "change_age")
	svc := NewCredentialService(repo, testValidator(), bcrypt.MinCost, 24*time.Hour, testLogger())
	identity := seedIdentity(t, db, "dave", "original-password-1", models.RoleStudent)

	recent := time.Now().Add(-time.Hour)
	identity.PasswordChangedAt = &recent
	require.NoError(t, db.Save(identity).Error)

	err := svc.ChangePassword(context.Background(), identity, "original-password-1", "brand-new-password-1")
	require.ErrorIs(t, err, ErrPasswordTooRecent)

	old := time.Now().Add(-25 * time.Hour)
	identity.PasswordChangedAt = &old
	require.NoError(t, db.Save(identity).Error)

	require.NoError(t, svc.ChangePassword(context.Background(), identity, "original-password-1", "brand-new-password-1"))
}

func TestChangePasswordRejectsHistoryReuse(t *testing.T) {
	db, repo := setupServiceDB(t, "change_history")
	svc := NewCredentialService(repo, testValidator(), bcrypt.MinCost, 0, testLogger())
	identity := seedIdentity(t, db, "erin", passwordNumber(0), models.RoleStudent)

	// Rotate through enough passwords to fill and roll the history ring.
	for i := 1; i <= 6; i++ {
		current := passwordNumber(i - 1)
		next := passwordNumber(i)
		require.NoError(t, svc.ChangePassword(context.Background(), identity, current, next))
	}

	stored, err := repo.FindByID(context.Background(), identity.ID)
	require.NoError(t, err)
	require.Len(t, stored.PasswordHistory, models.PasswordHistoryDepth)

	// password-number-3 is still inside the ring.
	err = svc.ChangePassword(context.Background(), identity, passwordNumber(6), passwordNumber(3))
	require.ErrorIs(t, err, ErrPasswordReused)

	// The current password is also rejected.
	err = svc.ChangePassword(context.Background(), identity, passwordNumber(6), passwordNumber(6))
	require.ErrorIs(t, err, ErrPasswordReused)

	// password-number-0 was evicted from the ring and may return.
	require.NoError(t, svc.ChangePassword(context.Background(), identity, passwordNumber(6), passwordNumber(0)))
}

func passwordNumber(i int) string {
	return fmt.Sprintf("rotation-password-number-%d", i)
}

package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// memoryRecorder captures security events for assertions.
type memoryRecorder struct {
	mu      sync.Mutex
	entries []SecurityEventEntry
}

func (m *memoryRecorder) Record(ctx context.Context, entry SecurityEventEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) all() []SecurityEventEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SecurityEventEntry(nil), m.entries...)
}

func (m *memoryRecorder) last(t *testing.T) SecurityEventEntry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.entries)
	return m.entries[len(m.entries)-1]
}

func setupServiceDB(t *testing.T, name string) (*gorm.DB, repository.IdentityRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Identity{}, &models.SecurityEvent{}))
	return db, repository.NewIdentityRepository(db)
}

func seedIdentity(t *testing.T, db *gorm.DB, username, password string, role models.Role) *models.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	identity := &models.Identity{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	require.NoError(t, db.Create(identity).Error)
	return identity
}

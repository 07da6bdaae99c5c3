package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

func TestSecurityEventListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t, "events_list")
	repo := NewSecurityEventRepository(db)

	actor := uint(7)
	now := time.Now()
	seed := []models.SecurityEvent{
		{ActorID: &actor, Action: models.ActionLoginFailed, ResourceType: "identity", Success: false, CreatedAt: now.Add(-3 * time.Hour)},
		{ActorID: &actor, Action: models.ActionLoginSuccess, ResourceType: "identity", Success: true, CreatedAt: now.Add(-2 * time.Hour)},
		{Action: models.ActionLoginFailed, ResourceType: "identity", Success: false, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	byActor, total, err := repo.List(context.Background(), SecurityEventFilter{ActorID: &actor, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, byActor, 2)

	failures, total, err := repo.List(context.Background(), SecurityEventFilter{Action: models.ActionLoginFailed, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, failures, 2)

	from := now.Add(-90 * time.Minute)
	recent, total, err := repo.List(context.Background(), SecurityEventFilter{From: &from, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, recent, 1)

	firstPage, total, err := repo.List(context.Background(), SecurityEventFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, firstPage, 2)
	require.True(t, firstPage[0].CreatedAt.After(firstPage[1].CreatedAt) || firstPage[0].CreatedAt.Equal(firstPage[1].CreatedAt), "newest first")

	secondPage, _, err := repo.List(context.Background(), SecurityEventFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
}

func TestSecurityEventCountByAction(t *testing.T) {
	db := setupTestDB(t, "events_counts")
	repo := NewSecurityEventRepository(db)

	now := time.Now()
	seed := []models.SecurityEvent{
		{Action: models.ActionLoginFailed, ResourceType: "identity", CreatedAt: now.Add(-time.Hour)},
		{Action: models.ActionLoginFailed, ResourceType: "identity", CreatedAt: now.Add(-30 * time.Minute)},
		{Action: models.ActionUnauthorizedAccess, ResourceType: "audit_trail", CreatedAt: now.Add(-10 * time.Minute)},
		{Action: models.ActionLoginFailed, ResourceType: "identity", CreatedAt: now.Add(-48 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	counts, err := repo.CountByAction(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[models.ActionLoginFailed], "events outside the window are excluded")
	require.Equal(t, int64(1), counts[models.ActionUnauthorizedAccess])
}

func TestSecurityEventDetailsRoundTrip(t *testing.T) {
	db := setupTestDB(t, "events_details")
	repo := NewSecurityEventRepository(db)

	event := models.SecurityEvent{
		Action:       models.ActionUnauthorizedAccess,
		ResourceType: "audit_trail",
		Details:      datatypes.JSONMap{"required_roles": []interface{}{"admin"}, "user_role": "student"},
		Success:      false,
	}
	require.NoError(t, repo.Create(context.Background(), &event))

	stored, total, err := repo.List(context.Background(), SecurityEventFilter{Action: models.ActionUnauthorizedAccess, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "student", stored[0].Details["user_role"])
}

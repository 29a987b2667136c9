package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/spin-engine/internal/models"
)

func TestGameDefinitionRepository(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	ctx := context.Background()
	repo := NewGameDefinitionRepository(db)

	require.NoError(t, repo.Upsert(ctx, &models.GameDefinition{
		GameID: "remote_game", Name: "Remote", Enabled: true, Config: `{"id":"remote_game"}`,
	}))
	def, err := repo.Find(ctx, "remote_game")
	require.NoError(t, err)
	assert.Equal(t, 1, def.Version)

	require.NoError(t, repo.Upsert(ctx, &models.GameDefinition{
		GameID: "remote_game", Name: "Remote v2", Enabled: true, Config: `{"id":"remote_game","v":2}`,
	}))
	def, err = repo.Find(ctx, "remote_game")
	require.NoError(t, err)
	assert.Equal(t, 2, def.Version)
	assert.Equal(t, "Remote v2", def.Name)

	require.NoError(t, repo.SetEnabled(ctx, "remote_game", false))
	def, err = repo.Find(ctx, "remote_game")
	require.NoError(t, err)
	assert.False(t, def.Enabled)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)

	_, err = repo.Find(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.SetEnabled(ctx, "missing", true), ErrNotFound)
}

func TestGameSessionRepository_Lifecycle(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	ctx := context.Background()
	repo := NewGameSessionRepository(db)

	old := &models.GameSession{SessionID: "old", PlayerID: "p", GameID: "g", LastActiveAt: time.Now().Add(-2 * time.Hour)}
	fresh := &models.GameSession{SessionID: "fresh", PlayerID: "p", GameID: "g"}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))
	assert.ErrorIs(t, repo.Create(ctx, &models.GameSession{SessionID: "fresh"}), ErrDuplicate)

	active, err := repo.ListActive(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].SessionID)

	n, err := repo.EndExpired(ctx, time.Now().Add(-time.Hour), []string{"fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.FindBySessionID(ctx, "old")
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	require.NoError(t, repo.EndSession(ctx, "fresh"))
	assert.ErrorIs(t, repo.EndSession(ctx, "fresh"), ErrNotFound)
}

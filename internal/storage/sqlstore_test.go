package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-keyword-bot/internal/domain"
)

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "rules.db")

	s, err := NewSQLStore(dbPath, []int64{100})
	require.NoError(t, err)

	rule := domain.Rule{
		ID:       "r1",
		Response: "Вот ссылка",
		Media:    &domain.MediaRef{FileID: "f1", Kind: domain.MediaAnimation},
		Button:   &domain.Button{Label: "Смотреть", URL: "https://example.com"},
	}
	require.NoError(t, s.Upsert(ctx, "chat-1", "naruto", rule))
	require.NoError(t, s.Upsert(ctx, "chat-1", "one piece", domain.Rule{ID: "r2"}))
	require.NoError(t, s.SetMediaBinding(ctx, "chat-1", domain.MediaRef{FileID: "f2", Kind: domain.MediaPhoto}))
	require.NoError(t, s.AddAdmin(ctx, 200))
	require.NoError(t, s.Close())

	reopened, err := NewSQLStore(dbPath, []int64{999})
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "naruto", entries[0].Form)
	assert.Equal(t, rule, entries[0].Rule)
	assert.Equal(t, "one piece", entries[1].Form)

	ref, err := reopened.MediaBinding(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "f2", ref.FileID)
	assert.Equal(t, domain.MediaPhoto, ref.Kind)

	// Таблица админов не пуста, bootstrap-список не применяется повторно.
	admins, err := reopened.Admins(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200}, admins)
}

func TestSQLStore_PositionSurvivesDelete(t *testing.T) {
	ctx := context.Background()

	s, err := NewSQLStore(filepath.Join(t.TempDir(), "rules.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, "chat-1", "naruto", domain.Rule{ID: "r1"}))
	require.NoError(t, s.Upsert(ctx, "chat-1", "bleach", domain.Rule{ID: "r2"}))
	require.NoError(t, s.Upsert(ctx, "chat-1", "one piece", domain.Rule{ID: "r3"}))

	require.NoError(t, s.Delete(ctx, "chat-1", "bleach"))
	// Новая форма встает после всех, не в освободившуюся дыру.
	require.NoError(t, s.Upsert(ctx, "chat-1", "hunter x hunter", domain.Rule{ID: "r4"}))

	entries, err := s.List(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "naruto", entries[0].Form)
	assert.Equal(t, "one piece", entries[1].Form)
	assert.Equal(t, "hunter x hunter", entries[2].Form)
}

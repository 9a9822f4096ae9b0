package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/munzi/internal/model"
)

func TestMemoryRepository_SaveList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Migrate(ctx))

	first := &model.Munzi{ID: "1", Name: "munzi", CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, &model.Munzi{ID: "2", Name: "log"}))

	first.Name = "mutated"

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "munzi", rows[0].Name)
	assert.Equal(t, "log", rows[1].Name)

	rows[0].Name = "changed"
	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "munzi", again[0].Name)
}

func TestMemoryRepository_Close(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save(ctx, &model.Munzi{ID: "1", Name: "a"}))
	require.NoError(t, repo.Close())

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

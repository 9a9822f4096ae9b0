package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/munzi/internal/model"
	"github.com/tuncerburak97/munzi/internal/repository/memory"
)

func TestNameService_NamesEmpty(t *testing.T) {
	s := NewNameService(memory.NewMemoryRepository())
	names, err := s.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNameService_CreateAndList(t *testing.T) {
	s := NewNameService(memory.NewMemoryRepository())
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	m, err := s.Create(ctx, "munzi")
	require.NoError(t, err)
	_, err = uuid.Parse(m.ID)
	assert.NoError(t, err)
	assert.Equal(t, fixed, m.CreatedAt)

	_, err = s.Create(ctx, "log")
	require.NoError(t, err)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, "munzi, log, ", names)
}

type brokenStore struct{ memory.MemoryRepository }

func (*brokenStore) List(context.Context) ([]*model.Munzi, error) {
	return nil, errors.New("db down")
}

func (*brokenStore) Save(context.Context, *model.Munzi) error {
	return errors.New("db down")
}

func TestNameService_StoreErrors(t *testing.T) {
	s := NewNameService(&brokenStore{})

	_, err := s.Names(context.Background())
	assert.EqualError(t, err, "list names: db down")

	_, err = s.Create(context.Background(), "munzi")
	assert.EqualError(t, err, "save name: db down")
}

package memory

import (
	"context"
	"sync"

	"github.com/tuncerburak97/munzi/internal/model"
)

type MemoryRepository struct {
	mu   sync.RWMutex
	rows []*model.Munzi
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(ctx context.Context, m *model.Munzi) error {
	row := *m
	r.mu.Lock()
	r.rows = append(r.rows, &row)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*model.Munzi, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Munzi, 0, len(r.rows))
	for _, row := range r.rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) Migrate(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	r.rows = nil
	r.mu.Unlock()
	return nil
}

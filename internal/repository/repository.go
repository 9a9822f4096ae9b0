package repository

import (
	"context"

	"github.com/tuncerburak97/munzi/internal/model"
)

// NameStore persists the names collected by the hello endpoints.
type NameStore interface {
	Save(ctx context.Context, m *model.Munzi) error
	// List returns every stored entry, oldest first.
	List(ctx context.Context) ([]*model.Munzi, error)
	Migrate(ctx context.Context) error
	Close() error
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/model"
	"github.com/tuncerburak97/munzi/internal/repository"
)

type NameService struct {
	repo repository.NameStore
	now  func() time.Time
}

func NewNameService(repo repository.NameStore) *NameService {
	return &NameService{
		repo: repo,
		now:  time.Now,
	}
}

// Names lists the stored names, each followed by ", ".
func (s *NameService) Names(ctx context.Context) (string, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return "", errors.Wrap(err, "list names")
	}

	var b strings.Builder
	for _, m := range list {
		b.WriteString(m.Name)
		b.WriteString(", ")
	}
	return b.String(), nil
}

func (s *NameService) Create(ctx context.Context, name string) (*model.Munzi, error) {
	m := &model.Munzi{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, errors.Wrap(err, "save name")
	}

	zerolog.Ctx(ctx).Debug().
		Str("id", m.ID).
		Str("name", m.Name).
		Msg("Name stored")
	return m, nil
}

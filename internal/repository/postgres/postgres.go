package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/model"
	"github.com/tuncerburak97/munzi/internal/repository/migrations"
)

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &PostgresRepository{Pool: pool}, nil
}

func (r *PostgresRepository) Save(ctx context.Context, m *model.Munzi) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO munzi (id, name, created_at) VALUES ($1, $2, $3)`,
		m.ID, m.Name, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert munzi: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*model.Munzi, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, name, created_at FROM munzi ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select munzi: %w", err)
	}
	defer rows.Close()

	var out []*model.Munzi
	for rows.Next() {
		m := &model.Munzi{}
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan munzi: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Close() error {
	r.Pool.Close()
	return nil
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting PostgreSQL migrations")

	_, err := r.Pool.Exec(ctx, migrations.PostgresSchema)
	if err != nil {
		log.Error().Err(err).Msg("PostgreSQL migrations failed")
		return fmt.Errorf("migration error: %w", err)
	}

	log.Info().Msg("PostgreSQL migrations completed successfully")
	return nil
}

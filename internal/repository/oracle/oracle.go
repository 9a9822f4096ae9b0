package oracle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "github.com/sijms/go-ora/v2"
	"github.com/tuncerburak97/munzi/internal/model"
	"github.com/tuncerburak97/munzi/internal/repository/migrations"
)

type OracleRepository struct {
	DB *sql.DB
}

func NewOracleRepository(ctx context.Context, connStr string) (*OracleRepository, error) {
	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Oracle: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("oracle ping: %w", err)
	}

	return &OracleRepository{DB: db}, nil
}

func (r *OracleRepository) Save(ctx context.Context, m *model.Munzi) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO munzi (id, name, created_at) VALUES (:1, :2, :3)`,
		m.ID, m.Name, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert munzi: %w", err)
	}
	return nil
}

func (r *OracleRepository) List(ctx context.Context) ([]*model.Munzi, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, created_at FROM munzi ORDER BY created_at`)
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

func (r *OracleRepository) Close() error {
	return r.DB.Close()
}

func (r *OracleRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting Oracle migrations")

	_, err := r.DB.ExecContext(ctx, migrations.OracleSchema)
	if err != nil {
		log.Error().Err(err).Msg("Oracle migrations failed")
		return fmt.Errorf("migration error: %w", err)
	}

	log.Info().Msg("Oracle migrations completed successfully")
	return nil
}

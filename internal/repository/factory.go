package repository

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
	ora "github.com/sijms/go-ora/v2"
	"github.com/tuncerburak97/munzi/internal/config"
	"github.com/tuncerburak97/munzi/internal/repository/couchbase"
	"github.com/tuncerburak97/munzi/internal/repository/memory"
	"github.com/tuncerburak97/munzi/internal/repository/mongo"
	"github.com/tuncerburak97/munzi/internal/repository/oracle"
	"github.com/tuncerburak97/munzi/internal/repository/postgres"
)

const (
	TypeMemory    = "memory"
	TypePostgres  = "postgres"
	TypeOracle    = "oracle"
	TypeCouchbase = "couchbase"
	TypeMongo     = "mongodb"
)

var (
	_ NameStore = (*memory.MemoryRepository)(nil)
	_ NameStore = (*postgres.PostgresRepository)(nil)
	_ NameStore = (*oracle.OracleRepository)(nil)
	_ NameStore = (*couchbase.CouchbaseRepository)(nil)
	_ NameStore = (*mongo.MongoRepository)(nil)
)

// NewRepository connects the store named by cfg.Type and runs its
// migrations.
func NewRepository(ctx context.Context, cfg config.StoreConfig) (NameStore, error) {
	store, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func connect(ctx context.Context, cfg config.StoreConfig) (NameStore, error) {
	if cfg.Type != TypeMemory {
		log.Info().
			Str("type", cfg.Type).
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("database", cfg.Database).
			Msg("Connecting to database")
	}

	switch cfg.Type {
	case TypeMemory, "":
		return memory.NewMemoryRepository(), nil

	case TypePostgres:
		return postgres.NewPostgresRepository(ctx, PostgresURL(cfg))

	case TypeOracle:
		connStr := ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, nil)
		return oracle.NewOracleRepository(ctx, connStr)

	case TypeCouchbase:
		connStr := fmt.Sprintf("couchbase://%s:%d", cfg.Host, cfg.Port)
		return couchbase.NewCouchbaseRepository(connStr, cfg.Database, cfg.User, cfg.Password)

	case TypeMongo:
		return mongo.NewMongoRepository(ctx, MongoURI(cfg), cfg.Database)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func PostgresURL(cfg config.StoreConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}
	q := url.Values{}
	if cfg.Pool.MaxConns > 0 {
		q.Set("pool_max_conns", fmt.Sprint(cfg.Pool.MaxConns))
	}
	if cfg.Pool.MinConns > 0 {
		q.Set("pool_min_conns", fmt.Sprint(cfg.Pool.MinConns))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func MongoURI(cfg config.StoreConfig) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

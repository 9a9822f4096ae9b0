package couchbase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/model"
	"github.com/tuncerburak97/munzi/internal/repository/migrations"
)

type CouchbaseRepository struct {
	Cluster *gocb.Cluster
	Bucket  *gocb.Bucket
}

func NewCouchbaseRepository(connStr, bucketName, username, password string) (*CouchbaseRepository, error) {
	cluster, err := gocb.Connect(
		connStr,
		gocb.ClusterOptions{
			Username: username,
			Password: password,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Couchbase: %w", err)
	}

	bucket := cluster.Bucket(bucketName)
	err = bucket.WaitUntilReady(5*time.Second, nil)
	if err != nil {
		return nil, fmt.Errorf("bucket not ready: %w", err)
	}

	return &CouchbaseRepository{
		Cluster: cluster,
		Bucket:  bucket,
	}, nil
}

func documentKey(id string) string {
	return "munzi_" + id
}

func (r *CouchbaseRepository) Save(ctx context.Context, m *model.Munzi) error {
	_, err := r.Bucket.DefaultCollection().Upsert(
		documentKey(m.ID),
		m,
		&gocb.UpsertOptions{Context: ctx},
	)
	return err
}

func (r *CouchbaseRepository) List(ctx context.Context) ([]*model.Munzi, error) {
	query := fmt.Sprintf("SELECT m.* FROM `%s` m ORDER BY m.created_at", r.Bucket.Name())
	result, err := r.Cluster.Query(query, &gocb.QueryOptions{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("query munzi: %w", err)
	}
	defer result.Close()

	var out []*model.Munzi
	for result.Next() {
		m := &model.Munzi{}
		if err := result.Row(m); err != nil {
			return nil, fmt.Errorf("decode munzi: %w", err)
		}
		out = append(out, m)
	}
	return out, result.Err()
}

func (r *CouchbaseRepository) Close() error {
	return r.Cluster.Close(nil)
}

func (r *CouchbaseRepository) Migrate(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Starting Couchbase migrations")

	for _, indexQuery := range migrations.CouchbaseIndexes(r.Bucket.Name()) {
		_, err := r.Cluster.Query(indexQuery, &gocb.QueryOptions{Context: ctx})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			log.Error().Err(err).Str("query", indexQuery).Msg("Failed to create Couchbase index")
			return fmt.Errorf("index creation error: %w", err)
		}
	}

	log.Info().Msg("Couchbase migrations completed successfully")
	return nil
}

package mongo

import (
	"context"
	"fmt"

	"github.com/tuncerburak97/munzi/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "munzi"

type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	return &MongoRepository{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

func (r *MongoRepository) Save(ctx context.Context, m *model.Munzi) error {
	_, err := r.db.Collection(collectionName).InsertOne(ctx, m)
	return err
}

func (r *MongoRepository) List(ctx context.Context) ([]*model.Munzi, error) {
	cur, err := r.db.Collection(collectionName).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find munzi: %w", err)
	}
	defer cur.Close(ctx)

	var out []*model.Munzi
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode munzi: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Collection(collectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	return err
}

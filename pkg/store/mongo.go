package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"onionscope/pkg/errors"
)

const (
	mongoDatabase   = "onionscope"
	mongoCollection = "views"
)

// MongoStore persists views in MongoDB, for serve deployments that need
// saved views to survive restarts and be shared between instances.
type MongoStore struct {
	client *mongo.Client
	views  *mongo.Collection
}

// NewMongoStore connects to MongoDB at uri and verifies the connection.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "MongoDB is unreachable")
	}
	return &MongoStore{
		client: client,
		views:  client.Database(mongoDatabase).Collection(mongoCollection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (View, error) {
	var v View
	err := s.views.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return View{}, errors.New(errors.ErrCodeViewNotFound, "view %s not found", id)
	}
	if err != nil {
		return View{}, errors.Wrap(errors.ErrCodeInternal, err, "failed to load view %s", id)
	}
	return v, nil
}

func (s *MongoStore) Put(ctx context.Context, v View) error {
	if v.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "view id cannot be empty")
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.views.ReplaceOne(ctx, bson.M{"_id": v.ID}, v, opts); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to save view %s", v.ID)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, project string) ([]View, error) {
	filter := bson.M{}
	if project != "" {
		filter["project"] = project
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.views.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to list views")
	}
	defer cursor.Close(ctx)

	var out []View
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to decode views")
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.views.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to delete view %s", id)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeViewNotFound, "view %s not found", id)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)

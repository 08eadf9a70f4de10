package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages"
)

type SagaStorageMongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewSagaStorageMongo(client *mongo.Client, db *mongo.Database) *SagaStorageMongo {
	return &SagaStorageMongo{client, db.Collection("saga_states")}
}

func (s *SagaStorageMongo) Create(ctx context.Context, sg *entities.Saga) error {
	_, err := s.col.InsertOne(ctx, sg)
	if err != nil && isDupKey(err) {
		return storages.ErrSagaExists
	}
	return err
}

func (s *SagaStorageMongo) Get(ctx context.Context, id string) (*entities.Saga, error) {
	var sg entities.Saga
	err := s.col.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&sg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, storages.ErrSagaNotFound
		}
		return nil, err
	}
	return &sg, nil
}

func (s *SagaStorageMongo) Replace(ctx context.Context, sg *entities.Saga) error {
	current := sg.Version
	next := *sg
	next.Version = current + 1

	res, err := s.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: sg.Id}, {Key: "version", Value: current}}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err = s.Get(ctx, sg.Id); err != nil {
			return err
		}
		return storages.ErrVersionConflict
	}

	sg.Version = next.Version
	return nil
}

func (s *SagaStorageMongo) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storages.ErrSagaNotFound
	}
	return nil
}

func (s *SagaStorageMongo) FetchExpired(ctx context.Context, now int64, limit int64) ([]entities.Saga, error) {
	var sagas []entities.Saga

	filter := bson.D{
		{Key: "state", Value: bson.D{{Key: "$nin", Value: bson.A{entities.StateCompleted, entities.StateFailed}}}},
		{Key: "deadline", Value: bson.D{{Key: "$gt", Value: 0}, {Key: "$lte", Value: now}}},
	}
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "deadline", Value: 1}})
	opts.SetLimit(limit)

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(ctx, &sagas); err != nil {
		return nil, err
	}

	return sagas, nil
}

func (s *SagaStorageMongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func isDupKey(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}

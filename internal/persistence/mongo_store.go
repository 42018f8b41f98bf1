package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/connect/pkg/api"
)

const mongoTimeout = 5 * time.Second

// MongoRunStore is a RunStore backed by a MongoDB collection.
type MongoRunStore struct {
	coll *mongo.Collection
}

var _ RunStore = (*MongoRunStore)(nil)

// NewMongoRunStore creates a Mongo-backed run store.
// dbName defaults to "connect" if empty, collName defaults to "runs".
func NewMongoRunStore(client *mongo.Client, dbName, collName string) *MongoRunStore {
	if dbName == "" {
		dbName = "connect"
	}
	if collName == "" {
		collName = "runs"
	}

	return &MongoRunStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

func (s *MongoRunStore) SaveRun(ctx context.Context, run *api.Run) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	rec, err := toRecord(run)
	if err != nil {
		return err
	}

	_, err = s.coll.InsertOne(ctx, rec)
	return err
}

func (s *MongoRunStore) UpdateRun(ctx context.Context, run *api.Run) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	rec, err := toRecord(run)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"flow_name":    rec.FlowName,
			"request_id":   rec.RequestID,
			"status":       rec.Status,
			"current_step": rec.CurrentStep,
			"steps":        rec.Steps,
			"data":         rec.Data,
			"output":       rec.Output,
			"reason":       rec.Reason,
			"error":        rec.Error,
			"started_at":   rec.StartedAt,
			"finished_at":  rec.FinishedAt,
		},
	}

	res, err := s.coll.UpdateByID(ctx, rec.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *MongoRunStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var rec runRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return fromRecord(&rec)
}

func (s *MongoRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	query := bson.M{}
	if filter.FlowName != "" {
		query["flow_name"] = filter.FlowName
	}
	if filter.RequestID != "" {
		query["request_id"] = filter.RequestID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "started_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var runs []*api.Run
	for cur.Next(ctx) {
		var rec runRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		run, err := fromRecord(&rec)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

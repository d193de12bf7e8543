package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Documents use the string id as _id.
// Commit needs a replica set because each chunk runs in a multi-document transaction.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	maxBatchSize int
}

// NewMongoStore creates a MongoStore over the named database.
func NewMongoStore(client *mongo.Client, database string, maxBatchSize int) *MongoStore {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &MongoStore{client: client, db: client.Database(database), maxBatchSize: maxBatchSize}
}

func (s *MongoStore) MaxBatchSize() int {
	return s.maxBatchSize
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		return nil, mongoError(collection, id, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	filter := bson.M{}
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}
	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Direction == Desc {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
		if q.After != nil {
			op := "$gt"
			if q.Direction == Desc {
				op = "$lt"
			}
			if q.AfterID == "" {
				filter[q.OrderBy] = bson.M{op: q.After}
			} else {
				filter["$or"] = bson.A{
					bson.M{q.OrderBy: bson.M{op: q.After}},
					bson.M{q.OrderBy: q.After, "_id": bson.M{op: q.AfterID}},
				}
			}
		}
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, mongoError(q.Collection, "", err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, mongoError(q.Collection, "", err)
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, *fromBSON(row))
	}
	return out, nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, data Document) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, toBSON(id, data))
	return mongoError(collection, id, err)
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, data Document) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, toBSON(id, data), options.Replace().SetUpsert(true))
	return mongoError(collection, id, err)
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Document) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return mongoError(collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return mongoError(collection, id, err)
}

func (s *MongoStore) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		return 0, mongoError(collection, id, err)
	}
	return fromBSON(raw).Data.Int(field), nil
}

// Commit groups the operations per collection into ordered BulkWrites inside one transaction.
func (s *MongoStore) Commit(ctx context.Context, ops []Op) error {
	if len(ops) > s.maxBatchSize {
		return fmt.Errorf("%d operations: %w", len(ops), ErrBatchTooLarge)
	}
	if len(ops) == 0 {
		return nil
	}

	var order []string
	grouped := make(map[string][]mongo.WriteModel)
	for _, op := range ops {
		if _, ok := grouped[op.Collection]; !ok {
			order = append(order, op.Collection)
		}
		var model mongo.WriteModel
		switch op.Kind {
		case OpSet:
			model = mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": op.ID}).SetReplacement(toBSON(op.ID, op.Data)).SetUpsert(true)
		case OpUpdate:
			model = mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": op.ID}).SetUpdate(bson.M{"$set": bson.M(op.Data)})
		case OpDelete:
			model = mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.ID})
		}
		grouped[op.Collection] = append(grouped[op.Collection], model)
	}
	expectedUpdates := make(map[string]int64)
	for _, op := range ops {
		if op.Kind == OpUpdate {
			expectedUpdates[op.Collection]++
		}
	}

	session, err := s.client.StartSession()
	if err != nil {
		return mongoError("batch", "", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, name := range order {
			res, err := s.db.Collection(name).BulkWrite(sc, grouped[name], options.BulkWrite().SetOrdered(true))
			if err != nil {
				return nil, err
			}
			// Updates on missing documents abort the chunk, matching Firestore batch semantics.
			if want := expectedUpdates[name]; want > 0 && res.MatchedCount < want {
				return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
			}
		}
		return nil, nil
	})
	return mongoError("batch", "", err)
}

func toBSON(id string, data Document) bson.M {
	out := bson.M{}
	for k, v := range data {
		out[k] = v
	}
	out["_id"] = id
	return out
}

func fromBSON(raw bson.M) *Snapshot {
	id, _ := raw["_id"].(string)
	data := Document{}
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		data[k] = v
	}
	return &Snapshot{ID: id, Data: data}
}

func mongoError(collection, id string, err error) error {
	if err == nil {
		return nil
	}
	ref := collection
	if id != "" {
		ref = collection + "/" + id
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", ref, ErrAlreadyExists)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", ref, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", ref, err)
}

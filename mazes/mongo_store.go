package mazes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 2 * time.Second

// MongoStore keeps one document per maze, unique by name.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo dials uri, checks the server answers, and ensures the unique
// name index exists.
func ConnectMongo(ctx context.Context, uri, dbName, collectionName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mazes: mongo connect: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mazes: mongo ping: %w", err)
	}

	ms := NewMongoStore(client, dbName, collectionName)
	_, err = ms.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mazes: mongo index: %w", err)
	}
	return ms, nil
}

func NewMongoStore(client *mongo.Client, dbName, collectionName string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Save upserts by name. The id and creation time are only written on insert.
func (ms *MongoStore) Save(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	doc := toStored(rec)
	filter := bson.M{"name": doc.Name}
	update := bson.M{
		"$set": bson.M{
			"maze":       doc.Maze,
			"complexity": doc.Complexity,
		},
		"$setOnInsert": bson.M{
			"_id":       doc.ID,
			"createdAt": doc.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved stored
	if err = ms.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return rec, fmt.Errorf("mazes: mongo save %s: %w", rec.Name, err)
	}
	return saved.record()
}

func (ms *MongoStore) Load(ctx context.Context, name string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var doc stored
	if err := ms.collection.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Record{}, fmt.Errorf("mazes: mongo load %s: %w", name, err)
	}
	return doc.record()
}

func (ms *MongoStore) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "name", Value: 1}})
	cur, err := ms.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mazes: mongo list: %w", err)
	}
	var docs []stored
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mazes: mongo list: %w", err)
	}

	recs := make([]Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (ms *MongoStore) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := ms.collection.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("mazes: mongo delete %s: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (ms *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

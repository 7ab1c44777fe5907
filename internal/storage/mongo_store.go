package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type slotDocument struct {
	ID        string     `bson:"_id"`
	SessionID string     `bson:"session_id"`
	Key       string     `bson:"key"`
	Value     []byte     `bson:"value"`
	UpdatedAt time.Time  `bson:"updated_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// MongoStore keeps one document per session slot. Transient slots carry expires_at, which
// a TTL index reaps; reads also filter on it since the reaper runs only once a minute.
type MongoStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("session_slots"),
		now:        time.Now,
	}
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) liveFilter(sessionID, key string) bson.M {
	return bson.M{
		"_id": docID(sessionID, key),
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": bson.M{"$gt": m.now()}},
		},
	}
}

func (m *MongoStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	var doc slotDocument
	err := m.collection.FindOne(ctx, m.liveFilter(sessionID, key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return doc.Value, nil
}

func (m *MongoStore) Set(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	now := m.now()
	doc := slotDocument{
		ID:        docID(sessionID, key),
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		doc.ExpiresAt = &exp
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert slot: %w", err)
	}
	return nil
}

func (m *MongoStore) Take(ctx context.Context, sessionID, key string) ([]byte, error) {
	var doc slotDocument
	err := m.collection.FindOneAndDelete(ctx, m.liveFilter(sessionID, key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take slot: %w", err)
	}
	return doc.Value, nil
}

func (m *MongoStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make(bson.A, len(keys))
	for i, k := range keys {
		ids[i] = docID(sessionID, k)
	}
	if _, err := m.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("failed to delete slots: %w", err)
	}
	return nil
}

// DeleteIfMatch removes the guard document with a conditional delete and then the other keys.
// The guard is the only slot compared, so a concurrent rewrite of keys in between is lost.
func (m *MongoStore) DeleteIfMatch(ctx context.Context, sessionID, guardKey string, guard []byte, keys ...string) (bool, error) {
	filter := m.liveFilter(sessionID, guardKey)
	filter["value"] = guard
	res, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete guard slot: %w", err)
	}
	if res.DeletedCount == 0 {
		return false, nil
	}
	if err := m.Delete(ctx, sessionID, keys...); err != nil {
		return true, err
	}
	return true, nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}

func docID(sessionID, key string) string {
	return sessionID + ":" + key
}

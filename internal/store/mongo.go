package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/research-dashboard/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// HistoryStore keeps completed searches in MongoDB.
type HistoryStore struct {
	col *mongo.Collection
}

func NewHistoryStore(db *mongo.Database) *HistoryStore {
	return &HistoryStore{col: db.Collection("history")}
}

// EnsureIndexes creates the per-user listing index.
func (s *HistoryStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo history index: %w", err)
	}
	return nil
}

// Insert stores item, filling CreatedAt when unset, and returns its hex id.
func (s *HistoryStore) Insert(ctx context.Context, item *models.HistoryItem) (string, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, item)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongo insert: unexpected id type %T", res.InsertedID)
	}
	item.ID = oid
	return oid.Hex(), nil
}

// ListByUser returns the user's history, newest first.
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, limit int64) ([]models.HistoryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	items := []models.HistoryItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return items, nil
}

// Get returns one item owned by userID.
func (s *HistoryStore) Get(ctx context.Context, userID, id string) (*models.HistoryItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var item models.HistoryItem
	err = s.col.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find one: %w", err)
	}
	return &item, nil
}

// Delete removes one item owned by userID.
func (s *HistoryStore) Delete(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spacetraveling/models"
)

const PageSnapshotCollection = "page_snapshots"

type PageSnapshotRepository struct {
	col *mongo.Collection
}

func NewPageSnapshotRepository(db *mongo.Database) *PageSnapshotRepository {
	return &PageSnapshotRepository{col: db.Collection(PageSnapshotCollection)}
}

// FindByUID returns the snapshot for uid or models.ErrSnapshotNotFound
func (r *PageSnapshotRepository) FindByUID(ctx context.Context, uid string) (*models.PageSnapshot, error) {
	var s models.PageSnapshot
	if err := r.col.FindOne(ctx, bson.M{"uid": uid}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSnapshotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Upsert stores a snapshot uniquely identified by uid
func (r *PageSnapshotRepository) Upsert(ctx context.Context, s *models.PageSnapshot) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	filter := bson.M{"uid": s.UID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": s.CreatedAt,
		},
		"$set": bson.M{
			"updated_at":   s.UpdatedAt,
			"post_id":      s.PostID,
			"payload":      s.Payload,
			"generated_at": s.GeneratedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// DeleteByUID removes the snapshot for uid. Missing snapshots are not an error.
func (r *PageSnapshotRepository) DeleteByUID(ctx context.Context, uid string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"uid": uid})
	return err
}

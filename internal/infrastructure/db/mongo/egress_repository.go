package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meetkit/meetkit/internal/core/domain"
)

const collectionEgresses = "session_egresses"

type EgressRepository struct {
	col *mongo.Collection
}

func NewEgressRepository(db *mongo.Database) *EgressRepository {
	return &EgressRepository{col: db.Collection(collectionEgresses)}
}

// Upsert replaces the row keyed by egress id, so reconciliation re-runs
// converge on the latest observed state instead of duplicating rows.
func (r *EgressRepository) Upsert(ctx context.Context, egress *domain.SessionEgress) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.ReplaceOne(ctx,
		bson.M{"_id": egress.EgressID},
		egress,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *EgressRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.SessionEgress, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []*domain.SessionEgress
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsureIndexes creates necessary indexes on the session_egresses collection.
func (r *EgressRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

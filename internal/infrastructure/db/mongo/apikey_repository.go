package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/meetkit/meetkit/internal/core/domain"
)

const collectionApiKeys = "api_keys"

type ApiKeyRepository struct {
	col *mongo.Collection
}

func NewApiKeyRepository(db *mongo.Database) *ApiKeyRepository {
	return &ApiKeyRepository{col: db.Collection(collectionApiKeys)}
}

func (r *ApiKeyRepository) Create(ctx context.Context, pair *domain.ApiKeyPair) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, pair)
	return err
}

func (r *ApiKeyRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.ApiKeyPair, error) {
	return r.findOne(ctx, bson.M{"public_id": publicID})
}

// FindLoginKeyForUser returns the user's login-kind pair; at most one exists
// per user.
func (r *ApiKeyRepository) FindLoginKeyForUser(ctx context.Context, userID string) (*domain.ApiKeyPair, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "kind": domain.KeyKindLogin})
}

func (r *ApiKeyRepository) findOne(ctx context.Context, filter bson.M) (*domain.ApiKeyPair, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var pair domain.ApiKeyPair
	err := r.col.FindOne(ctx, filter).Decode(&pair)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrKeyPairNotFound
		}
		return nil, err
	}
	return &pair, nil
}

// EnsureIndexes creates necessary indexes on the api_keys collection.
func (r *ApiKeyRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: uniqueIndex()},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

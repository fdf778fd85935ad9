package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
)

// RankingRepository persists ladder records in pvp_rankings.
type RankingRepository struct {
	coll *mongo.Collection
}

// NewRankingRepository creates the repository.
func NewRankingRepository(db *mongo.Database) *RankingRepository {
	return &RankingRepository{coll: db.Collection(rankingsCollection)}
}

// Get retrieves a ranking by user id, or nil if absent.
func (r *RankingRepository) Get(ctx context.Context, userID string) (*pvp_entities.Ranking, error) {
	var ranking pvp_entities.Ranking
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&ranking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("rankings.get", err)
	}
	return &ranking, nil
}

// Create inserts a ranking. On a uniqueness violation on user_id the
// existing record is returned instead, so two concurrent first-match
// creations cannot collide.
func (r *RankingRepository) Create(ctx context.Context, ranking *pvp_entities.Ranking) (*pvp_entities.Ranking, error) {
	_, err := r.coll.InsertOne(ctx, ranking)
	if mongo.IsDuplicateKeyError(err) {
		return r.Get(ctx, ranking.UserID)
	}
	if err != nil {
		return nil, domain.NewStorageError("rankings.create", err)
	}
	return ranking, nil
}

// Update applies a partial update, stamps updated_at and returns the
// post-image, or nil if the user vanished.
func (r *RankingRepository) Update(ctx context.Context, userID string, patch pvp_entities.RankingPatch) (*pvp_entities.Ranking, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Elo != nil {
		set["elo"] = *patch.Elo
	}
	if patch.Wins != nil {
		set["wins"] = *patch.Wins
	}
	if patch.Losses != nil {
		set["losses"] = *patch.Losses
	}
	if patch.Matches != nil {
		set["matches"] = *patch.Matches
	}
	if patch.LastMatchAt != nil {
		set["last_match_at"] = *patch.LastMatchAt
	}

	var updated pvp_entities.Ranking
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("rankings.update", err)
	}
	return &updated, nil
}

// Leaderboard returns a ranked page ordered by elo descending, ties broken
// by updated_at ascending so the older account ranks higher.
func (r *RankingRepository) Leaderboard(ctx context.Context, limit, offset int) ([]*pvp_entities.Ranking, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, domain.NewStorageError("rankings.count", err)
	}

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "elo", Value: -1}, {Key: "updated_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, domain.NewStorageError("rankings.leaderboard", err)
	}
	defer cursor.Close(ctx)

	var rankings []*pvp_entities.Ranking
	if err := cursor.All(ctx, &rankings); err != nil {
		return nil, 0, domain.NewStorageError("rankings.leaderboard", err)
	}
	return rankings, total, nil
}

var _ pvp_out.RankingRepository = (*RankingRepository)(nil)

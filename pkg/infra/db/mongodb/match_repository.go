package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
)

// MatchRepository persists match documents in pvp_matches.
type MatchRepository struct {
	coll *mongo.Collection
}

// NewMatchRepository creates the repository.
func NewMatchRepository(db *mongo.Database) *MatchRepository {
	return &MatchRepository{coll: db.Collection(matchesCollection)}
}

// Create inserts a new match document.
func (r *MatchRepository) Create(ctx context.Context, m *pvp_entities.Match) error {
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return domain.NewStorageError("matches.create", err)
	}
	return nil
}

// Get retrieves a match by id, or nil if absent.
func (r *MatchRepository) Get(ctx context.Context, matchID string) (*pvp_entities.Match, error) {
	var m pvp_entities.Match
	err := r.coll.FindOne(ctx, bson.M{"match_id": matchID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("matches.get", err)
	}
	return &m, nil
}

// Update applies a partial update and returns the post-image, or nil if
// the match vanished.
func (r *MatchRepository) Update(ctx context.Context, matchID string, patch pvp_entities.MatchPatch) (*pvp_entities.Match, error) {
	set := bson.M{}
	if patch.Player1Wpm != nil {
		set["player1_wpm"] = *patch.Player1Wpm
	}
	if patch.Player1Accuracy != nil {
		set["player1_accuracy"] = *patch.Player1Accuracy
	}
	if patch.Player2Wpm != nil {
		set["player2_wpm"] = *patch.Player2Wpm
	}
	if patch.Player2Accuracy != nil {
		set["player2_accuracy"] = *patch.Player2Accuracy
	}
	if patch.WinnerID != nil {
		set["winner_id"] = *patch.WinnerID
	}
	if patch.WinnerName != nil {
		set["winner_name"] = *patch.WinnerName
	}
	if patch.Player1EloChange != nil {
		set["player1_elo_change"] = *patch.Player1EloChange
	}
	if patch.Player2EloChange != nil {
		set["player2_elo_change"] = *patch.Player2EloChange
	}
	if patch.MatchDuration != nil {
		set["match_duration"] = *patch.MatchDuration
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.CompletedAt != nil {
		set["completed_at"] = *patch.CompletedAt
	}
	if len(set) == 0 {
		return r.Get(ctx, matchID)
	}

	var updated pvp_entities.Match
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"match_id": matchID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("matches.update", err)
	}
	return &updated, nil
}

// History returns a player's completed matches ordered by created_at
// descending, plus the total count.
func (r *MatchRepository) History(ctx context.Context, userID string, limit, offset int) ([]*pvp_entities.Match, int64, error) {
	filter := bson.M{
		"status": pvp_entities.MatchStatusCompleted,
		"$or": []bson.M{
			{"player1_id": userID},
			{"player2_id": userID},
		},
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, domain.NewStorageError("matches.count", err)
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, domain.NewStorageError("matches.history", err)
	}
	defer cursor.Close(ctx)

	var matches []*pvp_entities.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, 0, domain.NewStorageError("matches.history", err)
	}
	return matches, total, nil
}

var _ pvp_out.MatchRepository = (*MatchRepository)(nil)

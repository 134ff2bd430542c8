package users

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/google/uuid"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
)

// MongoStore is a MongoDB-backed Store, one document per user in the
// "users" collection. Connection is shared with savestore.MongoStore's
// database (same *mongo.Database, different collection) — wired up by
// the cmd entrypoint, matching the teacher's pattern of one client
// connection serving multiple collection-scoped stores.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps db's "users" collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("users")}
}

// Migrate creates the indexes the users collection needs.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, identifier, displayName, passwordHash string, role auth.Role) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	_, err := s.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return User{}, apperr.New(apperr.Conflict, "identifier %q already registered", identifier)
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *MongoStore) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	var u User
	err := s.coll.FindOne(ctx, bson.M{"identifier": identifier}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return User{}, apperr.New(apperr.NotFound, "no account for identifier %q", identifier)
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return User{}, apperr.New(apperr.NotFound, "no account %q", id)
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// RecordSessionResult folds a completed session's return percentage
// into the account's running stats. It reads the current stats, then
// writes the folded values with an update that matches only if
// games_played is unchanged; if a concurrent completion got there
// first, nothing is written and it returns an apperr.Transient error.
func (s *MongoStore) RecordSessionResult(ctx context.Context, id string, returnPct float64) error {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	total := u.Stats.AverageReturn * float64(u.Stats.GamesPlayed)
	games := u.Stats.GamesPlayed + 1
	avg := (total + returnPct) / float64(games)
	best := u.Stats.BestReturn
	if games == 1 || returnPct > best {
		best = returnPct
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "stats.games_played": u.Stats.GamesPlayed},
		bson.M{"$set": bson.M{
			"stats.games_played":   games,
			"stats.average_return": avg,
			"stats.best_return":    best,
		}},
	)
	if err != nil {
		return fmt.Errorf("update user stats: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.Transient, "concurrent stats update for user %q, retry", id)
	}
	return nil
}

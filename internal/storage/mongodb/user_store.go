package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/zerolog/log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// Field names are shared with documents written by the web frontend's
// backend; do not rename.
const (
	fieldUsername      = "username"
	fieldEmail         = "email"
	fieldLinkedAccount = "googleAccount"
)

type userDocument struct {
	ID            primitive.ObjectID     `bson:"_id,omitempty"`
	Username      string                 `bson:"username"`
	Email         string                 `bson:"email,omitempty"`
	LinkedAccount *linkedAccountDocument `bson:"googleAccount,omitempty"`
}

type linkedAccountDocument struct {
	ExternalID        string     `bson:"googleId"`
	Email             string     `bson:"email"`
	RefreshToken      string     `bson:"refreshToken"`
	AccessToken       string     `bson:"accessToken"`
	AccessTokenExpiry *time.Time `bson:"accessTokenExpiry"`
	Scopes            []string   `bson:"scopes"`
}

// UserStore implements domain.UserStore on a MongoDB collection with the
// linked account embedded in the user document.
type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(database *mongo.Database) *UserStore {
	return &UserStore{
		collection: database.Collection(usersCollection),
	}
}

// EnsureIndexes creates the unique username index the upsert path relies on.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: fieldUsername, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: fieldEmail, Value: 1}},
			Options: options.Index().SetName("email"),
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", usersCollection, err)
	}

	log.Debug().Str("collection", usersCollection).Msg("User indexes ensured")

	return nil
}

func (s *UserStore) UpsertUser(ctx context.Context, username, email string) error {
	set := bson.M{fieldUsername: username}
	if email != "" {
		set[fieldEmail] = email
	}

	filter := bson.M{fieldUsername: username}
	update := bson.M{"$set": set}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: username %q: %v", domain.ErrStorageConflict, username, err)
		}

		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*domain.LocalUser, error) {
	return s.findOne(ctx, bson.M{fieldUsername: username})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.LocalUser, error) {
	if email == "" {
		return nil, nil
	}

	return s.findOne(ctx, bson.M{fieldEmail: email})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.LocalUser, error) {
	var doc userDocument

	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return doc.toDomain(), nil
}

// SetLinkedAccount replaces the whole sub-document. It never creates the
// parent user.
func (s *UserStore) SetLinkedAccount(ctx context.Context, username string, account domain.LinkedAccount) error {
	filter := bson.M{fieldUsername: username}
	update := bson.M{"$set": bson.M{fieldLinkedAccount: newLinkedAccountDocument(account)}}

	result, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(false))
	if err != nil {
		return fmt.Errorf("failed to set linked account: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

func (s *UserStore) UnsetLinkedAccount(ctx context.Context, username string) error {
	filter := bson.M{fieldUsername: username}
	update := bson.M{"$unset": bson.M{fieldLinkedAccount: ""}}

	_, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to unset linked account: %w", err)
	}

	return nil
}

func newLinkedAccountDocument(account domain.LinkedAccount) *linkedAccountDocument {
	account = account.Normalized()

	scopes := account.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	return &linkedAccountDocument{
		ExternalID:        account.ExternalID,
		Email:             account.Email,
		RefreshToken:      account.RefreshToken,
		AccessToken:       account.AccessToken,
		AccessTokenExpiry: account.AccessTokenExpiry,
		Scopes:            scopes,
	}
}

func (d userDocument) toDomain() *domain.LocalUser {
	user := &domain.LocalUser{
		Username: d.Username,
		Email:    d.Email,
	}

	if d.LinkedAccount != nil {
		account := domain.LinkedAccount{
			ExternalID:        d.LinkedAccount.ExternalID,
			Email:             d.LinkedAccount.Email,
			RefreshToken:      d.LinkedAccount.RefreshToken,
			AccessToken:       d.LinkedAccount.AccessToken,
			AccessTokenExpiry: d.LinkedAccount.AccessTokenExpiry,
			Scopes:            d.LinkedAccount.Scopes,
		}.Normalized()

		user.LinkedAccount = &account
	}

	return user
}

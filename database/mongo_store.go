package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/princinho/sahoauth/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const UsersCollection = "users"

type MongoUserStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewMongoUserStore wraps the users collection of databaseName.
func NewMongoUserStore(client *mongo.Client, databaseName string) *MongoUserStore {
	return &MongoUserStore{
		client: client,
		col:    OpenCollection(client, databaseName, UsersCollection),
	}
}

// EnsureIndexes creates the unique indexes backing username/email uniqueness.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"$or": or})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = bson.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := s.col.InsertOne(ctx, user); err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) UpdateFields(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.FullName != nil {
		set["fullName"] = *upd.FullName
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.CoverImage != nil {
		set["coverImage"] = *upd.CoverImage
	}
	if upd.PasswordHash != nil {
		set["passwordHash"] = *upd.PasswordHash
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if IsDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) SetRefreshToken(ctx context.Context, id, token string) error {
	update := bson.M{"$set": bson.M{"refreshToken": token}}
	if token == "" {
		update = bson.M{"$unset": bson.M{"refreshToken": 1}}
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	if expected == "" {
		return ErrStaleToken
	}

	// The filter on the current value makes the swap a single-document
	// compare-and-set.
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "refreshToken": expected},
		bson.M{"$set": bson.M{"refreshToken": next}},
	)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStaleToken
	}
	return nil
}

func (s *MongoUserStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func IsDuplicateKey(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Fallback
	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

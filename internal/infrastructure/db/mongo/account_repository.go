package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
)

const collectionUsers = "users"

// AccountRepository implements ports.AccountRepository on the users collection.
type AccountRepository struct {
	col *mongo.Collection
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	PasswordHash     string             `bson:"password_hash"`
	Role             string             `bson:"role"`
	Permissions      []string           `bson:"permissions"`
	IsVerified       bool               `bson:"is_verified"`
	EmailToken       string             `bson:"email_token,omitempty"`
	LoginAttempts    int                `bson:"login_attempts"`
	LockUntil        *time.Time         `bson:"lock_until,omitempty"`
	LastLogin        *time.Time         `bson:"last_login,omitempty"`
	RefreshTokenHash string             `bson:"refresh_token_hash,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func toMongoUser(a *domain.Account) mongoUser {
	perms := make([]string, len(a.Permissions))
	for i, p := range a.Permissions {
		perms[i] = string(p)
	}
	return mongoUser{
		Name:             a.Name,
		Email:            a.Email,
		PasswordHash:     a.PasswordHash,
		Role:             string(a.Role),
		Permissions:      perms,
		IsVerified:       a.Verified,
		EmailToken:       a.VerificationToken,
		LoginAttempts:    a.Login.FailedAttempts,
		LockUntil:        a.Login.LockUntil,
		LastLogin:        a.LastLoginAt,
		RefreshTokenHash: a.RefreshTokenHash,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (mu *mongoUser) toDomain() *domain.Account {
	perms := make([]domain.Permission, len(mu.Permissions))
	for i, p := range mu.Permissions {
		perms[i] = domain.Permission(p)
	}
	return &domain.Account{
		ID:                mu.ID.Hex(),
		Name:              mu.Name,
		Email:             mu.Email,
		PasswordHash:      mu.PasswordHash,
		Role:              domain.Role(mu.Role),
		Permissions:       perms,
		Verified:          mu.IsVerified,
		VerificationToken: mu.EmailToken,
		Login:             domain.LoginState{FailedAttempts: mu.LoginAttempts, LockUntil: utcPtr(mu.LockUntil)},
		LastLoginAt:       utcPtr(mu.LastLogin),
		RefreshTokenHash:  mu.RefreshTokenHash,
		CreatedAt:         mu.CreatedAt.UTC(),
		UpdatedAt:         mu.UpdatedAt.UTC(),
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(account)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) FindByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"email_token": token})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// List returns every account, oldest first.
func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *AccountRepository) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"role": string(role)}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) MarkVerified(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"email_token": ""},
	})
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id string, role domain.Role, permissions []domain.Permission) error {
	perms := make([]string, len(permissions))
	for i, p := range permissions {
		perms[i] = string(p)
	}
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"role": string(role), "permissions": perms, "updated_at": time.Now().UTC()},
	})
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// CompareAndSetLoginState writes next only when the stored counter and lock
// still equal expected. A nil expected lock matches a missing field.
func (r *AccountRepository) CompareAndSetLoginState(ctx context.Context, id string, expected, next domain.LoginState) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrAccountNotFound
	}

	filter := bson.M{"_id": oid, "login_attempts": expected.FailedAttempts}
	if expected.LockUntil == nil {
		filter["lock_until"] = nil
	} else {
		filter["lock_until"] = expected.LockUntil.UTC()
	}

	set := bson.M{"login_attempts": next.FailedAttempts}
	update := bson.M{"$set": set}
	if next.LockUntil == nil {
		update["$unset"] = bson.M{"lock_until": ""}
	} else {
		set["lock_until"] = next.LockUntil.UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update login state: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *AccountRepository) RecordLogin(ctx context.Context, id string, at time.Time, refreshTokenHash string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"login_attempts":     0,
			"last_login":         at.UTC(),
			"refresh_token_hash": refreshTokenHash,
		},
		"$unset": bson.M{"lock_until": ""},
	})
}

func (r *AccountRepository) SetRefreshTokenHash(ctx context.Context, id string, hash string) error {
	if hash == "" {
		return r.updateByID(ctx, id, bson.M{"$unset": bson.M{"refresh_token_hash": ""}})
	}
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"refresh_token_hash": hash}})
}

func (r *AccountRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// EnsureIndexes creates the unique email index and the verification token lookup index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

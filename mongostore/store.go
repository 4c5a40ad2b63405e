// Package mongostore implements the account CredentialStore on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-accounts"
)

// DefaultCollection holds the account documents
const DefaultCollection = "accounts"

// Store is a CredentialStore backed by a mongo collection
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

var _ accounts.CredentialStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for bookkeeping timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to uri and returns a store over database. Close releases
// the connection.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to connect to mongo")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to ping mongo")
	}

	store, err := New(ctx, client.Database(database), opts...)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	store.client = client

	return store, nil
}

// New returns a store over the accounts collection of db and makes sure
// its unique indexes exist.
func New(ctx context.Context, db *mongo.Database, opts ...Option) (*Store, error) {
	s := &Store{
		coll: db.Collection(DefaultCollection),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// EnsureIndexes creates the unique email index and the unique token index.
// The token index only covers documents with a pending token.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("accounts_email_key").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "token", Value: 1}},
			Options: options.Index().
				SetName("accounts_token_key").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"token": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account indexes")
	}
	return nil
}

// Close disconnects the client opened by Open
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return s.findOne(ctx, bson.M{"email": accounts.NormalizeEmail(email)})
}

func (s *Store) FindByToken(ctx context.Context, token string) (*accounts.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, accounts.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"token": token})
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	if id == uuid.Nil {
		return nil, accounts.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *Store) Create(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	now := s.now().UTC()
	if account.CreatedAt == nil {
		account.CreatedAt = &now
	}
	if account.UpdatedAt == nil {
		account.UpdatedAt = &now
	}

	doc := toDocument(account)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, mapWriteError(err)
	}

	return fromDocument(doc)
}

func (s *Store) Save(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	return s.replace(ctx, account, nil)
}

// ConsumeToken replaces the document only while it still holds token.
func (s *Store) ConsumeToken(ctx context.Context, account *accounts.Account, token string) (*accounts.Account, error) {
	if token == "" {
		return nil, accounts.ErrRecordNotFound
	}
	return s.replace(ctx, account, bson.M{"token": token})
}

func (s *Store) replace(ctx context.Context, account *accounts.Account, guard bson.M) (*accounts.Account, error) {
	now := s.now().UTC()
	account.UpdatedAt = &now

	doc := toDocument(account)
	filter := bson.M{"_id": doc.ID}
	for k, v := range guard {
		filter[k] = v
	}

	res, err := s.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return nil, mapWriteError(err)
	}

	if res.MatchedCount == 0 {
		return nil, accounts.ErrRecordNotFound
	}

	return fromDocument(doc)
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, profile accounts.Profile) (*accounts.Account, error) {
	update := bson.M{"$set": bson.M{
		"name":       profile.Name,
		"email":      accounts.NormalizeEmail(profile.Email),
		"phone":      profile.Phone,
		"website":    profile.Website,
		"updated_at": s.now().UTC(),
	}}

	var doc accountDocument
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, accounts.ErrRecordNotFound
		}
		return nil, mapWriteError(err)
	}

	return fromDocument(&doc)
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*accounts.Account, error) {
	var doc accountDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, accounts.ErrRecordNotFound
		}
		return nil, err
	}
	return fromDocument(&doc)
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", accounts.ErrDuplicateRecord, err)
	}
	return err
}

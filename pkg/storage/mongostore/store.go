package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// DefaultCollection holds one document per storage key.
const DefaultCollection = "dashboard_state"

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// collection is the part of *mongo.Collection the store relies on.
type collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Options configures Connect.
type Options struct {
	URI        string
	Database   string
	Collection string
	Logger     *zerolog.Logger
}

// Store persists builder state blobs in MongoDB, keyed by storage key.
type Store struct {
	client *mongo.Client
	coll   collection
	logger zerolog.Logger
	now    func() time.Time
}

var _ builder.Store = (*Store)(nil)

type document struct {
	Key       string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Connect dials MongoDB, pings the primary and returns a store bound to the
// configured collection.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, errors.New("mongostore: uri is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongostore: database is required")
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	store := newStore(client.Database(opts.Database).Collection(opts.Collection), opts.Logger)
	store.client = client
	store.logger.Info().Str("database", opts.Database).Str("collection", opts.Collection).Msg("connected to MongoDB")
	return store, nil
}

func newStore(coll collection, logger *zerolog.Logger) *Store {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Store{coll: coll, logger: l, now: time.Now}
}

// Get returns the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongostore: get %s: %w", key, err)
	}
	return []byte(doc.Data), true, nil
}

// Set upserts the blob under key.
func (s *Store) Set(ctx context.Context, key string, data []byte) error {
	update := bson.M{"$set": bson.M{"data": string(data), "updated_at": s.now().UTC()}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongostore: delete %s: %w", key, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Error().Err(err).Msg("mongo disconnect failed")
		return err
	}
	return nil
}

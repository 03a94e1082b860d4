package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

type fakeCollection struct {
	docs    map[string]document
	upserts int
	err     error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: map[string]document{}}
}

func (f *fakeCollection) FindOne(_ context.Context, filter any, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if f.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.err, nil)
	}
	key := filter.(bson.M)["_id"].(string)
	doc, ok := f.docs[key]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(opts) == 0 || opts[0].Upsert == nil || !*opts[0].Upsert {
		return nil, errors.New("expected upsert")
	}
	key := filter.(bson.M)["_id"].(string)
	set := update.(bson.M)["$set"].(bson.M)
	f.docs[key] = document{Key: key, Data: set["data"].(string), UpdatedAt: set["updated_at"].(time.Time)}
	f.upserts++
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

func (f *fakeCollection) DeleteOne(_ context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := filter.(bson.M)["_id"].(string)
	_, ok := f.docs[key]
	delete(f.docs, key)
	if !ok {
		return &mongo.DeleteResult{}, nil
	}
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	coll := newFakeCollection()
	store := newStore(coll, nil)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "dashboardBuilder"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "dashboardBuilder", []byte(`{"panels":[]}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, ok, err := store.Get(ctx, "dashboardBuilder")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(data) != `{"panels":[]}` {
		t.Fatalf("unexpected blob %s", data)
	}
	if !coll.docs["dashboardBuilder"].UpdatedAt.Equal(fixed) {
		t.Fatalf("expected updated_at to be stamped")
	}

	if err := store.Delete(ctx, "dashboardBuilder"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "dashboardBuilder"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "dashboardBuilder"); ok {
		t.Fatalf("expected key to be gone")
	}
}

func TestStoreWrapsDriverErrors(t *testing.T) {
	coll := newFakeCollection()
	coll.err = errors.New("connection reset")
	store := newStore(coll, nil)
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "k"); err == nil || !errors.Is(err, coll.err) {
		t.Fatalf("expected wrapped get error, got %v", err)
	}
	if err := store.Set(ctx, "k", []byte("{}")); !errors.Is(err, coll.err) {
		t.Fatalf("expected wrapped set error, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, coll.err) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
}

func TestBuilderPersistsThroughStore(t *testing.T) {
	store := newStore(newFakeCollection(), nil)
	ctx := context.Background()
	b := builder.NewBuilder(builder.Options{Store: store})
	if _, err := b.AddPanel(ctx, builder.PanelConfig{ColSpan: 6}); err != nil {
		t.Fatalf("add panel: %v", err)
	}

	restored := builder.NewBuilder(builder.Options{Store: store})
	if ok, err := restored.Load(ctx); err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	panels := restored.Panels()
	if len(panels) != 1 || panels[0].ColSpan != 6 {
		t.Fatalf("unexpected restored panels %+v", panels)
	}
}

func TestConnectValidatesOptions(t *testing.T) {
	if _, err := Connect(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error for missing uri")
	}
	if _, err := Connect(context.Background(), Options{URI: "mongodb://localhost"}); err == nil {
		t.Fatalf("expected error for missing database")
	}
}

func TestConnectIntegration(t *testing.T) {
	uri := os.Getenv("ASKDATA_MONGO_URI")
	if uri == "" {
		t.Skip("ASKDATA_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, Options{URI: uri, Database: "askdata_test"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close(ctx)

	key := "integration:" + time.Now().Format("150405.000")
	if err := store.Set(ctx, key, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	defer store.Delete(ctx, key)
	if data, ok, err := store.Get(ctx, key); err != nil || !ok || string(data) != `{"ok":true}` {
		t.Fatalf("get: %s ok=%v err=%v", data, ok, err)
	}
}

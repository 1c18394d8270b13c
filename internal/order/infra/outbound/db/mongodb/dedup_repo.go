package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// DedupRepoMongoDB implementa domain.DedupStore sobre una colección con índice TTL.
// El índice borra los documentos vencidos con cierto retraso, así que Find
// todavía puede devolverlos durante un rato.
type DedupRepoMongoDB struct {
	coll *mongo.Collection
}

func NewDedupRepoMongoDB(client *mongo.Client, dbName, collection string) *DedupRepoMongoDB {
	return &DedupRepoMongoDB{coll: client.Database(dbName).Collection(collection)}
}

// mongoDedupRecord es la forma persistida más expiresAt como fecha BSON para el índice TTL.
type mongoDedupRecord struct {
	domain.DedupItem `bson:",inline"`
	ExpiresAt        time.Time `bson:"expiresAt"`
}

func toMongo(rec domain.DedupRecord) mongoDedupRecord {
	return mongoDedupRecord{DedupItem: rec.Item(), ExpiresAt: rec.ExpiresAt}
}

// EnsureIndexes crea el índice TTL sobre expiresAt.
func (r *DedupRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create dedup ttl index: %w", err)
	}
	return nil
}

func (r *DedupRepoMongoDB) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	var doc mongoDedupRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.DedupRecord{}, false, nil
		}
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	rec, err := doc.Record()
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return rec, true, nil
}

func (r *DedupRepoMongoDB) Put(ctx context.Context, rec domain.DedupRecord) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": rec.OrderID},
		toMongo(rec),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// PutIfAbsent hace upsert sólo sobre un documento vencido. Si existe uno vigente
// el filtro no casa, el upsert choca con el _id y se devuelve false.
func (r *DedupRepoMongoDB) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	filter := bson.M{
		"_id":       rec.OrderID,
		"expiresAt": bson.M{"$lte": rec.ProcessedAt},
	}
	_, err := r.coll.ReplaceOne(ctx, filter, toMongo(rec), options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return true, nil
}

var _ domain.DedupStore = (*DedupRepoMongoDB)(nil)

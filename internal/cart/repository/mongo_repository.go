package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "cart_lines"

	// mongo server code for a write conflict between concurrent operations
	codeWriteConflict = 112

	// abandonedLineTTL is how long a line may go untouched before mongo
	// expires it.
	abandonedLineTTL = 90 * 24 * time.Hour
)

type lineDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID   string             `bson:"owner_id"`
	ProductID int64              `bson:"product_id"`
	Quantity  int                `bson:"quantity"`
	Revision  int64              `bson:"revision"`
	AddedAt   time.Time          `bson:"added_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d lineDocument) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		Revision:  d.Revision,
		AddedAt:   d.AddedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection(collectionName),
	}
}

func (m *mongoRepository) AddQuantity(ctx context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error) {
	line, err := m.incrementLine(ctx, ownerID, productID, quantity)
	// Two first-time adds for the same pair can both try to insert; the loser
	// hits the unique index and now finds the line to increment.
	if mongo.IsDuplicateKeyError(err) {
		line, err = m.incrementLine(ctx, ownerID, productID, quantity)
	}
	if err != nil {
		return domain.CartLine{}, translateError("add item", err)
	}
	return line, nil
}

func (m *mongoRepository) incrementLine(ctx context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error) {
	now := time.Now().UTC()
	filter := bson.M{"owner_id": ownerID, "product_id": productID}
	update := bson.M{
		"$inc":         bson.M{"quantity": quantity, "revision": 1},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"added_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc lineDocument
	if err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return domain.CartLine{}, err
	}
	return doc.toDomain(), nil
}

func (m *mongoRepository) SetQuantity(ctx context.Context, ownerID, lineID string, quantity int) (domain.CartLine, error) {
	id, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return domain.CartLine{}, ErrLineNotFound
	}

	filter := bson.M{"_id": id, "owner_id": ownerID}
	update := bson.M{
		"$set": bson.M{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"revision": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc lineDocument
	err = m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.CartLine{}, ErrLineNotFound
	}
	if err != nil {
		return domain.CartLine{}, translateError("update item quantity", err)
	}
	return doc.toDomain(), nil
}

func (m *mongoRepository) RemoveLine(ctx context.Context, ownerID, lineID string) error {
	id, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return ErrLineNotFound
	}

	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return translateError("remove item", err)
	}
	if result.DeletedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *mongoRepository) ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, translateError("list cart", err)
	}
	defer cursor.Close(ctx)

	var docs []lineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, d.toDomain())
	}
	return lines, nil
}

func (m *mongoRepository) DeleteLines(ctx context.Context, ownerID string) (int64, error) {
	result, err := m.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, translateError("clear cart", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoRepository) DeleteLineRevisions(ctx context.Context, ownerID string, refs []domain.LineRef) (int64, error) {
	match := make(bson.A, 0, len(refs))
	for _, ref := range refs {
		id, err := primitive.ObjectIDFromHex(ref.LineID)
		if err != nil {
			continue
		}
		match = append(match, bson.M{"_id": id, "revision": ref.Revision})
	}
	if len(match) == 0 {
		return 0, nil
	}

	result, err := m.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID, "$or": match})
	if err != nil {
		return 0, translateError("clear consumed lines", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(abandonedLineTTL / time.Second)),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// EnsureIndexes creates the indexes the repository relies on, including the
// unique (owner, product) index that backs the one-line-per-pair rule.
func EnsureIndexes(ctx context.Context, repo CartRepository) error {
	m, ok := repo.(*mongoRepository)
	if !ok {
		return nil
	}
	return m.CreateIndexes(ctx)
}

func translateError(op string, err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeWriteConflict) || se.HasErrorLabel("TransientTransactionError")) {
		return fmt.Errorf("failed to %s: %w: %v", op, domain.ErrPersistenceConflict, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to %s: %w: %v", op, domain.ErrPersistenceConflict, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentdetail/internal/domain/listings"
)

const DefaultListingsCollection = "rent_listings"

var errPriceMissing = errors.New("price is missing")

// ListingRepository reads the listing collection from MongoDB.
type ListingRepository struct {
	col    *mongo.Collection
	logger *slog.Logger
}

func NewListingRepository(db *mongo.Database, collection string, logger *slog.Logger) *ListingRepository {
	if strings.TrimSpace(collection) == "" {
		collection = DefaultListingsCollection
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ListingRepository{col: db.Collection(collection), logger: logger}
}

// All loads every listing ordered by id. Documents that fail validation are skipped.
func (r *ListingRepository) All(ctx context.Context) ([]listings.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find listings: %w", err)
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode listings: %w", err)
	}
	out := make([]listings.Listing, 0, len(docs))
	for _, doc := range docs {
		listing, err := doc.toListing()
		if err != nil {
			r.logger.Warn("listing document skipped", "listing_id", doc.ID, "error", err)
			continue
		}
		out = append(out, listing)
	}
	return out, nil
}

// Save upserts a listing by id.
func (r *ListingRepository) Save(ctx context.Context, listing listings.Listing) error {
	doc, err := newWriteDocument(listing)
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save listing %s: %w", listing.ID, err)
	}
	return nil
}

type listingDocument struct {
	ID          string        `bson:"_id"`
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	Region      string        `bson:"region"`
	City        string        `bson:"city"`
	Address     string        `bson:"address"`
	Phone       string        `bson:"phone"`
	Email       string        `bson:"email"`
	Price       bson.RawValue `bson:"price"`
	Commission  bson.RawValue `bson:"commission"`
	Image       string        `bson:"image"`
}

// writeDocument is the shape Save persists; amounts are stored as Decimal128.
type writeDocument struct {
	ID          string                `bson:"_id"`
	Title       string                `bson:"title"`
	Description string                `bson:"description,omitempty"`
	Region      string                `bson:"region,omitempty"`
	City        string                `bson:"city,omitempty"`
	Address     string                `bson:"address,omitempty"`
	Phone       string                `bson:"phone,omitempty"`
	Email       string                `bson:"email,omitempty"`
	Price       primitive.Decimal128  `bson:"price"`
	Commission  *primitive.Decimal128 `bson:"commission,omitempty"`
	Image       string                `bson:"image,omitempty"`
}

func newWriteDocument(l listings.Listing) (writeDocument, error) {
	price, err := primitive.ParseDecimal128(l.Price.String())
	if err != nil {
		return writeDocument{}, fmt.Errorf("mongo: price of %s: %w", l.ID, err)
	}
	doc := writeDocument{
		ID:          string(l.ID),
		Title:       l.Title,
		Description: l.Description,
		Region:      l.Region,
		City:        l.City,
		Address:     l.Address,
		Phone:       l.Phone,
		Email:       l.Email,
		Price:       price,
		Image:       l.Image,
	}
	if l.Commission.Valid {
		commission, err := primitive.ParseDecimal128(l.Commission.Decimal.String())
		if err != nil {
			return writeDocument{}, fmt.Errorf("mongo: commission of %s: %w", l.ID, err)
		}
		doc.Commission = &commission
	}
	return doc, nil
}

func (d listingDocument) toListing() (listings.Listing, error) {
	price, ok, err := decimalFromRaw(d.Price)
	if err != nil {
		return listings.Listing{}, fmt.Errorf("price: %w", err)
	}
	if !ok {
		return listings.Listing{}, errPriceMissing
	}
	commission, hasCommission, err := decimalFromRaw(d.Commission)
	if err != nil {
		return listings.Listing{}, fmt.Errorf("commission: %w", err)
	}
	params := listings.CreateListingParams{
		ID:          listings.ListingID(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Region:      d.Region,
		City:        d.City,
		Address:     d.Address,
		Phone:       d.Phone,
		Email:       d.Email,
		Price:       price,
		Image:       d.Image,
	}
	if hasCommission {
		params.Commission = decimal.NewNullDecimal(commission)
	}
	return listings.NewListing(params)
}

// decimalFromRaw accepts the numeric encodings older writers used. Missing or null means absent.
func decimalFromRaw(v bson.RawValue) (decimal.Decimal, bool, error) {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return decimal.Decimal{}, false, nil
	case bsontype.Double:
		return decimal.NewFromFloat(v.Double()), true, nil
	case bsontype.Int32:
		return decimal.NewFromInt32(v.Int32()), true, nil
	case bsontype.Int64:
		return decimal.NewFromInt(v.Int64()), true, nil
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(v.Decimal128().String())
		return d, err == nil, err
	case bsontype.String:
		d, err := decimal.NewFromString(strings.TrimSpace(v.StringValue()))
		return d, err == nil, err
	default:
		return decimal.Decimal{}, false, fmt.Errorf("unsupported bson type %s", v.Type)
	}
}

var _ listings.Source = (*ListingRepository)(nil)

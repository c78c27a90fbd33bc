// Package feed decodes listing collections published as JSON arrays.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"rentdetail/internal/domain/listings"
)

var (
	ErrMalformed    = errors.New("feed: malformed listing payload")
	ErrPriceMissing = errors.New("feed: price is required")
)

// Record is the published shape of one listing.
// Older publishers spell the commission field "comission"; both are read.
type Record struct {
	ID               string              `json:"id" validate:"required,max=128"`
	Title            string              `json:"title" validate:"required,max=512"`
	Description      string              `json:"description" validate:"max=20000"`
	Region           string              `json:"region" validate:"max=256"`
	City             string              `json:"city" validate:"max=256"`
	Address          string              `json:"address" validate:"max=512"`
	Phone            string              `json:"phone" validate:"max=64"`
	Email            string              `json:"email" validate:"max=320"`
	Price            decimal.NullDecimal `json:"price"`
	Commission       decimal.NullDecimal `json:"commission"`
	LegacyCommission decimal.NullDecimal `json:"comission"`
	Image            string              `json:"image" validate:"max=2048"`
}

func (r Record) Listing() (listings.Listing, error) {
	if !r.Price.Valid {
		return listings.Listing{}, ErrPriceMissing
	}
	commission := r.Commission
	if !commission.Valid {
		commission = r.LegacyCommission
	}
	return listings.NewListing(listings.CreateListingParams{
		ID:          listings.ListingID(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Region:      r.Region,
		City:        r.City,
		Address:     r.Address,
		Phone:       r.Phone,
		Email:       r.Email,
		Price:       r.Price.Decimal,
		Commission:  commission,
		Image:       r.Image,
	})
}

// Decoder validates records and enforces id uniqueness within one payload.
type Decoder struct {
	validate *validator.Validate
	logger   *slog.Logger
}

func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{validate: validator.New(validator.WithRequiredStructEnabled()), logger: logger}
}

// Decode reads a JSON array of records. Invalid records and repeated ids are skipped and logged;
// only a payload that is not a JSON array fails.
func (d *Decoder) Decode(r io.Reader) ([]listings.Listing, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return d.Convert(records), nil
}

func (d *Decoder) Convert(records []Record) []listings.Listing {
	out := make([]listings.Listing, 0, len(records))
	seen := make(map[listings.ListingID]struct{}, len(records))
	for i, rec := range records {
		if err := d.validate.Struct(rec); err != nil {
			d.logger.Warn("listing record invalid, skipped", "index", i, "listing_id", rec.ID, "error", err)
			continue
		}
		listing, err := rec.Listing()
		if err != nil {
			d.logger.Warn("listing record rejected, skipped", "index", i, "listing_id", rec.ID, "error", err)
			continue
		}
		if _, dup := seen[listing.ID]; dup {
			d.logger.Warn("duplicate listing id, keeping first", "index", i, "listing_id", listing.ID)
			continue
		}
		seen[listing.ID] = struct{}{}
		out = append(out, listing)
	}
	return out
}

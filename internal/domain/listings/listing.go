package listings

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("listings: property not found")
	ErrIDRequired    = errors.New("listings: id is required")
	ErrTitleRequired = errors.New("listings: title is required")
	ErrNegativePrice = errors.New("listings: price must be non-negative")
	ErrCommission    = errors.New("listings: commission must be non-negative")
)

type ListingID string

// Listing is a rental property record. Listings are read-only snapshots once built.
type Listing struct {
	ID          ListingID
	Title       string
	Description string
	Region      string
	City        string
	Address     string
	Phone       string
	Email       string
	Price       decimal.Decimal
	Commission  decimal.NullDecimal
	Image       string
}

// HasImage reports whether the listing carries a displayable picture.
func (l Listing) HasImage() bool {
	return strings.TrimSpace(l.Image) != ""
}

// HasCommission reports whether a commission amount was supplied.
func (l Listing) HasCommission() bool {
	return l.Commission.Valid
}

// Source provides the full listing collection.
type Source interface {
	All(ctx context.Context) ([]Listing, error)
}

type CreateListingParams struct {
	ID          ListingID
	Title       string
	Description string
	Region      string
	City        string
	Address     string
	Phone       string
	Email       string
	Price       decimal.Decimal
	Commission  decimal.NullDecimal
	Image       string
}

func NewListing(params CreateListingParams) (Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return Listing{}, ErrIDRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return Listing{}, fmt.Errorf("%w (id %s)", ErrTitleRequired, params.ID)
	}
	if params.Price.IsNegative() {
		return Listing{}, fmt.Errorf("%w (id %s)", ErrNegativePrice, params.ID)
	}
	if params.Commission.Valid && params.Commission.Decimal.IsNegative() {
		return Listing{}, fmt.Errorf("%w (id %s)", ErrCommission, params.ID)
	}
	return Listing{
		ID:          params.ID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Region:      params.Region,
		City:        params.City,
		Address:     params.Address,
		Phone:       strings.TrimSpace(params.Phone),
		Email:       strings.TrimSpace(params.Email),
		Price:       params.Price,
		Commission:  params.Commission,
		Image:       strings.TrimSpace(params.Image),
	}, nil
}

// Find scans all for the first listing whose id equals id.
// An empty id never touches the sequence.
func Find(all iter.Seq[Listing], id ListingID) (Listing, error) {
	if id == "" {
		return Listing{}, ErrNotFound
	}
	if all == nil {
		return Listing{}, ErrNotFound
	}
	for listing := range all {
		if listing.ID == id {
			return listing, nil
		}
	}
	return Listing{}, ErrNotFound
}

// FindIn is Find over a slice snapshot.
func FindIn(collection []Listing, id ListingID) (Listing, error) {
	return Find(slices.Values(collection), id)
}

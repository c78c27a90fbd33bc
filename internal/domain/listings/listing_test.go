package listings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Listing {
	return []Listing{
		{ID: "1", Title: "Loft", Price: decimal.NewFromInt(900), Region: "North", City: "X", Address: "1 Main", Phone: "555", Email: "a@b.c"},
		{ID: "2", Title: "Cabin", Price: decimal.NewFromInt(450), Commission: decimal.NewNullDecimal(decimal.NewFromInt(50))},
		{ID: "3", Title: "Studio", Price: decimal.NewFromInt(700), Image: "https://img.example/3.jpg"},
	}
}

func TestFindIn(t *testing.T) {
	tests := []struct {
		name       string
		collection []Listing
		id         ListingID
		wantTitle  string
		wantErr    error
	}{
		{name: "first", collection: sample(), id: "1", wantTitle: "Loft"},
		{name: "last", collection: sample(), id: "3", wantTitle: "Studio"},
		{name: "unknown id", collection: sample(), id: "9", wantErr: ErrNotFound},
		{name: "empty collection", collection: nil, id: "1", wantErr: ErrNotFound},
		{name: "missing id", collection: sample(), id: "", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindIn(tt.collection, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Listing{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, got.ID)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestFindMissingIDDoesNotScan(t *testing.T) {
	scanned := false
	seq := func(yield func(Listing) bool) {
		scanned = true
		for _, l := range sample() {
			if !yield(l) {
				return
			}
		}
	}

	_, err := Find(seq, "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, scanned)
}

func TestFindStopsAtFirstMatch(t *testing.T) {
	visited := 0
	seq := func(yield func(Listing) bool) {
		for _, l := range sample() {
			visited++
			if !yield(l) {
				return
			}
		}
	}

	got, err := Find(seq, "2")
	require.NoError(t, err)
	assert.Equal(t, "Cabin", got.Title)
	assert.Equal(t, 2, visited)
}

func TestNewListing(t *testing.T) {
	l, err := NewListing(CreateListingParams{
		ID:    "7",
		Title: "  Loft ",
		Price: decimal.NewFromInt(900),
		Image: " ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Loft", l.Title)
	assert.False(t, l.HasImage())
	assert.False(t, l.HasCommission())

	_, err = NewListing(CreateListingParams{Title: "x"})
	require.ErrorIs(t, err, ErrIDRequired)

	_, err = NewListing(CreateListingParams{ID: "1"})
	require.ErrorIs(t, err, ErrTitleRequired)

	_, err = NewListing(CreateListingParams{ID: "1", Title: "x", Price: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrNegativePrice)

	_, err = NewListing(CreateListingParams{
		ID: "1", Title: "x",
		Commission: decimal.NewNullDecimal(decimal.NewFromInt(-5)),
	})
	require.ErrorIs(t, err, ErrCommission)
}

func TestChangedEventKnown(t *testing.T) {
	assert.True(t, ChangedEvent{Name: EventListingUpdated}.Known())
	assert.False(t, ChangedEvent{Name: "booking.created"}.Known())
	assert.Equal(t, "5", ChangedEvent{Name: EventListingRemoved, ListingID: "5"}.AggregateID())
}

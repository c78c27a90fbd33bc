package dto

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	domainlistings "rentdetail/internal/domain/listings"
)

// ListingDetail is the presentation snapshot of one listing.
type ListingDetail struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Address     string  `json:"address"`
	Price       string  `json:"price"`
	PriceLabel  string  `json:"price_label"`
	Commission  *string `json:"commission,omitempty"`
	// CommissionLabel is empty when the listing has no commission.
	CommissionLabel string      `json:"commission_label,omitempty"`
	Image           *ImageBlock `json:"image,omitempty"`
	Contact         Contact     `json:"contact"`
}

type ImageBlock struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type Contact struct {
	Phone     string `json:"phone"`
	PhoneHref string `json:"phone_href"`
	Email     string `json:"email"`
	EmailHref string `json:"email_href"`
}

// ImageURLFunc maps a stored image reference to a loadable URL.
type ImageURLFunc func(ref string) string

// MapListingDetail builds the detail DTO. imageURL may be nil.
func MapListingDetail(listing domainlistings.Listing, imageURL ImageURLFunc) ListingDetail {
	out := ListingDetail{
		ID:          string(listing.ID),
		Title:       listing.Title,
		Description: listing.Description,
		Region:      listing.Region,
		City:        listing.City,
		Address:     listing.Address,
		Price:       listing.Price.String(),
		PriceLabel:  FormatMonthlyPrice(listing.Price),
		Contact: Contact{
			Phone:     listing.Phone,
			PhoneHref: TelHref(listing.Phone),
			Email:     listing.Email,
			EmailHref: MailtoHref(listing.Email),
		},
	}
	if listing.HasCommission() {
		amount := listing.Commission.Decimal.String()
		out.Commission = &amount
		out.CommissionLabel = FormatAmount(listing.Commission.Decimal)
	}
	if listing.HasImage() {
		src := listing.Image
		if imageURL != nil {
			src = imageURL(listing.Image)
		}
		out.Image = &ImageBlock{URL: src, Alt: "House"}
	}
	return out
}

// FormatAmount renders "50 $".
func FormatAmount(d decimal.Decimal) string {
	return d.String() + " $"
}

// FormatMonthlyPrice renders "900 $ / month".
func FormatMonthlyPrice(d decimal.Decimal) string {
	return FormatAmount(d) + " / month"
}

// TelHref keeps digits and a leading plus so dialers accept formatted numbers.
func TelHref(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "tel:" + b.String()
}

func MailtoHref(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	return (&url.URL{Scheme: "mailto", Opaque: email}).String()
}

package dto

import (
	"time"

	"venuehire/internal/app/middleware"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
)

// ListingAddress represents the public location snapshot.
type ListingAddress struct {
	Line1   string `json:"line1"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type CancellationTerms struct {
	FreeHoursBefore int `json:"free_hours_before"`
	PenaltyPercent  int `json:"penalty_percent"`
}

// ListingView is the full listing as guests and hosts see it.
type ListingView struct {
	ID           string               `json:"id"`
	HostID       string               `json:"host_id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	VenueType    string               `json:"venue_type"`
	Address      ListingAddress       `json:"address"`
	Amenities    []string             `json:"amenities"`
	Capacity     int                  `json:"capacity"`
	Pricing      domainpricing.Config `json:"pricing"`
	Cancellation CancellationTerms    `json:"cancellation"`
	State        string               `json:"state"`
	Version      int64                `json:"version"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ListingCard is the compact catalog entry.
type ListingCard struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	VenueType  string         `json:"venue_type"`
	Address    ListingAddress `json:"address"`
	Capacity   int            `json:"capacity"`
	HourlyRate MoneyDTO       `json:"hourly_rate"`
	MinHours   int            `json:"min_hours"`
	MaxHours   int            `json:"max_hours"`
	OnSale     bool           `json:"on_sale"`
	State      string         `json:"state"`
}

type ListingCatalog struct {
	Items  []ListingCard `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListingResult is returned by host listing commands.
type ListingResult struct {
	ListingID string `json:"listing_id"`
	State     string `json:"state"`
	Version   int64  `json:"version"`
}

func (r *ListingResult) InvalidatedScopes() []string {
	return []string{middleware.ListingScope(r.ListingID)}
}

func MapListingView(l *domainlistings.Listing) ListingView {
	if l == nil {
		return ListingView{}
	}
	return ListingView{
		ID:          string(l.ID),
		HostID:      string(l.Host),
		Title:       l.Title,
		Description: l.Description,
		VenueType:   l.VenueType,
		Address:     mapAddress(l.Address),
		Amenities:   append([]string{}, l.Amenities...),
		Capacity:    l.Capacity,
		Pricing:     l.Pricing.Copy(),
		Cancellation: CancellationTerms{
			FreeHoursBefore: l.Cancellation.FreeHoursBefore,
			PenaltyPercent:  l.Cancellation.PenaltyPercent,
		},
		State:     string(l.State),
		Version:   l.Version,
		UpdatedAt: l.UpdatedAt,
	}
}

// MapListingCard builds a catalog card; OnSale is evaluated at now.
func MapListingCard(l *domainlistings.Listing, now time.Time) ListingCard {
	return ListingCard{
		ID:         string(l.ID),
		Title:      l.Title,
		VenueType:  l.VenueType,
		Address:    mapAddress(l.Address),
		Capacity:   l.Capacity,
		HourlyRate: MapMoney(l.Pricing.HourlyRate),
		MinHours:   l.Pricing.MinHours,
		MaxHours:   l.Pricing.MaxHours,
		OnSale:     l.Pricing.Sale.ActiveAt(now),
		State:      string(l.State),
	}
}

func MapListingResult(l *domainlistings.Listing) *ListingResult {
	return &ListingResult{ListingID: string(l.ID), State: string(l.State), Version: l.Version}
}

func mapAddress(a domainlistings.Address) ListingAddress {
	return ListingAddress{Line1: a.Line1, City: a.City, Country: a.Country}
}

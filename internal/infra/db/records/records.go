// Package records holds the persisted shape of listings and bookings shared by
// the postgres (jsonb) and mongo (bson) backends.
package records

import (
	"time"

	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/timeofday"
)

type Listing struct {
	ID           string                           `json:"id" bson:"_id"`
	Host         string                           `json:"host_id" bson:"host_id"`
	Title        string                           `json:"title" bson:"title"`
	Description  string                           `json:"description" bson:"description"`
	VenueType    string                           `json:"venue_type" bson:"venue_type"`
	Address      domainlistings.Address           `json:"address" bson:"address"`
	Amenities    []string                         `json:"amenities" bson:"amenities"`
	Capacity     int                              `json:"capacity" bson:"capacity"`
	Pricing      domainpricing.Config             `json:"pricing" bson:"pricing"`
	Cancellation domainlistings.CancellationTerms `json:"cancellation" bson:"cancellation"`
	State        string                           `json:"state" bson:"state"`
	Version      int64                            `json:"version" bson:"version"`
	CreatedAt    time.Time                        `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at" bson:"updated_at"`
}

func FromListing(l *domainlistings.Listing) Listing {
	return Listing{
		ID:           string(l.ID),
		Host:         string(l.Host),
		Title:        l.Title,
		Description:  l.Description,
		VenueType:    l.VenueType,
		Address:      l.Address,
		Amenities:    append([]string(nil), l.Amenities...),
		Capacity:     l.Capacity,
		Pricing:      l.Pricing.Copy(),
		Cancellation: l.Cancellation,
		State:        string(l.State),
		Version:      l.Version,
		CreatedAt:    l.CreatedAt.UTC(),
		UpdatedAt:    l.UpdatedAt.UTC(),
	}
}

func (r Listing) ToListing() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:           domainlistings.ListingID(r.ID),
		Host:         domainlistings.HostID(r.Host),
		Title:        r.Title,
		Description:  r.Description,
		VenueType:    r.VenueType,
		Address:      r.Address,
		Amenities:    append([]string(nil), r.Amenities...),
		Capacity:     r.Capacity,
		Pricing:      r.Pricing.Copy(),
		Cancellation: r.Cancellation,
		State:        domainlistings.ListingState(r.State),
		Version:      r.Version,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// Booking stores the date as YYYY-MM-DD and the window as seconds since
// midnight so both backends can index and compare them without time zones.
type Booking struct {
	ID        string                                   `json:"id" bson:"_id"`
	ListingID string                                   `json:"listing_id" bson:"listing_id"`
	HostID    string                                   `json:"host_id" bson:"host_id"`
	GuestID   string                                   `json:"guest_id" bson:"guest_id"`
	Date      string                                   `json:"date" bson:"date"`
	StartSec  int                                      `json:"start_sec" bson:"start_sec"`
	EndSec    int                                      `json:"end_sec" bson:"end_sec"`
	Guests    int                                      `json:"guests" bson:"guests"`
	Price     domainpricing.PriceBreakdown             `json:"price" bson:"price"`
	State     string                                   `json:"state" bson:"state"`
	Policy    domainbooking.CancellationPolicySnapshot `json:"policy" bson:"policy"`
	CreatedAt time.Time                                `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time                                `json:"updated_at" bson:"updated_at"`
	Version   int64                                    `json:"version" bson:"version"`
}

func FromBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		HostID:    string(b.HostID),
		GuestID:   b.GuestID,
		Date:      timeofday.FormatDate(b.Date),
		StartSec:  int(b.Window.Start),
		EndSec:    int(b.Window.End),
		Guests:    b.Guests,
		Price:     b.Price.Copy(),
		State:     string(b.State),
		Policy:    b.Policy,
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
		Version:   b.Version,
	}
}

func (r Booking) ToBooking() (*domainbooking.Booking, error) {
	date, err := timeofday.ParseDate(r.Date)
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(r.ID),
		ListingID: domainlistings.ListingID(r.ListingID),
		HostID:    domainlistings.HostID(r.HostID),
		GuestID:   r.GuestID,
		Date:      date,
		Window:    timeofday.Window{Start: timeofday.Clock(r.StartSec), End: timeofday.Clock(r.EndSec)},
		Guests:    r.Guests,
		Price:     r.Price.Copy(),
		State:     domainbooking.BookingState(r.State),
		Policy:    r.Policy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Version:   r.Version,
	}, nil
}

package dto

import (
	"time"

	"venuehire/internal/app/middleware"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/money"
	"venuehire/internal/domain/shared/timeofday"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type WindowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type BookingListingSnapshot struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type BookingSummary struct {
	ID        string                       `json:"id"`
	Listing   BookingListingSnapshot       `json:"listing"`
	GuestID   string                       `json:"guest_id,omitempty"`
	Date      string                       `json:"date"`
	Window    WindowDTO                    `json:"window"`
	Guests    int                          `json:"guests"`
	Status    string                       `json:"status"`
	Total     MoneyDTO                     `json:"total"`
	Price     domainpricing.PriceBreakdown `json:"price"`
	CreatedAt time.Time                    `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

// BookingResult is returned by booking state changes.
type BookingResult struct {
	BookingID string                        `json:"booking_id"`
	ListingID string                        `json:"listing_id"`
	Status    string                        `json:"status"`
	Price     *domainpricing.PriceBreakdown `json:"price,omitempty"`
	Refund    *MoneyDTO                     `json:"refund,omitempty"`
	Penalty   *MoneyDTO                     `json:"penalty,omitempty"`
}

// InvalidatedScopes drops cached quotes and schedules of the booked listing.
func (r *BookingResult) InvalidatedScopes() []string {
	return []string{middleware.ListingScope(r.ListingID)}
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

func MapWindow(w timeofday.Window) WindowDTO {
	return WindowDTO{Start: w.Start.String(), End: w.End.String()}
}

// MapBookingSummary projects a booking; guest ids are only shown to hosts.
func MapBookingSummary(booking *domainbooking.Booking, listing *domainlistings.Listing, showGuest bool) BookingSummary {
	snapshot := BookingListingSnapshot{ID: string(booking.ListingID)}
	if listing != nil {
		snapshot.Title = listing.Title
		snapshot.City = listing.Address.City
		snapshot.Country = listing.Address.Country
	}
	summary := BookingSummary{
		ID:        string(booking.ID),
		Listing:   snapshot,
		Date:      timeofday.FormatDate(booking.Date),
		Window:    MapWindow(booking.Window),
		Guests:    booking.Guests,
		Status:    string(booking.State),
		Total:     MapMoney(booking.Price.TotalPrice),
		Price:     booking.Price,
		CreatedAt: booking.CreatedAt,
	}
	if showGuest {
		summary.GuestID = booking.GuestID
	}
	return summary
}

func MapBookingResult(booking *domainbooking.Booking) *BookingResult {
	price := booking.Price.Copy()
	return &BookingResult{
		BookingID: string(booking.ID),
		ListingID: string(booking.ListingID),
		Status:    string(booking.State),
		Price:     &price,
	}
}

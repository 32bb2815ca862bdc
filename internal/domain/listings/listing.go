package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/events"
)

var (
	ErrNotFound             = errors.New("listings: not found")
	ErrCapacity             = errors.New("listings: capacity must be at least 1")
	ErrInvalidState         = errors.New("listings: invalid state transition")
	ErrAddressRequired      = errors.New("listings: address must be provided when activating")
	ErrTitleRequired        = errors.New("listings: title is required")
	ErrCancellationTerms    = errors.New("listings: cancellation penalty must be within 0-100 and notice non-negative")
	ErrNotBookable          = errors.New("listings: listing is not accepting bookings")
	ErrConcurrentUpdate     = errors.New("listings: listing was modified concurrently")
	ErrIncludedOverCapacity = errors.New("listings: included guests exceed capacity")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingDraft     ListingState = "DRAFT"
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

type Address struct {
	Line1   string `json:"line1" bson:"line1"`
	City    string `json:"city" bson:"city"`
	Country string `json:"country" bson:"country"`
}

func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.Country) != ""
}

// CancellationTerms are the host's rules, snapshotted onto every booking.
// Cancelling at least FreeHoursBefore the start is free; later, PenaltyPercent
// of the total is retained.
type CancellationTerms struct {
	FreeHoursBefore int `json:"free_hours_before" bson:"free_hours_before"`
	PenaltyPercent  int `json:"penalty_percent" bson:"penalty_percent"`
}

func (c CancellationTerms) Validate() error {
	if c.FreeHoursBefore < 0 || c.PenaltyPercent < 0 || c.PenaltyPercent > 100 {
		return ErrCancellationTerms
	}
	return nil
}

type Listing struct {
	ID           ListingID
	Host         HostID
	Title        string
	Description  string
	VenueType    string
	Address      Address
	Amenities    []string
	Capacity     int
	Pricing      pricing.Config
	Cancellation CancellationTerms
	State        ListingState
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateListingParams struct {
	ID           ListingID
	Host         HostID
	Title        string
	Description  string
	VenueType    string
	Address      Address
	Amenities    []string
	Capacity     int
	Pricing      pricing.Config
	Cancellation CancellationTerms
	Now          time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, errors.New("listings: host is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if err := validateCapacity(params.Capacity, params.Pricing); err != nil {
		return nil, err
	}
	if err := params.Pricing.Validate(); err != nil {
		return nil, err
	}
	if err := params.Cancellation.Validate(); err != nil {
		return nil, err
	}

	now := params.Now.UTC()
	listing := &Listing{
		ID:           params.ID,
		Host:         params.Host,
		Title:        strings.TrimSpace(params.Title),
		Description:  strings.TrimSpace(params.Description),
		VenueType:    strings.TrimSpace(params.VenueType),
		Address:      params.Address,
		Amenities:    append([]string(nil), params.Amenities...),
		Capacity:     params.Capacity,
		Pricing:      params.Pricing.Copy(),
		Cancellation: params.Cancellation,
		State:        ListingDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, At: now})
	return listing, nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if !l.Address.Valid() {
		return ErrAddressRequired
	}
	if err := l.Pricing.Validate(); err != nil {
		return err
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingActivatedEvent{ListingID: l.ID, HostID: l.Host, At: l.UpdatedAt})
	return nil
}

func (l *Listing) Suspend(now time.Time, reason string) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspendedEvent{ListingID: l.ID, Reason: reason, At: l.UpdatedAt})
	return nil
}

// Bookable reports whether guests may request this listing.
func (l *Listing) Bookable() bool {
	return l.State == ListingActive
}

type UpdateDetailsParams struct {
	Title        string
	Description  string
	VenueType    string
	Address      Address
	Amenities    []string
	Capacity     int
	Cancellation CancellationTerms
	Now          time.Time
}

func (l *Listing) UpdateDetails(params UpdateDetailsParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return ErrTitleRequired
	}
	if err := validateCapacity(params.Capacity, l.Pricing); err != nil {
		return err
	}
	if err := params.Cancellation.Validate(); err != nil {
		return err
	}
	l.Title = strings.TrimSpace(params.Title)
	l.Description = strings.TrimSpace(params.Description)
	l.VenueType = strings.TrimSpace(params.VenueType)
	l.Address = params.Address
	l.Amenities = append([]string(nil), params.Amenities...)
	l.Capacity = params.Capacity
	l.Cancellation = params.Cancellation
	l.UpdatedAt = params.Now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// UpdatePricing replaces the pricing configuration. Invalid configurations are
// rejected with pricing.ErrInvalidConfiguration and leave the listing untouched.
func (l *Listing) UpdatePricing(cfg pricing.Config, now time.Time) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateCapacity(l.Capacity, cfg); err != nil {
		return err
	}
	l.Pricing = cfg.Copy()
	l.UpdatedAt = now.UTC()
	l.Record(ListingPricingUpdatedEvent{
		ListingID:  l.ID,
		HourlyRate: cfg.HourlyRate,
		MinHours:   cfg.MinHours,
		MaxHours:   cfg.MaxHours,
		At:         l.UpdatedAt,
	})
	return nil
}

func validateCapacity(capacity int, cfg pricing.Config) error {
	if capacity < 1 {
		return ErrCapacity
	}
	if cfg.IncludedGuests > capacity {
		return fmt.Errorf("%w: %d included, capacity %d", ErrIncludedOverCapacity, cfg.IncludedGuests, capacity)
	}
	return nil
}

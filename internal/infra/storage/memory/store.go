package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/events"
	"venuehire/internal/domain/shared/timeofday"
	"venuehire/internal/infra/locks"
)

// Store is the shared in-memory state behind every Unit. Aggregates are cloned
// on the way in and out so callers never alias stored values.
type Store struct {
	mu       sync.RWMutex
	listings map[domainlistings.ListingID]*domainlistings.Listing
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	slots    *locks.Keyed
}

func NewStore() *Store {
	return &Store{
		listings: make(map[domainlistings.ListingID]*domainlistings.Listing),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		slots:    locks.NewKeyed(),
	}
}

// SeedListing inserts or replaces a listing outside any unit of work. Used for
// fixtures.
func (s *Store) SeedListing(l *domainlistings.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneListing(l)
	if clone.Version == 0 {
		clone.Version = 1
	}
	s.listings[l.ID] = clone
}

func (s *Store) listing(id domainlistings.ListingID) (*domainlistings.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, false
	}
	return cloneListing(l), true
}

func (s *Store) booking(id domainbooking.BookingID) (*domainbooking.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, false
	}
	return cloneBooking(b), true
}

func (s *Store) allListings() []*domainlistings.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, cloneListing(l))
	}
	return out
}

func (s *Store) filterBookings(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

// apply writes staged aggregates if every stored version still equals the
// version the unit started from. Either all writes land or none do.
func (s *Store) apply(listings map[domainlistings.ListingID]stagedListing, bookings map[domainbooking.BookingID]stagedBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range listings {
		if storedVersion(s.listings[id]) != st.base {
			return domainlistings.ErrConcurrentUpdate
		}
	}
	for id, st := range bookings {
		var current int64
		if b, ok := s.bookings[id]; ok {
			current = b.Version
		}
		if current != st.base {
			return domainbooking.ErrConcurrentUpdate
		}
	}
	for id, st := range listings {
		s.listings[id] = cloneListing(st.listing)
	}
	for id, st := range bookings {
		s.bookings[id] = cloneBooking(st.booking)
	}
	return nil
}

func storedVersion(l *domainlistings.Listing) int64 {
	if l == nil {
		return 0
	}
	return l.Version
}

func searchListings(ctx context.Context, all []*domainlistings.Listing, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0, len(all))
	for _, listing := range all {
		select {
		case <-ctx.Done():
			return domainlistings.SearchResult{}, ctx.Err()
		default:
		}
		if opts.Matches(listing) {
			matches = append(matches, listing)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch opts.Sort {
		case domainlistings.SortByRateDesc:
			if a.Pricing.HourlyRate.Amount != b.Pricing.HourlyRate.Amount {
				return a.Pricing.HourlyRate.Amount > b.Pricing.HourlyRate.Amount
			}
		case domainlistings.SortByCapacity:
			if a.Capacity != b.Capacity {
				return a.Capacity > b.Capacity
			}
		case domainlistings.SortByUpdated:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if a.Pricing.HourlyRate.Amount != b.Pricing.HourlyRate.Amount {
				return a.Pricing.HourlyRate.Amount < b.Pricing.HourlyRate.Amount
			}
		}
		return a.ID < b.ID
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return domainlistings.SearchResult{Items: matches[start:end], Total: total}, nil
}

func sameDay(a, b time.Time) bool {
	return timeofday.DateOf(a).Equal(timeofday.DateOf(b))
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	c := *l
	c.EventRecorder = events.EventRecorder{}
	c.Amenities = append([]string(nil), l.Amenities...)
	c.Pricing = l.Pricing.Copy()
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	c.Price = b.Price.Copy()
	return &c
}

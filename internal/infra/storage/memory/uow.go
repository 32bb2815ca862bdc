package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"venuehire/internal/app/uow"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
)

// ErrUnitClosed is returned when a unit is used after Commit or Rollback.
var ErrUnitClosed = errors.New("memory: unit of work already finished")

// Factory begins units over a shared Store.
type Factory struct {
	Store *Store
	// SlotWait bounds how long LockSlot waits for a competing unit.
	SlotWait time.Duration
	// Locker overrides the store's in-process slot locks, e.g. with redis
	// when several replicas share one backing store.
	Locker uow.SlotLocker
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, errors.New("memory: unit of work factory misconfigured")
	}
	var locker uow.SlotLocker = f.Store.slots
	if f.Locker != nil {
		locker = f.Locker
	}
	return &Unit{
		store:    f.Store,
		locker:   locker,
		readOnly: opts.ReadOnly,
		slotWait: f.SlotWait,
		listings: make(map[domainlistings.ListingID]stagedListing),
		bookings: make(map[domainbooking.BookingID]stagedBooking),
	}, nil
}

// Unit stages writes and applies them atomically on Commit. Reads see the
// unit's own staged writes first.
type Unit struct {
	mu       sync.Mutex
	store    *Store
	locker   uow.SlotLocker
	readOnly bool
	slotWait time.Duration
	done     bool
	listings map[domainlistings.ListingID]stagedListing
	bookings map[domainbooking.BookingID]stagedBooking
	unlocks  []func()
}

// base is the stored version the unit started from; 0 for new aggregates.
type stagedListing struct {
	listing *domainlistings.Listing
	base    int64
}

type stagedBooking struct {
	booking *domainbooking.Booking
	base    int64
}

func (u *Unit) Listings() domainlistings.ListingRepository { return listingRepo{u} }

func (u *Unit) Booking() domainbooking.Repository { return bookingRepo{u} }

func (u *Unit) LockSlot(ctx context.Context, listingID domainlistings.ListingID, date time.Time) error {
	if u.slotWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.slotWait)
		defer cancel()
	}
	unlock, err := u.locker.Lock(ctx, uow.SlotKey(listingID, date))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, uow.ErrSlotBusy) {
			return fmt.Errorf("%w: %s", uow.ErrSlotBusy, uow.SlotKey(listingID, date))
		}
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.unlocks = append(u.unlocks, unlock)
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	defer u.finish()
	if u.readOnly || (len(u.listings) == 0 && len(u.bookings) == 0) {
		return nil
	}
	return u.store.apply(u.listings, u.bookings)
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *Unit) finish() {
	u.done = true
	u.listings = nil
	u.bookings = nil
	for i := len(u.unlocks) - 1; i >= 0; i-- {
		u.unlocks[i]()
	}
	u.unlocks = nil
}

type listingRepo struct{ u *Unit }

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.u.mu.Lock()
	staged, ok := r.u.listings[id]
	r.u.mu.Unlock()
	if ok {
		return cloneListing(staged.listing), nil
	}
	if l, ok := r.u.store.listing(id); ok {
		return l, nil
	}
	return nil, domainlistings.ErrNotFound
}

// Save stages the listing and advances its version.
func (r listingRepo) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return ErrUnitClosed
	}
	if r.u.readOnly {
		return errors.New("memory: save in read-only unit")
	}
	base := listing.Version
	if prev, ok := r.u.listings[listing.ID]; ok {
		base = prev.base
	}
	listing.Version++
	r.u.listings[listing.ID] = stagedListing{listing: cloneListing(listing), base: base}
	return nil
}

func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	all := r.u.store.allListings()
	r.u.mu.Lock()
	if len(r.u.listings) > 0 {
		byID := make(map[domainlistings.ListingID]int, len(all))
		for i, l := range all {
			byID[l.ID] = i
		}
		for id, staged := range r.u.listings {
			if i, ok := byID[id]; ok {
				all[i] = cloneListing(staged.listing)
			} else {
				all = append(all, cloneListing(staged.listing))
			}
		}
	}
	r.u.mu.Unlock()
	return searchListings(ctx, all, params)
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	staged, ok := r.u.bookings[id]
	r.u.mu.Unlock()
	if ok {
		return cloneBooking(staged.booking), nil
	}
	if b, ok := r.u.store.booking(id); ok {
		return b, nil
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (r bookingRepo) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return ErrUnitClosed
	}
	if r.u.readOnly {
		return errors.New("memory: save in read-only unit")
	}
	base := booking.Version
	if prev, ok := r.u.bookings[booking.ID]; ok {
		base = prev.base
	}
	booking.Version++
	r.u.bookings[booking.ID] = stagedBooking{booking: cloneBooking(booking), base: base}
	return nil
}

func (r bookingRepo) ListByListingDate(ctx context.Context, listingID domainlistings.ListingID, date time.Time) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.ListingID == listingID && sameDay(b.Date, date)
	}, func(a, b *domainbooking.Booking) bool {
		return a.Window.Start < b.Window.Start
	})
}

func (r bookingRepo) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(guestID)
	if id == "" {
		return nil, errors.New("memory: guest id required")
	}
	return r.list(func(b *domainbooking.Booking) bool {
		return b.GuestID == id
	}, newestFirst)
}

func (r bookingRepo) ListByHost(ctx context.Context, hostID domainlistings.HostID) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.HostID == hostID
	}, newestFirst)
}

func (r bookingRepo) list(keep func(*domainbooking.Booking) bool, less func(a, b *domainbooking.Booking) bool) ([]*domainbooking.Booking, error) {
	stored := r.u.store.filterBookings(keep)
	r.u.mu.Lock()
	merged := make([]*domainbooking.Booking, 0, len(stored)+len(r.u.bookings))
	for _, b := range stored {
		if _, ok := r.u.bookings[b.ID]; !ok {
			merged = append(merged, b)
		}
	}
	for _, st := range r.u.bookings {
		if keep(st.booking) {
			merged = append(merged, cloneBooking(st.booking))
		}
	}
	r.u.mu.Unlock()
	sort.Slice(merged, func(i, j int) bool { return less(merged[i], merged[j]) })
	return merged, nil
}

func newestFirst(a, b *domainbooking.Booking) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

var _ uow.UoWFactory = Factory{}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"venuehire/internal/app/uow"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database or locker")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Mongo has no lock primitive, so slot locks come from Locker.
type Factory struct {
	DB *mongo.Database

	ListingsRepo *ListingRepository
	BookingRepo  *BookingRepository
	Locker       uow.SlotLocker
	SlotWait     time.Duration
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.Locker == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		listings: f.ListingsRepo,
		booking:  f.BookingRepo,
		locker:   f.Locker,
		slotWait: f.SlotWait,
	}, nil
}

type Unit struct {
	session mongo.Session

	listings *ListingRepository
	booking  *BookingRepository

	locker   uow.SlotLocker
	slotWait time.Duration
	mu       sync.Mutex
	unlocks  []func()
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return u.listings
}

func (u *Unit) Booking() domainbooking.Repository {
	return u.booking
}

func (u *Unit) LockSlot(ctx context.Context, listingID domainlistings.ListingID, date time.Time) error {
	key := uow.SlotKey(listingID, date)
	if u.slotWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.slotWait)
		defer cancel()
	}
	unlock, err := u.locker.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", uow.ErrSlotBusy, key)
		}
		return err
	}
	u.mu.Lock()
	u.unlocks = append(u.unlocks, unlock)
	u.mu.Unlock()
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.end(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.end(ctx)
	return u.session.AbortTransaction(ctx)
}

func (u *Unit) end(ctx context.Context) {
	u.session.EndSession(ctx)
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.unlocks) - 1; i >= 0; i-- {
		u.unlocks[i]()
	}
	u.unlocks = nil
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

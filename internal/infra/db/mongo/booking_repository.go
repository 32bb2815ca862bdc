package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/timeofday"
	"venuehire/internal/infra/db/records"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

// EnsureIndexes creates the lookup indexes used by the list queries.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc records.Booking
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.ToBooking()
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := records.FromBooking(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", domainbooking.ErrConcurrentUpdate, b.ID)
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return fmt.Errorf("%w: %s", domainbooking.ErrConcurrentUpdate, b.ID)
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByListingDate(ctx context.Context, listingID domainlistings.ListingID, date time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{"listing_id": string(listingID), "date": timeofday.FormatDate(date)}
	return r.find(ctx, filter, bson.D{{Key: "start_sec", Value: 1}, {Key: "_id", Value: 1}})
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID domainlistings.HostID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"host_id": string(hostID)}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc records.Booking
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.ToBooking()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, cur.Err()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)

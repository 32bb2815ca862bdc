package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/timeofday"
	"venuehire/internal/infra/db/records"
)

type BookingRepository struct {
	q querier
}

func (r BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc []byte
	err := r.q.QueryRow(ctx, `SELECT doc FROM bookings WHERE id=$1`, string(id)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return decodeBooking(doc)
}

func (r BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	base := b.Version
	rec := records.FromBooking(b)
	rec.Version = base + 1
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	args := []any{rec.ID, rec.ListingID, rec.HostID, rec.GuestID, rec.Date, rec.StartSec, rec.EndSec, rec.State, rec.Version, rec.CreatedAt, doc}

	var sql string
	if base == 0 {
		sql = `INSERT INTO bookings (id, listing_id, host_id, guest_id, day, start_sec, end_sec, state, version, created_at, doc)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING`
	} else {
		sql = `UPDATE bookings SET listing_id=$2, host_id=$3, guest_id=$4, day=$5, start_sec=$6, end_sec=$7, state=$8,
			version=$9, created_at=$10, doc=$11 WHERE id=$1 AND version=$12`
		args = append(args, base)
	}
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domainbooking.ErrConcurrentUpdate, b.ID)
	}
	b.Version = rec.Version
	return nil
}

func (r BookingRepository) ListByListingDate(ctx context.Context, listingID domainlistings.ListingID, date time.Time) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT doc FROM bookings WHERE listing_id=$1 AND day=$2 ORDER BY start_sec, id`, string(listingID), timeofday.FormatDate(date))
}

func (r BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT doc FROM bookings WHERE guest_id=$1 ORDER BY created_at DESC, id`, guestID)
}

func (r BookingRepository) ListByHost(ctx context.Context, hostID domainlistings.HostID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT doc FROM bookings WHERE host_id=$1 ORDER BY created_at DESC, id`, string(hostID))
}

func (r BookingRepository) list(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		b, err := decodeBooking(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func decodeBooking(doc []byte) (*domainbooking.Booking, error) {
	var rec records.Booking
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode booking: %w", err)
	}
	return rec.ToBooking()
}

var _ domainbooking.Repository = BookingRepository{}

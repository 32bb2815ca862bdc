package availability

import (
	"context"

	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
	domainavailability "venuehire/internal/domain/availability"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/timeofday"
)

const getDayScheduleKey = "availability.schedule"

// GetDayScheduleQuery shows the opening hours of a date with held and free windows.
type GetDayScheduleQuery struct {
	ListingID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
}

func (q GetDayScheduleQuery) Key() string { return getDayScheduleKey }

func (q GetDayScheduleQuery) CacheScope() string { return middleware.ListingScope(q.ListingID) }

func (q GetDayScheduleQuery) CacheKey() string { return q.Date }

func (q GetDayScheduleQuery) ResultPrototype() any { return &dto.DaySchedule{} }

type GetDayScheduleHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetDayScheduleHandler) Handle(ctx context.Context, q GetDayScheduleQuery) (*dto.DaySchedule, error) {
	date, err := timeofday.ParseDate(q.Date)
	if err != nil {
		return nil, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	if !listing.Bookable() {
		return nil, domainlistings.ErrNotBookable
	}
	existing, err := handlersupport.BookedWindows(execCtx, unit.Booking(), listing.ID, date)
	if err != nil {
		return nil, err
	}
	schedule := domainavailability.BuildDaySchedule(listing.Pricing.OperatingHours, date, existing)
	out := dto.MapDaySchedule(string(listing.ID), listing.Pricing, schedule)
	return &out, nil
}

var _ queries.Handler[GetDayScheduleQuery, *dto.DaySchedule] = (*GetDayScheduleHandler)(nil)

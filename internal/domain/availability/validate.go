package availability

import (
	"errors"
	"fmt"
	"time"

	"venuehire/internal/domain/shared/timeofday"
)

var (
	ErrInvalidWindow                = errors.New("availability: invalid booking window")
	ErrOutsideOperatingHours        = errors.New("availability: outside operating hours")
	ErrConflictsWithExistingBooking = errors.New("availability: conflicts with an existing booking")
)

// Booking statuses that hold a slot.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
)

// BookedWindow is an existing booking as seen by the conflict check.
type BookedWindow struct {
	Reference string
	Date      time.Time
	Window    timeofday.Window
	Status    string
}

// Holds reports whether the booking still occupies its slot.
func (b BookedWindow) Holds() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// DurationBounds are the listing's minimum and maximum bookable hours.
type DurationBounds struct {
	MinHours int
	MaxHours int
}

// Validate checks a requested window against opening hours, duration bounds and
// existing bookings, in that order. It has no side effects.
func Validate(hours OperatingHours, date time.Time, window timeofday.Window, bounds DurationBounds, existing []BookedWindow) error {
	if window.End <= window.Start {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow, window.End, window.Start)
	}
	if !window.Start.Valid() || !window.End.Valid() || window.Start == timeofday.EndOfDay {
		return fmt.Errorf("%w: %s is not within a single day", ErrInvalidWindow, window)
	}
	if err := CheckOperatingHours(hours, date, window); err != nil {
		return err
	}
	if err := CheckDuration(window, bounds); err != nil {
		return err
	}
	return CheckConflicts(date, window, existing)
}

// CheckOperatingHours fails when the day is closed or the window leaves the opening hours.
func CheckOperatingHours(hours OperatingHours, date time.Time, window timeofday.Window) error {
	day, restricted := hours.For(date)
	if !restricted || day.AlwaysOpen() {
		return nil
	}
	if day.Closed {
		return fmt.Errorf("%w: closed on %s", ErrOutsideOperatingHours, WeekdayKey(date))
	}
	if window.Start < day.Start || window.End > day.End {
		return fmt.Errorf("%w: %s is outside %s-%s on %s", ErrOutsideOperatingHours, window, day.Start, day.End, WeekdayKey(date))
	}
	return nil
}

// CheckDuration enforces minHours <= duration <= maxHours with second resolution.
func CheckDuration(window timeofday.Window, bounds DurationBounds) error {
	d := window.Duration()
	min := time.Duration(bounds.MinHours) * time.Hour
	max := time.Duration(bounds.MaxHours) * time.Hour
	if d < min {
		return fmt.Errorf("%w: %s is shorter than the %dh minimum", ErrInvalidWindow, d, bounds.MinHours)
	}
	if d > max {
		return fmt.Errorf("%w: %s is longer than the %dh maximum", ErrInvalidWindow, d, bounds.MaxHours)
	}
	return nil
}

// CheckConflicts fails on the first slot-holding booking of the same date whose
// half-open window overlaps the request.
func CheckConflicts(date time.Time, window timeofday.Window, existing []BookedWindow) error {
	day := timeofday.DateOf(date)
	for _, b := range existing {
		if !b.Holds() || !timeofday.DateOf(b.Date).Equal(day) {
			continue
		}
		if b.Window.Overlaps(window) {
			return fmt.Errorf("%w: %s overlaps %s booking %s", ErrConflictsWithExistingBooking, window, b.Status, b.Window)
		}
	}
	return nil
}

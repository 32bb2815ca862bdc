package booking

import (
	"fmt"
	"time"

	"venuehire/internal/domain/shared/timeofday"
)

// ValidateStart rejects windows that begin before now.
func ValidateStart(date time.Time, window timeofday.Window, now time.Time) error {
	start := window.StartsAt(date)
	if start.Before(now) {
		return fmt.Errorf("%w: %s", ErrStartInPast, start.Format(time.RFC3339))
	}
	return nil
}

// ValidateCapacity rejects parties larger than the venue holds.
func ValidateCapacity(guests, capacity int) error {
	if guests > capacity {
		return fmt.Errorf("%w: %d guests, capacity %d", ErrOverCapacity, guests, capacity)
	}
	return nil
}

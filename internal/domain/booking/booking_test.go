package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehire/internal/domain/listings"
	"venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/events"
	"venuehire/internal/domain/shared/money"
	"venuehire/internal/domain/shared/timeofday"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func quote(t *testing.T) pricing.PriceBreakdown {
	t.Helper()
	out := pricing.Assemble(pricing.AssembleInput{
		HourlyRate: money.Must(5000, "USD"),
		Duration:   4 * time.Hour,
		Guests:     2,
	}, pricing.DefaultPolicy())
	require.NoError(t, out.Validate())
	return out
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	window, err := timeofday.ParseWindow("14:00", "18:00")
	require.NoError(t, err)
	start := window.StartsAt(day)
	b, err := NewBooking(CreateParams{
		ID:        "bk-1",
		ListingID: "lst-1",
		HostID:    "host-1",
		GuestID:   "guest-1",
		Date:      day,
		Window:    window,
		Guests:    2,
		Price:     quote(t),
		Policy:    SnapshotPolicy(listings.CancellationTerms{FreeHoursBefore: 24, PenaltyPercent: 50}, start),
		CreatedAt: day.Add(-72 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingRecordsRequest(t *testing.T) {
	b := newPending(t)
	assert.Equal(t, StatePending, b.State)
	assert.True(t, b.HoldsSlot())
	assert.Equal(t, []string{"booking.requested"}, events.Names(b.PendingEvents()))

	bw := b.BookedWindow()
	assert.Equal(t, "PENDING", bw.Status)
	assert.True(t, bw.Holds())
	assert.Equal(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), b.Start())
	assert.Equal(t, time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), b.End())
}

func TestNewBookingRejectsBadInput(t *testing.T) {
	window, _ := timeofday.ParseWindow("14:00", "18:00")
	_, err := NewBooking(CreateParams{GuestID: "g", Window: window, Guests: 0, Price: quote(t)})
	assert.ErrorIs(t, err, ErrInvalidGuests)

	broken := quote(t)
	broken.TotalPrice.Amount++
	_, err = NewBooking(CreateParams{GuestID: "g", Window: window, Guests: 1, Price: broken})
	assert.ErrorIs(t, err, pricing.ErrUnbalanced)
}

func TestConfirmDeclineTransitions(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Confirm(day))
	assert.Equal(t, StateConfirmed, b.State)
	assert.ErrorIs(t, b.Decline("late", day), ErrInvalidState)
	assert.ErrorIs(t, b.Confirm(day), ErrInvalidState)

	other := newPending(t)
	require.NoError(t, other.Decline("double booked", day))
	assert.False(t, other.HoldsSlot())
	assert.Equal(t, "DECLINED", other.BookedWindow().Status)
}

func TestCancelRefunds(t *testing.T) {
	total := quote(t).TotalPrice

	cases := []struct {
		name    string
		at      time.Time
		penalty int64
	}{
		{"well ahead", day.Add(-48 * time.Hour), 0},
		{"inside notice", day.Add(2 * time.Hour), total.Amount * 50 / 100},
		{"after start", day.Add(15 * time.Hour), total.Amount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newPending(t)
			refund, penalty, err := b.Cancel("plans changed", tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.penalty, penalty.Amount)
			assert.Equal(t, total.Amount-tc.penalty, refund.Amount)
			assert.Equal(t, StateCancelled, b.State)
			assert.False(t, b.HoldsSlot())
		})
	}
}

func TestCancelTwiceFails(t *testing.T) {
	b := newPending(t)
	_, _, err := b.Cancel("", day.Add(-48*time.Hour))
	require.NoError(t, err)
	_, _, err = b.Cancel("", day.Add(-48*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestComplete(t *testing.T) {
	b := newPending(t)
	assert.ErrorIs(t, b.Complete(day.Add(20*time.Hour)), ErrInvalidState)
	require.NoError(t, b.Confirm(day))
	assert.ErrorIs(t, b.Complete(day.Add(17*time.Hour)), ErrNotFinished)
	require.NoError(t, b.Complete(day.Add(18*time.Hour)))
	assert.Equal(t, StateCompleted, b.State)
	assert.Equal(t,
		[]string{"booking.requested", "booking.confirmed", "booking.completed"},
		events.Names(b.PendingEvents()))
}

func TestValidateStartAndCapacity(t *testing.T) {
	window, _ := timeofday.ParseWindow("10:00", "12:00")
	assert.NoError(t, ValidateStart(day, window, day.Add(9*time.Hour)))
	assert.ErrorIs(t, ValidateStart(day, window, day.Add(11*time.Hour)), ErrStartInPast)

	assert.NoError(t, ValidateCapacity(10, 10))
	assert.ErrorIs(t, ValidateCapacity(11, 10), ErrOverCapacity)
}

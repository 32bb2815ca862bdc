package timeofday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidClock  = errors.New("timeofday: clock must be HH:MM or HH:MM:SS between 00:00 and 24:00")
	ErrInvalidWindow = errors.New("timeofday: end must be after start")
	ErrInvalidDate   = errors.New("timeofday: date must be YYYY-MM-DD")
)

const (
	// Midnight is 00:00 at the start of a day.
	Midnight Clock = 0
	// EndOfDay is 24:00, accepted only as a window end.
	EndOfDay Clock = 24 * 60 * 60

	dateLayout = "2006-01-02"
)

// Clock is a time of day with second resolution, stored as seconds since midnight.
type Clock int

// At builds a clock from hours and minutes.
func At(hour, minute int) Clock {
	return Clock(hour*3600 + minute*60)
}

// ParseClock accepts "HH:MM" or "HH:MM:SS"; "24:00" is the end of the day.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	values := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
		values[i] = v
	}
	h, m, s := values[0], values[1], values[2]
	if m > 59 || s > 59 || h > 24 || (h == 24 && (m != 0 || s != 0)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return Clock(h*3600 + m*60 + s), nil
}

// MustParseClock panics on malformed input; meant for fixtures and tests.
func MustParseClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Of extracts the time of day from t in its own location.
func Of(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (c Clock) Valid() bool {
	return c >= Midnight && c <= EndOfDay
}

func (c Clock) Seconds() int {
	return int(c)
}

func (c Clock) String() string {
	h := int(c) / 3600
	m := (int(c) % 3600) / 60
	s := int(c) % 60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(data []byte) error {
	parsed, err := ParseClock(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window represents a half-open interval [Start, End) within a single day.
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func NewWindow(start, end Clock) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ParseWindow builds a window from two clock strings.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(s, e)
}

func (w Window) Validate() error {
	if !w.Start.Valid() || !w.End.Valid() || w.Start == EndOfDay {
		return ErrInvalidClock
	}
	if w.End <= w.Start {
		return ErrInvalidWindow
	}
	return nil
}

func (w Window) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Second
}

// Overlaps is the half-open interval test: a.Start < b.End && b.Start < a.End.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

func (w Window) Contains(other Window) bool {
	return w.Start <= other.Start && other.End <= w.End
}

func (w Window) Adjacent(other Window) bool {
	return w.End == other.Start || w.Start == other.End
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// StartsAt places the window start on the given date.
func (w Window) StartsAt(date time.Time) time.Time {
	return DateOf(date).Add(time.Duration(w.Start) * time.Second)
}

// DateOf truncates t to a civil date at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t.UTC(), nil
}

func FormatDate(t time.Time) string {
	return DateOf(t).Format(dateLayout)
}

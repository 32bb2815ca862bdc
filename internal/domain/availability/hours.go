package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"venuehire/internal/domain/shared/timeofday"
)

var ErrInvalidHours = errors.New("availability: invalid operating hours")

var weekdayKeys = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DayHours is the opening window of one weekday. Start == End == 00:00 on an open
// day means the venue is open around the clock.
type DayHours struct {
	Start  timeofday.Clock `json:"start" yaml:"start" bson:"start"`
	End    timeofday.Clock `json:"end" yaml:"end" bson:"end"`
	Closed bool            `json:"closed" yaml:"closed" bson:"closed"`
}

func (d DayHours) AlwaysOpen() bool {
	return !d.Closed && d.Start == timeofday.Midnight && d.End == timeofday.Midnight
}

// Window returns the open interval of the day; 24h days span [00:00, 24:00).
func (d DayHours) Window() timeofday.Window {
	if d.AlwaysOpen() {
		return timeofday.Window{Start: timeofday.Midnight, End: timeofday.EndOfDay}
	}
	return timeofday.Window{Start: d.Start, End: d.End}
}

// OperatingHours maps lowercase weekday names ("sunday".."saturday") to opening hours.
// An empty map places no restriction; a weekday missing from a non-empty map is closed.
type OperatingHours map[string]DayHours

// WeekdayKey resolves the configuration key of a date (0=Sunday..6=Saturday).
func WeekdayKey(date time.Time) string {
	return strings.ToLower(date.Weekday().String())
}

// For returns the hours that apply on date. The boolean is false when the listing
// does not restrict its hours at all.
func (h OperatingHours) For(date time.Time) (DayHours, bool) {
	if len(h) == 0 {
		return DayHours{}, false
	}
	day, ok := h[WeekdayKey(date)]
	if !ok {
		return DayHours{Closed: true}, true
	}
	return day, true
}

// Validate checks weekday keys and that each open day has a usable window.
func (h OperatingHours) Validate() error {
	for key, day := range h {
		if _, ok := weekdayKeys[key]; !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidHours, key)
		}
		if day.Closed || day.AlwaysOpen() {
			continue
		}
		if !day.Start.Valid() || !day.End.Valid() || day.End <= day.Start {
			return fmt.Errorf("%w: %s opens %s and closes %s", ErrInvalidHours, key, day.Start, day.End)
		}
	}
	return nil
}

// Copy returns an independent copy of the map.
func (h OperatingHours) Copy() OperatingHours {
	if h == nil {
		return nil
	}
	out := make(OperatingHours, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// DaySchedule is the bookability picture of a listing on one date.
type DaySchedule struct {
	Date    time.Time
	Weekday string
	Open    bool
	Hours   timeofday.Window
	Held    []timeofday.Window
	Free    []timeofday.Window
}

// BuildDaySchedule lists held windows and the free gaps left inside opening hours.
func BuildDaySchedule(hours OperatingHours, date time.Time, existing []BookedWindow) DaySchedule {
	date = timeofday.DateOf(date)
	schedule := DaySchedule{Date: date, Weekday: WeekdayKey(date)}

	open := timeofday.Window{Start: timeofday.Midnight, End: timeofday.EndOfDay}
	if day, restricted := hours.For(date); restricted {
		if day.Closed {
			return schedule
		}
		open = day.Window()
	}
	schedule.Open = true
	schedule.Hours = open

	for _, b := range existing {
		if !b.Holds() || !timeofday.DateOf(b.Date).Equal(date) {
			continue
		}
		schedule.Held = append(schedule.Held, b.Window)
	}
	sort.Slice(schedule.Held, func(i, j int) bool {
		return schedule.Held[i].Start < schedule.Held[j].Start
	})

	cursor := open.Start
	for _, held := range schedule.Held {
		if held.Start > cursor {
			end := held.Start
			if end > open.End {
				end = open.End
			}
			if end > cursor {
				schedule.Free = append(schedule.Free, timeofday.Window{Start: cursor, End: end})
			}
		}
		if held.End > cursor {
			cursor = held.End
		}
	}
	if cursor < open.End {
		schedule.Free = append(schedule.Free, timeofday.Window{Start: cursor, End: open.End})
	}
	return schedule
}

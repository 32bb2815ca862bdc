package dto

import (
	"time"

	domainavailability "venuehire/internal/domain/availability"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/timeofday"
)

type Quote struct {
	ListingID  string                       `json:"listing_id"`
	Date       string                       `json:"date"`
	Window     WindowDTO                    `json:"window"`
	Guests     int                          `json:"guests"`
	Breakdown  domainpricing.PriceBreakdown `json:"breakdown"`
	ValidUntil *time.Time                   `json:"valid_until,omitempty"`
}

// CacheDeadline stops a cached quote from outliving the sale edge it was
// priced against.
func (q *Quote) CacheDeadline() (time.Time, bool) {
	if q == nil || q.ValidUntil == nil {
		return time.Time{}, false
	}
	return *q.ValidUntil, true
}

type DaySchedule struct {
	ListingID string      `json:"listing_id"`
	Date      string      `json:"date"`
	Weekday   string      `json:"weekday"`
	Open      bool        `json:"open"`
	Hours     *WindowDTO  `json:"hours,omitempty"`
	Held      []WindowDTO `json:"held"`
	Free      []WindowDTO `json:"free"`
	MinHours  int         `json:"min_hours"`
	MaxHours  int         `json:"max_hours"`
}

func MapDaySchedule(listingID string, cfg domainpricing.Config, s domainavailability.DaySchedule) DaySchedule {
	out := DaySchedule{
		ListingID: listingID,
		Date:      timeofday.FormatDate(s.Date),
		Weekday:   s.Weekday,
		Open:      s.Open,
		Held:      mapWindows(s.Held),
		Free:      mapWindows(s.Free),
		MinHours:  cfg.MinHours,
		MaxHours:  cfg.MaxHours,
	}
	if s.Open {
		hours := MapWindow(s.Hours)
		out.Hours = &hours
	}
	return out
}

func mapWindows(ws []timeofday.Window) []WindowDTO {
	out := make([]WindowDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, MapWindow(w))
	}
	return out
}

package listings

import (
	"strings"
)

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByRateAsc  CatalogSort = "rate_asc"
	SortByRateDesc CatalogSort = "rate_desc"
	SortByCapacity CatalogSort = "capacity_desc"
	SortByUpdated  CatalogSort = "updated"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Host         HostID
	States       []ListingState
	City         string
	Country      string
	VenueTypes   []string
	MinGuests    int
	MaxRateCents int64
	Sort         CatalogSort
	Limit        int
	Offset       int
	OnlyActive   bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.City = strings.TrimSpace(strings.ToLower(normalized.City))
	normalized.Country = strings.TrimSpace(strings.ToLower(normalized.Country))
	normalized.VenueTypes = normalizeTokens(normalized.VenueTypes)
	if normalized.MinGuests < 0 {
		normalized.MinGuests = 0
	}
	if normalized.MaxRateCents < 0 {
		normalized.MaxRateCents = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByRateAsc, SortByRateDesc, SortByCapacity, SortByUpdated:
	default:
		normalized.Sort = SortByRateAsc
	}
	return normalized
}

// Matches applies every filter except paging and ordering.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.OnlyActive && l.State != ListingActive {
		return false
	}
	if p.Host != "" && l.Host != p.Host {
		return false
	}
	if len(p.States) > 0 && !stateIncluded(l.State, p.States) {
		return false
	}
	if p.City != "" && !strings.EqualFold(l.Address.City, p.City) {
		return false
	}
	if p.Country != "" && !strings.EqualFold(l.Address.Country, p.Country) {
		return false
	}
	if p.MinGuests > 0 && l.Capacity < p.MinGuests {
		return false
	}
	if p.MaxRateCents > 0 && l.Pricing.HourlyRate.Amount > p.MaxRateCents {
		return false
	}
	if len(p.VenueTypes) > 0 {
		kind := strings.ToLower(strings.TrimSpace(l.VenueType))
		found := false
		for _, v := range p.VenueTypes {
			if v == kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stateIncluded(state ListingState, states []ListingState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func normalizeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}

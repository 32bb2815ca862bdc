package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/infra/db/records"
)

type ListingRepository struct {
	q querier
}

func (r ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc []byte
	err := r.q.QueryRow(ctx, `SELECT doc FROM listings WHERE id=$1`, string(id)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return decodeListing(doc)
}

// Save inserts new listings and updates existing ones only if the stored
// version still matches the one the caller loaded.
func (r ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	base := l.Version
	rec := records.FromListing(l)
	rec.Version = base + 1
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	args := []any{rec.ID, rec.Host, rec.State, strings.ToLower(l.Address.City), strings.ToLower(l.Address.Country),
		strings.ToLower(l.VenueType), l.Capacity, l.Pricing.HourlyRate.Amount, rec.Version, rec.UpdatedAt, doc}

	var sql string
	if base == 0 {
		sql = `INSERT INTO listings (id, host_id, state, city, country, venue_type, capacity, hourly_rate, version, updated_at, doc)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING`
	} else {
		sql = `UPDATE listings SET host_id=$2, state=$3, city=$4, country=$5, venue_type=$6, capacity=$7, hourly_rate=$8,
			version=$9, updated_at=$10, doc=$11 WHERE id=$1 AND version=$12`
		args = append(args, base)
	}
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domainlistings.ErrConcurrentUpdate, l.ID)
	}
	l.Version = rec.Version
	return nil
}

func (r ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	where, args := searchFilter(opts)
	args = append(args, opts.Limit, opts.Offset)
	sql := fmt.Sprintf(`SELECT doc, COUNT(*) OVER () FROM listings %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, searchOrder(opts.Sort), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	defer rows.Close()

	result := domainlistings.SearchResult{Items: []*domainlistings.Listing{}}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc, &result.Total); err != nil {
			return domainlistings.SearchResult{}, err
		}
		l, err := decodeListing(doc)
		if err != nil {
			return domainlistings.SearchResult{}, err
		}
		result.Items = append(result.Items, l)
	}
	if err := rows.Err(); err != nil {
		return domainlistings.SearchResult{}, err
	}
	if len(result.Items) == 0 && opts.Offset > 0 {
		// OFFSET past the end drops the window count; recount.
		countSQL := "SELECT COUNT(*) FROM listings " + where
		if err := r.q.QueryRow(ctx, countSQL, args[:len(args)-2]...).Scan(&result.Total); err != nil {
			return domainlistings.SearchResult{}, err
		}
	}
	return result, nil
}

func searchFilter(p domainlistings.SearchParams) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if p.OnlyActive {
		add("state = $%d", string(domainlistings.ListingActive))
	}
	if p.Host != "" {
		add("host_id = $%d", string(p.Host))
	}
	if len(p.States) > 0 {
		states := make([]string, len(p.States))
		for i, s := range p.States {
			states[i] = string(s)
		}
		add("state = ANY($%d)", states)
	}
	if p.City != "" {
		add("city = $%d", p.City)
	}
	if p.Country != "" {
		add("country = $%d", p.Country)
	}
	if len(p.VenueTypes) > 0 {
		add("venue_type = ANY($%d)", p.VenueTypes)
	}
	if p.MinGuests > 0 {
		add("capacity >= $%d", p.MinGuests)
	}
	if p.MaxRateCents > 0 {
		add("hourly_rate <= $%d", p.MaxRateCents)
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func searchOrder(sort domainlistings.CatalogSort) string {
	switch sort {
	case domainlistings.SortByRateDesc:
		return "hourly_rate DESC, id"
	case domainlistings.SortByCapacity:
		return "capacity DESC, id"
	case domainlistings.SortByUpdated:
		return "updated_at DESC, id"
	default:
		return "hourly_rate ASC, id"
	}
}

func decodeListing(doc []byte) (*domainlistings.Listing, error) {
	var rec records.Listing
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return rec.ToListing(), nil
}

var _ domainlistings.ListingRepository = ListingRepository{}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/infra/db/records"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("agg_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc records.Listing
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.ToListing(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := records.FromListing(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", domainlistings.ErrConcurrentUpdate, l.ID)
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return fmt.Errorf("%w: %s", domainlistings.ErrConcurrentUpdate, l.ID)
	}
	l.Version = doc.Version
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	find := options.Find().SetSort(searchSort(opts.Sort)).SetSkip(int64(opts.Offset)).SetLimit(int64(opts.Limit))
	cur, err := r.col.Find(ctx, filter, find)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	defer cur.Close(ctx)

	result := domainlistings.SearchResult{Items: []*domainlistings.Listing{}, Total: int(total)}
	for cur.Next(ctx) {
		var doc records.Listing
		if err := cur.Decode(&doc); err != nil {
			return domainlistings.SearchResult{}, err
		}
		result.Items = append(result.Items, doc.ToListing())
	}
	return result, cur.Err()
}

func searchFilter(p domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if p.OnlyActive {
		filter["state"] = string(domainlistings.ListingActive)
	} else if len(p.States) > 0 {
		states := make([]string, len(p.States))
		for i, s := range p.States {
			states[i] = string(s)
		}
		filter["state"] = bson.M{"$in": states}
	}
	if p.Host != "" {
		filter["host_id"] = string(p.Host)
	}
	if p.City != "" {
		filter["address.city"] = exactFold(p.City)
	}
	if p.Country != "" {
		filter["address.country"] = exactFold(p.Country)
	}
	if len(p.VenueTypes) > 0 {
		kinds := make([]primitive.Regex, len(p.VenueTypes))
		for i, v := range p.VenueTypes {
			kinds[i] = exactFold(v)
		}
		filter["venue_type"] = bson.M{"$in": kinds}
	}
	if p.MinGuests > 0 {
		filter["capacity"] = bson.M{"$gte": p.MinGuests}
	}
	if p.MaxRateCents > 0 {
		filter["pricing.hourly_rate.amount"] = bson.M{"$lte": p.MaxRateCents}
	}
	return filter
}

func searchSort(sort domainlistings.CatalogSort) bson.D {
	switch sort {
	case domainlistings.SortByRateDesc:
		return bson.D{{Key: "pricing.hourly_rate.amount", Value: -1}, {Key: "_id", Value: 1}}
	case domainlistings.SortByCapacity:
		return bson.D{{Key: "capacity", Value: -1}, {Key: "_id", Value: 1}}
	case domainlistings.SortByUpdated:
		return bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "pricing.hourly_rate.amount", Value: 1}, {Key: "_id", Value: 1}}
	}
}

func exactFold(v string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(v) + "$", Options: "i"}
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)

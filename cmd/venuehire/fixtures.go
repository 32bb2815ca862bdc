package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"venuehire/internal/app/uow"
	"venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
)

type listingFixture struct {
	ID           string                     `json:"id"`
	Host         string                     `json:"host"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	VenueType    string                     `json:"venue_type"`
	Address      listings.Address           `json:"address"`
	Amenities    []string                   `json:"amenities"`
	Capacity     int                        `json:"capacity"`
	Pricing      domainpricing.Config       `json:"pricing"`
	Cancellation listings.CancellationTerms `json:"cancellation"`
	Draft        bool                       `json:"draft"`
}

// loadListingFixtures imports listings from a JSON file. Listings already
// present are left alone so restarts against a durable store are harmless.
func loadListingFixtures(ctx context.Context, factory uow.UoWFactory, path string, now time.Time, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return 0, nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	imported := 0
	for _, fx := range fixtures {
		listing, err := fx.build(now)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		created, err := seedListing(ctx, factory, listing)
		if err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		if created {
			imported++
			logger.Info("listing fixture imported", "listing_id", listing.ID)
		}
	}
	return imported, nil
}

func (fx listingFixture) build(now time.Time) (*listings.Listing, error) {
	listing, err := listings.NewListing(listings.CreateListingParams{
		ID:           listings.ListingID(fx.ID),
		Host:         listings.HostID(fx.Host),
		Title:        fx.Title,
		Description:  fx.Description,
		VenueType:    fx.VenueType,
		Address:      fx.Address,
		Amenities:    fx.Amenities,
		Capacity:     fx.Capacity,
		Pricing:      fx.Pricing,
		Cancellation: fx.Cancellation,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if !fx.Draft {
		if err := listing.Activate(now); err != nil {
			return nil, err
		}
	}
	return listing, nil
}

func seedListing(ctx context.Context, factory uow.UoWFactory, listing *listings.Listing) (bool, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	if _, err := unit.Listings().ByID(execCtx, listing.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, listings.ErrNotFound) {
		return false, err
	}
	if err := unit.Listings().Save(execCtx, listing); err != nil {
		return false, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

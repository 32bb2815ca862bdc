package listings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/outbox"
	"venuehire/internal/app/uow"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
)

const (
	createHostListingKey    = "host.listings.create"
	updateHostListingKey    = "host.listings.update"
	publishHostListingKey   = "host.listings.publish"
	unpublishHostListingKey = "host.listings.unpublish"

	hostRole = "host"
)

// HostListingPayload carries the descriptive fields hosts edit.
type HostListingPayload struct {
	Title        string                           `validate:"required,max=140"`
	Description  string                           `validate:"max=5000"`
	VenueType    string                           `validate:"max=64"`
	Address      domainlistings.Address           `validate:"-"`
	Amenities    []string                         `validate:"max=50,dive,max=64"`
	Capacity     int                              `validate:"gte=1"`
	Cancellation domainlistings.CancellationTerms `validate:"-"`
}

type CreateHostListingCommand struct {
	HostID          string               `validate:"required"`
	Payload         HostListingPayload   `validate:"required"`
	Pricing         domainpricing.Config `validate:"-"`
	IdempotencyKeyV string               `validate:"omitempty,max=128"`
}

func (c CreateHostListingCommand) Key() string          { return createHostListingKey }
func (c CreateHostListingCommand) RequiredRole() string { return hostRole }

func (c CreateHostListingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.HostID + ":" + c.IdempotencyKeyV
}

func (c CreateHostListingCommand) ResultPrototype() any { return &dto.ListingResult{} }

type UpdateHostListingCommand struct {
	HostID    string             `validate:"required"`
	ListingID string             `validate:"required"`
	Payload   HostListingPayload `validate:"required"`
}

func (c UpdateHostListingCommand) Key() string          { return updateHostListingKey }
func (c UpdateHostListingCommand) RequiredRole() string { return hostRole }

type PublishHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c PublishHostListingCommand) Key() string          { return publishHostListingKey }
func (c PublishHostListingCommand) RequiredRole() string { return hostRole }

type UnpublishHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c UnpublishHostListingCommand) Key() string          { return unpublishHostListingKey }
func (c UnpublishHostListingCommand) RequiredRole() string { return hostRole }

// HostListingHandler serves every host-side listing command.
type HostListingHandler struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

func (h *HostListingHandler) Create(ctx context.Context, cmd CreateHostListingCommand) (*dto.ListingResult, error) {
	var result *dto.ListingResult
	err := handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
			ID:           domainlistings.ListingID(h.newID()),
			Host:         domainlistings.HostID(cmd.HostID),
			Title:        cmd.Payload.Title,
			Description:  cmd.Payload.Description,
			VenueType:    cmd.Payload.VenueType,
			Address:      cmd.Payload.Address,
			Amenities:    cmd.Payload.Amenities,
			Capacity:     cmd.Payload.Capacity,
			Pricing:      cmd.Pricing,
			Cancellation: cmd.Payload.Cancellation,
			Now:          handlersupport.Now(h.Clock),
		})
		if err != nil {
			return err
		}
		return h.save(ctx, unit, listing, &result)
	})
	if err != nil {
		return nil, err
	}
	h.log(ctx, "host listing created", cmd.HostID, result)
	return result, nil
}

func (h *HostListingHandler) Update(ctx context.Context, cmd UpdateHostListingCommand) (*dto.ListingResult, error) {
	return h.mutate(ctx, cmd.HostID, cmd.ListingID, "host listing updated", func(l *domainlistings.Listing, now time.Time) error {
		return l.UpdateDetails(domainlistings.UpdateDetailsParams{
			Title:        cmd.Payload.Title,
			Description:  cmd.Payload.Description,
			VenueType:    cmd.Payload.VenueType,
			Address:      cmd.Payload.Address,
			Amenities:    cmd.Payload.Amenities,
			Capacity:     cmd.Payload.Capacity,
			Cancellation: cmd.Payload.Cancellation,
			Now:          now,
		})
	})
}

func (h *HostListingHandler) Publish(ctx context.Context, cmd PublishHostListingCommand) (*dto.ListingResult, error) {
	return h.mutate(ctx, cmd.HostID, cmd.ListingID, "host listing published", func(l *domainlistings.Listing, now time.Time) error {
		return l.Activate(now)
	})
}

func (h *HostListingHandler) Unpublish(ctx context.Context, cmd UnpublishHostListingCommand) (*dto.ListingResult, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = "host-unpublished"
	}
	return h.mutate(ctx, cmd.HostID, cmd.ListingID, "host listing unpublished", func(l *domainlistings.Listing, now time.Time) error {
		return l.Suspend(now, reason)
	})
}

func (h *HostListingHandler) mutate(ctx context.Context, hostID, listingID, msg string, apply func(*domainlistings.Listing, time.Time) error) (*dto.ListingResult, error) {
	var result *dto.ListingResult
	err := handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := loadOwned(ctx, unit, hostID, listingID)
		if err != nil {
			return err
		}
		if err := apply(listing, handlersupport.Now(h.Clock)); err != nil {
			return err
		}
		return h.save(ctx, unit, listing, &result)
	})
	if err != nil {
		return nil, err
	}
	h.log(ctx, msg, hostID, result)
	return result, nil
}

func (h *HostListingHandler) save(ctx context.Context, unit uow.UnitOfWork, listing *domainlistings.Listing, out **dto.ListingResult) error {
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return err
	}
	*out = dto.MapListingResult(listing)
	return nil
}

func (h *HostListingHandler) log(ctx context.Context, msg, hostID string, result *dto.ListingResult) {
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, msg, "listing_id", result.ListingID, "host_id", hostID, "state", result.State)
	}
}

func (h *HostListingHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

// loadOwned hides listings of other hosts behind ErrNotFound.
func loadOwned(ctx context.Context, unit uow.UnitOfWork, hostID, listingID string) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, err
	}
	if listing.Host != domainlistings.HostID(hostID) {
		return nil, domainlistings.ErrNotFound
	}
	return listing, nil
}

var (
	_ commands.HandlerFunc[CreateHostListingCommand, *dto.ListingResult]    = (*HostListingHandler)(nil).Create
	_ commands.HandlerFunc[UpdateHostListingCommand, *dto.ListingResult]    = (*HostListingHandler)(nil).Update
	_ commands.HandlerFunc[PublishHostListingCommand, *dto.ListingResult]   = (*HostListingHandler)(nil).Publish
	_ commands.HandlerFunc[UnpublishHostListingCommand, *dto.ListingResult] = (*HostListingHandler)(nil).Unpublish
	_ middleware.IdempotentCommand                                          = CreateHostListingCommand{}
)

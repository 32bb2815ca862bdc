package main

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	availabilityapp "venuehire/internal/app/handlers/availability"
	bookingapp "venuehire/internal/app/handlers/booking"
	listingapp "venuehire/internal/app/handlers/listings"
	meapp "venuehire/internal/app/handlers/me"
	quotesapp "venuehire/internal/app/handlers/quotes"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/outbox"
	"venuehire/internal/app/queries"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/infra/config"
	ginserver "venuehire/internal/infra/http/gin"
	infrapricing "venuehire/internal/infra/pricing"
	"venuehire/internal/infra/validation"
)

type application struct {
	commands commands.Bus
	queries  queries.Bus
	handlers ginserver.Handlers
}

// buildApplication registers every handler on fresh buses and wraps them in the
// middleware chains. Clock is injectable for tests.
func buildApplication(st *storage, cfg config.Config, policy domainpricing.Policy, clock func() time.Time, logger *slog.Logger) (*application, error) {
	if clock == nil {
		clock = time.Now
	}
	pricingPort, err := infrapricing.NewEnginePort(policy, logger)
	if err != nil {
		return nil, err
	}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	requestBooking := &bookingapp.RequestBookingHandler{
		UoWFactory:  st.factory,
		Pricing:     pricingPort,
		Outbox:      st.outbox,
		Encoder:     encoder,
		Clock:       clock,
		IDGenerator: uuid.NewString,
		Logger:      logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), requestBooking)
	cancelBooking := &bookingapp.CancelGuestBookingHandler{
		UoWFactory: st.factory,
		Outbox:     st.outbox,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.CancelGuestBookingCommand{}.Key(), cancelBooking)

	hostBookings := &bookingapp.HostBookingHandler{
		UoWFactory: st.factory,
		Outbox:     st.outbox,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.ConfirmHostBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.ConfirmHostBookingCommand, *dto.BookingResult](hostBookings.Confirm))
	commands.RegisterHandler(commandBus, bookingapp.DeclineHostBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.DeclineHostBookingCommand, *dto.BookingResult](hostBookings.Decline))
	commands.RegisterHandler(commandBus, bookingapp.CompleteHostBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.CompleteHostBookingCommand, *dto.BookingResult](hostBookings.Complete))

	hostListings := &listingapp.HostListingHandler{
		UoWFactory:  st.factory,
		Outbox:      st.outbox,
		Encoder:     encoder,
		Clock:       clock,
		IDGenerator: uuid.NewString,
		Logger:      logger,
	}
	commands.RegisterHandler(commandBus, listingapp.CreateHostListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.CreateHostListingCommand, *dto.ListingResult](hostListings.Create))
	commands.RegisterHandler(commandBus, listingapp.UpdateHostListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.UpdateHostListingCommand, *dto.ListingResult](hostListings.Update))
	commands.RegisterHandler(commandBus, listingapp.UpdateHostListingPricingCommand{}.Key(),
		commands.HandlerFunc[listingapp.UpdateHostListingPricingCommand, *dto.ListingResult](hostListings.UpdatePricing))
	commands.RegisterHandler(commandBus, listingapp.PublishHostListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.PublishHostListingCommand, *dto.ListingResult](hostListings.Publish))
	commands.RegisterHandler(commandBus, listingapp.UnpublishHostListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.UnpublishHostListingCommand, *dto.ListingResult](hostListings.Unpublish))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, quotesapp.GetQuoteQuery{}.Key(), &quotesapp.GetQuoteHandler{
		UoWFactory: st.factory,
		Pricing:    pricingPort,
		Clock:      clock,
		Logger:     logger,
	})
	queries.RegisterHandler(queryBus, availabilityapp.GetDayScheduleQuery{}.Key(), &availabilityapp.GetDayScheduleHandler{
		UoWFactory: st.factory,
	})
	queries.RegisterHandler(queryBus, listingapp.SearchCatalogQuery{}.Key(), &listingapp.SearchCatalogHandler{
		UoWFactory: st.factory,
		Clock:      clock,
	})
	queries.RegisterHandler(queryBus, listingapp.ListHostListingsQuery{}.Key(), &listingapp.ListHostListingsHandler{
		UoWFactory: st.factory,
		Clock:      clock,
	})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{
		UoWFactory: st.factory,
	})
	queries.RegisterHandler(queryBus, bookingapp.ListHostBookingsQuery{}.Key(), &bookingapp.ListHostBookingsHandler{
		UoWFactory: st.factory,
		Logger:     logger,
	})
	queries.RegisterHandler(queryBus, meapp.ListGuestBookingsQuery{}.Key(), &meapp.ListGuestBookingsHandler{
		UoWFactory: st.factory,
		Logger:     logger,
	})

	logger.Debug("handlers registered", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	validator := validation.New()
	authorizer := middleware.RoleAuthorizer{}
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(validator),
		middleware.Authorization(authorizer),
		middleware.Idempotency(st.idempotency, middleware.IdempotencyOptions{Clock: clock, Logger: logger}),
		middleware.InvalidateCache(st.cache, logger),
		middleware.OutboxFlush(st.outbox, logger),
		middleware.Transaction(st.factory, nil, logger),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(authorizer),
		middleware.Cache(st.cache, middleware.CacheOptions{TTL: cfg.QuoteCacheTTL, Clock: clock, Logger: logger}),
	)

	return &application{
		commands: commandBusWithMiddleware,
		queries:  queryBusWithMiddleware,
		handlers: ginserver.Handlers{
			Quote:          ginserver.QuoteHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Listing:        ginserver.ListingHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Booking:        ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
			HostListing:    ginserver.HostListingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
			HostBooking:    ginserver.HostBookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{}.Handle,
		},
	}, nil
}

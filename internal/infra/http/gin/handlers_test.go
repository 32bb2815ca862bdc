package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	bookingapp "venuehire/internal/app/handlers/booking"
	listingapp "venuehire/internal/app/handlers/listings"
	quotesapp "venuehire/internal/app/handlers/quotes"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
	domainavailability "venuehire/internal/domain/availability"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/infra/obs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type commandBusStub struct {
	got    commands.Command
	result any
	err    error
}

func (b *commandBusStub) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.got = cmd
	return b.result, b.err
}

type queryBusStub struct {
	got       queries.Query
	principal middleware.Principal
	result    any
	err       error
}

func (b *queryBusStub) Ask(ctx context.Context, q queries.Query) (any, error) {
	b.got = q
	b.principal, _ = middleware.PrincipalFrom(ctx)
	return b.result, b.err
}

func newTestRouter(h Handlers) *gin.Engine {
	h.AuthMiddleware = AuthMiddleware{}.Handle
	return NewRouter(obs.Middleware{}, obs.HealthHandlers{}, h)
}

func serve(router *gin.Engine, method, path, user, roles string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(headerUserID, user)
		req.Header.Set(headerUserRoles, roles)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestQuoteHandlerBuildsQuery(t *testing.T) {
	bus := &queryBusStub{result: &dto.Quote{ListingID: "l-1", Guests: 3}}
	router := newTestRouter(Handlers{Quote: QuoteHandler{Queries: bus}})

	rec := serve(router, http.MethodPost, "/api/v1/listings/l-1/quote", "", "", map[string]any{
		"date": "2025-03-10", "start": " 10:00", "end": "14:00 ", "guests": 3,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quotesapp.GetQuoteQuery{ListingID: "l-1", Date: "2025-03-10", Start: "10:00", End: "14:00", Guests: 3}, bus.got)
}

func TestQuoteHandlerRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(Handlers{Quote: QuoteHandler{Queries: &queryBusStub{}}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/l-1/quote", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{domainavailability.ErrConflictsWithExistingBooking, http.StatusConflict, "conflicts_with_existing_booking"},
		{fmt.Errorf("wrapped: %w", domainavailability.ErrOutsideOperatingHours), http.StatusUnprocessableEntity, "outside_operating_hours"},
		{domainpricing.ErrInvalidConfiguration, http.StatusUnprocessableEntity, "invalid_configuration"},
		{domainlistings.ErrNotFound, http.StatusNotFound, "not_found"},
		{uow.ErrSlotBusy, http.StatusConflict, "slot_busy"},
		{middleware.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		bus := &queryBusStub{err: tc.err}
		router := newTestRouter(Handlers{Quote: QuoteHandler{Queries: bus}})
		rec := serve(router, http.MethodGet, "/api/v1/listings/l-1/schedule?date=2025-03-10", "", "", nil)

		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
		if tc.want == http.StatusInternalServerError {
			assert.Equal(t, "internal error", body.Error)
		}
	}
}

func TestInvalidConfigurationLoggedAsWarningWithListing(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	cases := []struct {
		name    string
		handler Handlers
		method  string
		path    string
		user    string
		body    any
	}{
		{
			name:    "quote",
			handler: Handlers{Quote: QuoteHandler{Queries: &queryBusStub{err: domainpricing.ErrInvalidConfiguration}, Logger: logger}},
			method:  http.MethodPost,
			path:    "/api/v1/listings/loft-1/quote",
			body:    map[string]any{"date": "2025-03-10", "start": "10:00", "end": "12:00", "guests": 2},
		},
		{
			name:    "booking",
			handler: Handlers{Booking: BookingHandler{Commands: &commandBusStub{err: domainpricing.ErrInvalidConfiguration}, Logger: logger}},
			method:  http.MethodPost,
			path:    "/api/v1/bookings",
			user:    "guest-7",
			body:    map[string]any{"listing_id": "loft-1", "date": "2025-03-10", "start": "10:00", "end": "12:00", "guests": 2},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs.Reset()
			rec := serve(newTestRouter(tc.handler), tc.method, tc.path, tc.user, "", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry), logs.String())
			assert.Equal(t, "WARN", entry["level"])
			assert.Equal(t, "loft-1", entry["listing_id"])
			assert.Equal(t, float64(http.StatusUnprocessableEntity), entry["status"])
		})
	}
}

func TestBookingCreateUsesCallerAndIdempotencyKey(t *testing.T) {
	bus := &commandBusStub{result: &dto.BookingResult{BookingID: "b-1", Status: "PENDING"}}
	router := newTestRouter(Handlers{Booking: BookingHandler{Commands: bus}})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{
		"listing_id": "l-1", "date": "2025-03-10", "start": "10:00", "end": "12:00", "guests": 2,
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", &buf)
	req.Header.Set(headerUserID, "guest-7")
	req.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/v1/bookings/b-1", rec.Header().Get("Location"))
	cmd, ok := bus.got.(bookingapp.RequestBookingCommand)
	require.True(t, ok)
	assert.Equal(t, "guest-7", cmd.GuestID)
	assert.Equal(t, "abc", cmd.IdempotencyKeyV)
	assert.Equal(t, 2, cmd.Guests)
}

func TestBookingRoutesRequireCaller(t *testing.T) {
	bus := &commandBusStub{}
	router := newTestRouter(Handlers{Booking: BookingHandler{Commands: bus, Queries: &queryBusStub{}}})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/api/v1/bookings", "", "", map[string]any{}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/me/bookings", "", "", nil).Code)
	assert.Nil(t, bus.got)
}

func TestHostBookingDeclineForwardsReason(t *testing.T) {
	bus := &commandBusStub{result: &dto.BookingResult{BookingID: "b-1", Status: "DECLINED"}}
	router := newTestRouter(Handlers{HostBooking: HostBookingHandler{Commands: bus}})

	rec := serve(router, http.MethodPost, "/api/v1/host/bookings/b-1/decline", "host-1", "guest,host", map[string]any{"reason": " fully booked "})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, bookingapp.DeclineHostBookingCommand{HostID: "host-1", BookingID: "b-1", Reason: "fully booked"}, bus.got)

	rec = serve(router, http.MethodPost, "/api/v1/host/bookings/b-1/confirm", "guest-1", "guest", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHostListingCreateBindsPricing(t *testing.T) {
	bus := &commandBusStub{result: &dto.ListingResult{ListingID: "l-9", State: "DRAFT"}}
	router := newTestRouter(Handlers{HostListing: HostListingHandler{Commands: bus}})

	rec := serve(router, http.MethodPost, "/api/v1/host/listings", "host-1", "host", map[string]any{
		"title":    "Roof Terrace",
		"capacity": 30,
		"address":  map[string]any{"line1": "1 High St", "city": "Leeds", "country": "GB"},
		"pricing": map[string]any{
			"hourly_rate":        map[string]any{"amount": 7500, "currency": "GBP"},
			"min_hours":          2,
			"max_hours":          8,
			"duration_discounts": []map[string]any{{"min_hours": 4, "discount_percent": "10"}},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cmd, ok := bus.got.(listingapp.CreateHostListingCommand)
	require.True(t, ok)
	assert.Equal(t, "host-1", cmd.HostID)
	assert.Equal(t, "Roof Terrace", cmd.Payload.Title)
	assert.Equal(t, 30, cmd.Payload.Capacity)
	assert.Equal(t, "Leeds", cmd.Payload.Address.City)
	assert.Equal(t, int64(7500), cmd.Pricing.HourlyRate.Amount)
	require.Len(t, cmd.Pricing.DurationDiscounts, 1)
	assert.Equal(t, "10", cmd.Pricing.DurationDiscounts[0].DiscountPercent.String())
}

func TestListingGetPassesViewer(t *testing.T) {
	bus := &queryBusStub{result: dto.ListingView{}}
	router := newTestRouter(Handlers{Listing: ListingHandler{Queries: bus}})

	rec := serve(router, http.MethodGet, "/api/v1/listings/l-1", "host-1", "host", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listingapp.GetListingQuery{ListingID: "l-1", ViewerID: "host-1"}, bus.got)
	assert.Equal(t, "host-1", bus.principal.ID)
}

func TestCatalogParsesFilters(t *testing.T) {
	bus := &queryBusStub{result: dto.ListingCatalog{}}
	router := newTestRouter(Handlers{Listing: ListingHandler{Queries: bus}})

	rec := serve(router, http.MethodGet, "/api/v1/listings?city=Lisbon&venue_types=loft,%20studio,&min_guests=12&max_rate_cents=-5&limit=abc", "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listingapp.SearchCatalogQuery{
		City:       "Lisbon",
		VenueTypes: []string{"loft", "studio"},
		MinGuests:  12,
		Limit:      24,
	}, bus.got)
}

func TestMissingBusIsUnavailable(t *testing.T) {
	router := newTestRouter(Handlers{Quote: QuoteHandler{}})
	rec := serve(router, http.MethodGet, "/api/v1/listings/l-1/schedule", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/infra/config"
	ginserver "venuehire/internal/infra/http/gin"
	"venuehire/internal/infra/obs"
	"venuehire/internal/infra/storage/memory"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type testApp struct {
	router *gin.Engine
	outbox *memory.Outbox
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		StorageDriver:  config.DriverMemory,
		QuoteCacheTTL:  time.Minute,
		IdempotencyTTL: time.Hour,
		SlotWait:       time.Second,
	}
	ctx := context.Background()

	st, err := openStorage(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.close(context.Background(), logger) })
	box := memory.NewOutbox(nil)
	st.outbox = box

	n, err := loadListingFixtures(ctx, st.factory, filepath.Join("..", "..", "data", "listings.json"), testNow, logger)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	app, err := buildApplication(st, cfg, domainpricing.DefaultPolicy(), func() time.Time { return testNow }, logger)
	require.NoError(t, err)

	return testApp{
		router: ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{Checks: st.checks}, app.handlers),
		outbox: box,
	}
}

func (a testApp) do(t *testing.T, method, path, user, roles string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Roles", roles)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type bookingBody struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestQuoteMatchesSeedListing(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/listings/loft-riverside/quote", "", "", map[string]any{
		"date": "2025-03-10", "start": "10:00", "end": "14:00", "guests": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	quote := decode[struct {
		Breakdown struct {
			BasePrice  struct{ Amount int64 } `json:"base_price"`
			ServiceFee struct{ Amount int64 } `json:"service_fee"`
			TotalPrice struct{ Amount int64 } `json:"total_price"`
		} `json:"breakdown"`
	}](t, rec)
	assert.Equal(t, int64(21600), quote.Breakdown.BasePrice.Amount)
	assert.Equal(t, int64(2160), quote.Breakdown.ServiceFee.Amount)
	assert.Equal(t, int64(25853), quote.Breakdown.TotalPrice.Amount)
}

func TestQuoteOutsideOperatingHours(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/listings/hall-market/quote", "", "", map[string]any{
		"date": "2025-03-10", "start": "07:00", "end": "11:00", "guests": 50,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "outside_operating_hours", decode[errorBody](t, rec).Code)
}

func TestOverlappingBookingConflictsAfterConfirmation(t *testing.T) {
	app := newTestApp(t)

	first := app.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", "", map[string]any{
		"listing_id": "loft-riverside", "date": "2025-03-10", "start": "14:00", "end": "18:00", "guests": 4,
	})
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	booked := decode[bookingBody](t, first)

	confirm := app.do(t, http.MethodPost, "/api/v1/host/bookings/"+booked.BookingID+"/confirm", "host-ana", "host", nil)
	require.Equal(t, http.StatusOK, confirm.Code, confirm.Body.String())
	assert.Equal(t, "CONFIRMED", decode[bookingBody](t, confirm).Status)

	second := app.do(t, http.MethodPost, "/api/v1/bookings", "guest-2", "", map[string]any{
		"listing_id": "loft-riverside", "date": "2025-03-10", "start": "16:00", "end": "19:00", "guests": 2,
	})
	require.Equal(t, http.StatusConflict, second.Code, second.Body.String())
	assert.Equal(t, "conflicts_with_existing_booking", decode[errorBody](t, second).Code)

	adjacent := app.do(t, http.MethodPost, "/api/v1/bookings", "guest-2", "", map[string]any{
		"listing_id": "loft-riverside", "date": "2025-03-10", "start": "18:00", "end": "20:00", "guests": 2,
	})
	assert.Equal(t, http.StatusCreated, adjacent.Code, adjacent.Body.String())
}

func TestDayScheduleShowsHeldWindows(t *testing.T) {
	app := newTestApp(t)
	type window struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	type schedule struct {
		Open bool     `json:"open"`
		Held []window `json:"held"`
	}
	get := func(path string) schedule {
		rec := app.do(t, http.MethodGet, path, "", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[schedule](t, rec)
	}

	before := get("/api/v1/listings/loft-riverside/schedule?date=2025-03-10")
	assert.True(t, before.Open)
	assert.Empty(t, before.Held)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", "", map[string]any{
		"listing_id": "loft-riverside", "date": "2025-03-10", "start": "14:00", "end": "18:00", "guests": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	after := get("/api/v1/listings/loft-riverside/schedule?date=2025-03-10")
	assert.Equal(t, []window{{Start: "14:00", End: "18:00"}}, after.Held)

	assert.False(t, get("/api/v1/listings/hall-market/schedule?date=2025-03-09").Open)
}

func TestConcurrentBookingsForOneSlotAdmitOne(t *testing.T) {
	app := newTestApp(t)
	const n = 8

	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := app.do(t, http.MethodPost, "/api/v1/bookings", fmt.Sprintf("guest-%d", i), "", map[string]any{
				"listing_id": "loft-riverside", "date": "2025-03-12", "start": "10:00", "end": "14:00", "guests": 2,
			})
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, created, "codes %v", codes)
}

func TestRequestBookingReplaysIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	body := map[string]any{
		"listing_id": "studio-north", "date": "2025-03-11", "start": "09:00", "end": "12:00", "guests": 2,
	}

	first := app.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", "", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	replay := app.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", "", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, replay.Code, replay.Body.String())

	assert.Equal(t, decode[bookingBody](t, first).BookingID, decode[bookingBody](t, replay).BookingID)

	mine := app.do(t, http.MethodGet, "/api/v1/me/bookings", "guest-1", "", nil)
	require.Equal(t, http.StatusOK, mine.Code)
	assert.Len(t, decode[struct {
		Items []bookingBody `json:"items"`
	}](t, mine).Items, 1)
	assert.Len(t, app.outbox.Published(), 1)
}

func TestHostRoutesRequireHostRole(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/host/listings", "", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/host/listings", "guest-1", "", nil).Code)

	rec := app.do(t, http.MethodGet, "/api/v1/host/listings", "host-ana", "host", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[struct {
		Total int `json:"total"`
	}](t, rec).Total)
}

func TestPricingUpdateInvalidatesCachedQuote(t *testing.T) {
	app := newTestApp(t)
	quoteBody := map[string]any{"date": "2025-03-11", "start": "09:00", "end": "11:00", "guests": 1}
	total := func() int64 {
		rec := app.do(t, http.MethodPost, "/api/v1/listings/studio-north/quote", "", "", quoteBody)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[struct {
			Breakdown struct {
				BasePrice struct{ Amount int64 } `json:"base_price"`
			} `json:"breakdown"`
		}](t, rec).Breakdown.BasePrice.Amount
	}
	require.Equal(t, int64(10000), total())

	rec := app.do(t, http.MethodPut, "/api/v1/host/listings/studio-north/pricing", "host-ana", "host", map[string]any{
		"hourly_rate":     map[string]any{"amount": 6000, "currency": "USD"},
		"min_hours":       1,
		"max_hours":       10,
		"included_guests": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int64(12000), total())
}

func TestFixturesAreNotImportedTwice(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := memory.Factory{Store: memory.NewStore()}
	path := filepath.Join("..", "..", "data", "listings.json")

	n, err := loadListingFixtures(context.Background(), factory, path, testNow, logger)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = loadListingFixtures(context.Background(), factory, path, testNow, logger)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = loadListingFixtures(context.Background(), factory, "missing.json", testNow, logger)
	require.NoError(t, err)
	assert.Zero(t, n)
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cargo-engine/api"
	"github.com/warp/cargo-engine/booking"
	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
	"github.com/warp/cargo-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	srv   *httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.SaveStation(ctx, catalog.Station{ID: "st-del", Code: "NDLS", Name: "New Delhi", Active: true}))
	require.NoError(t, store.SaveStation(ctx, catalog.Station{ID: "st-bom", Code: "CSMT", Name: "Mumbai", Active: true}))
	require.NoError(t, store.SaveCategory(ctx, catalog.CommodityCategory{
		ID: "cat-steel", Name: "Steel", BaseRatePerKg: decimal.NewFromInt(10), Active: true,
	}))
	require.NoError(t, store.InsertSlot(ctx, capacity.Slot{
		ID:          "slot-1",
		FromStation: "st-del",
		ToStation:   "st-bom",
		Category:    "cat-steel",
		Date:        time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour),
		TotalKg:     decimal.NewFromInt(1000),
		BookedKg:    decimal.Zero,
		PricePerKg:  decimal.NewFromInt(10),
	}))

	cat := catalog.New(store)
	require.NoError(t, cat.Refresh(ctx))

	capLedger := capacity.NewLedger(store, nil)
	bookings := booking.NewLedger(store, store, capLedger, cat, nil, nil)

	handler := api.NewHandler(bookings, capLedger, cat, nil)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (ts *testServer) doList(t *testing.T, path string) (*http.Response, []map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded []map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createBody() map[string]any {
	return map[string]any{
		"user_id":               "user-1",
		"sender_name":           "Asha Rao",
		"sender_phone":          "9000000001",
		"sender_address":        "12 MG Road, Delhi",
		"receiver_name":         "Vikram Shah",
		"receiver_phone":        "9000000002",
		"receiver_address":      "4 Marine Drive, Mumbai",
		"from_station_id":       "st-del",
		"to_station_id":         "st-bom",
		"commodity_category_id": "cat-steel",
		"weight_kg":             "200",
	}
}

func errorKind(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return e["kind"].(string)
}

func (ts *testServer) createBooking(t *testing.T) map[string]any {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/bookings", createBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create failed: %v", body)
	return body
}

// =============================================================================
// BOOKING LIFECYCLE OVER HTTP
// =============================================================================

func TestAPI_CreateBooking(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/bookings", createBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "2000.00", body["base_charge"])
	assert.Equal(t, "360.00", body["tax_amount"])
	assert.Equal(t, "2360.00", body["total_amount"])
	assert.Regexp(t, `^RPB-\d{8}-\d{4}$`, body["booking_number"])
	assert.NotEmpty(t, body["id"])
}

func TestAPI_CreateBooking_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	// Missing required field.
	payload := createBody()
	delete(payload, "sender_phone")
	resp, body := ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errorKind(t, body))

	// Same origin and destination.
	payload = createBody()
	payload["to_station_id"] = "st-del"
	resp, body = ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errorKind(t, body))

	// Malformed JSON body.
	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/bookings", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestAPI_CreateBooking_CapacityErrors(t *testing.T) {
	ts := newTestServer(t)

	// No slot exists for the reversed route.
	payload := createBody()
	payload["from_station_id"] = "st-bom"
	payload["to_station_id"] = "st-del"
	resp, body := ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no_matching_slot", errorKind(t, body))

	// Slots exist but cannot fit the weight.
	payload = createBody()
	payload["weight_kg"] = "1500"
	resp, body = ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_capacity", errorKind(t, body))
}

func TestAPI_ConfirmAndTrack(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createBooking(t)
	id := created["id"].(string)

	resp, body := ts.do(t, http.MethodPost, "/api/bookings/"+id+"/confirm", map[string]any{
		"payment_method": "upi",
		"transaction_id": "txn-42",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "confirmed", body["status"])

	// Confirming twice conflicts.
	resp, body = ts.do(t, http.MethodPost, "/api/bookings/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", errorKind(t, body))

	// Advance through the shipment path.
	resp, body = ts.do(t, http.MethodPost, "/api/bookings/"+id+"/status", map[string]any{
		"status":      "in_transit",
		"location":    "NDLS",
		"description": "Departed origin yard",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in_transit", body["status"])

	resp, _ = ts.do(t, http.MethodPost, "/api/bookings/"+id+"/status", map[string]any{
		"status":      "delivered",
		"location":    "CSMT",
		"description": "Delivered to consignee",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Full history, oldest first.
	listResp, events := ts.doList(t, "/api/bookings/"+id+"/tracking")
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	require.Len(t, events, 4)
	assert.Equal(t, "pending", events[0]["status"])
	assert.Equal(t, "delivered", events[3]["status"])
}

func TestAPI_ConfirmBooking_ChunkedBodyKeepsPayment(t *testing.T) {
	// GIVEN: A confirm request whose body length is unknown up front, so the
	//        client sends it chunked (Content-Length -1)
	// WHEN: Confirming with a payment reference
	// THEN: The payment is recorded, not silently dropped

	ts := newTestServer(t)
	created := ts.createBooking(t)
	id := created["id"].(string)

	payload, err := json.Marshal(map[string]any{
		"payment_method": "upi",
		"transaction_id": "txn-77",
	})
	require.NoError(t, err)

	// Wrapping the reader hides its length from the http client.
	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/bookings/"+id+"/confirm",
		struct{ io.Reader }{bytes.NewReader(payload)})
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payments := ts.store.Payments(booking.BookingID(id))
	require.Len(t, payments, 1)
	assert.Equal(t, "txn-77", payments[0].TransactionID)
	assert.Equal(t, "upi", payments[0].Method)
}

func TestAPI_AdvanceStatus_RejectsBadTargets(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createBooking(t)["id"].(string)

	// "cancelled" is not an allowed target for the status endpoint.
	resp, body := ts.do(t, http.MethodPost, "/api/bookings/"+id+"/status", map[string]any{
		"status":      "cancelled",
		"description": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errorKind(t, body))

	// Legal target, illegal from pending.
	resp, body = ts.do(t, http.MethodPost, "/api/bookings/"+id+"/status", map[string]any{
		"status":      "in_transit",
		"description": "Departed",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", errorKind(t, body))
}

func TestAPI_CancelBooking(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createBooking(t)["id"].(string)

	resp, body := ts.do(t, http.MethodPost, "/api/bookings/"+id+"/cancel", map[string]any{
		"reason":          "shipment postponed",
		"requesting_user": "user-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2360.00", body["refund_amount"])

	// The booking shows its cancellation fields.
	resp, got := ts.do(t, http.MethodGet, "/api/bookings/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", got["status"])
	assert.Equal(t, "shipment postponed", got["cancellation_reason"])
	assert.Equal(t, "2360.00", got["refund_amount"])

	// Cancelling again conflicts.
	resp, body = ts.do(t, http.MethodPost, "/api/bookings/"+id+"/cancel", map[string]any{
		"reason":          "again",
		"requesting_user": "user-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", errorKind(t, body))
}

func TestAPI_ListBookings_FiltersCancelled(t *testing.T) {
	ts := newTestServer(t)

	keep := ts.createBooking(t)["id"].(string)
	drop := ts.createBooking(t)["id"].(string)

	resp, _ := ts.do(t, http.MethodPost, "/api/bookings/"+drop+"/cancel", map[string]any{
		"reason":          "postponed",
		"requesting_user": "user-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, visible := ts.doList(t, "/api/bookings?user_id=user-1")
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	require.Len(t, visible, 1)
	assert.Equal(t, keep, visible[0]["id"])

	_, all := ts.doList(t, "/api/bookings?user_id=user-1&include_cancelled=true")
	assert.Len(t, all, 2)

	// user_id is mandatory.
	missingResp, _ := ts.do(t, http.MethodGet, "/api/bookings", nil)
	assert.Equal(t, http.StatusBadRequest, missingResp.StatusCode)
}

func TestAPI_GetBooking_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/bookings/bk-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, body))

	resp, body = ts.do(t, http.MethodGet, "/api/bookings/number/RPB-19990101-0001", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, body))
}

func TestAPI_GetBookingByNumber(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createBooking(t)
	number := created["booking_number"].(string)

	resp, body := ts.do(t, http.MethodGet, "/api/bookings/number/"+number, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created["id"], body["id"])
}

// =============================================================================
// AVAILABILITY & REFERENCE DATA
// =============================================================================

func TestAPI_Availability(t *testing.T) {
	ts := newTestServer(t)
	ts.createBooking(t)

	path := "/api/availability?from_station_id=st-del&to_station_id=st-bom&commodity_category_id=cat-steel"
	resp, slots := ts.doList(t, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0]["slot_id"])
	assert.Equal(t, "800", slots[0]["available_capacity_kg"])

	// Missing query parameters.
	badResp, _ := ts.do(t, http.MethodGet, "/api/availability?from_station_id=st-del", nil)
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

func TestAPI_ReferenceData(t *testing.T) {
	ts := newTestServer(t)

	resp, stations := ts.doList(t, "/api/stations")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, stations, 2)

	resp, categories := ts.doList(t, "/api/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, categories, 1)
	assert.Equal(t, "10.00", categories[0]["base_rate_per_kg"])
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAPI_ProvisionAndUpdateSlot(t *testing.T) {
	ts := newTestServer(t)

	resp, slot := ts.do(t, http.MethodPost, "/api/admin/slots", map[string]any{
		"from_station_id":       "st-bom",
		"to_station_id":         "st-del",
		"commodity_category_id": "cat-steel",
		"date":                  "2025-06-01",
		"total_capacity_kg":     "500",
		"price_per_kg":          "8",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slotID := slot["slot_id"].(string)
	assert.Equal(t, "2025-06-01", slot["date"])
	assert.Equal(t, "500", slot["available_capacity_kg"])

	resp, updated := ts.do(t, http.MethodPut, "/api/admin/slots/"+slotID, map[string]any{
		"total_capacity_kg": "800",
		"price_per_kg":      "9",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "800", updated["total_capacity_kg"])
	assert.Equal(t, "9.00", updated["price_per_kg"])
}

func TestAPI_UpdateCategoryRate(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPut, "/api/admin/categories/cat-steel/rate", map[string]any{
		"base_rate_per_kg": "14",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "14.00", body["base_rate_per_kg"])

	// Existing slots keep their captured price after a rate change.
	created := ts.createBooking(t)
	assert.Equal(t, "2000.00", created["base_charge"], "booking priced from the slot snapshot, not the new rate")

	resp, body = ts.do(t, http.MethodPut, "/api/admin/categories/cat-steel/rate", map[string]any{
		"base_rate_per_kg": "0",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errorKind(t, body))

	resp, body = ts.do(t, http.MethodPut, "/api/admin/categories/cat-missing/rate", map[string]any{
		"base_rate_per_kg": "5",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, body))
}

func TestAPI_CatalogRefresh(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.store.SaveStation(ctx, catalog.Station{ID: "st-maa", Code: "MAS", Name: "Chennai", Active: true}))

	resp, _ := ts.do(t, http.MethodPost, "/api/admin/catalog/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, stations := ts.doList(t, "/api/stations")
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	assert.Len(t, stations, 3)
}

func TestAPI_Healthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

/*
handlers.go - HTTP handlers for the booking engine

ENDPOINTS:
  Bookings:
    POST   /api/bookings                    Create a booking
    GET    /api/bookings?user_id=           List a user's bookings
    GET    /api/bookings/{id}               Get by ID
    GET    /api/bookings/number/{number}    Get by booking number
    POST   /api/bookings/{id}/confirm       Confirm after payment
    POST   /api/bookings/{id}/status        Advance shipment status
    POST   /api/bookings/{id}/cancel        Cancel with refund
    GET    /api/bookings/{id}/tracking      Tracking history

  Availability:
    GET    /api/availability                Open slots for a route

  Reference data:
    GET    /api/stations                    Active stations
    GET    /api/categories                  Active commodity categories

  Admin:
    POST   /api/admin/slots                 Provision a capacity slot
    PUT    /api/admin/slots/{id}            Resize/reprice a slot
    PUT    /api/admin/categories/{id}/rate  Update a category base rate
    POST   /api/admin/catalog/refresh       Reload reference data

ERROR HANDLING:
  Every failure renders ErrorResponse with a stable kind. Mapping:
    400 validation_error          invalid or missing input
    404 not_found                 unknown booking/slot/reference
    404 no_matching_slot          no slot exists for the route
    409 insufficient_capacity     slots exist but cannot fit the weight
    409 invalid_transition        state-machine violation
    409 cancellation_window_expired
    500 internal                  everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/cargo-engine/booking"
	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Bookings *booking.Ledger
	Capacity *capacity.Ledger
	Catalog  *catalog.Catalog
	Log      *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a handler with its own validator instance.
func NewHandler(bookings *booking.Ledger, cap *capacity.Ledger, cat *catalog.Catalog, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Bookings: bookings,
		Capacity: cap,
		Catalog:  cat,
		Log:      log,
		validate: validator.New(),
	}
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.writeError(w, &booking.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
			return
		}
	}

	b, err := h.Bookings.Create(r.Context(), booking.CreateRequest{
		UserID: req.UserID,
		Sender: booking.Party{
			Name:    req.SenderName,
			Phone:   req.SenderPhone,
			Address: req.SenderAddress,
		},
		Receiver: booking.Party{
			Name:    req.ReceiverName,
			Phone:   req.ReceiverPhone,
			Address: req.ReceiverAddress,
		},
		FromStation:   catalog.StationID(req.FromStationID),
		ToStation:     catalog.StationID(req.ToStationID),
		Category:      catalog.CategoryID(req.CommodityCategoryID),
		Date:          date,
		WeightKg:      req.WeightKg,
		DeclaredValue: req.DeclaredValue,
		Description:   req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

// GetBooking handles GET /api/bookings/{id}.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))
	b, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// GetBookingByNumber handles GET /api/bookings/number/{number}.
func (h *Handler) GetBookingByNumber(w http.ResponseWriter, r *http.Request) {
	n := booking.Number(chi.URLParam(r, "number"))
	b, err := h.Bookings.GetByNumber(r.Context(), n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ListBookings handles GET /api/bookings?user_id=...&include_cancelled=true.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, &booking.ValidationError{Field: "user_id", Message: "required"})
		return
	}
	includeCancelled := r.URL.Query().Get("include_cancelled") == "true"

	list, err := h.Bookings.ListByUser(r.Context(), userID, includeCancelled)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]BookingDTO, len(list))
	for i, b := range list {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm. Invoked by the
// payment collaborator once the external payment step succeeds.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))

	// The payment payload is optional, so an empty body is fine. Decode
	// unconditionally rather than gating on Content-Length, which is -1 for
	// chunked requests.
	var req ConfirmBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, &booking.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	var payment *booking.PaymentRef
	if req.TransactionID != "" || req.PaymentMethod != "" {
		payment = &booking.PaymentRef{
			Method:        req.PaymentMethod,
			TransactionID: req.TransactionID,
			Amount:        req.Amount,
		}
	}

	b, err := h.Bookings.Confirm(r.Context(), id, payment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// AdvanceStatus handles POST /api/bookings/{id}/status. This belongs to
// the operations collaborator, not the shipper.
func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))

	var req AdvanceStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	ev, err := h.Bookings.AdvanceStatus(r.Context(), id, booking.Status(req.Status), req.Location, req.Description, req.Actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingEventDTO(ev))
}

// CancelBooking handles POST /api/bookings/{id}/cancel.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))

	var req CancelBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.Bookings.Cancel(r.Context(), id, req.Reason, req.RequestingUser)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelResultDTO{RefundAmount: res.RefundAmount.StringFixed(2)})
}

// ListTracking handles GET /api/bookings/{id}/tracking?order=desc.
func (h *Handler) ListTracking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))
	order := booking.OldestFirst
	if r.URL.Query().Get("order") == "desc" {
		order = booking.NewestFirst
	}

	events, err := h.Bookings.TrackingEvents(r.Context(), id, order)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]TrackingEventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toTrackingEventDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AVAILABILITY & REFERENCE DATA
// =============================================================================

// QueryAvailability handles GET /api/availability.
func (h *Handler) QueryAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("from_station_id")
	to := q.Get("to_station_id")
	category := q.Get("commodity_category_id")
	if from == "" || to == "" || category == "" {
		h.writeError(w, &booking.ValidationError{Field: "from_station_id/to_station_id/commodity_category_id", Message: "required"})
		return
	}

	date := time.Now()
	if d := q.Get("date"); d != "" {
		var err error
		date, err = time.Parse("2006-01-02", d)
		if err != nil {
			h.writeError(w, &booking.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
			return
		}
	}

	slots, err := h.Capacity.Availability(r.Context(),
		catalog.StationID(from), catalog.StationID(to), catalog.CategoryID(category), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]AvailabilityDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toAvailabilityDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListStations handles GET /api/stations.
func (h *Handler) ListStations(w http.ResponseWriter, _ *http.Request) {
	stations := h.Catalog.ActiveStations()
	dtos := make([]StationDTO, len(stations))
	for i, s := range stations {
		dtos[i] = toStationDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	categories := h.Catalog.ActiveCategories()
	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ProvisionSlot handles POST /api/admin/slots.
func (h *Handler) ProvisionSlot(w http.ResponseWriter, r *http.Request) {
	var req ProvisionSlotRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.writeError(w, &booking.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
		return
	}

	slot, err := h.Capacity.ProvisionSlot(r.Context(),
		catalog.StationID(req.FromStationID), catalog.StationID(req.ToStationID),
		catalog.CategoryID(req.CommodityCategoryID), date, req.TotalCapacityKg, req.PricePerKg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAvailabilityDTO(slot))
}

// UpdateSlot handles PUT /api/admin/slots/{id}.
func (h *Handler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id := capacity.SlotID(chi.URLParam(r, "id"))

	var req UpdateSlotRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Capacity.UpdateSlotCapacity(r.Context(), id, req.TotalCapacityKg, req.PricePerKg); err != nil {
		h.writeError(w, err)
		return
	}
	slot, err := h.Capacity.GetSlot(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(slot))
}

// UpdateCategoryRate handles PUT /api/admin/categories/{id}/rate.
func (h *Handler) UpdateCategoryRate(w http.ResponseWriter, r *http.Request) {
	id := catalog.CategoryID(chi.URLParam(r, "id"))

	var req UpdateRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Catalog.UpdateCategoryRate(r.Context(), id, req.BaseRatePerKg); err != nil {
		h.writeError(w, err)
		return
	}
	cat, err := h.Catalog.Category(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(cat))
}

// RefreshCatalog handles POST /api/admin/catalog/refresh.
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Refresh(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"refreshed_at": h.Catalog.LastRefreshed().Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON body. Writes the error response and
// returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, &booking.ValidationError{Field: "body", Message: "invalid JSON"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			h.writeError(w, &booking.ValidationError{Field: fields[0].Field(), Message: "failed " + fields[0].Tag() + " validation"})
			return false
		}
		h.writeError(w, &booking.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Kind: kind, Message: err.Error()}})
}

// classify maps engine errors to a stable kind and HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, booking.ErrValidation), errors.Is(err, catalog.ErrInactive),
		errors.Is(err, catalog.ErrInvalidRate), errors.Is(err, capacity.ErrInvalidSlot):
		return "validation_error", http.StatusBadRequest
	case errors.Is(err, capacity.ErrNoMatchingSlot):
		return "no_matching_slot", http.StatusNotFound
	case errors.Is(err, capacity.ErrInsufficientCapacity):
		return "insufficient_capacity", http.StatusConflict
	case errors.Is(err, booking.ErrInvalidTransition):
		return "invalid_transition", http.StatusConflict
	case errors.Is(err, booking.ErrCancellationWindowExpired):
		return "cancellation_window_expired", http.StatusConflict
	case errors.Is(err, capacity.ErrCapacityBelowBooked):
		return "capacity_below_booked", http.StatusConflict
	case booking.IsNotFound(err):
		return "not_found", http.StatusNotFound
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

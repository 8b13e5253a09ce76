/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures decoupling the domain model from the API contract.
  Request types carry validator tags; response types render decimals as
  fixed-point strings so clients never see float drift.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cargo-engine/booking"
	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateBookingRequest is the body of POST /api/bookings.
type CreateBookingRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	SenderName      string `json:"sender_name" validate:"required"`
	SenderPhone     string `json:"sender_phone" validate:"required"`
	SenderAddress   string `json:"sender_address" validate:"required"`
	ReceiverName    string `json:"receiver_name" validate:"required"`
	ReceiverPhone   string `json:"receiver_phone" validate:"required"`
	ReceiverAddress string `json:"receiver_address" validate:"required"`

	FromStationID       string `json:"from_station_id" validate:"required"`
	ToStationID         string `json:"to_station_id" validate:"required,nefield=FromStationID"`
	CommodityCategoryID string `json:"commodity_category_id" validate:"required"`

	// Date is the earliest acceptable slot date (YYYY-MM-DD). Empty
	// means today.
	Date string `json:"date,omitempty"`

	WeightKg      decimal.Decimal `json:"weight_kg"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
	Description   string          `json:"description,omitempty"`
}

// ConfirmBookingRequest is the body of POST /api/bookings/{id}/confirm.
// The payment itself happened outside the engine; this carries its
// reference.
type ConfirmBookingRequest struct {
	PaymentMethod string          `json:"payment_method,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount,omitempty"`
}

// AdvanceStatusRequest is the body of POST /api/bookings/{id}/status.
type AdvanceStatusRequest struct {
	Status      string `json:"status" validate:"required,oneof=in_transit delivered"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description" validate:"required"`
	Actor       string `json:"actor,omitempty"`
}

// CancelBookingRequest is the body of POST /api/bookings/{id}/cancel.
type CancelBookingRequest struct {
	Reason         string `json:"reason" validate:"required"`
	RequestingUser string `json:"requesting_user" validate:"required"`
}

// ProvisionSlotRequest is the body of POST /api/admin/slots.
type ProvisionSlotRequest struct {
	FromStationID       string          `json:"from_station_id" validate:"required"`
	ToStationID         string          `json:"to_station_id" validate:"required,nefield=FromStationID"`
	CommodityCategoryID string          `json:"commodity_category_id" validate:"required"`
	Date                string          `json:"date" validate:"required"`
	TotalCapacityKg     decimal.Decimal `json:"total_capacity_kg"`
	PricePerKg          decimal.Decimal `json:"price_per_kg"`
}

// UpdateSlotRequest is the body of PUT /api/admin/slots/{id}.
type UpdateSlotRequest struct {
	TotalCapacityKg decimal.Decimal `json:"total_capacity_kg"`
	PricePerKg      decimal.Decimal `json:"price_per_kg"`
}

// UpdateRateRequest is the body of PUT /api/admin/categories/{id}/rate.
type UpdateRateRequest struct {
	BaseRatePerKg decimal.Decimal `json:"base_rate_per_kg"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID            string `json:"id"`
	BookingNumber string `json:"booking_number"`
	UserID        string `json:"user_id"`

	SenderName      string `json:"sender_name"`
	SenderPhone     string `json:"sender_phone"`
	SenderAddress   string `json:"sender_address"`
	ReceiverName    string `json:"receiver_name"`
	ReceiverPhone   string `json:"receiver_phone"`
	ReceiverAddress string `json:"receiver_address"`

	FromStationID       string `json:"from_station_id"`
	ToStationID         string `json:"to_station_id"`
	CommodityCategoryID string `json:"commodity_category_id"`

	WeightKg      string `json:"weight_kg"`
	DeclaredValue string `json:"declared_value"`
	Description   string `json:"description,omitempty"`

	BaseCharge  string `json:"base_charge"`
	TaxAmount   string `json:"tax_amount"`
	TotalAmount string `json:"total_amount"`

	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	CancelledAt        string `json:"cancelled_at,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	RefundAmount       string `json:"refund_amount,omitempty"`
	RefundStatus       string `json:"refund_status,omitempty"`
}

func toBookingDTO(b booking.Booking) BookingDTO {
	dto := BookingDTO{
		ID:                  string(b.ID),
		BookingNumber:       string(b.Number),
		UserID:              b.UserID,
		SenderName:          b.Sender.Name,
		SenderPhone:         b.Sender.Phone,
		SenderAddress:       b.Sender.Address,
		ReceiverName:        b.Receiver.Name,
		ReceiverPhone:       b.Receiver.Phone,
		ReceiverAddress:     b.Receiver.Address,
		FromStationID:       string(b.FromStation),
		ToStationID:         string(b.ToStation),
		CommodityCategoryID: string(b.Category),
		WeightKg:            b.WeightKg.String(),
		DeclaredValue:       b.DeclaredValue.StringFixed(2),
		Description:         b.Description,
		BaseCharge:          b.BaseCharge.StringFixed(2),
		TaxAmount:           b.TaxAmount.StringFixed(2),
		TotalAmount:         b.TotalAmount.StringFixed(2),
		Status:              string(b.Status),
		CreatedAt:           b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           b.UpdatedAt.Format(time.RFC3339),
		CancellationReason:  b.CancellationReason,
		RefundStatus:        string(b.RefundStatus),
	}
	if b.CancelledAt != nil {
		dto.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	if b.RefundAmount != nil {
		dto.RefundAmount = b.RefundAmount.StringFixed(2)
	}
	return dto
}

// TrackingEventDTO represents one tracking event.
type TrackingEventDTO struct {
	ID          string `json:"id"`
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
	Actor       string `json:"actor,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toTrackingEventDTO(ev booking.TrackingEvent) TrackingEventDTO {
	return TrackingEventDTO{
		ID:          string(ev.ID),
		BookingID:   string(ev.BookingID),
		Status:      string(ev.Status),
		Location:    ev.Location,
		Description: ev.Description,
		Actor:       ev.Actor,
		CreatedAt:   ev.CreatedAt.Format(time.RFC3339),
	}
}

// AvailabilityDTO is one open slot in an availability query.
type AvailabilityDTO struct {
	SlotID              string `json:"slot_id"`
	Date                string `json:"date"`
	TotalCapacityKg     string `json:"total_capacity_kg"`
	BookedCapacityKg    string `json:"booked_capacity_kg"`
	AvailableCapacityKg string `json:"available_capacity_kg"`
	PricePerKg          string `json:"price_per_kg"`
}

func toAvailabilityDTO(s capacity.Slot) AvailabilityDTO {
	return AvailabilityDTO{
		SlotID:              string(s.ID),
		Date:                s.Date.Format("2006-01-02"),
		TotalCapacityKg:     s.TotalKg.String(),
		BookedCapacityKg:    s.BookedKg.String(),
		AvailableCapacityKg: s.AvailableKg().String(),
		PricePerKg:          s.PricePerKg.StringFixed(2),
	}
}

// CancelResultDTO reports a successful cancellation.
type CancelResultDTO struct {
	RefundAmount string `json:"refund_amount"`
}

// StationDTO represents a station in API responses.
type StationDTO struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

func toStationDTO(s catalog.Station) StationDTO {
	return StationDTO{ID: string(s.ID), Code: s.Code, Name: s.Name, City: s.City}
}

// CategoryDTO represents a commodity category in API responses.
type CategoryDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	BaseRatePerKg string `json:"base_rate_per_kg"`
}

func toCategoryDTO(c catalog.CommodityCategory) CategoryDTO {
	return CategoryDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Description:   c.Description,
		BaseRatePerKg: c.BaseRatePerKg.StringFixed(2),
	}
}

// ErrorResponse is the uniform error envelope: a stable kind plus a
// human-readable message. Presentation belongs to the caller.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

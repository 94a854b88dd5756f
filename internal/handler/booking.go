package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/repository"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// BookingHandler exposes the reservation and payment flow to
// passengers.  All routes sit behind the JWT middleware; the engine
// re-checks ownership on every booking id taken from the path.
type BookingHandler struct {
	Bookings *service.BookingService
	Payments *service.PaymentService
	Store    *repository.BookingRepo
}

func NewBookingHandler(bookings *service.BookingService, payments *service.PaymentService, store *repository.BookingRepo) *BookingHandler {
	if bookings == nil || payments == nil || store == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Payments: payments, Store: store}
}

// ----- DTOs -----

type reserveReq struct {
	Seats          []string `json:"seats"`
	PassengerName  string   `json:"passenger_name"`
	PassengerPhone string   `json:"passenger_phone"`
	PassengerEmail string   `json:"passenger_email"`
}

type payConfirmReq struct {
	PaymentRef string `json:"payment_ref"`
	Signature  string `json:"signature"`
}

type bookingResp struct {
	ID               string    `json:"id"`
	TripID           uint64    `json:"trip_id"`
	Seats            []string  `json:"seats"`
	PassengerName    string    `json:"passenger_name"`
	SeatCount        uint32    `json:"seat_count"`
	TotalAmountCents uint32    `json:"total_amount_cents"`
	Status           string    `json:"status"`
	LockExpiresAt    time.Time `json:"lock_expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

type paymentResp struct {
	ID          string `json:"id"`
	BookingID   string `json:"booking_id"`
	AmountCents uint32 `json:"amount_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	OrderRef    string `json:"order_ref"`
}

func toBookingResp(b model.Booking, seats []string) bookingResp {
	return bookingResp{
		ID:               b.ID.String(),
		TripID:           b.TripID,
		Seats:            seats,
		PassengerName:    b.PassengerName,
		SeatCount:        b.SeatCount,
		TotalAmountCents: b.TotalAmountCents,
		Status:           string(b.Status),
		LockExpiresAt:    b.LockExpiresAt,
		CreatedAt:        b.CreatedAt,
	}
}

func toPaymentResp(p model.Payment) paymentResp {
	return paymentResp{
		ID:          p.ID.String(),
		BookingID:   p.BookingID.String(),
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      string(p.Status),
		OrderRef:    p.GatewayOrderID,
	}
}

// Reserve handles POST /v1/trips/:id/reserve.  Seats are requested by
// label; either every seat is held and a pending booking is created,
// or nothing changes and the conflicting seats come back in a 400.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.PassengerName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passenger_name is required"})
	}

	booking, err := h.Bookings.Reserve(c.Request().Context(), userID, tripID, req.Seats, service.PassengerDetails{
		Name:  strings.TrimSpace(req.PassengerName),
		Phone: strings.TrimSpace(req.PassengerPhone),
		Email: strings.TrimSpace(req.PassengerEmail),
	})
	if err != nil {
		return serviceError(c, err)
	}
	labels, err := h.Store.SeatLabels(c.Request().Context(), booking.ID)
	if err != nil {
		labels = req.Seats
	}
	return c.JSON(http.StatusCreated, toBookingResp(booking, labels))
}

// Pay handles POST /v1/bookings/:id/pay.  Creates (or returns the
// still-pending) payment intent for the booking.
func (h *BookingHandler) Pay(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	payment, err := h.Payments.CreateIntent(c.Request().Context(), userID, bookingID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toPaymentResp(payment))
}

// ConfirmPayment handles POST /v1/bookings/:id/confirm.  Verifies the
// gateway callback and, on success, confirms the booking and
// finalizes its seats.
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req payConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PaymentRef == "" || req.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref and signature are required"})
	}
	ctx := c.Request().Context()
	booking, err := h.Payments.Confirm(ctx, userID, bookingID, req.PaymentRef, req.Signature)
	if err != nil {
		return serviceError(c, err)
	}
	labels, err := h.Store.SeatLabels(ctx, booking.ID)
	if err != nil {
		labels = nil
	}
	return c.JSON(http.StatusOK, toBookingResp(booking, labels))
}

// Cancel handles POST /v1/bookings/:id/cancel.  Works on pending and
// confirmed bookings until the trip departs; seats return to the
// pool immediately.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	booking, err := h.Bookings.Cancel(ctx, userID, bookingID)
	if err != nil {
		return serviceError(c, err)
	}
	labels, err := h.Store.SeatLabels(ctx, booking.ID)
	if err != nil {
		labels = nil
	}
	return c.JSON(http.StatusOK, toBookingResp(booking, labels))
}

// List handles GET /v1/bookings, the caller's booking history newest
// first.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	bookings, err := h.Store.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		labels, err := h.Store.SeatLabels(ctx, b.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, toBookingResp(b, labels))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	booking, err := h.Store.ByID(ctx, bookingID)
	if err != nil {
		return notFoundOr(c, err)
	}
	if booking.UserID != userID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	labels, err := h.Store.SeatLabels(ctx, booking.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toBookingResp(booking, labels))
}

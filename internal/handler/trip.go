package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/repository"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// TripHandler serves the public trip catalog and the operator CRUD
// surface.  Public reads never require authentication; operator
// routes assume the JWT and role middleware already ran.
type TripHandler struct {
	Trips    *repository.TripRepo
	Seats    *repository.SeatRepo
	Bookings *repository.BookingRepo
	Clock    service.Clock
}

func NewTripHandler(trips *repository.TripRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo, clock service.Clock) *TripHandler {
	if trips == nil || seats == nil || bookings == nil {
		panic("nil repository passed to NewTripHandler")
	}
	if clock == nil {
		clock = service.SystemClock()
	}
	return &TripHandler{Trips: trips, Seats: seats, Bookings: bookings, Clock: clock}
}

// ----- DTOs -----

type tripReq struct {
	Name        string `json:"name"`
	BusNumber   string `json:"bus_number"`
	BusType     string `json:"bus_type"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	DepartureAt string `json:"departure_at"` // RFC 3339
	ArrivalAt   string `json:"arrival_at"`   // RFC 3339
	PriceCents  uint32 `json:"price_cents"`
	SeatRows    uint32 `json:"seat_rows"`
	SeatsPerRow uint32 `json:"seats_per_row"`
	IsActive    *bool  `json:"is_active"`
}

type tripResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	BusNumber   string    `json:"bus_number"`
	BusType     string    `json:"bus_type"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at"`
	PriceCents  uint32    `json:"price_cents"`
	SeatRows    uint32    `json:"seat_rows"`
	SeatsPerRow uint32    `json:"seats_per_row"`
	IsActive    bool      `json:"is_active"`
}

type seatResp struct {
	Label     string `json:"label"`
	Row       uint32 `json:"row"`
	Available bool   `json:"available"`
}

func toTripResp(t model.Trip) tripResp {
	return tripResp{
		ID:          t.ID,
		Name:        t.Name,
		BusNumber:   t.BusNumber,
		BusType:     t.BusType,
		Source:      t.Source,
		Destination: t.Destination,
		DepartureAt: t.DepartureAt,
		ArrivalAt:   t.ArrivalAt,
		PriceCents:  t.PriceCents,
		SeatRows:    t.SeatRows,
		SeatsPerRow: t.SeatsPerRow,
		IsActive:    t.IsActive,
	}
}

func validBusType(s string) bool {
	switch s {
	case model.BusTypeACSleeper, model.BusTypeACSeater, model.BusTypeNonACSleeper, model.BusTypeNonACSeater, model.BusTypeVolvo:
		return true
	}
	return false
}

// ----- public routes -----

// Search handles GET /v1/trips.  Filters: source, destination,
// date (YYYY-MM-DD, UTC calendar day), bus_type.  Only active trips
// that have not departed are returned.
func (h *TripHandler) Search(c echo.Context) error {
	filter := repository.TripFilter{
		Source:      strings.TrimSpace(c.QueryParam("source")),
		Destination: strings.TrimSpace(c.QueryParam("destination")),
		BusType:     strings.TrimSpace(c.QueryParam("bus_type")),
	}
	if d := c.QueryParam("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
		}
		filter.Date = day
	}
	trips, err := h.Trips.Search(c.Request().Context(), filter, h.Clock.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]tripResp, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResp(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": out})
}

// Get handles GET /v1/trips/:id.
func (h *TripHandler) Get(c echo.Context) error {
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	trip, err := h.Trips.ByID(c.Request().Context(), tripID)
	if err != nil {
		return notFoundOr(c, err)
	}
	if !trip.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
	}
	return c.JSON(http.StatusOK, toTripResp(trip))
}

// Seats handles GET /v1/trips/:id/seats.  Availability is evaluated
// against the current clock: a lapsed hold counts as free without
// waiting for the sweeper.
func (h *TripHandler) TripSeats(c echo.Context) error {
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	ctx := c.Request().Context()
	trip, err := h.Trips.ByID(ctx, tripID)
	if err != nil {
		return notFoundOr(c, err)
	}
	if !trip.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
	}
	seats, err := h.Seats.ByTrip(ctx, tripID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := h.Clock.Now()
	out := make([]seatResp, 0, len(seats))
	available := 0
	for _, s := range seats {
		free := s.AvailableAt(now)
		if free {
			available++
		}
		out = append(out, seatResp{Label: s.Label, Row: s.Row, Available: free})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip_id":         tripID,
		"seats":           out,
		"available_count": available,
	})
}

// ----- operator routes -----

// Create handles POST /v1/operator/trips.  The full seat map is
// generated from the row/column geometry at creation time; geometry
// is immutable afterwards.
func (h *TripHandler) Create(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	trip, err := tripFromReq(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	trip.OperatorID = operatorID
	trip.IsActive = req.IsActive == nil || *req.IsActive

	ctx := c.Request().Context()
	if err := h.Trips.Create(ctx, &trip); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create trip failed"})
	}
	if err := h.Seats.CreateBulk(ctx, seatMap(trip)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create seats failed"})
	}
	return c.JSON(http.StatusCreated, toTripResp(trip))
}

// Update handles PUT /v1/operator/trips/:id.  Seat geometry cannot
// change once the map exists, so seat_rows/seats_per_row are ignored.
func (h *TripHandler) Update(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	trip, err := tripFromReq(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	trip.ID = tripID
	trip.IsActive = req.IsActive == nil || *req.IsActive

	if err := h.Trips.Update(c.Request().Context(), operatorID, &trip); err != nil {
		return notFoundOr(c, err)
	}
	return c.JSON(http.StatusOK, toTripResp(trip))
}

// Deactivate handles POST /v1/operator/trips/:id/deactivate.  The
// trip disappears from search; existing bookings are untouched.
func (h *TripHandler) Deactivate(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	if err := h.Trips.Deactivate(c.Request().Context(), operatorID, tripID); err != nil {
		return notFoundOr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/operator/trips/:id.  Only trips without
// any bookings can be removed; anything else conflicts.
func (h *TripHandler) Delete(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	if err := h.Trips.Delete(c.Request().Context(), operatorID, tripID); err != nil {
		return notFoundOr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/operator/trips.
func (h *TripHandler) List(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	trips, err := h.Trips.ListByOperator(c.Request().Context(), operatorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]tripResp, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResp(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": out})
}

// TripBookings handles GET /v1/operator/trips/:id/bookings, the
// operator's passenger manifest for one trip.
func (h *TripHandler) TripBookings(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathUint(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	ctx := c.Request().Context()
	trip, err := h.Trips.ByID(ctx, tripID)
	if err != nil {
		return notFoundOr(c, err)
	}
	if trip.OperatorID != operatorID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	bookings, err := h.Bookings.ListByTrip(ctx, tripID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		labels, err := h.Bookings.SeatLabels(ctx, b.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, toBookingResp(b, labels))
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "bookings": out})
}

// tripFromReq validates a trip payload and builds the model.  Seat
// geometry is capped at five seats per row (labels A..E).
func tripFromReq(req tripReq) (model.Trip, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Source = strings.TrimSpace(req.Source)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Name == "" || req.Source == "" || req.Destination == "" {
		return model.Trip{}, fmt.Errorf("name, source and destination are required")
	}
	if !validBusType(req.BusType) {
		return model.Trip{}, fmt.Errorf("invalid bus_type")
	}
	if req.PriceCents == 0 {
		return model.Trip{}, fmt.Errorf("price_cents must be positive")
	}
	if req.SeatRows < 1 || req.SeatRows > 20 {
		return model.Trip{}, fmt.Errorf("seat_rows must be between 1 and 20")
	}
	if req.SeatsPerRow < 1 || req.SeatsPerRow > 5 {
		return model.Trip{}, fmt.Errorf("seats_per_row must be between 1 and 5")
	}
	dep, err := time.Parse(time.RFC3339, req.DepartureAt)
	if err != nil {
		return model.Trip{}, fmt.Errorf("invalid departure_at, want RFC 3339")
	}
	arr, err := time.Parse(time.RFC3339, req.ArrivalAt)
	if err != nil {
		return model.Trip{}, fmt.Errorf("invalid arrival_at, want RFC 3339")
	}
	if !arr.After(dep) {
		return model.Trip{}, fmt.Errorf("arrival_at must be after departure_at")
	}
	return model.Trip{
		Name:        req.Name,
		BusNumber:   strings.TrimSpace(req.BusNumber),
		BusType:     req.BusType,
		Source:      req.Source,
		Destination: req.Destination,
		DepartureAt: dep.UTC(),
		ArrivalAt:   arr.UTC(),
		PriceCents:  req.PriceCents,
		SeatRows:    req.SeatRows,
		SeatsPerRow: req.SeatsPerRow,
	}, nil
}

// seatMap generates the seat rows for a trip: row numbers are
// 1-based, columns are lettered A..E, labels look like "1A".
func seatMap(trip model.Trip) []model.Seat {
	seats := make([]model.Seat, 0, trip.SeatRows*trip.SeatsPerRow)
	for row := uint32(1); row <= trip.SeatRows; row++ {
		for col := uint32(0); col < trip.SeatsPerRow; col++ {
			seats = append(seats, model.Seat{
				TripID: trip.ID,
				Label:  fmt.Sprintf("%d%c", row, 'A'+col),
				Row:    row,
				Col:    col,
			})
		}
	}
	return seats
}

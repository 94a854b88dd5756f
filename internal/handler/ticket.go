package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// TicketHandler serves ticket retrieval for passengers and the
// validate-ticket endpoint operators scan against at boarding.
type TicketHandler struct {
	Tickets *service.TicketService
}

func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	if tickets == nil {
		panic("nil ticket service passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets}
}

type validateReq struct {
	Payload string `json:"payload"`
}

// Get handles GET /v1/bookings/:id/ticket.  Issuance is lazy and
// idempotent: the first request for a confirmed booking mints the
// ticket, later requests return the same one.
func (h *TicketHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ticket, err := h.Tickets.Issue(c.Request().Context(), userID, bookingID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ticket_id":    ticket.ID.String(),
		"booking_id":   ticket.BookingID.String(),
		"payload":      ticket.Payload,
		"is_validated": ticket.IsValidated,
	})
}

// Validate handles POST /v1/validate-ticket.  The scanned payload is
// checked and the ticket's single-use latch is flipped; a second scan
// of the same ticket gets a 400 with the original validation time.
func (h *TicketHandler) Validate(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req validateReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Payload) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload is required"})
	}
	validatedBy := "operator:" + strconv.FormatUint(operatorID, 10)
	receipt, err := h.Tickets.Validate(c.Request().Context(), req.Payload, validatedBy)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, receipt)
}

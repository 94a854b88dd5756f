package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-booking/internal/repository"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64: // JWT numeric claims decode as float64
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathUint parses a numeric path parameter.
func pathUint(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// pathUUID parses a UUID path parameter.
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// notFoundOr maps the not-found sentinels to 404 for pure resource
// reads and defers everything else to serviceError.
func notFoundOr(c echo.Context, err error) error {
	if errors.Is(err, service.ErrTripNotFound) || errors.Is(err, service.ErrBookingNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return serviceError(c, err)
}

// serviceError translates engine and repository errors into JSON
// responses.  Every engine error is a retryable 400, never a fault:
// reserve, confirm, cancel and validate report what went wrong and
// the client decides what to do next.  Pure resource GETs translate
// their own not-found cases to 404 before reaching here.  Responses
// that carry detail (unavailable seats, an already validated ticket)
// include it so clients can react in one round trip.
func serviceError(c echo.Context, err error) error {
	var unavailable *service.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "seats unavailable",
			"seats": unavailable.Labels,
		})
	}
	var transition *service.InvalidTransitionError
	if errors.As(err, &transition) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": transition.Error()})
	}
	var validated *service.TicketValidatedError
	if errors.As(err, &validated) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":        "ticket already validated",
			"validated_at": validated.ValidatedAt,
		})
	}

	switch {
	case errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrTripInactive),
		errors.Is(err, service.ErrSeatNotFound),
		errors.Is(err, service.ErrInvalidSeatCount),
		errors.Is(err, service.ErrInvalidTicketCode),
		errors.Is(err, service.ErrPaymentVerificationFailed),
		errors.Is(err, service.ErrLockExpired),
		errors.Is(err, service.ErrTripDeparted),
		errors.Is(err, service.ErrBookingNotPayable),
		errors.Is(err, service.ErrPaymentAlreadyCompleted),
		errors.Is(err, service.ErrTicketNotIssuable),
		errors.Is(err, service.ErrTicketNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

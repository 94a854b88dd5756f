package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-booking/internal/service"
)

func testContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	return echo.New().NewContext(req, rec), rec
}

func TestServiceError_EngineErrorsAreRetryable400s(t *testing.T) {
	for _, err := range []error{
		service.ErrTripNotFound,
		service.ErrTripInactive,
		service.ErrSeatNotFound,
		service.ErrInvalidSeatCount,
		service.ErrLockExpired,
		service.ErrPaymentVerificationFailed,
		service.ErrTicketNotFound,
		&service.InvalidTransitionError{},
		&service.TicketValidatedError{ValidatedAt: time.Now()},
	} {
		c, rec := testContext(t)
		require.NoError(t, serviceError(c, err))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "error %v", err)
	}
}

func TestServiceError_SeatConflictListsSeats(t *testing.T) {
	c, rec := testContext(t)
	require.NoError(t, serviceError(c, &service.SeatsUnavailableError{Labels: []string{"1A", "2B"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error string   `json:"error"`
		Seats []string `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"1A", "2B"}, body.Seats)
}

func TestNotFoundOr_ResourceReadsGet404(t *testing.T) {
	c, rec := testContext(t)
	require.NoError(t, notFoundOr(c, service.ErrBookingNotFound))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Anything that is not a missing resource falls through to the
	// 400 mapping.
	c, rec = testContext(t)
	require.NoError(t, notFoundOr(c, service.ErrLockExpired))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

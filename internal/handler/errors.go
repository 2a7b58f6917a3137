package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/draft"
	"github.com/iliyamo/hotel-reservation/internal/notification"
	"github.com/iliyamo/hotel-reservation/internal/payment"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/ticket"
)

// fieldErrors is a 422 body keyed by request field.
type fieldErrors map[string]string

func (f fieldErrors) respond(c echo.Context) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": f})
}

// respondError maps domain errors onto status codes.  Unknown errors are
// logged and reported as 500 without detail.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var verr payment.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid payment details", "fields": verr})
	case errors.Is(err, payment.ErrUnsupportedMethod):
		return fieldErrors{"method": "must be gcash or card"}.respond(c)
	case errors.Is(err, pricing.ErrInvalidStay):
		return fieldErrors{"check_out": "must be after check_in"}.respond(c)
	case errors.Is(err, pricing.ErrInvalidGuests):
		return fieldErrors{"guests": "must be at least 1"}.respond(c)
	case errors.Is(err, pricing.ErrTooManyGuests):
		return fieldErrors{"guests": "exceeds the room's capacity"}.respond(c)
	case errors.Is(err, pricing.ErrUnknownRoom):
		return fieldErrors{"room_type": "unknown room type"}.respond(c)
	case errors.Is(err, ticket.ErrInvalidTicket):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, draft.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "draft expired, please start a new booking"})
	case errors.Is(err, draft.ErrNotFound), errors.Is(err, booking.ErrNotFound),
		errors.Is(err, ticket.ErrNotFound), errors.Is(err, notification.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ticket.ErrInvalidTransition), errors.Is(err, ticket.ErrNotAmendable),
		errors.Is(err, ticket.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error, please retry"})
}

func idParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

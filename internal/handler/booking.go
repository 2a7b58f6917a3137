package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/draft"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/payment"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
)

// BookingHandler serves the guest booking flow: quote, draft, pay and the
// My Bookings history.
type BookingHandler struct {
	Bookings *booking.Service
	PageSize int
	Log      logrus.FieldLogger
}

func NewBookingHandler(svc *booking.Service, pageSize int, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{Bookings: svc, PageSize: pageSize, Log: log}
}

type quoteReq struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	RoomType string `json:"room_type"`
	Guests   int    `json:"guests"`
}

func (r quoteReq) parse() (pricing.Request, fieldErrors) {
	errs := fieldErrors{}
	in, ok := parseDate(r.CheckIn)
	if !ok {
		errs["check_in"] = "must be a date (YYYY-MM-DD)"
	}
	out, ok := parseDate(r.CheckOut)
	if !ok {
		errs["check_out"] = "must be a date (YYYY-MM-DD)"
	}
	if strings.TrimSpace(r.RoomType) == "" {
		errs["room_type"] = "required"
	}
	if len(errs) > 0 {
		return pricing.Request{}, errs
	}
	return pricing.Request{
		CheckIn:  in,
		CheckOut: out,
		RoomType: strings.ToLower(strings.TrimSpace(r.RoomType)),
		Guests:   r.Guests,
	}, nil
}

type draftResp struct {
	draft.Entry
	Recovered bool `json:"recovered"`
}

// Quote prices a stay without storing anything.
func (h *BookingHandler) Quote(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	var req quoteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	pr, errs := req.parse()
	if errs != nil {
		return errs.respond(c)
	}
	b, err := h.Bookings.Quote(who, pr)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"draft": b})
}

// CreateDraft parks a freshly priced booking for the pending-payment window.
func (h *BookingHandler) CreateDraft(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	var req quoteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	pr, errs := req.parse()
	if errs != nil {
		return errs.respond(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Bookings.SaveDraft(ctx, who, pr)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, draftResp{Entry: e})
}

// GetDraft returns a still-valid draft flagged as recovered, 410 once the
// window has passed.
func (h *BookingHandler) GetDraft(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Bookings.GetDraft(ctx, who, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, draftResp{Entry: e, Recovered: true})
}

func (h *BookingHandler) DiscardDraft(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Bookings.DiscardDraft(ctx, who, c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type payReq struct {
	payment.Input
	IdempotencyKey string `json:"idempotency_key"`
}

// Pay confirms payment for a draft.  A replay of an already committed
// draft answers 200 with the original booking; a fresh commit is 201.
func (h *BookingHandler) Pay(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	var req payReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Bookings.Pay(ctx, who, booking.PayRequest{
		DraftID:        c.Param("id"),
		IdempotencyKey: key,
		Payment:        req.Input,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if res.Replayed {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

// MyBookings lists the caller's bookings.  page is honoured only while
// filter and q equal prev_filter and prev_q; otherwise it resets to 1.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	page, _ := strconv.Atoi(c.QueryParam("page"))
	q := booking.ViewQuery{
		Filter:     booking.ParseFilter(c.QueryParam("filter")),
		Search:     c.QueryParam("q"),
		Page:       page,
		PrevFilter: booking.ParseFilter(c.QueryParam("prev_filter")),
		PrevSearch: c.QueryParam("prev_q"),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Bookings.MyBookings(ctx, who, q, h.PageSize)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *BookingHandler) Get(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Get(ctx, who, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/ticket"
)

// TicketHandler is the maintenance console API.
type TicketHandler struct {
	Tickets *ticket.Service
	Log     logrus.FieldLogger
}

func NewTicketHandler(svc *ticket.Service, log logrus.FieldLogger) *TicketHandler {
	return &TicketHandler{Tickets: svc, Log: log}
}

type createTicketReq struct {
	TaskTitle   string `json:"task_title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	RoomNumber  string `json:"room_number"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date"`
}

type reportReq struct {
	Note     string `json:"note"`
	Priority string `json:"priority"`
	DueDate  string `json:"due_date"`
}

func optionalDate(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, ok := parseDate(s)
	if !ok {
		return nil, false
	}
	return &t, true
}

func (h *TicketHandler) Create(c echo.Context) error {
	who, _ := middleware.IdentityFrom(c)
	var req createTicketReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	due, ok := optionalDate(req.DueDate)
	if !ok {
		return fieldErrors{"due_date": "must be a date (YYYY-MM-DD)"}.respond(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tickets.Create(ctx, who, ticket.NewTicket{
		TaskTitle:   req.TaskTitle,
		Description: req.Description,
		Category:    req.Category,
		Priority:    model.TicketPriority(req.Priority),
		RoomNumber:  req.RoomNumber,
		AssignedTo:  req.AssignedTo,
		DueDate:     due,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ticket": t})
}

// List serves one of the console views: active (default), completed or
// archived.
func (h *TicketHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view := ticket.View(strings.ToLower(c.QueryParam("view")))
	items, err := h.Tickets.List(ctx, view)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": items})
}

func (h *TicketHandler) Search(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q := ticket.Query{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Text:     c.QueryParam("q"),
	}
	if p := strings.TrimSpace(c.QueryParam("priority")); p != "" {
		prio, err := ticket.ParsePriority(p)
		if err != nil {
			return fieldErrors{"priority": "must be High, Medium or Low"}.respond(c)
		}
		q.Priority = prio
	}
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		st, err := ticket.ParseStatus(s)
		if err != nil {
			return fieldErrors{"status": "must be Open, In Progress, Completed or Archived"}.respond(c)
		}
		q.Status = st
	}
	items, err := h.Tickets.Search(ctx, q)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": items})
}

// Transition returns a handler applying act to the ticket in :id.
func (h *TicketHandler) Transition(act ticket.Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := idParam(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		t, err := h.Tickets.Transition(ctx, id, act)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"ticket": t})
	}
}

// Report amends an active ticket ("Report Issue").
func (h *TicketHandler) Report(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req reportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	due, ok := optionalDate(req.DueDate)
	if !ok {
		return fieldErrors{"due_date": "must be a date (YYYY-MM-DD)"}.respond(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tickets.Report(ctx, id, ticket.Amendment{
		Note:     req.Note,
		Priority: model.TicketPriority(req.Priority),
		DueDate:  due,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": t})
}

// Stream pushes every ticket change as a server-sent event.
func (h *TicketHandler) Stream(c echo.Context) error {
	ch, err := h.Tickets.Subscribe(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return streamSSE(c, "ticket", ch)
}

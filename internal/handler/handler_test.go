package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/draft"
	"github.com/iliyamo/hotel-reservation/internal/feed"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notification"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/ticket"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

const secret = "handler-test"

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memBookings struct {
	mu   sync.Mutex
	rows []model.Booking
}

func (r *memBookings) CreateWithTransaction(_ context.Context, b *model.Booking, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.rows {
		if x.IdempotencyKey == b.IdempotencyKey {
			return booking.ErrDuplicate
		}
	}
	b.ID = uint64(len(r.rows) + 1)
	tx.BookingID = b.ID
	r.rows = append(r.rows, *b)
	return nil
}

func (r *memBookings) find(match func(model.Booking) bool) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if match(b) {
			b := b
			return &b, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (r *memBookings) GetByIdempotencyKey(_ context.Context, key string) (*model.Booking, error) {
	return r.find(func(b model.Booking) bool { return b.IdempotencyKey == key })
}

func (r *memBookings) GetByCodeForUser(_ context.Context, uid uint64, code string) (*model.Booking, error) {
	return r.find(func(b model.Booking) bool { return b.UserID == uid && b.BookingID == code })
}

func (r *memBookings) ListByUser(_ context.Context, uid uint64) ([]model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Booking{}
	for _, b := range r.rows {
		if b.UserID == uid {
			out = append(out, b)
		}
	}
	return out, nil
}

type memTickets struct {
	mu   sync.Mutex
	rows map[uint64]model.Ticket
}

func (r *memTickets) Create(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uint64(len(r.rows) + 1)
	r.rows[t.ID] = *t
	return nil
}

func (r *memTickets) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, ticket.ErrNotFound
	}
	return &t, nil
}

func (r *memTickets) UpdateStatus(_ context.Context, id uint64, from, to model.TicketStatus, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.rows[id]
	if t.Status != from {
		return ticket.ErrConflict
	}
	t.Status, t.CompletedAt = to, at
	r.rows[id] = t
	return nil
}

func (r *memTickets) UpdateDetails(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.rows[t.ID]
	if !ticket.IsActive(cur.Status) {
		return ticket.ErrConflict
	}
	cur.Description, cur.Priority, cur.DueDate = t.Description, t.Priority, t.DueDate
	r.rows[t.ID] = cur
	return nil
}

func (r *memTickets) ListByStatus(_ context.Context, ss ...model.TicketStatus) ([]model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Ticket{}
	for _, t := range r.rows {
		for _, s := range ss {
			if t.Status == s {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memTickets) Search(ctx context.Context, q ticket.Query) ([]model.Ticket, error) {
	all, _ := r.ListByStatus(ctx, model.TicketOpen, model.TicketInProgress, model.TicketCompleted, model.TicketArchived)
	out := []model.Ticket{}
	for _, t := range all {
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows []model.Notification
}

func (r *memNotifications) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uint64(len(r.rows) + 1)
	r.rows = append(r.rows, *n)
	return nil
}

func (r *memNotifications) ListRecent(_ context.Context, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Notification{}
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}

func (r *memNotifications) MarkRead(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == 0 || int(id) > len(r.rows) {
		return notification.ErrNotFound
	}
	r.rows[id-1].Status = model.NotificationRead
	return nil
}

type app struct {
	e     *echo.Echo
	now   time.Time
	books *memBookings
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{e: echo.New(), now: time.Now().UTC(), books: &memBookings{}}
	clock := func() time.Time { return a.now }
	log := quiet()
	broker := feed.NewLocalBroker()

	notes := notification.NewService(&memNotifications{}, broker, 50, log)
	tickets := ticket.NewService(&memTickets{rows: map[uint64]model.Ticket{}}, broker, notes, log)
	bookings := booking.NewService(
		pricing.NewBuilder(pricing.DefaultCatalog(), pricing.DefaultTaxRate),
		draft.NewMemoryStore(draft.DefaultTTL, clock),
		a.books, nil, log)

	bh := NewBookingHandler(bookings, 5, log)
	th := NewTicketHandler(tickets, log)
	nh := NewNotificationHandler(notes, log)

	a.e.GET("/v1/rooms", NewRoomsHandler(pricing.DefaultCatalog()).List)
	v1 := a.e.Group("/v1", middleware.JWTAuth(secret))
	v1.POST("/bookings/quote", bh.Quote)
	v1.POST("/bookings/drafts", bh.CreateDraft)
	v1.GET("/bookings/drafts/:id", bh.GetDraft)
	v1.DELETE("/bookings/drafts/:id", bh.DiscardDraft)
	v1.POST("/bookings/drafts/:id/pay", bh.Pay)
	v1.GET("/my-bookings", bh.MyBookings)
	v1.GET("/bookings/:id", bh.Get)
	v1.POST("/admin/tickets", th.Create)
	v1.GET("/admin/tickets", th.List)
	v1.GET("/admin/tickets/search", th.Search)
	v1.POST("/admin/tickets/:id/start", th.Transition(ticket.ActionStart))
	v1.POST("/admin/tickets/:id/complete", th.Transition(ticket.ActionComplete))
	v1.POST("/admin/tickets/:id/archive", th.Transition(ticket.ActionArchive))
	v1.POST("/admin/tickets/:id/report", th.Report)
	v1.GET("/admin/notifications", nh.List)
	v1.POST("/admin/notifications/:id/read", nh.MarkRead)
	v1.POST("/admin/notifications/clear", nh.Clear)
	return a
}

var (
	guest = model.Identity{UserID: 7, Email: "guest@example.com", Role: model.RoleGuest}
	staff = model.Identity{UserID: 2, Email: "desk@example.com", Role: model.RoleStaff}
)

func (a *app) do(t *testing.T, who model.Identity, method, path, body string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if who.UserID != 0 {
		tok, err := utils.NewAccessToken(secret, who, 5)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

const stayJSON = `{"check_in":"2030-11-01","check_out":"2030-11-03","room_type":"standard","guests":3}`

const cardJSON = `{"method":"card","card_number":"4111 1111 1111 1111","card_expiry":"09/99","card_cvv":"123","card_name":"A B"}`

func TestRooms(t *testing.T) {
	a := newApp(t)
	rec, body := a.do(t, model.Identity{}, http.MethodGet, "/v1/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["rooms"], 4)
}

func TestQuote(t *testing.T) {
	a := newApp(t)
	rec, body := a.do(t, guest, http.MethodPost, "/v1/bookings/quote", stayJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	d := body["draft"].(map[string]any)
	assert.Equal(t, "6000", d["subtotal"])
	assert.Equal(t, "720", d["tax"])
	assert.Equal(t, "6720", d["total_amount"])
	assert.Equal(t, "pending_payment", d["status"])
	assert.Empty(t, a.books.rows)

	rec, body = a.do(t, guest, http.MethodPost, "/v1/bookings/quote", `{"check_in":"nope","check_out":"2030-11-03","room_type":"standard","guests":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["fields"], "check_in")

	rec, body = a.do(t, guest, http.MethodPost, "/v1/bookings/quote", `{"check_in":"2030-11-03","check_out":"2030-11-03","room_type":"standard","guests":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["fields"], "check_out")

	rec, _ = a.do(t, guest, http.MethodPost, "/v1/bookings/quote", `{"check_in":"2030-11-01","check_out":"2030-11-03","room_type":"penthouse","guests":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDraftToPaidBooking(t *testing.T) {
	a := newApp(t)

	rec, created := a.do(t, guest, http.MethodPost, "/v1/bookings/drafts", stayJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := created["id"].(string)
	key := created["idempotency_key"].(string)
	assert.Equal(t, false, created["recovered"])

	rec, got := a.do(t, guest, http.MethodGet, "/v1/bookings/drafts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, got["recovered"])

	rec, _ = a.do(t, staff, http.MethodGet, "/v1/bookings/drafts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are owner scoped")

	bad := strings.Replace(cardJSON, `"123"`, `"12"`, 1)
	rec, body := a.do(t, guest, http.MethodPost, "/v1/bookings/drafts/"+id+"/pay", bad)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["fields"], "card_cvv")
	assert.Empty(t, a.books.rows)

	rec, body = a.do(t, guest, http.MethodPost, "/v1/bookings/drafts/"+id+"/pay", cardJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	paid := body["booking"].(map[string]any)
	assert.Equal(t, "confirmed", paid["status"])
	assert.Equal(t, "paid", paid["payment_status"])
	code := paid["booking_id"].(string)
	assert.Regexp(t, `^HB-\d{8}-[0-9A-F]{6}$`, code)
	assert.NotContains(t, rec.Body.String(), "4111 1111")
	assert.NotContains(t, rec.Body.String(), `"123"`)

	rec, body = a.do(t, guest, http.MethodPost, "/v1/bookings/drafts/"+id+"/pay", cardJSON, "Idempotency-Key", key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["replayed"])
	assert.Len(t, a.books.rows, 1)

	rec, body = a.do(t, guest, http.MethodGet, "/v1/my-bookings?filter=upcoming", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)
	assert.EqualValues(t, 1, body["total_items"])

	rec, _ = a.do(t, guest, http.MethodGet, "/v1/bookings/"+code, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(t, staff, http.MethodGet, "/v1/bookings/"+code, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftExpiry(t *testing.T) {
	a := newApp(t)
	rec, created := a.do(t, guest, http.MethodPost, "/v1/bookings/drafts", stayJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := created["id"].(string)

	a.now = a.now.Add(31 * time.Minute)
	rec, _ = a.do(t, guest, http.MethodGet, "/v1/bookings/drafts/"+id, "")
	assert.Equal(t, http.StatusGone, rec.Code)

	rec, _ = a.do(t, guest, http.MethodPost, "/v1/bookings/drafts/"+id+"/pay", cardJSON)
	assert.Equal(t, http.StatusNotFound, rec.Code, "an expired draft is discarded on first read")
	assert.Empty(t, a.books.rows)
}

func TestDiscardDraft(t *testing.T) {
	a := newApp(t)
	_, created := a.do(t, guest, http.MethodPost, "/v1/bookings/drafts", stayJSON)
	id := created["id"].(string)

	rec, _ := a.do(t, guest, http.MethodDelete, "/v1/bookings/drafts/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(t, guest, http.MethodGet, "/v1/bookings/drafts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketLifecycle(t *testing.T) {
	a := newApp(t)

	rec, body := a.do(t, staff, http.MethodPost, "/v1/admin/tickets",
		`{"task_title":"Fix AC","category":"Maintenance","priority":"High","room_number":"204"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	tk := body["ticket"].(map[string]any)
	assert.Equal(t, "Open", tk["status"])
	assert.Equal(t, "TK-000001", tk["ticket_number"])

	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/1/archive", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/1/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "In Progress", body["ticket"].(map[string]any)["status"])

	rec, body = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/1/report", `{"note":"compressor noisy","priority":"Low"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tk = body["ticket"].(map[string]any)
	assert.Equal(t, "Low", tk["priority"])
	assert.Contains(t, tk["description"], "compressor noisy")

	rec, body = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/1/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["ticket"].(map[string]any)["completed_at"])

	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/1/report", `{"note":"late note"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/1/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = a.do(t, staff, http.MethodGet, "/v1/admin/tickets?view=active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["tickets"])
	rec, body = a.do(t, staff, http.MethodGet, "/v1/admin/tickets?view=archived", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tickets"], 1)

	rec, _ = a.do(t, staff, http.MethodGet, "/v1/admin/tickets/search?priority=urgent", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/99/start", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/tickets/abc/start", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationsFeed(t *testing.T) {
	a := newApp(t)
	// every new ticket raises a notification
	for _, title := range []string{"Fix AC", "Replace towels"} {
		rec, _ := a.do(t, staff, http.MethodPost, "/v1/admin/tickets",
			`{"task_title":"`+title+`","category":"Housekeeping","room_number":"101"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := a.do(t, staff, http.MethodGet, "/v1/admin/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["notifications"], 2)
	assert.EqualValues(t, 2, body["unread"])

	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/notifications/1/read", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(t, staff, http.MethodPost, "/v1/admin/notifications/9/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = a.do(t, staff, http.MethodPost, "/v1/admin/notifications/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["cleared"])

	_, body = a.do(t, staff, http.MethodGet, "/v1/admin/notifications", "")
	assert.EqualValues(t, 0, body["unread"])
}

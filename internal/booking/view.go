package booking

import (
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Filter selects a partition of the guest's bookings.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterUpcoming  Filter = "upcoming"
	FilterPast      Filter = "past"
	FilterCancelled Filter = "cancelled"
)

// ParseFilter maps query input to a Filter; anything unknown is "all".
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterUpcoming:
		return FilterUpcoming
	case FilterPast:
		return FilterPast
	case FilterCancelled:
		return FilterCancelled
	}
	return FilterAll
}

const DefaultPageSize = 5

// ViewQuery is what the My Bookings page sends.  PrevFilter and PrevSearch
// echo the previous request; Page is only honoured while they match.
type ViewQuery struct {
	Filter     Filter
	Search     string
	Page       int
	PrevFilter Filter
	PrevSearch string
}

type Page struct {
	Items      []model.Booking `json:"items"`
	Filter     Filter          `json:"filter"`
	Search     string          `json:"q"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
}

// Category places a booking in exactly one of upcoming, past or cancelled.
// Cancelled wins, then past (checked out before today, or completed);
// everything else is upcoming.
//
// A stay in progress (check-in before today, check-out today or later) is
// upcoming even though its check-in has passed.  Bucketing by check-in
// alone would leave it in no bucket at all.
func Category(b model.Booking, today time.Time) Filter {
	day := truncateDay(today)
	switch {
	case b.Status == model.BookingCancelled:
		return FilterCancelled
	case b.Status == model.BookingCompleted || truncateDay(b.CheckOut).Before(day):
		return FilterPast
	default:
		return FilterUpcoming
	}
}

func matchesSearch(b model.Booking, needle string) bool {
	if needle == "" {
		return true
	}
	for _, hay := range []string{b.BookingID, b.RoomName, b.RoomType, string(b.Status)} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// SortNewest orders bookings by CreatedAt descending, falling back to the
// BookingDate string when CreatedAt is unset.
func SortNewest(bs []model.Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		a, b := bs[i], bs[j]
		if !a.CreatedAt.IsZero() && !b.CreatedAt.IsZero() {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.CreatedAt.IsZero() != b.CreatedAt.IsZero() {
			return !a.CreatedAt.IsZero()
		}
		return a.BookingDate > b.BookingDate
	})
}

// View filters, searches, sorts and paginates bookings.
func View(all []model.Booking, q ViewQuery, pageSize int, now time.Time) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if q.Filter == "" {
		q.Filter = FilterAll
	}
	if q.PrevFilter == "" {
		q.PrevFilter = FilterAll
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]model.Booking, 0, len(all))
	for _, b := range all {
		if q.Filter != FilterAll && Category(b, now) != q.Filter {
			continue
		}
		if !matchesSearch(b, needle) {
			continue
		}
		out = append(out, b)
	}
	SortNewest(out)

	page := q.Page
	if q.Filter != q.PrevFilter || !strings.EqualFold(strings.TrimSpace(q.Search), strings.TrimSpace(q.PrevSearch)) {
		page = 1
	}
	totalPages := (len(out) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(out) {
		start = len(out)
	}
	if end > len(out) {
		end = len(out)
	}

	return Page{
		Items:      out[start:end],
		Filter:     q.Filter,
		Search:     strings.TrimSpace(q.Search),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: len(out),
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

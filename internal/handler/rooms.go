package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/pricing"
)

type RoomsHandler struct {
	Catalog pricing.Catalog
}

func NewRoomsHandler(c pricing.Catalog) *RoomsHandler { return &RoomsHandler{Catalog: c} }

// List returns the rate card of every room type, cheapest first.
func (h *RoomsHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"rooms": h.Catalog.Rooms()})
}

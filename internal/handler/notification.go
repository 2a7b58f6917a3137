package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notification"
)

type NotificationHandler struct {
	Notifications *notification.Service
	Log           logrus.FieldLogger
}

func NewNotificationHandler(svc *notification.Service, log logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{Notifications: svc, Log: log}
}

func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Notifications.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	unread := 0
	for _, n := range items {
		if n.Status != model.NotificationRead {
			unread++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items, "unread": unread})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear marks every loaded notification read.  A partial failure still
// reports how many were cleared.
func (h *NotificationHandler) Clear(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	n, err := h.Notifications.ClearAll(ctx)
	if err != nil {
		h.Log.WithError(err).WithField("cleared", n).Error("clear notifications failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clear failed, please retry", "cleared": n})
	}
	return c.JSON(http.StatusOK, echo.Map{"cleared": n})
}

func (h *NotificationHandler) Stream(c echo.Context) error {
	ch, err := h.Notifications.Subscribe(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return streamSSE(c, "notification", ch)
}

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	events                 events
	now                    func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(deps Deps) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: deps.Notifications,
		userRepository:         deps.Users,
		events:                 events{publisher: deps.Publisher},
		now:                    time.Now,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

func (h *NotificationHandler) enrich(ctx context.Context, notifications []models.Notification) ([]models.NotificationView, error) {
	out := make([]models.NotificationView, len(notifications))
	if len(notifications) == 0 {
		return out, nil
	}
	actorIDs := make([]uint, 0, len(notifications))
	for _, n := range notifications {
		actorIDs = append(actorIDs, n.ActorID)
	}
	actors, err := h.userRepository.GetUsersByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}
	for i, n := range notifications {
		actor := actors[n.ActorID]
		out[i] = models.NotificationView{Notification: n, Actor: actor.ToCompact()}
	}
	return out, nil
}

// GetNotifications returns the caller's notifications newest first.
// Without a limit query parameter every notification is returned.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	page, limit := pagination(c, 20, true)

	notifications, total, err := h.notificationRepository.GetByRecipientID(ctx, getUserIDFromContext(c), page, limit)
	if err != nil {
		return toHTTPError(err)
	}
	views, err := h.enrich(ctx, notifications)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": views,
		},
		"meta": pageMeta(page, limit, total),
	})
}

// GetGroupedNotifications buckets notifications into today, yesterday, this week and older
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserIDFromContext(c)

	today, yesterday, thisWeek, older, err := h.notificationRepository.GetGrouped(ctx, userID, h.now())
	if err != nil {
		return toHTTPError(err)
	}
	unread, err := h.notificationRepository.GetUnreadCount(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}

	var grouped models.GroupedNotifications
	for _, bucket := range []struct {
		src []models.Notification
		dst *[]models.NotificationView
	}{
		{today, &grouped.Today},
		{yesterday, &grouped.Yesterday},
		{thisWeek, &grouped.ThisWeek},
		{older, &grouped.Older},
	} {
		if *bucket.dst, err = h.enrich(ctx, bucket.src); err != nil {
			return toHTTPError(err)
		}
	}
	grouped.Unread = unread
	return c.JSON(http.StatusOK, grouped)
}

// GetUnreadCount returns the number of unread notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks one of the caller's notifications read. Marking twice is fine.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := getUserIDFromContext(c)

	if err := h.notificationRepository.MarkAsRead(ctx, id, userID); err != nil {
		return toHTTPError(err)
	}
	h.events.emit(ctx, models.TableNotifications, models.EventUpdate, strconv.FormatUint(uint64(id), 10), userID, userID, echo.Map{"is_read": true})
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead marks every unread notification of the caller read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserIDFromContext(c)

	updated, err := h.notificationRepository.MarkAllAsRead(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}
	if updated > 0 {
		h.events.emit(ctx, models.TableNotifications, models.EventUpdate, "*", userID, userID, echo.Map{"is_read": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

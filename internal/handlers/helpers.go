package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/minisocial/internal/middleware"
	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/realtime"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func getClaimsFromContext(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(middleware.ContextKeyUser).(*models.JwtCustomClaims)
	return claims
}

// getUserIDFromContext returns 0 for unauthenticated requests.
func getUserIDFromContext(c echo.Context) uint {
	if claims := getClaimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// toHTTPError maps the application error taxonomy onto HTTP statuses.
func toHTTPError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	msg := err.Error()
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case errors.Is(err, models.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, models.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, msg)
	case errors.Is(err, models.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, msg)
	case errors.Is(err, models.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, msg)
	case errors.Is(err, models.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "Request timed out")
	}

	log.WithError(err).Error("internal error")
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

// events announces committed writes. A failed publish is logged, never
// surfaced, because the write itself already succeeded.
type events struct {
	publisher realtime.Publisher
}

func (e events) emit(ctx context.Context, table, typ, recordID string, actorID, recipientID uint, record interface{}) {
	if e.publisher == nil {
		return
	}
	evt := models.ChangeEvent{
		Table:       table,
		Type:        typ,
		RecordID:    recordID,
		ActorID:     actorID,
		RecipientID: recipientID,
		At:          time.Now().UTC(),
	}
	if record != nil {
		if raw, err := json.Marshal(record); err == nil {
			evt.Record = raw
		}
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		log.WithError(err).WithField("table", table).Warn("failed to publish change event")
	}
}

type notifier struct {
	notifications repositories.NotificationRepository
	events        events
}

// notify stores a notification and pushes it to the recipient. Self-actions are skipped.
func (h *notifier) notify(ctx context.Context, kind string, actorID, recipientID uint, postID string) {
	if actorID == recipientID || recipientID == 0 {
		return
	}
	n := &models.Notification{Type: kind, ActorID: actorID, RecipientID: recipientID, PostID: postID}
	if err := h.notifications.CreateNotification(ctx, n); err != nil {
		log.WithError(err).WithField("type", kind).Warn("failed to create notification")
		return
	}
	h.events.emit(ctx, models.TableNotifications, models.EventInsert, strconv.FormatUint(uint64(n.ID), 10), actorID, recipientID, n)
}

// pagination reads page/limit. A missing limit means "everything" when
// allowAll is set, otherwise the default.
func pagination(c echo.Context, defaultLimit int, allowAll bool) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit == 0 && allowAll && c.QueryParam("limit") == "" {
		return 1, 0
	}
	if limit < 1 || limit > 50 {
		limit = defaultLimit
	}
	return page, limit
}

func pageMeta(page, limit int, total int64) echo.Map {
	totalPages := 1
	itemsPerPage := limit
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	} else {
		itemsPerPage = int(total)
	}
	return echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    itemsPerPage,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	}
}

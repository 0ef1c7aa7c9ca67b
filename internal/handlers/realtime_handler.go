package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

var subscribableTables = map[string]bool{
	models.TablePosts:         true,
	models.TableComments:      true,
	models.TableLikes:         true,
	models.TableFollows:       true,
	models.TableNotifications: true,
}

// RealtimeHandler upgrades authenticated requests to a change stream.
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the session token already authenticates the caller
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *RealtimeHandler) RegisterRealtimeRoutes(g *echo.Group) {
	g.GET("/realtime", h.Subscribe)
}

// parseTables reads the comma separated tables parameter. Empty means posts only.
func parseTables(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{models.TablePosts}, nil
	}
	var tables []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !subscribableTables[t] {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Unknown table: "+t)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Subscribe streams change events for the requested tables until the client leaves.
func (h *RealtimeHandler) Subscribe(c echo.Context) error {
	tables, err := parseTables(c.QueryParam("tables"))
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.WithError(err).Debug("websocket upgrade failed")
		return nil
	}

	userID := getUserIDFromContext(c)
	sub := h.hub.Subscribe(userID, tables)
	log.WithFields(log.Fields{"user_id": userID, "tables": tables}).Info("realtime subscriber connected")
	realtime.Pump(c.Request().Context(), h.hub, conn, sub)
	log.WithField("user_id", userID).Info("realtime subscriber disconnected")
	return nil
}

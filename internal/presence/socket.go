package presence

import (
	"net/http"

	"SchoolBeacon/internal/auth"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SocketHandler upgrades authenticated requests and keeps the registry in
// sync with connection lifetimes.
type SocketHandler struct {
	registry *Registry
	logger   *zap.Logger
}

func NewSocketHandler(registry *Registry, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{registry: registry, logger: logger}
}

func (h *SocketHandler) Connect(c echo.Context) error {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	session := NewSession(conn, claims.UserID, claims.SchoolID, claims.Role, claims.ClassID)
	h.registry.Register(session)
	h.logger.Debug("session connected",
		zap.String("user_id", claims.UserID),
		zap.String("school_id", claims.SchoolID))

	defer func() {
		h.registry.Unregister(session)
		conn.Close()
		h.logger.Debug("session disconnected", zap.String("user_id", claims.UserID))
	}()

	// Drain the connection; clients only listen on this channel, so any read
	// error means the session is gone.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

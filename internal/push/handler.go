package push

import (
	"context"
	"net/http"

	"SchoolBeacon/internal/auth"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Channel  string `json:"channel"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// RegisterEndpoint lets a signed-in client register its device token or
// browser subscription. The owning user comes from the JWT, never the body.
func (h *Handler) RegisterEndpoint(c echo.Context) error {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	sub := &Subscription{
		UserID:   claims.UserID,
		SchoolID: claims.SchoolID,
		Channel:  Channel(req.Channel),
		Endpoint: req.Endpoint,
		P256dh:   req.P256dh,
		Auth:     req.Auth,
	}
	if err := h.service.RegisterEndpoint(context.Background(), sub); err != nil {
		if err == ErrInvalidSubscription {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid subscription"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to register endpoint"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "Endpoint registered"})
}

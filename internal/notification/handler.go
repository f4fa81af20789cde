package notification

import (
	"context"
	"net/http"
	"strconv"

	"SchoolBeacon/internal/auth"

	"github.com/labstack/echo/v4"
)

// Handler exposes the engine's boundary operations over HTTP. The viewer is
// always reconstructed from verified JWT claims.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func viewerFromClaims(claims *auth.JWTClaims) Viewer {
	return Viewer{
		UserID:   claims.UserID,
		SchoolID: claims.SchoolID,
		Role:     claims.Role,
		ClassID:  claims.ClassID,
	}
}

func claimsFrom(c echo.Context) (*auth.JWTClaims, bool) {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	return claims, ok && claims != nil
}

type createRequest struct {
	Title        string       `json:"title"`
	Message      string       `json:"message"`
	Type         string       `json:"type"`
	AudienceMode string       `json:"audience_mode"`
	TargetRoles  []string     `json:"target_roles"`
	ClassID      string       `json:"class_id"`
	Recipients   []string     `json:"recipients"`
	Resource     *ResourceRef `json:"resource"`
}

func (h *Handler) Create(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	// Teachers may only address their own class; wider targeting is reserved
	// for admin and staff roles (also enforced by the route policy).
	if claims.Role == auth.RoleTeacher {
		if AudienceMode(req.AudienceMode) != AudienceClass || req.ClassID != claims.ClassID {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Teachers may only notify their own class"})
		}
	}

	event, err := h.service.Create(context.Background(), CreateInput{
		SchoolID:     claims.SchoolID,
		Title:        req.Title,
		Message:      req.Message,
		Type:         req.Type,
		AudienceMode: AudienceMode(req.AudienceMode),
		TargetRoles:  req.TargetRoles,
		ClassID:      req.ClassID,
		Recipients:   req.Recipients,
		SenderID:     claims.UserID,
		Resource:     req.Resource,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, event)
}

func (h *Handler) List(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	offset, _ := strconv.ParseInt(c.QueryParam("offset"), 10, 64)

	items, err := h.service.List(context.Background(), viewerFromClaims(claims), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list notifications"})
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UnreadCount(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	count, err := h.service.UnreadCount(context.Background(), viewerFromClaims(claims))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to count notifications"})
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}

func (h *Handler) MarkRead(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	err := h.service.MarkRead(context.Background(), viewerFromClaims(claims), c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notification as read"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Marked as read"})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	modified, err := h.service.MarkAllRead(context.Background(), viewerFromClaims(claims))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notifications as read"})
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": modified})
}

type markTypeRequest struct {
	Types   []string `json:"types"`
	ClassID string   `json:"class_id"`
}

func (h *Handler) MarkTypeRead(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	var req markTypeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if len(req.Types) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Types are required"})
	}

	modified, err := h.service.MarkTypeRead(context.Background(), viewerFromClaims(claims), req.Types, req.ClassID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notifications as read"})
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": modified})
}

func (h *Handler) Delete(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}

	err := h.service.Delete(context.Background(), viewerFromClaims(claims), c.Param("id"))
	if err != nil {
		switch err {
		case ErrNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		case ErrForbidden:
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Not allowed to delete this notification"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete notification"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification deleted"})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SchoolBeacon/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func runJWTMiddleware(t *testing.T, header, query string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	target := "/api/profile"
	if query != "" {
		target += "?token=" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", "Bearer "+header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTMiddleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(t, handler(c))
	return rec, c
}

func signedToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateJWT(&auth.User{
		ID:       primitive.NewObjectID(),
		SchoolID: "S1",
		Role:     auth.RoleStudent,
		ClassID:  "C1",
	}, time.Hour)
	assert.NoError(t, err)
	return token
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	rec, c := runJWTMiddleware(t, signedToken(t), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	claims, ok := c.Get("user").(*auth.JWTClaims)
	assert.True(t, ok)
	assert.Equal(t, "S1", claims.SchoolID)
}

func TestJWTMiddlewareAcceptsQueryParamToken(t *testing.T) {
	// websocket upgrades cannot carry an Authorization header
	rec, _ := runJWTMiddleware(t, "", signedToken(t))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	rec, _ := runJWTMiddleware(t, "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsUnsignedToken(t *testing.T) {
	claims := &auth.JWTClaims{
		UserID:   "u1",
		SchoolID: "S1",
		Role:     auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	assert.NoError(t, err)

	rec, c := runJWTMiddleware(t, unsigned, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, c.Get("user"))
}

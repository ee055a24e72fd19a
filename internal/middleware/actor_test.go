package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/internal/service"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func actorTestRouter(required bool) (*gin.Engine, *models.ActorClaims, *bool) {
	gin.SetMode(gin.TestMode)
	var seen models.ActorClaims
	var hadActor bool
	r := gin.New()
	r.Use(Actor(testSecret, required))
	r.GET("/ping", func(c *gin.Context) {
		seen, hadActor = service.ActorFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r, &seen, &hadActor
}

func TestActorMiddlewareStampsClaims(t *testing.T) {
	r, seen, hadActor := actorTestRouter(false)

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "name": "User One"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *hadActor)
	assert.Equal(t, "user-1", seen.Subject)
	assert.Equal(t, "User One", seen.FullName)
}

func TestActorMiddlewareOptionalWithoutToken(t *testing.T) {
	r, _, hadActor := actorTestRouter(false)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, *hadActor)
}

func TestActorMiddlewareRequiredWithoutToken(t *testing.T) {
	r, _, _ := actorTestRouter(true)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorMiddlewareRequiredBadSignature(t *testing.T) {
	r, _, _ := actorTestRouter(true)

	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "user-1"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorMiddlewareRequiredMissingSubject(t *testing.T) {
	r, _, _ := actorTestRouter(true)

	token := signToken(t, testSecret, jwt.MapClaims{"name": "No Subject"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorMiddlewareOptionalIgnoresBadToken(t *testing.T) {
	r, _, hadActor := actorTestRouter(false)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, *hadActor)
}

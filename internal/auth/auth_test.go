package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/backend/internal/config"
	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/pkg/jwt"
)

type userMap map[uint]models.User

func (m userMap) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	return &u, nil
}

func setup(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTSecret: "test-secret", JWTTTL: time.Hour}
	t.Cleanup(func() { config.AppConfig = prev })
}

func token(t *testing.T, id uint) string {
	t.Helper()
	tok, err := jwt.GenerateToken(id)
	require.NoError(t, err)
	return tok
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "authenticated": ok})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, target, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	setup(t)
	r := newRouter(AuthMiddleware())

	w := do(r, "/", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/", "Bearer "+token(t, 7))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"authenticated":true}`, w.Body.String())

	w = do(r, "/?access_token="+token(t, 8), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "query tokens are for event streams only")
}

func TestStreamAuthMiddleware(t *testing.T) {
	setup(t)
	r := newRouter(StreamAuthMiddleware())

	w := do(r, "/?access_token="+token(t, 8), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":8,"authenticated":true}`, w.Body.String())

	w = do(r, "/", "Bearer "+token(t, 9))
	assert.JSONEq(t, `{"user_id":9,"authenticated":true}`, w.Body.String())

	w = do(r, "/?access_token=garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	setup(t)
	r := newRouter(OptionalAuthMiddleware())

	w := do(r, "/", "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"authenticated":false}`, w.Body.String())

	w = do(r, "/", "Bearer "+token(t, 3))
	assert.JSONEq(t, `{"user_id":3,"authenticated":true}`, w.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	setup(t)
	users := userMap{
		1: {Role: RoleAdmin},
		2: {Role: "user"},
	}
	users[1] = withID(users[1], 1)
	users[2] = withID(users[2], 2)
	r := newRouter(AuthMiddleware(), AdminMiddleware(users))

	assert.Equal(t, http.StatusOK, do(r, "/", "Bearer "+token(t, 1)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/", "Bearer "+token(t, 2)).Code)
	assert.Equal(t, http.StatusNotFound, do(r, "/", "Bearer "+token(t, 9)).Code)

	unauthenticated := newRouter(AdminMiddleware(users))
	assert.Equal(t, http.StatusUnauthorized, do(unauthenticated, "/", "").Code)
}

func withID(u models.User, id uint) models.User {
	u.ID = id
	return u
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/apperror"
	"github.com/princinho/sahoauth/models"
	"github.com/princinho/sahoauth/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthorizer struct {
	tokens map[string]*models.User
	seen   string
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, tok string) (*models.User, error) {
	f.seen = tok
	if u, ok := f.tokens[tok]; ok {
		return u, nil
	}
	return nil, apperror.Unauthorized("Invalid access token")
}

func newEngine(auth Authorizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/me", RequireAuth(auth, zap.NewNop()), func(c *gin.Context) {
		u, _ := c.Get(ContextUser)
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "username": u.(*models.PublicUser).Username})
	})
	return r
}

func TestRequireAuth_PrefersCookie(t *testing.T) {
	auth := &fakeAuthorizer{tokens: map[string]*models.User{
		"cookie-token": {ID: "u1", Username: "alice"},
		"header-token": {ID: "u2", Username: "bob"},
	}}
	r := newEngine(auth)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: utils.AccessTokenCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cookie-token", auth.seen)
	assert.JSONEq(t, `{"id":"u1","username":"alice"}`, w.Body.String())
}

func TestRequireAuth_BearerFallback(t *testing.T) {
	auth := &fakeAuthorizer{tokens: map[string]*models.User{
		"header-token": {ID: "u2", Username: "bob"},
	}}
	r := newEngine(auth)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "header-token", auth.seen)
}

func TestRequireAuth_Rejects(t *testing.T) {
	auth := &fakeAuthorizer{}
	r := newEngine(auth)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "", auth.seen)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r := newEngine(&fakeAuthorizer{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

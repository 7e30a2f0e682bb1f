package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPasswordHasher(t *testing.T) {
	h := &PasswordHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.True(t, h.Verify(hash, "secret1"))
	assert.False(t, h.Verify(hash, "secret2"))
	assert.False(t, h.Verify("not-a-hash", "secret1"))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	// decomposed input composes to the same username
	assert.Equal(t, "jos\u00e9", NormalizeUsername("JOSE\u0301"))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestAnyBlank(t *testing.T) {
	assert.False(t, AnyBlank("a", "b"))
	assert.True(t, AnyBlank("a", " "))
	assert.True(t, AnyBlank(""))
	assert.False(t, AnyBlank())
}

func TestRespond(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Respond(c, http.StatusCreated, gin.H{"id": "1"}, "User registered successfully")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(201), body["status"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "User registered successfully", body["message"])
	assert.Equal(t, map[string]any{"id": "1"}, body["data"])
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, zap.NewNop(), apperror.Validation("All fields are required", "email"))

	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, APIError{Status: 400, Message: "All fields are required", Errors: []string{"email"}}, body)
	assert.True(t, c.IsAborted())
}

func TestRespondError_Unclassified(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, zap.NewNop(), errors.New("dial tcp: refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}

func TestCookieWriter(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	CookieWriter{Secure: true}.SetTokens(c, "a", "r", time.Minute, time.Hour)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	byName := map[string]*http.Cookie{}
	for _, ck := range cookies {
		byName[ck.Name] = ck
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
	}
	assert.Equal(t, "a", byName[AccessTokenCookie].Value)
	assert.Equal(t, 60, byName[AccessTokenCookie].MaxAge)
	assert.Equal(t, "r", byName[RefreshTokenCookie].Value)
	assert.Equal(t, 3600, byName[RefreshTokenCookie].MaxAge)
}

func TestCookieWriter_Clear(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	CookieWriter{}.ClearTokens(c)

	for _, ck := range w.Result().Cookies() {
		assert.Empty(t, ck.Value)
		assert.Less(t, ck.MaxAge, 0)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	}
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/accounts"
	"github.com/princinho/sahoauth/controllers"
	"github.com/princinho/sahoauth/database"
	"github.com/princinho/sahoauth/session"
	"github.com/princinho/sahoauth/storage"
	"github.com/princinho/sahoauth/token"
	"github.com/princinho/sahoauth/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubUploader struct{}

func (stubUploader) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	return "https://cdn.example/" + folder + "/" + fh.Filename, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
}

type sessionData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	store := database.NewMemoryUserStore()
	log := zap.NewNop()
	sessions := session.NewService(codec, store, log)
	svc := accounts.NewService(store, &utils.PasswordHasher{Cost: bcrypt.MinCost}, stubUploader{}, sessions, log)

	return NewRouter(&controllers.Deps{
		Accounts:   svc,
		Sessions:   sessions,
		Files:      storage.NewFileValidator([]string{".png"}, []string{"image/png"}, 1),
		Cookies:    utils.CookieWriter{},
		AccessTTL:  codec.TTL(token.Access),
		RefreshTTL: codec.TTL(token.Refresh),
		Log:        log,
	}, []string{"http://localhost:3000"})
}

func serve(r *gin.Engine, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func registerRequest(t *testing.T, fields map[string]string, withAvatar bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withAvatar {
		part, err := mw.CreateFormFile("avatar", "alice.png")
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func aliceForm() map[string]string {
	return map[string]string{
		"username": "Alice",
		"fullname": "Alice A",
		"email":    "a@x.com",
		"password": "secret1",
	}
}

func TestPing(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Request-ID"), 26)
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, registerRequest(t, aliceForm(), true))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Success)
	var registered map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.Equal(t, "alice", registered["username"])
	assert.Equal(t, "https://cdn.example/avatars/alice.png", registered["avatar"])
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "refreshToken")

	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	access := cookie(w, utils.AccessTokenCookie)
	refresh := cookie(w, utils.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, 60, access.MaxAge)
	assert.Equal(t, 3600, refresh.MaxAge)
	var login sessionData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &login))
	assert.Equal(t, refresh.Value, login.RefreshToken)

	// bearer header
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	// rotation via cookie
	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil), refresh)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rotated sessionData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rotated))
	assert.NotEqual(t, refresh.Value, rotated.RefreshToken)
	assert.Equal(t, rotated.RefreshToken, cookie(w, utils.RefreshTokenCookie).Value)

	// the first refresh token is spent
	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil), refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Refresh token is expired or used", decode(t, w).Message)

	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/logout", nil),
		&http.Cookie{Name: utils.AccessTokenCookie, Value: rotated.AccessToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "", cookie(w, utils.RefreshTokenCookie).Value)

	// body fallback, but the session is gone
	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", map[string]string{
		"refreshToken": rotated.RefreshToken,
	}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env = decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "Refresh token is expired or used", env.Message)
}

func TestRegister_FormFields(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, registerRequest(t, map[string]string{
		"username": "alice",
		"fullname": "Alice A",
		"email":    "a@x.com",
		"password": "secret1",
	}, true))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &user))
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "Alice A", user["fullName"])

	// camel-case field name is accepted as well
	w = serve(r, registerRequest(t, map[string]string{
		"username": "bob",
		"fullName": "Bob B",
		"email":    "b@x.com",
		"password": "secret1",
	}, true))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &user))
	assert.Equal(t, "Bob B", user["fullName"])
}

func TestRegister_Rejections(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, registerRequest(t, aliceForm(), false))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Avatar file is required", decode(t, w).Message)

	form := aliceForm()
	form["email"] = " "
	w = serve(r, registerRequest(t, form, true))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required", decode(t, w).Message)

	w = serve(r, registerRequest(t, aliceForm(), true))
	require.Equal(t, http.StatusCreated, w.Code)

	form = aliceForm()
	form["username"] = "ALICE"
	form["email"] = "other@x.com"
	w = serve(r, registerRequest(t, form, true))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized request", decode(t, w).Message)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid access token", decode(t, w).Message)
}

func TestChangePasswordAndUpdateAccount(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusCreated, serve(r, registerRequest(t, aliceForm(), true)).Code)
	w := serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	access := cookie(w, utils.AccessTokenCookie)

	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "nope", "newPassword": "secret2",
	}), access)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid old password", decode(t, w).Message)

	w = serve(r, jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "secret1", "newPassword": "secret2",
	}), access)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullName": "Alice B", "email": "not-an-email",
	}), access)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullName": "Alice B", "email": "alice@x.com",
	}), access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.Contains(w.Body.String(), `"fullName":"Alice B"`))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vportn/golinks/internal/config"
	"github.com/vportn/golinks/internal/repository"
	"github.com/vportn/golinks/internal/service"
	"go.uber.org/zap"
)

func newAuthTestHandler(t *testing.T) (http.Handler, *service.Service, *string) {
	t.Helper()
	svc := service.NewService(repository.NewMemoryRepository(), nil, nil, "http://localhost:8080", "secret", zap.NewNop())
	cfg := &config.Config{CookieTTL: time.Hour}

	var seenUserID string
	handler := AuthMiddleware(svc, cfg, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r)
		assert.True(t, ok, "UserID should be present in context")
		seenUserID = userID
		w.WriteHeader(http.StatusOK)
	}))
	return handler, svc, &seenUserID
}

func TestAuthMiddlewareIssuesCookie(t *testing.T) {
	handler, svc, seenUserID := newAuthTestHandler(t)

	// Тест 1: запрос без куки получает новую личность
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "Request should pass")
	assert.NotEmpty(t, *seenUserID, "UserID should be generated")

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "jwt_token" {
			cookie = c
		}
	}
	assert.NotNil(t, cookie, "JWT cookie should be set")
	assert.True(t, cookie.HttpOnly, "Cookie should be HttpOnly")

	parsed, err := svc.ParseJWT(cookie.Value)
	assert.NoError(t, err, "Issued token should be valid")
	assert.Equal(t, *seenUserID, parsed, "Token should carry the same UserID")

	// Тест 2: повторный запрос с кукой сохраняет личность
	first := *seenUserID
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, first, *seenUserID, "Same cookie should keep the same UserID")
	assert.Empty(t, w.Result().Cookies(), "No new cookie should be issued for valid token")
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	handler, _, seenUserID := newAuthTestHandler(t)

	// Тест: порченая кука заменяется новой личностью
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: "garbage"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "Request should still pass")
	assert.NotEmpty(t, *seenUserID, "New UserID should be generated")

	var reissued bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "jwt_token" {
			reissued = true
		}
	}
	assert.True(t, reissued, "New cookie should replace the bad one")
}

package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/vportn/golinks/internal/analytics"
	"github.com/vportn/golinks/internal/config"
	"github.com/vportn/golinks/internal/middleware"
	"github.com/vportn/golinks/internal/repository"
	"github.com/vportn/golinks/internal/service"
	"go.uber.org/zap"
)

// testStack собирает приложение с хранилищем в памяти и полным роутером
type testStack struct {
	repo   *repository.MemoryRepository
	router chi.Router
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewMemoryRepository()
	geo := analytics.NewGeoClient("http://geo.invalid", 50*time.Millisecond, logger)
	recorder := analytics.NewRecorder(repo, geo, "test-salt", logger)
	svc := service.NewService(repo, nil, recorder, "http://localhost:8080", "secret", logger)
	appInstance := NewApp(svc, nil, logger)

	cfg := &config.Config{CookieTTL: time.Hour, TrustedSubnet: "10.0.0.0/8"}

	r := chi.NewRouter()
	r.Get("/health", appInstance.HandleHealth)
	r.Group(func(r chi.Router) {
		r.Use(middleware.TrustedSubnetMiddleware(cfg.TrustedSubnet, logger))
		r.Get("/api/internal/stats", appInstance.HandleInternalStats)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(svc, cfg, logger))
		r.Get("/{shortCode}", appInstance.HandleRedirect)
		r.Post("/api/links", appInstance.HandleCreateLink)
		r.Get("/api/links", appInstance.HandleGetLinks)
		r.Get("/api/links/{id}", appInstance.HandleGetLink)
		r.Put("/api/links/{id}", appInstance.HandleUpdateLink)
		r.Delete("/api/links/{id}", appInstance.HandleDeleteLink)
		r.Get("/api/analytics/dashboard-stats", appInstance.HandleDashboardStats)
		r.Get("/api/analytics/{linkId}", appInstance.HandleLinkEvents)
		r.Get("/api/analytics/{linkId}/summary", appInstance.HandleLinkSummary)
	})

	return &testStack{repo: repo, router: r}
}

// do выполняет запрос с кукой пользователя и возвращает ответ вместе с ней
func (s *testStack) do(t *testing.T, method, target string, body []byte, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "jwt_token" {
			return w, c
		}
	}
	return w, cookie
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Response should be valid JSON envelope")
	return resp
}

func dataField(t *testing.T, resp APIResponse, key string) interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	assert.True(t, ok, "Data should be an object")
	return data[key]
}

func TestCreateAndListLinks(t *testing.T) {
	s := newTestStack(t)

	// Тест 1: создание ссылки
	w, cookie := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","title":"Example"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Create should return 201")
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success, "Create should succeed")
	assert.NotNil(t, cookie, "JWT cookie should be issued")
	shortURL, _ := dataField(t, resp, "short_url").(string)
	assert.Contains(t, shortURL, "http://localhost:8080/", "Short URL should include base URL")

	// Тест 2: список ссылок того же пользователя
	w, _ = s.do(t, http.MethodGet, "/api/links", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code, "List should return 200")
	resp = decodeEnvelope(t, w)
	assert.True(t, resp.Success, "List should succeed")
	assert.NotNil(t, resp.Count, "List should include count")
	assert.Equal(t, 1, *resp.Count, "One link should be listed")

	// Тест 3: другой пользователь видит пустой список
	w, _ = s.do(t, http.MethodGet, "/api/links", nil, nil)
	resp = decodeEnvelope(t, w)
	assert.Equal(t, 0, *resp.Count, "Foreign user should see no links")
}

func TestCreateLinkValidation(t *testing.T) {
	s := newTestStack(t)

	// Тест 1: некорректный JSON
	w, _ := s.do(t, http.MethodPost, "/api/links", []byte(`{broken`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Broken JSON should return 400")
	assert.False(t, decodeEnvelope(t, w).Success, "Envelope should mark failure")

	// Тест 2: пустой URL
	w, _ = s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":""}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Empty URL should return 400")

	// Тест 3: зарезервированный алиас
	w, _ = s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","custom_alias":"api"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Reserved alias should return 400")

	// Тест 4: конфликт алиасов
	w, cookie := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","custom_alias":"mine-1"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "First alias should be created")
	w, _ = s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://other.com","custom_alias":"mine-1"}`), cookie)
	assert.Equal(t, http.StatusConflict, w.Code, "Duplicate alias should return 409")
}

func TestRedirect(t *testing.T) {
	s := newTestStack(t)

	w, cookie := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com/target","custom_alias":"go-here"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Create should return 201")
	resp := decodeEnvelope(t, w)
	linkID, _ := dataField(t, resp, "id").(string)

	// Тест 1: редирект со счётчиком
	w, _ = s.do(t, http.MethodGet, "/go-here", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code, "Redirect should return 307")
	assert.Equal(t, "https://example.com/target", w.Header().Get("Location"), "Location should point to original URL")

	link, found := s.repo.GetLinkByID(linkID)
	assert.True(t, found, "Link should exist")
	assert.Equal(t, int64(1), link.Clicks, "Click counter should be incremented")

	// Тест 2: событие аналитики записано асинхронно
	time.Sleep(100 * time.Millisecond)
	events, err := s.repo.GetEventsByLinkID(linkID, 0)
	assert.NoError(t, err, "GetEventsByLinkID should not return error")
	assert.Len(t, events, 1, "One analytics event should be recorded")

	// Тест 3: несуществующий код
	w, _ = s.do(t, http.MethodGet, "/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Missing code should return 404")
	resp = decodeEnvelope(t, w)
	assert.False(t, resp.Success, "Envelope should mark failure")
	assert.Equal(t, "Link not found", resp.Message, "Message should be generic")

	// Тест 4: деактивированная ссылка отвечает как отсутствующая
	w, _ = s.do(t, http.MethodPut, "/api/links/"+linkID, []byte(`{"is_active":false}`), cookie)
	assert.Equal(t, http.StatusOK, w.Code, "Update should return 200")
	w, _ = s.do(t, http.MethodGet, "/go-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Inactive link should return 404")
	assert.Equal(t, "Link not found", decodeEnvelope(t, w).Message, "Inactive link should be indistinguishable from missing")

	// Счётчик не изменился после отказа
	link, _ = s.repo.GetLinkByID(linkID)
	assert.Equal(t, int64(1), link.Clicks, "Failed redirect should not increment counter")
}

func TestExpiredLinkRedirect(t *testing.T) {
	s := newTestStack(t)

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339Nano)
	w, _ := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","custom_alias":"long-lived","expires_at":"`+future+`"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Create should return 201")

	// Тест 1: до истечения срока редирект работает
	w, _ = s.do(t, http.MethodGet, "/long-lived", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code, "Fresh link should redirect")

	// Тест 2: истёкшая ссылка неотличима от отсутствующей
	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339Nano)
	w, _ = s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","custom_alias":"short-lived","expires_at":"`+past+`"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Create should return 201")
	w, _ = s.do(t, http.MethodGet, "/short-lived", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Expired link should return 404")
	assert.Equal(t, "Link not found", decodeEnvelope(t, w).Message, "Expired link message should be generic")
}

func TestLinkOwnershipOverHTTP(t *testing.T) {
	s := newTestStack(t)

	w, owner := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Create should return 201")
	linkID, _ := dataField(t, decodeEnvelope(t, w), "id").(string)

	// Тест 1: владелец читает свою ссылку
	w, _ = s.do(t, http.MethodGet, "/api/links/"+linkID, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code, "Owner should read own link")

	// Тест 2: чужой пользователь получает тот же ответ, что и для отсутствующей
	w, _ = s.do(t, http.MethodGet, "/api/links/"+linkID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Foreign access should return 404")
	assert.Equal(t, "Link not found", decodeEnvelope(t, w).Message, "Foreign access should be indistinguishable")

	w, _ = s.do(t, http.MethodGet, "/api/links/does-not-exist", nil, owner)
	assert.Equal(t, http.StatusNotFound, w.Code, "Missing link should return 404")
	assert.Equal(t, "Link not found", decodeEnvelope(t, w).Message, "Missing link should use the same message")

	// Тест 3: чужое удаление не проходит
	w, _ = s.do(t, http.MethodDelete, "/api/links/"+linkID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Foreign delete should return 404")
	_, found := s.repo.GetLinkByID(linkID)
	assert.True(t, found, "Link should survive foreign delete")

	// Тест 4: владелец удаляет ссылку
	w, _ = s.do(t, http.MethodDelete, "/api/links/"+linkID, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code, "Owner delete should return 200")
	_, found = s.repo.GetLinkByID(linkID)
	assert.False(t, found, "Link should be deleted")
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestStack(t)

	w, owner := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","custom_alias":"tracked"}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Create should return 201")
	linkID, _ := dataField(t, decodeEnvelope(t, w), "id").(string)

	for i := 0; i < 3; i++ {
		w, _ = s.do(t, http.MethodGet, "/tracked", nil, nil)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code, "Redirect should succeed")
	}
	time.Sleep(150 * time.Millisecond)

	// Тест 1: сырые события
	w, _ = s.do(t, http.MethodGet, "/api/analytics/"+linkID, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code, "Events endpoint should return 200")
	resp := decodeEnvelope(t, w)
	assert.NotNil(t, resp.Count, "Events response should include count")
	assert.Equal(t, 3, *resp.Count, "All events should be returned")

	// Тест 2: ограничение выдачи
	w, _ = s.do(t, http.MethodGet, "/api/analytics/"+linkID+"?limit=2", nil, owner)
	resp = decodeEnvelope(t, w)
	assert.Equal(t, 2, *resp.Count, "Limit should cap events")

	w, _ = s.do(t, http.MethodGet, "/api/analytics/"+linkID+"?limit=bad", nil, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Invalid limit should return 400")

	// Тест 3: сводка
	w, _ = s.do(t, http.MethodGet, "/api/analytics/"+linkID+"/summary", nil, owner)
	assert.Equal(t, http.StatusOK, w.Code, "Summary endpoint should return 200")
	resp = decodeEnvelope(t, w)
	total, _ := dataField(t, resp, "total_clicks").(float64)
	assert.Equal(t, float64(3), total, "Summary should count all clicks")

	// Тест 4: чужая аналитика недоступна
	w, _ = s.do(t, http.MethodGet, "/api/analytics/"+linkID+"/summary", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Foreign summary should return 404")

	// Тест 5: сводка по аккаунту
	w, _ = s.do(t, http.MethodGet, "/api/analytics/dashboard-stats", nil, owner)
	assert.Equal(t, http.StatusOK, w.Code, "Dashboard stats should return 200")
	resp = decodeEnvelope(t, w)
	totalLinks, _ := dataField(t, resp, "total_links").(float64)
	assert.Equal(t, float64(1), totalLinks, "Dashboard should count links")
	totalClicks, _ := dataField(t, resp, "total_clicks").(float64)
	assert.Equal(t, float64(3), totalClicks, "Dashboard should sum clicks")
}

func TestUpdateLinkOverHTTP(t *testing.T) {
	s := newTestStack(t)

	w, owner := s.do(t, http.MethodPost, "/api/links", []byte(`{"original_url":"https://example.com","title":"old"}`), nil)
	linkID, _ := dataField(t, decodeEnvelope(t, w), "id").(string)

	// Тест: частичное обновление через PUT
	w, _ = s.do(t, http.MethodPut, "/api/links/"+linkID, []byte(`{"title":"new"}`), owner)
	assert.Equal(t, http.StatusOK, w.Code, "Update should return 200")
	resp := decodeEnvelope(t, w)
	title, _ := dataField(t, resp, "title").(string)
	assert.Equal(t, "new", title, "Title should be updated")
	active, _ := dataField(t, resp, "is_active").(bool)
	assert.True(t, active, "IsActive should be unchanged")
}

func TestInternalStats(t *testing.T) {
	s := newTestStack(t)

	// Тест 1: запрос из доверенной подсети
	req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	req.Header.Set("X-Real-IP", "10.1.2.3")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "Trusted IP should get stats")
	var stats map[string]int
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats), "Stats should be valid JSON")

	// Тест 2: запрос извне подсети
	req = httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "Foreign IP should be denied")

	// Тест 3: запрос без X-Real-IP
	req = httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "Missing header should be denied")
}

func TestHealth(t *testing.T) {
	s := newTestStack(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "Health should return 200")
	assert.Contains(t, w.Body.String(), `"status":"ok"`, "Health body should report ok")
}

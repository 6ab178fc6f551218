// Package app содержит HTTP-обработчики сервиса коротких ссылок
package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vportn/golinks/internal/analytics"
	"github.com/vportn/golinks/internal/middleware"
	"github.com/vportn/golinks/internal/models"
	"github.com/vportn/golinks/internal/repository"
	"github.com/vportn/golinks/internal/service"
	"go.uber.org/zap"
)

// defaultEventsLimit ограничивает выдачу сырых событий аналитики
const defaultEventsLimit = 1000

// APIResponse представляет общий конверт JSON-ответов API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// App содержит хендлеры и зависимости
type App struct {
	svc    *service.Service
	db     repository.Database
	logger *zap.Logger
}

// NewApp создаёт новое приложение
func NewApp(svc *service.Service, db repository.Database, logger *zap.Logger) *App {
	return &App{svc: svc, db: db, logger: logger}
}

// HandleRedirect обрабатывает GET-запросы на "/{shortCode}".
// Неактивная, истёкшая и отсутствующая ссылки отвечают одинаково,
// чтобы по ответу нельзя было отличить эти случаи.
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shortCode")
	if code == "" {
		a.writeError(w, http.StatusBadRequest, "Missing short code")
		return
	}

	click := analytics.ClickInfoFromRequest(r)
	link, err := a.svc.ResolveLink(r.Context(), code, click)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) || errors.Is(err, service.ErrLinkExpired) {
			a.writeError(w, http.StatusNotFound, "Link not found")
			return
		}
		a.logger.Error("Failed to resolve link", zap.String("short_code", code), zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Location", link.OriginalURL)
	w.WriteHeader(http.StatusTemporaryRedirect)
}

// HandleCreateLink обрабатывает POST-запросы на "/api/links"
func (a *App) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		a.writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	link, err := a.svc.CreateLink(userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyURL), errors.Is(err, service.ErrInvalidURL),
			errors.Is(err, service.ErrAliasInvalid), errors.Is(err, service.ErrAliasReserved):
			a.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAliasTaken):
			a.writeError(w, http.StatusConflict, err.Error())
		default:
			a.logger.Error("Failed to create link", zap.Error(err))
			a.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	a.writeSuccess(w, http.StatusCreated, "Link created", a.svc.LinkResponse(link), nil)
}

// HandleGetLinks обрабатывает GET-запросы на "/api/links"
func (a *App) HandleGetLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	links, err := a.svc.GetLinksByUserID(userID)
	if err != nil {
		a.logger.Error("Failed to fetch user links", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]models.LinkResponse, len(links))
	for i, link := range links {
		resp[i] = a.svc.LinkResponse(link)
	}
	count := len(resp)
	a.writeSuccess(w, http.StatusOK, "", resp, &count)
}

// HandleGetLink обрабатывает GET-запросы на "/api/links/{id}"
func (a *App) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	link, err := a.svc.GetLink(userID, chi.URLParam(r, "id"))
	if err != nil {
		a.writeLinkError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "", a.svc.LinkResponse(link), nil)
}

// HandleUpdateLink обрабатывает PUT-запросы на "/api/links/{id}"
func (a *App) HandleUpdateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	link, err := a.svc.UpdateLink(userID, chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeLinkError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "Link updated", a.svc.LinkResponse(link), nil)
}

// HandleDeleteLink обрабатывает DELETE-запросы на "/api/links/{id}"
func (a *App) HandleDeleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := a.svc.DeleteLink(userID, chi.URLParam(r, "id")); err != nil {
		a.writeLinkError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "Link deleted", nil, nil)
}

// HandleLinkEvents обрабатывает GET-запросы на "/api/analytics/{linkId}".
// Параметр limit ограничивает число событий, новые отдаются первыми.
func (a *App) HandleLinkEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := defaultEventsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			a.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	events, err := a.svc.GetLinkEvents(userID, chi.URLParam(r, "linkId"), limit)
	if err != nil {
		a.writeLinkError(w, err)
		return
	}
	if events == nil {
		events = []models.AnalyticsEvent{}
	}
	count := len(events)
	a.writeSuccess(w, http.StatusOK, "", events, &count)
}

// HandleLinkSummary обрабатывает GET-запросы на "/api/analytics/{linkId}/summary"
func (a *App) HandleLinkSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	summary, err := a.svc.SummarizeLink(userID, chi.URLParam(r, "linkId"))
	if err != nil {
		a.writeLinkError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "", summary, nil)
}

// HandleDashboardStats обрабатывает GET-запросы на "/api/analytics/dashboard-stats"
func (a *App) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := a.svc.DashboardStats(userID)
	if err != nil {
		a.logger.Error("Failed to compute dashboard stats", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	a.writeSuccess(w, http.StatusOK, "", stats, nil)
}

// HandleInternalStats обрабатывает GET-запросы на "/api/internal/stats"
func (a *App) HandleInternalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.GetStats()
	if err != nil {
		a.logger.Error("Failed to fetch service stats", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	a.writeJSONResponse(w, http.StatusOK, stats)
}

// HandlePing обрабатывает GET-запросы на "/ping"
func (a *App) HandlePing(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		http.Error(w, "Database not configured", http.StatusInternalServerError)
		return
	}
	if err := a.db.Ping(); err != nil {
		http.Error(w, "Database connection failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleHealth обрабатывает GET-запросы на "/health"
func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeLinkError преобразует ошибки доступа к ссылке в HTTP-ответ.
// Отсутствие ссылки и чужая ссылка отдают одинаковый ответ.
func (a *App) writeLinkError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrLinkNotFound) {
		a.writeError(w, http.StatusNotFound, "Link not found")
		return
	}
	a.logger.Error("Link operation failed", zap.Error(err))
	a.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeSuccess пишет успешный ответ в общем конверте
func (a *App) writeSuccess(w http.ResponseWriter, status int, message string, data interface{}, count *int) {
	a.writeJSONResponse(w, status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Count:   count,
	})
}

// writeError пишет ответ с ошибкой в общем конверте
func (a *App) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSONResponse(w, status, APIResponse{Success: false, Message: message})
}

// writeJSONResponse пишет JSON-ответ с проверкой ошибок
func (a *App) writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(data); err != nil {
		a.logger.Error("Failed to write response", zap.Error(err))
	}
}

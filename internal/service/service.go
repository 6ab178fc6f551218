// Package service реализует бизнес-логику сервиса коротких ссылок
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/vportn/golinks/internal/analytics"
	"github.com/vportn/golinks/internal/cache"
	"github.com/vportn/golinks/internal/models"
	"github.com/vportn/golinks/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrEmptyURL         = errors.New("empty URL")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrAliasInvalid     = errors.New("alias must be 3-20 characters of letters, numbers, hyphens and underscores")
	ErrAliasReserved    = errors.New("this alias is reserved")
	ErrAliasTaken       = errors.New("custom alias already exists")
	ErrLinkNotFound     = errors.New("link not found")
	ErrLinkExpired      = errors.New("link expired")
	ErrUniqueCodeFailed = errors.New("failed to generate unique short code")
	ErrInvalidToken     = errors.New("invalid token")
)

// Service реализует логику работы с короткими ссылками и их аналитикой
type Service struct {
	repo      repository.Repository
	cache     *cache.LinkCache
	recorder  *analytics.Recorder
	baseURL   string
	jwtSecret string
	logger    *zap.Logger
}

// NewService создаёт новый экземпляр Service
func NewService(repo repository.Repository, linkCache *cache.LinkCache, recorder *analytics.Recorder, baseURL, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     linkCache,
		recorder:  recorder,
		baseURL:   strings.TrimRight(baseURL, "/"),
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// normalizeURL дополняет схему и проверяет, что адрес абсолютный http(s)-URL
func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", ErrEmptyURL
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return rawURL, nil
}

// CreateLink создаёт новую короткую ссылку для пользователя.
// Пользовательский алиас проходит валидацию и проверку занятости до
// какой-либо записи в хранилище; системный код генерируется с повторами
// до первого свободного значения.
func (s *Service) CreateLink(userID string, req models.CreateLinkRequest) (models.Link, error) {
	normalized, err := normalizeURL(req.OriginalURL)
	if err != nil {
		return models.Link{}, err
	}

	var shortCode string
	if req.CustomAlias != "" {
		if err := ValidateAlias(req.CustomAlias); err != nil {
			return models.Link{}, err
		}
		if s.repo.CodeExists(req.CustomAlias) {
			return models.Link{}, ErrAliasTaken
		}
		shortCode = req.CustomAlias
	}

	now := time.Now().UTC()
	link := models.Link{
		ID:          uuid.NewString(),
		CustomAlias: req.CustomAlias,
		OriginalURL: normalized,
		UserID:      userID,
		Title:       req.Title,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if shortCode != "" {
		link.ShortCode = shortCode
		if err := s.repo.CreateLink(link); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				return models.Link{}, ErrAliasTaken
			}
			return models.Link{}, err
		}
		s.cache.Set(context.Background(), link)
		return link, nil
	}

	for i := 0; i < 5; i++ {
		code, err := GenerateShortCode()
		if err != nil {
			return models.Link{}, err
		}
		if s.repo.CodeExists(code) {
			continue
		}
		link.ShortCode = code
		err = s.repo.CreateLink(link)
		if err == nil {
			s.cache.Set(context.Background(), link)
			return link, nil
		}
		// Гонка за код между проверкой и вставкой, пробуем следующий
		if errors.Is(err, repository.ErrCodeExists) {
			continue
		}
		return models.Link{}, err
	}
	return models.Link{}, ErrUniqueCodeFailed
}

// ResolveLink разрешает короткий код в ссылку для редиректа.
// Инкремент счётчика выполняется синхронно: ответ не уходит, пока счётчик
// не сохранён. Запись аналитики запускается после и не ожидается.
// Истёкшая или выключенная ссылка неотличима от отсутствующей.
func (s *Service) ResolveLink(ctx context.Context, code string, click analytics.ClickInfo) (models.Link, error) {
	link, found := s.cache.Get(ctx, code)
	if !found {
		link, found = s.repo.GetLinkByCode(code)
		if !found {
			return models.Link{}, ErrLinkNotFound
		}
		s.cache.Set(ctx, link)
	}

	if !link.IsActive {
		return models.Link{}, ErrLinkNotFound
	}
	if link.IsExpired() {
		return models.Link{}, ErrLinkExpired
	}

	if err := s.repo.IncrementClicks(link.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Ссылка удалена между чтением из кеша и инкрементом
			s.cache.Delete(ctx, code)
			return models.Link{}, ErrLinkNotFound
		}
		return models.Link{}, err
	}

	s.recorder.RecordAsync(link, click)
	return link, nil
}

// getOwnedLink возвращает ссылку, если она существует и принадлежит
// пользователю. Чужая ссылка неотличима от отсутствующей.
func (s *Service) getOwnedLink(userID, linkID string) (models.Link, error) {
	link, found := s.repo.GetLinkByID(linkID)
	if !found || link.UserID != userID {
		return models.Link{}, ErrLinkNotFound
	}
	return link, nil
}

// GetLink возвращает ссылку пользователя по идентификатору
func (s *Service) GetLink(userID, linkID string) (models.Link, error) {
	return s.getOwnedLink(userID, linkID)
}

// GetLinksByUserID возвращает все ссылки пользователя, новые первыми
func (s *Service) GetLinksByUserID(userID string) ([]models.Link, error) {
	return s.repo.GetLinksByUserID(userID)
}

// UpdateLink изменяет название, активность или срок действия ссылки
func (s *Service) UpdateLink(userID, linkID string, req models.UpdateLinkRequest) (models.Link, error) {
	link, err := s.getOwnedLink(userID, linkID)
	if err != nil {
		return models.Link{}, err
	}

	if req.Title != nil {
		link.Title = *req.Title
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}
	if req.ExpiresAt != nil {
		link.ExpiresAt = req.ExpiresAt
	}
	link.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateLink(link); err != nil {
		return models.Link{}, err
	}
	s.cache.Delete(context.Background(), link.ShortCode)

	updated, _ := s.repo.GetLinkByID(linkID)
	return updated, nil
}

// DeleteLink удаляет ссылку пользователя. События аналитики не каскадируются
// и остаются доступными по идентификатору удалённой ссылки.
func (s *Service) DeleteLink(userID, linkID string) error {
	link, err := s.getOwnedLink(userID, linkID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLink(link.ID); err != nil {
		return err
	}
	s.cache.Delete(context.Background(), link.ShortCode)
	return nil
}

// GetLinkEvents возвращает последние события аналитики ссылки, новые первыми
func (s *Service) GetLinkEvents(userID, linkID string, limit int) ([]models.AnalyticsEvent, error) {
	if _, err := s.getOwnedLink(userID, linkID); err != nil {
		return nil, err
	}
	return s.repo.GetEventsByLinkID(linkID, limit)
}

// SummarizeLink вычисляет сводку аналитики по ссылке пользователя
func (s *Service) SummarizeLink(userID, linkID string) (models.Summary, error) {
	if _, err := s.getOwnedLink(userID, linkID); err != nil {
		return models.Summary{}, err
	}
	events, err := s.repo.GetEventsByLinkID(linkID, 0)
	if err != nil {
		return models.Summary{}, err
	}
	return analytics.Summarize(events), nil
}

// DashboardStats вычисляет сводку по всем ссылкам пользователя:
// общие счётчики, самая популярная ссылка (при равенстве первая)
// и число ссылок, созданных за последние 7 дней
func (s *Service) DashboardStats(userID string) (models.DashboardStats, error) {
	links, err := s.repo.GetLinksByUserID(userID)
	if err != nil {
		return models.DashboardStats{}, err
	}

	stats := models.DashboardStats{TotalLinks: len(links)}
	sevenDaysAgo := time.Now().UTC().AddDate(0, 0, -7)

	var mostPopular *models.Link
	for i := range links {
		stats.TotalClicks += links[i].Clicks
		if mostPopular == nil || links[i].Clicks > mostPopular.Clicks {
			mostPopular = &links[i]
		}
		if !links[i].CreatedAt.Before(sevenDaysAgo) {
			stats.RecentLinksCount++
		}
	}
	if mostPopular != nil {
		resp := s.LinkResponse(*mostPopular)
		stats.MostPopularLink = &resp
	}
	return stats, nil
}

// GetStats возвращает внутреннюю статистику сервиса
func (s *Service) GetStats() (models.ServiceStats, error) {
	return s.repo.Stats()
}

// LinkResponse собирает представление ссылки для API с полным коротким URL
func (s *Service) LinkResponse(link models.Link) models.LinkResponse {
	title := link.Title
	if title == "" {
		title = "Untitled Link"
	}
	return models.LinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		ShortURL:    s.baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		Title:       title,
		Clicks:      link.Clicks,
		IsActive:    link.IsActive,
		ExpiresAt:   link.ExpiresAt,
		CreatedAt:   link.CreatedAt,
	}
}

// GetBaseURL возвращает базовый URL сервиса
func (s *Service) GetBaseURL() string {
	return s.baseURL
}

// jwtClaims представляет полезную нагрузку токена аутентификации
type jwtClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateUserID генерирует идентификатор анонимного пользователя
func (s *Service) GenerateUserID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:8], nil
}

// GenerateJWT выпускает подписанный токен с идентификатором пользователя
func (s *Service) GenerateJWT(userID string) (string, error) {
	claims := jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(720 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ParseJWT проверяет подпись токена и возвращает идентификатор пользователя
func (s *Service) ParseJWT(tokenString string) (string, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

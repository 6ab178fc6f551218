package repository

import (
	"sort"
	"sync"

	"github.com/vportn/golinks/internal/models"
)

// MemoryRepository реализует интерфейс Repository с использованием map
type MemoryRepository struct {
	links  map[string]models.Link             // id -> link
	codes  map[string]string                  // short_code -> id
	events map[string][]models.AnalyticsEvent // link_id -> events
	mutex  sync.RWMutex
}

// NewMemoryRepository создаёт новый экземпляр MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		links:  make(map[string]models.Link),
		codes:  make(map[string]string),
		events: make(map[string][]models.AnalyticsEvent),
	}
}

// CreateLink сохраняет новую ссылку, проверяя уникальность кода
func (r *MemoryRepository) CreateLink(link models.Link) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.codes[link.ShortCode]; exists {
		return ErrCodeExists
	}
	r.links[link.ID] = link
	r.codes[link.ShortCode] = link.ID
	return nil
}

// GetLinkByID возвращает ссылку по идентификатору
func (r *MemoryRepository) GetLinkByID(id string) (models.Link, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	link, exists := r.links[id]
	return link, exists
}

// GetLinkByCode возвращает ссылку по короткому коду
func (r *MemoryRepository) GetLinkByCode(code string) (models.Link, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.codes[code]
	if !exists {
		return models.Link{}, false
	}
	link, exists := r.links[id]
	return link, exists
}

// CodeExists сообщает, занят ли короткий код
func (r *MemoryRepository) CodeExists(code string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.codes[code]
	return exists
}

// GetLinksByUserID возвращает ссылки пользователя, новые первыми
func (r *MemoryRepository) GetLinksByUserID(userID string) ([]models.Link, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var links []models.Link
	for _, l := range r.links {
		if l.UserID == userID {
			links = append(links, l)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

// UpdateLink сохраняет изменённую ссылку
func (r *MemoryRepository) UpdateLink(link models.Link) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	old, exists := r.links[link.ID]
	if !exists {
		return ErrNotFound
	}
	// Счётчик переходов меняется только через IncrementClicks
	link.Clicks = old.Clicks
	r.links[link.ID] = link
	return nil
}

// DeleteLink удаляет ссылку; события аналитики остаются адресуемыми по её ID
func (r *MemoryRepository) DeleteLink(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	link, exists := r.links[id]
	if !exists {
		return ErrNotFound
	}
	delete(r.links, id)
	delete(r.codes, link.ShortCode)
	return nil
}

// IncrementClicks увеличивает счётчик переходов под общим мьютексом,
// что исключает потерянные обновления при конкурентных запросах
func (r *MemoryRepository) IncrementClicks(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	link, exists := r.links[id]
	if !exists {
		return ErrNotFound
	}
	link.Clicks++
	r.links[id] = link
	return nil
}

// SaveEvent сохраняет событие аналитики
func (r *MemoryRepository) SaveEvent(event models.AnalyticsEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.events[event.LinkID] = append(r.events[event.LinkID], event)
	return nil
}

// GetEventsByLinkID возвращает события ссылки, новые первыми
func (r *MemoryRepository) GetEventsByLinkID(linkID string, limit int) ([]models.AnalyticsEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stored := r.events[linkID]
	events := make([]models.AnalyticsEvent, len(stored))
	copy(events, stored)
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Stats возвращает количество ссылок и уникальных пользователей
func (r *MemoryRepository) Stats() (models.ServiceStats, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make(map[string]struct{})
	for _, l := range r.links {
		users[l.UserID] = struct{}{}
	}
	return models.ServiceStats{
		LinksCount: len(r.links),
		UsersCount: len(users),
	}, nil
}

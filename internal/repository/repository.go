// Package repository содержит хранилища ссылок и событий аналитики
package repository

import (
	"database/sql"
	"errors"

	"github.com/vportn/golinks/internal/models"
)

// ErrNotFound возвращается, когда ссылка отсутствует в хранилище
var ErrNotFound = errors.New("link not found")

// ErrCodeExists возвращается при попытке сохранить ссылку с занятым коротким кодом
var ErrCodeExists = errors.New("short code already exists")

// Repository определяет интерфейс хранилища ссылок и событий аналитики
type Repository interface {
	// CreateLink сохраняет новую ссылку; возвращает ErrCodeExists при коллизии кода или алиаса
	CreateLink(link models.Link) error
	// GetLinkByID возвращает ссылку по её идентификатору
	GetLinkByID(id string) (models.Link, bool)
	// GetLinkByCode возвращает ссылку по короткому коду
	GetLinkByCode(code string) (models.Link, bool)
	// CodeExists сообщает, занят ли короткий код или алиас
	CodeExists(code string) bool
	// GetLinksByUserID возвращает ссылки пользователя, новые первыми
	GetLinksByUserID(userID string) ([]models.Link, error)
	// UpdateLink сохраняет изменённые атрибуты ссылки
	UpdateLink(link models.Link) error
	// DeleteLink удаляет ссылку; события аналитики остаются
	DeleteLink(id string) error
	// IncrementClicks атомарно увеличивает счётчик переходов на единицу
	IncrementClicks(id string) error
	// SaveEvent сохраняет одно событие аналитики
	SaveEvent(event models.AnalyticsEvent) error
	// GetEventsByLinkID возвращает события ссылки, новые первыми.
	// limit <= 0 означает без ограничения.
	GetEventsByLinkID(linkID string, limit int) ([]models.AnalyticsEvent, error)
	// Stats возвращает количество ссылок и уникальных пользователей
	Stats() (models.ServiceStats, error)
}

// Database определяет интерфейс для работы с базой данных
type Database interface {
	// Ping проверяет соединение с базой данных
	Ping() error
	// Close закрывает соединение с базой данных
	Close() error
	// Exec выполняет SQL-команду без возврата результатов
	Exec(query string, args ...interface{}) (sql.Result, error)
	// Query выполняет SQL-запрос и возвращает результаты
	Query(query string, args ...interface{}) (*sql.Rows, error)
	// QueryRow выполняет SQL-запрос и возвращает одну строку результата
	QueryRow(query string, args ...interface{}) *sql.Row
}

package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vportn/golinks/internal/models"
	"go.uber.org/zap"
)

// pgUniqueViolation содержит код ошибки PostgreSQL для нарушения уникальности
const pgUniqueViolation = "23505"

// PostgresRepository реализует интерфейс Repository с использованием PostgreSQL
type PostgresRepository struct {
	db     Database
	logger *zap.Logger
}

// NewPostgresRepository создаёт новый экземпляр PostgresRepository
func NewPostgresRepository(db Database, logger *zap.Logger) (*PostgresRepository, error) {
	if db == nil {
		return nil, nil
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}, nil
}

const linkColumns = "id, short_code, COALESCE(custom_alias, ''), original_url, user_id, title, clicks, is_active, expires_at, created_at, updated_at"

// scanLink читает одну строку результата в models.Link
func scanLink(row *sql.Row) (models.Link, error) {
	var link models.Link
	var expiresAt sql.NullTime
	err := row.Scan(&link.ID, &link.ShortCode, &link.CustomAlias, &link.OriginalURL,
		&link.UserID, &link.Title, &link.Clicks, &link.IsActive, &expiresAt,
		&link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return models.Link{}, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		link.ExpiresAt = &t
	}
	return link, nil
}

// CreateLink сохраняет новую ссылку; нарушение уникальности кода или алиаса
// транслируется в ErrCodeExists
func (r *PostgresRepository) CreateLink(link models.Link) error {
	var alias interface{}
	if link.CustomAlias != "" {
		alias = link.CustomAlias
	}
	var expires interface{}
	if link.ExpiresAt != nil {
		expires = *link.ExpiresAt
	}
	_, err := r.db.Exec(
		`INSERT INTO links (id, short_code, custom_alias, original_url, user_id, title, clicks, is_active, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		link.ID, link.ShortCode, alias, link.OriginalURL, link.UserID, link.Title,
		link.Clicks, link.IsActive, expires, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCodeExists
		}
		r.logger.Error("Failed to save link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return err
	}
	return nil
}

// GetLinkByID возвращает ссылку по идентификатору
func (r *PostgresRepository) GetLinkByID(id string) (models.Link, bool) {
	row := r.db.QueryRow("SELECT "+linkColumns+" FROM links WHERE id = $1", id)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return models.Link{}, false
	}
	if err != nil {
		r.logger.Error("Failed to get link by id", zap.String("id", id), zap.Error(err))
		return models.Link{}, false
	}
	return link, true
}

// GetLinkByCode возвращает ссылку по короткому коду
func (r *PostgresRepository) GetLinkByCode(code string) (models.Link, bool) {
	row := r.db.QueryRow("SELECT "+linkColumns+" FROM links WHERE short_code = $1", code)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return models.Link{}, false
	}
	if err != nil {
		r.logger.Error("Failed to get link by code", zap.String("short_code", code), zap.Error(err))
		return models.Link{}, false
	}
	return link, true
}

// CodeExists сообщает, занят ли короткий код
func (r *PostgresRepository) CodeExists(code string) bool {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)", code).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check code existence", zap.String("short_code", code), zap.Error(err))
		return false
	}
	return exists
}

// GetLinksByUserID возвращает ссылки пользователя, новые первыми
func (r *PostgresRepository) GetLinksByUserID(userID string) ([]models.Link, error) {
	rows, err := r.db.Query("SELECT "+linkColumns+" FROM links WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		r.logger.Error("Failed to get user links", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		var expiresAt sql.NullTime
		if err := rows.Scan(&link.ID, &link.ShortCode, &link.CustomAlias, &link.OriginalURL,
			&link.UserID, &link.Title, &link.Clicks, &link.IsActive, &expiresAt,
			&link.CreatedAt, &link.UpdatedAt); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			link.ExpiresAt = &t
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// UpdateLink сохраняет изменяемые атрибуты ссылки; счётчик переходов не трогает
func (r *PostgresRepository) UpdateLink(link models.Link) error {
	var expires interface{}
	if link.ExpiresAt != nil {
		expires = *link.ExpiresAt
	}
	res, err := r.db.Exec(
		"UPDATE links SET title = $1, is_active = $2, expires_at = $3, updated_at = now() WHERE id = $4",
		link.Title, link.IsActive, expires, link.ID)
	if err != nil {
		r.logger.Error("Failed to update link", zap.String("id", link.ID), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLink удаляет ссылку; строки analytics_events остаются
func (r *PostgresRepository) DeleteLink(id string) error {
	res, err := r.db.Exec("DELETE FROM links WHERE id = $1", id)
	if err != nil {
		r.logger.Error("Failed to delete link", zap.String("id", id), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementClicks выполняет атомарный инкремент на стороне базы,
// что исключает потерянные обновления при конкурентных переходах
func (r *PostgresRepository) IncrementClicks(id string) error {
	res, err := r.db.Exec("UPDATE links SET clicks = clicks + 1, updated_at = now() WHERE id = $1", id)
	if err != nil {
		r.logger.Error("Failed to increment clicks", zap.String("id", id), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveEvent сохраняет событие аналитики
func (r *PostgresRepository) SaveEvent(event models.AnalyticsEvent) error {
	_, err := r.db.Exec(
		`INSERT INTO analytics_events (link_id, ts, country, city, region, device, os, browser, referrer, referrer_domain, user_agent, ip_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.LinkID, event.Timestamp, event.Country, event.City, event.Region,
		event.Device, event.OS, event.Browser, event.Referrer, event.ReferrerDomain,
		event.UserAgent, event.IPHash)
	if err != nil {
		r.logger.Error("Failed to save analytics event", zap.String("link_id", event.LinkID), zap.Error(err))
		return err
	}
	return nil
}

// GetEventsByLinkID возвращает события ссылки, новые первыми
func (r *PostgresRepository) GetEventsByLinkID(linkID string, limit int) ([]models.AnalyticsEvent, error) {
	query := `SELECT link_id, ts, country, city, region, device, os, browser, referrer, referrer_domain, user_agent, ip_hash
		 FROM analytics_events WHERE link_id = $1 ORDER BY ts DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.Query(query+" LIMIT $2", linkID, limit)
	} else {
		rows, err = r.db.Query(query, linkID)
	}
	if err != nil {
		r.logger.Error("Failed to get analytics events", zap.String("link_id", linkID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []models.AnalyticsEvent
	for rows.Next() {
		var e models.AnalyticsEvent
		if err := rows.Scan(&e.LinkID, &e.Timestamp, &e.Country, &e.City, &e.Region,
			&e.Device, &e.OS, &e.Browser, &e.Referrer, &e.ReferrerDomain,
			&e.UserAgent, &e.IPHash); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats возвращает количество ссылок и уникальных пользователей
func (r *PostgresRepository) Stats() (models.ServiceStats, error) {
	var stats models.ServiceStats
	err := r.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT user_id) FROM links").
		Scan(&stats.LinksCount, &stats.UsersCount)
	if err != nil {
		r.logger.Error("Failed to get service stats", zap.Error(err))
		return models.ServiceStats{}, err
	}
	return stats, nil
}

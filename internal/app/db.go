package app

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vportn/golinks/internal/repository"
)

// DB представляет подключение к базе данных
type DB struct {
	conn *sql.DB
}

// NewDB создаёт подключение к базе данных и разворачивает схему
func NewDB(dsn string) (repository.Database, error) {
	if dsn == "" {
		return nil, nil
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	// Создаём таблицы и индексы
	statements := []string{
		`CREATE TABLE IF NOT EXISTS links (
			id UUID PRIMARY KEY,
			short_code VARCHAR(20) NOT NULL,
			custom_alias VARCHAR(20),
			original_url TEXT NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			clicks BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS links_short_code_key ON links (short_code)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS links_custom_alias_key ON links (custom_alias) WHERE custom_alias IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS links_user_created_idx ON links (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id BIGSERIAL PRIMARY KEY,
			link_id UUID NOT NULL,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			country TEXT NOT NULL DEFAULT 'Unknown',
			city TEXT NOT NULL DEFAULT 'Unknown',
			region TEXT NOT NULL DEFAULT 'Unknown',
			device VARCHAR(16) NOT NULL DEFAULT 'unknown',
			os TEXT NOT NULL DEFAULT 'Unknown',
			browser TEXT NOT NULL DEFAULT 'Unknown',
			referrer TEXT NOT NULL DEFAULT 'direct',
			referrer_domain TEXT NOT NULL DEFAULT 'direct',
			user_agent TEXT NOT NULL DEFAULT '',
			ip_hash VARCHAR(64) NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS analytics_link_ts_idx ON analytics_events (link_id, ts DESC)`,
		`CREATE INDEX IF NOT EXISTS analytics_link_country_idx ON analytics_events (link_id, country)`,
		`CREATE INDEX IF NOT EXISTS analytics_link_device_idx ON analytics_events (link_id, device)`,
		`CREATE INDEX IF NOT EXISTS analytics_link_referrer_idx ON analytics_events (link_id, referrer_domain)`,
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &DB{conn: conn}, nil
}

// Ping проверяет соединение с базой данных
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close закрывает соединение с базой данных
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Exec выполняет SQL-запрос с аргументами
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query выполняет SQL-запрос и возвращает множество строк
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow выполняет SQL-запрос и возвращает одну строку
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

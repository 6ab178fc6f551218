// Package models содержит доменные модели сервиса коротких ссылок
package models

import "time"

// Link представляет короткую ссылку
type Link struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	OriginalURL string     `json:"original_url"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Clicks      int64      `json:"clicks"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsExpired сообщает, истёк ли срок действия ссылки
func (l *Link) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*l.ExpiresAt)
}

// AnalyticsEvent представляет одно событие перехода по короткой ссылке.
// Создаётся только рекордером аналитики и никогда не обновляется.
type AnalyticsEvent struct {
	LinkID         string    `json:"link_id"`
	Timestamp      time.Time `json:"timestamp"`
	Country        string    `json:"country"`
	City           string    `json:"city"`
	Region         string    `json:"region"`
	Device         string    `json:"device"`
	OS             string    `json:"os"`
	Browser        string    `json:"browser"`
	Referrer       string    `json:"referrer"`
	ReferrerDomain string    `json:"referrer_domain"`
	UserAgent      string    `json:"user_agent"`
	IPHash         string    `json:"ip_hash"`
}

// GroupCount представляет одну группу агрегации с количеством событий
type GroupCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DayCount представляет количество переходов за календарную дату (UTC)
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Summary представляет сводку аналитики по одной ссылке
type Summary struct {
	TotalClicks    int          `json:"total_clicks"`
	ByCountry      []GroupCount `json:"by_country"`
	ByDevice       []GroupCount `json:"by_device"`
	ByBrowser      []GroupCount `json:"by_browser"`
	ByOS           []GroupCount `json:"by_os"`
	ByReferrer     []GroupCount `json:"by_referrer"`
	RecentClicks   []DayCount   `json:"recent_clicks"`
	UniqueVisitors int          `json:"unique_visitors"`
}

// DashboardStats представляет сводку по всем ссылкам пользователя
type DashboardStats struct {
	TotalLinks       int           `json:"total_links"`
	TotalClicks      int64         `json:"total_clicks"`
	MostPopularLink  *LinkResponse `json:"most_popular_link"`
	RecentLinksCount int           `json:"recent_links_count"`
}

// CreateLinkRequest представляет запрос на создание ссылки
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	Title       string     `json:"title,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// UpdateLinkRequest представляет запрос на изменение ссылки.
// Указатели отличают "не передано" от нулевого значения.
type UpdateLinkRequest struct {
	Title     *string    `json:"title,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LinkResponse представляет ссылку в ответах API вместе с полным коротким URL
type LinkResponse struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	Title       string     `json:"title"`
	Clicks      int64      `json:"clicks"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ServiceStats представляет внутреннюю статистику сервиса
type ServiceStats struct {
	LinksCount int `json:"links"`
	UsersCount int `json:"users"`
}

package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// localValue подставляется для локальных и приватных адресов
const localValue = "local"

// Location представляет результат геолокации IP-адреса
type Location struct {
	Country string
	City    string
	Region  string
}

// unknownLocation возвращается при любой ошибке геолокации
var unknownLocation = Location{Country: unknownValue, City: unknownValue, Region: unknownValue}

// geoResponse представляет ответ сервиса геолокации
type geoResponse struct {
	CountryName string `json:"country_name"`
	City        string `json:"city"`
	Region      string `json:"region"`
}

// GeoClient выполняет геолокацию IP через внешний REST-сервис
type GeoClient struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewGeoClient создаёт GeoClient с ограниченным временем запроса
func NewGeoClient(baseURL string, timeout time.Duration, logger *zap.Logger) *GeoClient {
	return &GeoClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Lookup возвращает страну, город и регион для IP-адреса.
// Локальные адреса не требуют сетевого вызова; любая ошибка или таймаут
// превращаются в "Unknown" и никогда не отдаются наружу как ошибка.
func (g *GeoClient) Lookup(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return unknownLocation
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		return Location{Country: localValue, City: localValue, Region: localValue}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", g.baseURL, ip), nil)
	if err != nil {
		return unknownLocation
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Geolocation lookup failed", zap.Error(err))
		return unknownLocation
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("Geolocation service returned error", zap.Int("status", resp.StatusCode))
		return unknownLocation
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		g.logger.Warn("Failed to decode geolocation response", zap.Error(err))
		return unknownLocation
	}

	loc := Location{Country: body.CountryName, City: body.City, Region: body.Region}
	if loc.Country == "" {
		loc.Country = unknownValue
	}
	if loc.City == "" {
		loc.City = unknownValue
	}
	if loc.Region == "" {
		loc.Region = unknownValue
	}
	return loc
}

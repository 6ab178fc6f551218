// Package config отвечает за конфигурацию приложения
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config содержит настройки приложения
type Config struct {
	RunAddr         string
	BaseURL         string
	FileStoragePath string
	DatabaseDSN     string
	RedisAddr       string
	JWTSecret       string
	CookieTTL       time.Duration
	TrustedSubnet   string
	GeoAPIURL       string
	GeoTimeout      time.Duration
	IPHashSalt      string
	Debug           bool
}

// NewConfig создаёт Config: значения по умолчанию перекрываются флагами,
// флаги перекрываются переменными окружения
func NewConfig() (*Config, error) {
	cfg := &Config{
		RunAddr:         ":8080",
		BaseURL:         "http://localhost:8080",
		FileStoragePath: "",
		DatabaseDSN:     "",
		RedisAddr:       "",
		JWTSecret:       "default_jwt_secret",
		CookieTTL:       720 * time.Hour,
		TrustedSubnet:   "",
		GeoAPIURL:       "https://ipapi.co",
		GeoTimeout:      3 * time.Second,
		IPHashSalt:      "",
		Debug:           false,
	}

	// Регистрируем флаги
	flagRunAddr := flag.String("a", cfg.RunAddr, "address and port to run server")
	flagBaseURL := flag.String("b", cfg.BaseURL, "base URL for shortened links")
	flagFilePath := flag.String("f", cfg.FileStoragePath, "path to file for storing links and events")
	flagDatabaseDSN := flag.String("d", cfg.DatabaseDSN, "database DSN for PostgreSQL")
	flagRedisAddr := flag.String("r", cfg.RedisAddr, "redis address for the link cache")
	flagJWTSecret := flag.String("j", cfg.JWTSecret, "JWT secret key")
	flagTrustedSubnet := flag.String("t", cfg.TrustedSubnet, "trusted subnet in CIDR notation for internal stats")
	flagGeoAPIURL := flag.String("g", cfg.GeoAPIURL, "base URL of the IP geolocation service")
	flagGeoTimeout := flag.Duration("gt", cfg.GeoTimeout, "timeout for geolocation lookups")
	flagIPHashSalt := flag.String("s", cfg.IPHashSalt, "salt for visitor IP hashing")
	flagDebug := flag.Bool("debug", cfg.Debug, "enable debug logging")
	flag.Parse()

	cfg.RunAddr = stringValue("SERVER_ADDRESS", *flagRunAddr, cfg.RunAddr)
	cfg.BaseURL = stringValue("BASE_URL", *flagBaseURL, cfg.BaseURL)
	cfg.FileStoragePath = stringValue("FILE_STORAGE_PATH", *flagFilePath, cfg.FileStoragePath)
	cfg.DatabaseDSN = stringValue("DATABASE_DSN", *flagDatabaseDSN, cfg.DatabaseDSN)
	cfg.RedisAddr = stringValue("REDIS_ADDR", *flagRedisAddr, cfg.RedisAddr)
	cfg.JWTSecret = stringValue("JWT_SECRET", *flagJWTSecret, cfg.JWTSecret)
	cfg.TrustedSubnet = stringValue("TRUSTED_SUBNET", *flagTrustedSubnet, cfg.TrustedSubnet)
	cfg.GeoAPIURL = stringValue("GEO_API_URL", *flagGeoAPIURL, cfg.GeoAPIURL)
	cfg.IPHashSalt = stringValue("IP_HASH_SALT", *flagIPHashSalt, cfg.IPHashSalt)

	cfg.GeoTimeout = *flagGeoTimeout
	if v := os.Getenv("GEO_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GeoTimeout = d
		}
	}

	cfg.Debug = *flagDebug
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	// Валидация значений
	if !strings.Contains(cfg.RunAddr, ":") {
		cfg.RunAddr = ":" + cfg.RunAddr
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		cfg.BaseURL = "http://" + cfg.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.GeoAPIURL = strings.TrimRight(cfg.GeoAPIURL, "/")
	if cfg.FileStoragePath != "" {
		// Создаём директорию для файла, если она не существует
		dir := filepath.Dir(cfg.FileStoragePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// stringValue возвращает значение переменной окружения, затем флага, затем значение по умолчанию
func stringValue(envKey, flagVal, def string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if flagVal != "" {
		return flagVal
	}
	return def
}

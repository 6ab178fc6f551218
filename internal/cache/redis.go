// Package cache содержит Redis-кеш ссылок для пути редиректа
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vportn/golinks/internal/models"
	"go.uber.org/zap"
)

// linkTTL ограничивает время жизни закешированной ссылки
const linkTTL = 24 * time.Hour

// LinkCache кеширует сериализованные ссылки по короткому коду.
// Кеш необязателен: любая его ошибка логируется и не влияет на запрос.
type LinkCache struct {
	client *redis.Client
	logger *zap.Logger
}

// New подключается к Redis и возвращает LinkCache
func New(addr string, logger *zap.Logger) (*LinkCache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &LinkCache{client: client, logger: logger}, nil
}

// Get возвращает закешированную ссылку по короткому коду
func (c *LinkCache) Get(ctx context.Context, code string) (models.Link, bool) {
	if c == nil {
		return models.Link{}, false
	}
	data, err := c.client.Get(ctx, key(code)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Link cache read failed", zap.String("short_code", code), zap.Error(err))
		}
		return models.Link{}, false
	}
	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		c.logger.Warn("Link cache entry is corrupt", zap.String("short_code", code), zap.Error(err))
		return models.Link{}, false
	}
	return link, true
}

// Set кеширует ссылку по её короткому коду
func (c *LinkCache) Set(ctx context.Context, link models.Link) {
	if c == nil {
		return
	}
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(link.ShortCode), data, linkTTL).Err(); err != nil {
		c.logger.Warn("Link cache write failed", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
}

// Delete удаляет запись кеша; вызывается при изменении и удалении ссылки
func (c *LinkCache) Delete(ctx context.Context, code string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key(code)).Err(); err != nil {
		c.logger.Warn("Link cache delete failed", zap.String("short_code", code), zap.Error(err))
	}
}

// Close закрывает подключение к Redis
func (c *LinkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func key(code string) string {
	return "link:" + code
}

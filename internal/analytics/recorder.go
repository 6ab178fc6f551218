package analytics

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vportn/golinks/internal/models"
	"go.uber.org/zap"
)

// EventStore определяет минимальный контракт хранилища событий
type EventStore interface {
	SaveEvent(event models.AnalyticsEvent) error
}

// ClickInfo представляет данные запроса, нужные для записи события
type ClickInfo struct {
	IP        string
	UserAgent string
	Referrer  string
}

// ClickInfoFromRequest извлекает IP, User-Agent и реферер из HTTP-запроса.
// IP берётся из первого адреса X-Forwarded-For, затем X-Real-IP,
// затем из адреса соединения.
func ClickInfoFromRequest(r *http.Request) ClickInfo {
	ip := ""
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	} else if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		ip = realIP
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		} else {
			ip = host
		}
	}

	return ClickInfo{
		IP:        ip,
		UserAgent: r.Header.Get("User-Agent"),
		Referrer:  r.Header.Get("Referer"),
	}
}

// Recorder асинхронно сохраняет события аналитики по успешным редиректам
type Recorder struct {
	store  EventStore
	geo    *GeoClient
	salt   string
	logger *zap.Logger
}

// NewRecorder создаёт новый Recorder
func NewRecorder(store EventStore, geo *GeoClient, salt string, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		geo:    geo,
		salt:   salt,
		logger: logger,
	}
}

// RecordAsync запускает запись события в отдельной горутине.
// Вызывающий не ждёт завершения: редирект не должен зависеть от аналитики,
// поэтому любая паника или ошибка внутри гасится и только логируется.
func (rec *Recorder) RecordAsync(link models.Link, click ClickInfo) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				rec.logger.Error("Analytics recording panicked",
					zap.String("link_id", link.ID), zap.Any("panic", p))
			}
		}()
		rec.Record(context.Background(), link, click)
	}()
}

// Record синхронно классифицирует запрос и сохраняет одно событие.
// Ошибки не возвращаются: границей рекордера они гасятся по контракту.
func (rec *Recorder) Record(ctx context.Context, link models.Link, click ClickInfo) {
	info := ParseDeviceInfo(click.UserAgent)
	location := rec.geo.Lookup(ctx, click.IP)

	referrer := click.Referrer
	if referrer == "" {
		referrer = directReferrer
	}

	ipHash := ""
	if click.IP != "" {
		ipHash = HashIP(click.IP, rec.salt)
	}

	event := models.AnalyticsEvent{
		LinkID:         link.ID,
		Timestamp:      time.Now().UTC(),
		Country:        location.Country,
		City:           location.City,
		Region:         location.Region,
		Device:         info.Device,
		OS:             info.OS,
		Browser:        info.Browser,
		Referrer:       referrer,
		ReferrerDomain: ExtractReferrerDomain(click.Referrer),
		UserAgent:      click.UserAgent,
		IPHash:         ipHash,
	}

	if err := rec.store.SaveEvent(event); err != nil {
		rec.logger.Error("Failed to save analytics event",
			zap.String("link_id", link.ID), zap.Error(err))
	}
}

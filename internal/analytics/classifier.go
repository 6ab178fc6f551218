// Package analytics содержит захват и агрегацию событий переходов
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/mileusna/useragent"
)

// Категории устройств, сохраняемые в событиях аналитики
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// unknownValue подставляется вместо нераспознанных ОС и браузеров
const unknownValue = "Unknown"

// directReferrer обозначает переход без реферера
const directReferrer = "direct"

// DeviceInfo представляет результат разбора строки User-Agent
type DeviceInfo struct {
	Device  string
	OS      string
	Browser string
}

// ParseDeviceInfo извлекает категорию устройства, ОС и браузер из User-Agent.
// Известная ОС без явного признака устройства считается десктопом.
func ParseDeviceInfo(uaString string) DeviceInfo {
	ua := useragent.Parse(uaString)

	device := DeviceUnknown
	switch {
	case ua.Mobile:
		device = DeviceMobile
	case ua.Tablet:
		device = DeviceTablet
	case ua.Desktop:
		device = DeviceDesktop
	case ua.OS != "":
		device = DeviceDesktop
	}

	info := DeviceInfo{
		Device:  device,
		OS:      ua.OS,
		Browser: ua.Name,
	}
	if info.OS == "" {
		info.OS = unknownValue
	}
	if info.Browser == "" {
		info.Browser = unknownValue
	}
	return info
}

// ExtractReferrerDomain возвращает хост реферера без ведущего "www.".
// Пустой или неразбираемый реферер считается прямым переходом.
func ExtractReferrerDomain(referrer string) string {
	if referrer == "" {
		return directReferrer
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return directReferrer
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// HashIP возвращает необратимый хеш IP-адреса посетителя.
// Сырой IP после вычисления хеша нигде не сохраняется и не логируется.
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(salt + ip))
	return hex.EncodeToString(sum[:])
}

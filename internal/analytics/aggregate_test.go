package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vportn/golinks/internal/models"
)

func TestSummarize(t *testing.T) {
	now := time.Now().UTC()
	events := []models.AnalyticsEvent{
		{Country: "Germany", Device: DeviceMobile, Browser: "Chrome", OS: "Android", ReferrerDomain: "twitter.com", IPHash: "h1", Timestamp: now},
		{Country: "Germany", Device: DeviceDesktop, Browser: "Firefox", OS: "Windows", ReferrerDomain: "direct", IPHash: "h2", Timestamp: now},
		{Country: "France", Device: DeviceMobile, Browser: "Chrome", OS: "iOS", ReferrerDomain: "twitter.com", IPHash: "h1", Timestamp: now.Add(-time.Hour)},
	}

	summary := Summarize(events)

	// Тест 1: общий счётчик
	assert.Equal(t, 3, summary.TotalClicks, "TotalClicks should equal event count")

	// Тест 2: группировка по странам с сортировкой по убыванию
	assert.Equal(t, []models.GroupCount{
		{Name: "Germany", Count: 2},
		{Name: "France", Count: 1},
	}, summary.ByCountry, "Countries should be sorted by count desc")

	// Тест 3: сумма счётчиков каждой группировки равна общему числу переходов
	for _, groups := range [][]models.GroupCount{summary.ByCountry, summary.ByDevice, summary.ByBrowser, summary.ByOS, summary.ByReferrer} {
		total := 0
		for _, g := range groups {
			total += g.Count
		}
		assert.Equal(t, 3, total, "Group counts should sum to total clicks")
	}

	// Тест 4: уникальные посетители по хешам
	assert.Equal(t, 2, summary.UniqueVisitors, "Unique visitors should count distinct hashes")
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.TotalClicks, "Empty input should give zero clicks")
	assert.Empty(t, summary.ByCountry, "Empty input should give no groups")
	assert.Empty(t, summary.RecentClicks, "Empty input should give no series")
	assert.Equal(t, 0, summary.UniqueVisitors, "Empty input should give no visitors")
}

func TestGroupCountTieBreak(t *testing.T) {
	events := []models.AnalyticsEvent{
		{Country: "Brazil"},
		{Country: "Austria"},
		{Country: ""},
	}

	groups := groupCount(events, func(e models.AnalyticsEvent) string { return e.Country })

	// Тест: при равных счётчиках группы идут по алфавиту, пустое значение становится Unknown
	assert.Equal(t, []models.GroupCount{
		{Name: "Austria", Count: 1},
		{Name: "Brazil", Count: 1},
		{Name: "Unknown", Count: 1},
	}, groups, "Ties should be broken by name, empty value mapped to Unknown")
}

func TestRecentClicks(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	events := []models.AnalyticsEvent{
		{Timestamp: now.Add(-time.Hour)},
		{Timestamp: now.Add(-time.Hour)},
		{Timestamp: now.AddDate(0, 0, -2)},
		// Старше окна, не попадает в ряд
		{Timestamp: now.AddDate(0, 0, -40)},
	}

	series := recentClicks(events, 30, now)

	// Тест: разреженный ряд по возрастанию дат, без пустых дней
	assert.Equal(t, []models.DayCount{
		{Date: "2026-08-29", Count: 1},
		{Date: "2026-08-31", Count: 2},
	}, series, "Series should be sparse and sorted by date asc")
}

func TestUniqueVisitors(t *testing.T) {
	events := []models.AnalyticsEvent{
		{IPHash: "a"},
		{IPHash: "a"},
		{IPHash: "b"},
		// Событие без хеша не считается посетителем
		{IPHash: ""},
	}
	assert.Equal(t, 2, uniqueVisitors(events), "Empty hashes should not count as visitors")
}

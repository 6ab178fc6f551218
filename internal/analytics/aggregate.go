package analytics

import (
	"sort"
	"time"

	"github.com/vportn/golinks/internal/models"
)

// recentDays определяет окно временного ряда в сводке
const recentDays = 30

// Summarize вычисляет сводку аналитики по событиям одной ссылки.
// Каждая группировка разбивает один и тот же набор событий, поэтому
// суммы счётчиков всех группировок равны общему числу переходов.
func Summarize(events []models.AnalyticsEvent) models.Summary {
	return models.Summary{
		TotalClicks:    len(events),
		ByCountry:      groupCount(events, func(e models.AnalyticsEvent) string { return e.Country }),
		ByDevice:       groupCount(events, func(e models.AnalyticsEvent) string { return e.Device }),
		ByBrowser:      groupCount(events, func(e models.AnalyticsEvent) string { return e.Browser }),
		ByOS:           groupCount(events, func(e models.AnalyticsEvent) string { return e.OS }),
		ByReferrer:     groupCount(events, func(e models.AnalyticsEvent) string { return e.ReferrerDomain }),
		RecentClicks:   recentClicks(events, recentDays, time.Now().UTC()),
		UniqueVisitors: uniqueVisitors(events),
	}
}

// groupCount группирует события по значению поля и возвращает группы,
// отсортированные по убыванию счётчика, при равенстве по имени
func groupCount(events []models.AnalyticsEvent, field func(models.AnalyticsEvent) string) []models.GroupCount {
	grouped := make(map[string]int)
	for _, e := range events {
		key := field(e)
		if key == "" {
			key = unknownValue
		}
		grouped[key]++
	}

	groups := make([]models.GroupCount, 0, len(grouped))
	for name, count := range grouped {
		groups = append(groups, models.GroupCount{Name: name, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// recentClicks собирает события за последние days дней в разреженный ряд
// по календарным датам UTC, отсортированный по возрастанию даты
func recentClicks(events []models.AnalyticsEvent, days int, now time.Time) []models.DayCount {
	cutoff := now.AddDate(0, 0, -days)

	byDate := make(map[string]int)
	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		byDate[e.Timestamp.UTC().Format("2006-01-02")]++
	}

	series := make([]models.DayCount, 0, len(byDate))
	for date, count := range byDate {
		series = append(series, models.DayCount{Date: date, Count: count})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date < series[j].Date
	})
	return series
}

// uniqueVisitors считает различные непустые хеши посетителей
func uniqueVisitors(events []models.AnalyticsEvent) int {
	unique := make(map[string]struct{})
	for _, e := range events {
		if e.IPHash != "" {
			unique[e.IPHash] = struct{}{}
		}
	}
	return len(unique)
}

package utils

import (
	"strings"
	"time"
)

// DateLayout формат календарной даты в API
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// placeholders значения, которыми форма обозначает отсутствие даты
var placeholders = map[string]struct{}{
	"":             {},
	"null":         {},
	"undefined":    {},
	"invalid date": {},
	"0001-01-01":   {},
	"0000-00-00":   {},
}

// ParseCalendarDate разбирает календарную дату.
// Возвращает false для пустых, заглушечных и некорректных значений.
// Время отбрасывается, результат всегда полночь UTC.
func ParseCalendarDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if _, ok := placeholders[strings.ToLower(value)]; ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() <= 1 {
			return time.Time{}, false
		}
		return TruncateToDate(t), true
	}
	return time.Time{}, false
}

// IsBlankDate сообщает, что значение обозначает отсутствие даты, а не ошибку ввода
func IsBlankDate(raw string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// FormatCalendarDate форматирует дату для API, nil дает пустую строку
func FormatCalendarDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// TruncateToDate возвращает полночь UTC той же календарной даты
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween число календарных дней от from до to, отрицательное если to раньше from
func DaysBetween(from, to time.Time) int {
	return int((TruncateToDate(to).Unix() - TruncateToDate(from).Unix()) / secondsPerDay)
}

// Today текущая календарная дата в указанном часовом поясе
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return TruncateToDate(time.Now().In(loc))
}

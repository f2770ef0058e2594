// Package validate содержит чистые проверки пользовательского ввода
// формы заказа: дата, время, сумма.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRe   = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	timeRe   = regexp.MustCompile(`^\d{2}:\d{2}$`)
	amountRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// Date проверяет строку вида ДД.ММ.ГГГГ: существующая календарная дата
// не раньше текущего дня.
func Date(dateStr string, now time.Time) bool {
	if !dateRe.MatchString(dateStr) {
		return false
	}

	parsed, err := time.Parse("02.01.2006", dateStr)
	if err != nil {
		return false
	}
	// time.Parse нормализует 31.02 в 02.03 вместо ошибки
	if parsed.Format("02.01.2006") != dateStr {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !parsed.Before(today)
}

// Time проверяет слот ЧЧ:ММ: вместе с датой момент должен быть строго
// в будущем. Отсекает уже прошедшие сегодня слоты.
func Time(dateStr, timeStr string, now time.Time) bool {
	if !timeRe.MatchString(timeStr) {
		return false
	}

	hours, err := strconv.Atoi(timeStr[:2])
	if err != nil || hours > 23 {
		return false
	}
	minutes, err := strconv.Atoi(timeStr[3:])
	if err != nil || minutes > 59 {
		return false
	}

	parsed, err := time.ParseInLocation("02.01.2006 15:04", dateStr+" "+timeStr, now.Location())
	if err != nil {
		return false
	}

	return parsed.After(now)
}

// Amount проверяет сумму: неотрицательное число, не более двух знаков
// после точки, без валютных символов и экспоненты.
func Amount(amountStr string) bool {
	return amountRe.MatchString(amountStr)
}

// DateTimeFormat строго разбирает строку по макету и возвращает false
// вместо ошибки. Используется перед синхронизацией с календарем.
func DateTimeFormat(value, layout string) bool {
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return false
	}
	// отсекаем нормализацию несуществующих дат
	return strings.EqualFold(parsed.Format(layout), value)
}

package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{"будущая дата", "15.06.2025", true},
		{"сегодня", "10.06.2025", true},
		{"вчера", "09.06.2025", false},
		{"несуществующая дата", "31.02.2025", false},
		{"не тот формат", "2025-06-15", false},
		{"без ведущих нулей", "5.6.2025", false},
		{"мусор", "завтра", false},
		{"пустая строка", "", false},
		{"31 число длинного месяца", "31.07.2025", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.date, now))
		})
	}
}

func TestTime(t *testing.T) {
	tests := []struct {
		name string
		date string
		slot string
		want bool
	}{
		{"будущий слот сегодня", "10.06.2025", "14:00", true},
		{"прошедший слот сегодня", "10.06.2025", "09:30", false},
		{"текущий момент не строго в будущем", "10.06.2025", "12:00", false},
		{"утренний слот завтра", "11.06.2025", "09:00", true},
		{"не тот формат", "10.06.2025", "9:00", false},
		{"не существующее время", "10.06.2025", "25:00", false},
		{"мусор в дате", "мусор", "14:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Time(tt.date, tt.slot, now))
		})
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"5000", true},
		{"7500.5", true},
		{"7500.50", true},
		{"0", true},
		{"7500.555", false},
		{"-10", false},
		{"5 000", false},
		{"5000р", false},
		{"1e3", false},
		{".50", false},
		{"5000.", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, Amount(tt.amount))
		})
	}
}

func TestDateTimeFormat(t *testing.T) {
	assert.True(t, DateTimeFormat("20.07.2025 14:00", "02.01.2006 15:04"))
	assert.False(t, DateTimeFormat("31.02.2025 14:00", "02.01.2006 15:04"))
	assert.False(t, DateTimeFormat("2025-07-20", "02.01.2006 15:04"))
	assert.False(t, DateTimeFormat("", "02.01.2006 15:04"))
}

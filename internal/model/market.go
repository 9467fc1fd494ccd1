package model

import "time"

// DateLayout is the calendar-day layout used for keys, storage and CLI input.
const DateLayout = "2006-01-02"

// Bar represents a single daily OHLCV bar for one symbol.
type Bar struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	Date     time.Time `json:"date"` // UTC midnight of the trading day
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
}

// DateOf truncates t to its calendar day at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

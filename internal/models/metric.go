package models

import (
	"strconv"
	"strings"
)

// Trend is the direction of a metric change
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Metric is a summary card shown above the dashboard tables
type Metric struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change string `json:"change"`
	Period string `json:"period"`
	Trend  Trend  `json:"trend"`
}

// metricPeriod is the comparison window the backend computes percentages over
const metricPeriod = "vs last month"

// NewMetric builds a card from a count and the backend's percent string.
// An unparseable percent is reported as a downward trend.
func NewMetric(title string, value int, percent string) Metric {
	trend := TrendDown
	if p, err := strconv.ParseFloat(strings.TrimSpace(percent), 64); err == nil && p >= 0 {
		trend = TrendUp
	}

	return Metric{
		Title:  title,
		Value:  strconv.Itoa(value),
		Change: percent + "%",
		Period: metricPeriod,
		Trend:  trend,
	}
}

package models

import "time"

// AnalyticsSnapshot is an aggregate view of recent sending activity.
// Nil fields are metrics the producer did not report.
type AnalyticsSnapshot struct {
	SuccessRate   *float64  `json:"successRate,omitempty"`
	TotalMessages *float64  `json:"totalMessages,omitempty"`
	FailedCount   *float64  `json:"failedCount,omitempty"`
	ErrorRate     *float64  `json:"errorRate,omitempty"`
	CreditsUsed   *float64  `json:"creditsUsed,omitempty"`
	CollectedAt   time.Time `json:"collectedAt"`
}

// Get returns the value for a metric, or false if it is unavailable.
func (s AnalyticsSnapshot) Get(m Metric) (float64, bool) {
	var v *float64
	switch m {
	case MetricSuccessRate:
		v = s.SuccessRate
	case MetricErrorRate:
		v = s.ErrorRate
	case MetricTotalMessages:
		v = s.TotalMessages
	case MetricFailedCount:
		v = s.FailedCount
	case MetricCreditsUsed:
		v = s.CreditsUsed
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Float is a helper for building snapshots in code.
func Float(v float64) *float64 {
	return &v
}

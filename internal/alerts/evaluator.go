// Package alerts turns analytics snapshots into alert events and owns the
// lifecycle of the active alert set.
package alerts

import (
	"time"

	"github.com/google/uuid"

	"batch-dispatch-service/internal/models"
)

// Evaluate checks every rule against the snapshot and returns one event per
// breached rule. Rules whose metric is missing from the snapshot are skipped.
func Evaluate(snapshot models.AnalyticsSnapshot, rules []models.AlertRule, now time.Time) []models.AlertEvent {
	var events []models.AlertEvent
	for _, rule := range rules {
		value, ok := snapshot.Get(rule.Metric)
		if !ok {
			continue
		}
		if !rule.Condition.Compare(value, rule.Threshold) {
			continue
		}
		events = append(events, models.AlertEvent{
			ID:        uuid.NewString(),
			Metric:    rule.Metric,
			Value:     value,
			Threshold: rule.Threshold,
			Severity:  rule.Severity,
			Message:   rule.Message,
			Timestamp: now,
		})
	}
	return events
}

// ApplyThresholds returns a copy of rules with per-metric threshold overrides applied.
func ApplyThresholds(rules []models.AlertRule, overrides map[models.Metric]float64) []models.AlertRule {
	out := make([]models.AlertRule, len(rules))
	copy(out, rules)
	for i := range out {
		if v, ok := overrides[out[i].Metric]; ok {
			out[i].Threshold = v
		}
	}
	return out
}

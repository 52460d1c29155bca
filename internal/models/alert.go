package models

import (
	"fmt"
	"strings"
	"time"
)

// Metric names a field of AnalyticsSnapshot that rules can watch.
type Metric string

const (
	MetricSuccessRate   Metric = "success_rate"
	MetricErrorRate     Metric = "error_rate"
	MetricTotalMessages Metric = "total_messages"
	MetricFailedCount   Metric = "failed_count"
	MetricCreditsUsed   Metric = "credits_used"
)

// IsValid reports whether m is a known metric.
func (m Metric) IsValid() bool {
	switch m {
	case MetricSuccessRate, MetricErrorRate, MetricTotalMessages, MetricFailedCount, MetricCreditsUsed:
		return true
	default:
		return false
	}
}

// Condition is the comparison a rule applies to its metric.
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Compare reports whether value breaches threshold under c.
func (c Condition) Compare(value, threshold float64) bool {
	switch c {
	case ConditionAbove:
		return value > threshold
	case ConditionBelow:
		return value < threshold
	default:
		return false
	}
}

func (c Condition) IsValid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Severity of an alert.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

func (s Severity) IsValid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Label is the upper-case form used in subjects and headers.
func (s Severity) Label() string {
	return strings.ToUpper(string(s))
}

// AlertRule is a static threshold rule.
type AlertRule struct {
	Metric    Metric    `json:"metric"`
	Condition Condition `json:"condition"`
	Threshold float64   `json:"threshold"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// Validate checks the rule's enums.
func (r AlertRule) Validate() error {
	if !r.Metric.IsValid() {
		return fmt.Errorf("unknown metric %q", r.Metric)
	}
	if !r.Condition.IsValid() {
		return fmt.Errorf("rule on %s: invalid condition %q", r.Metric, r.Condition)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("rule on %s: invalid severity %q", r.Metric, r.Severity)
	}
	return nil
}

// DefaultAlertRules is the rule set used when nothing is configured.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{Metric: MetricSuccessRate, Condition: ConditionBelow, Threshold: 95, Severity: SeverityError, Message: "Success rate dropped below 95%"},
		{Metric: MetricErrorRate, Condition: ConditionAbove, Threshold: 5, Severity: SeverityWarning, Message: "Error rate exceeded 5%"},
		{Metric: MetricFailedCount, Condition: ConditionAbove, Threshold: 100, Severity: SeverityWarning, Message: "More than 100 failed messages"},
		{Metric: MetricCreditsUsed, Condition: ConditionAbove, Threshold: 10000, Severity: SeverityWarning, Message: "Credit usage above 10000"},
	}
}

// AlertEvent is a detected threshold breach.
type AlertEvent struct {
	ID           string    `json:"id"`
	Metric       Metric    `json:"metric"`
	Value        float64   `json:"value"`
	Threshold    float64   `json:"threshold"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
	// AcknowledgedAt is set on the first acknowledgement and starts the retention clock.
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

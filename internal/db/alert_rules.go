package db

import (
	"context"
	"fmt"

	"batch-dispatch-service/internal/alerts"
	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

// GetAlertRules returns the enabled threshold rules. Rows that fail
// validation are skipped with a warning.
func (d *DB) GetAlertRules(ctx context.Context, logger *logging.Logger) ([]models.AlertRule, error) {
	query := `
	SELECT metric, condition, threshold, severity, message
	FROM alert_rules
	WHERE enabled = TRUE
	ORDER BY position, metric`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var r models.AlertRule
		if err := rows.Scan(&r.Metric, &r.Condition, &r.Threshold, &r.Severity, &r.Message); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		if err := r.Validate(); err != nil {
			logger.Warnf("Skipping alert rule for metric %q: %v", r.Metric, err)
			continue
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alert rules: %w", err)
	}
	return rules, nil
}

// RuleSource yields the stored rules, or the defaults when none are stored,
// with the threshold overrides from notification settings applied.
type RuleSource struct {
	db     *DB
	logger *logging.Logger
}

func NewRuleSource(d *DB, logger *logging.Logger) *RuleSource {
	return &RuleSource{db: d, logger: logger}
}

func (s *RuleSource) AlertRules(ctx context.Context) ([]models.AlertRule, error) {
	rules, err := s.db.GetAlertRules(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		rules = models.DefaultAlertRules()
	}
	prefs, err := s.db.GetNotificationPreferences(ctx)
	if err != nil {
		return nil, err
	}
	return alerts.ApplyThresholds(rules, prefs.Thresholds), nil
}

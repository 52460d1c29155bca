package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"batch-dispatch-service/internal/models"
)

// GetNotificationPreferences reads the single notification_settings row.
// A missing row means every channel is enabled.
func (d *DB) GetNotificationPreferences(ctx context.Context) (models.NotificationPreferences, error) {
	prefs := models.NotificationPreferences{Email: true, ChatChannel: true, Push: true}
	var thresholds map[models.Metric]float64

	query := `
	SELECT email_enabled, chat_enabled, push_enabled, thresholds
	FROM notification_settings
	ORDER BY updated_at DESC
	LIMIT 1`

	err := d.Pool.QueryRow(ctx, query).Scan(&prefs.Email, &prefs.ChatChannel, &prefs.Push, &thresholds)
	if errors.Is(err, pgx.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return models.NotificationPreferences{}, fmt.Errorf("failed to get notification settings: %w", err)
	}
	prefs.Thresholds = thresholds
	return prefs, nil
}

// SettingsSource serves preferences and destinations from the database.
type SettingsSource struct {
	db *DB
}

func NewSettingsSource(d *DB) *SettingsSource {
	return &SettingsSource{db: d}
}

func (s *SettingsSource) Settings(ctx context.Context) (models.NotificationPreferences, models.Destinations, error) {
	prefs, err := s.db.GetNotificationPreferences(ctx)
	if err != nil {
		return models.NotificationPreferences{}, models.Destinations{}, err
	}
	cps, err := s.db.GetActiveContactPoints(ctx)
	if err != nil {
		return models.NotificationPreferences{}, models.Destinations{}, err
	}
	return prefs, destinationsFrom(cps), nil
}

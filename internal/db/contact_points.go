package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"batch-dispatch-service/internal/models"
)

// CreateContactPoint stores a destination for one channel.
func (d *DB) CreateContactPoint(ctx context.Context, cp models.ContactPoint) (models.ContactPoint, error) {
	if !cp.Channel.IsValid() {
		return models.ContactPoint{}, fmt.Errorf("invalid channel %q", cp.Channel)
	}
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.Status == "" {
		cp.Status = "active"
	}

	query := `
	INSERT INTO contact_points (id, name, channel, target, status, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (channel, target) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	RETURNING id, created_at`

	err := d.Pool.QueryRow(ctx, query, cp.ID, cp.Name, cp.Channel, cp.Target, cp.Status).
		Scan(&cp.ID, &cp.CreatedAt)
	if err != nil {
		return models.ContactPoint{}, fmt.Errorf("failed to create contact point: %w", err)
	}
	return cp, nil
}

// GetActiveContactPoints returns all active contact points.
func (d *DB) GetActiveContactPoints(ctx context.Context) ([]models.ContactPoint, error) {
	query := `
	SELECT id, name, channel, target, status, created_at
	FROM contact_points
	WHERE status = 'active'
	ORDER BY created_at`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact points: %w", err)
	}
	defer rows.Close()

	var cps []models.ContactPoint
	for rows.Next() {
		var cp models.ContactPoint
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Channel, &cp.Target, &cp.Status, &cp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact point: %w", err)
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// RegisterPushSubscription records a push subscription id as an active
// contact point on the push channel.
func (d *DB) RegisterPushSubscription(ctx context.Context, subscriptionID, name string) (models.ContactPoint, error) {
	return d.CreateContactPoint(ctx, models.ContactPoint{
		Name:    name,
		Channel: models.ChannelPush,
		Target:  subscriptionID,
	})
}

// destinationsFrom groups active contact points by channel.
func destinationsFrom(cps []models.ContactPoint) models.Destinations {
	var dest models.Destinations
	for _, cp := range cps {
		if cp.Status != "active" || cp.Target == "" {
			continue
		}
		switch cp.Channel {
		case models.ChannelEmail:
			dest.Emails = append(dest.Emails, cp.Target)
		case models.ChannelChat:
			dest.Chats = append(dest.Chats, cp.Target)
		case models.ChannelPush:
			dest.PushSubscriptions = append(dest.PushSubscriptions, cp.Target)
		}
	}
	return dest
}

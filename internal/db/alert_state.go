package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AlertStateKey is the kv_store key holding the serialized active alerts.
const AlertStateKey = "batch_alerts"

// AlertStateStore persists the alert lifecycle blob in the kv_store table.
type AlertStateStore struct {
	db  *DB
	key string
}

func NewAlertStateStore(d *DB) *AlertStateStore {
	return &AlertStateStore{db: d, key: AlertStateKey}
}

// Load returns nil when nothing has been saved yet.
func (s *AlertStateStore) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := s.db.Pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, s.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.key, err)
	}
	return value, nil
}

func (s *AlertStateStore) Save(ctx context.Context, data []byte) error {
	query := `
	INSERT INTO kv_store (key, value, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := s.db.Pool.Exec(ctx, query, s.key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.key, err)
	}
	return nil
}

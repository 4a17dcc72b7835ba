// internal/store/settings.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// GetSetting retrieves a setting value.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?",
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// GetSettingInt retrieves and parses an integer setting.
func (s *Store) GetSettingInt(ctx context.Context, key string) (int, error) {
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not an integer: %w", key, ErrInvalidInput)
	}
	return n, nil
}

// GetSettingFloat retrieves and parses a float setting.
func (s *Store) GetSettingFloat(ctx context.Context, key string) (float64, error) {
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not a number: %w", key, ErrInvalidInput)
	}
	return f, nil
}

// UpdateSetting upserts a setting value.
func (s *Store) UpdateSetting(ctx context.Context, key, value, valueType string) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO settings (key, value, type, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		type = excluded.type,
		updated_at = CURRENT_TIMESTAMP`,
		key, value, valueType,
	)
	return err
}

// AllSettings reads the whole settings table into a map.
func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

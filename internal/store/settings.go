package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/roach88/bruch/internal/apperr"
)

const (
	settingAutoBackup = "backup.auto"
	settingDeviceID   = "device.id"
)

// GetSetting returns the value stored under key and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	db, err := s.conn("get setting")
	if err != nil {
		return "", false, err
	}
	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Storage("get setting", err)
	}
	return value, true, nil
}

// SetSetting stores value under key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	db, err := s.conn("set setting")
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return apperr.Storage("set setting", err)
	}
	return nil
}

// AutoBackupEnabled reports the persisted auto-backup preference.
// It defaults to true when the preference was never set.
func (s *Store) AutoBackupEnabled(ctx context.Context) (bool, error) {
	value, ok, err := s.GetSetting(ctx, settingAutoBackup)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

// SetAutoBackupEnabled persists the auto-backup preference.
func (s *Store) SetAutoBackupEnabled(ctx context.Context, enabled bool) error {
	return s.SetSetting(ctx, settingAutoBackup, strconv.FormatBool(enabled))
}

// DeviceID returns the id generated for this installation on first Init.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	value, ok, err := s.GetSetting(ctx, settingDeviceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.NotFound("device id", "no device id stored")
	}
	return value, nil
}

// SeedAutoBackup stores enabled as the auto-backup preference unless a
// preference was already persisted.
func (s *Store) SeedAutoBackup(ctx context.Context, enabled bool) error {
	db, err := s.conn("seed auto backup")
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING",
		settingAutoBackup, strconv.FormatBool(enabled))
	if err != nil {
		return apperr.Storage("seed auto backup", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kitchensync/internal/model"
)

// GetSettings returns the settings singleton. A database that never stored
// settings yields the zero settings rather than ErrNotFound.
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	settings := model.Settings{ID: model.SettingsID}
	var active sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT active_event_id FROM settings WHERE id = ?`, model.SettingsID,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("get settings: %w", err)
	}
	if active.Valid {
		id := active.String
		settings.ActiveEventID = &id
	}
	return settings, nil
}

// UpdateSettings upserts the settings singleton.
func (s *Store) UpdateSettings(ctx context.Context, settings model.Settings) error {
	var active sql.NullString
	if settings.ActiveEventID != nil {
		active = sql.NullString{String: *settings.ActiveEventID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, active_event_id) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET active_event_id = excluded.active_event_id
	`, model.SettingsID, active)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// CountSettingsReferencingEvent reports whether the settings point at the event.
func (s *Store) CountSettingsReferencingEvent(ctx context.Context, eventID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM settings WHERE active_event_id = ?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("count settings referencing event %q: %w", eventID, err)
	}
	return n, nil
}

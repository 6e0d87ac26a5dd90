package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/tune/internal/settings"
)

// GetSettings fetches a user's settings. Returns ErrNotFound if none are stored.
func (s *Store) GetSettings(ctx context.Context, userID string) (settings.Settings, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, session_id, threshold, attributes, subtypes_enabled, theme, enabled, websites, install_state, updated_at
		FROM tune_settings
		WHERE user_id = $1`,
		userID,
	)

	var (
		st         settings.Settings
		attributes []byte
		websites   []byte
	)
	err := row.Scan(&st.UserID, &st.SessionID, &st.Threshold, &attributes, &st.SubtypesEnabled,
		&st.Theme, &st.Enabled, &websites, &st.InstallState, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.Settings{}, ErrNotFound
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if err := json.Unmarshal(attributes, &st.Attributes); err != nil {
		return settings.Settings{}, fmt.Errorf("decode attributes: %w", err)
	}
	if err := json.Unmarshal(websites, &st.Websites); err != nil {
		return settings.Settings{}, fmt.Errorf("decode websites: %w", err)
	}
	return st, nil
}

func encodeMaps(st settings.Settings) (attributes, websites []byte, err error) {
	attributes, err = json.Marshal(st.Attributes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode attributes: %w", err)
	}
	websites, err = json.Marshal(st.Websites)
	if err != nil {
		return nil, nil, fmt.Errorf("encode websites: %w", err)
	}
	return attributes, websites, nil
}

// SaveSettings upserts a user's settings and returns the stored row.
func (s *Store) SaveSettings(ctx context.Context, st settings.Settings) (settings.Settings, error) {
	attributes, websites, err := encodeMaps(st)
	if err != nil {
		return settings.Settings{}, err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO tune_settings (user_id, session_id, threshold, attributes, subtypes_enabled, theme, enabled, websites, install_state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			session_id = $2,
			threshold = $3,
			attributes = $4,
			subtypes_enabled = $5,
			theme = $6,
			enabled = $7,
			websites = $8,
			install_state = $9,
			updated_at = now()
		RETURNING updated_at`,
		st.UserID, st.SessionID, st.Threshold, attributes, st.SubtypesEnabled,
		string(st.Theme), st.Enabled, websites, string(st.InstallState),
	).Scan(&st.UpdatedAt)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("upsert settings: %w", err)
	}
	return st, nil
}

// EnsureSettings returns the stored settings for a user, creating defaults
// with a fresh session id on first sight. Concurrent first calls all get the
// row that won the insert.
func (s *Store) EnsureSettings(ctx context.Context, userID string) (settings.Settings, error) {
	st, err := s.GetSettings(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return settings.Settings{}, err
	}

	st = settings.Default(userID)
	st.Threshold = s.defaultThreshold
	attributes, websites, err := encodeMaps(st)
	if err != nil {
		return settings.Settings{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tune_settings (user_id, session_id, threshold, attributes, subtypes_enabled, theme, enabled, websites, install_state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id) DO NOTHING`,
		st.UserID, st.SessionID, st.Threshold, attributes, st.SubtypesEnabled,
		string(st.Theme), st.Enabled, websites, string(st.InstallState),
	)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("insert default settings: %w", err)
	}
	return s.GetSettings(ctx, userID)
}

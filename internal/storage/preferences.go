package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sprout/internal/core"
)

// GetPreferences returns the stored preference row. Absence is reported as
// not-found; callers that want defaults apply them on top.
func (r *Repository) GetPreferences(ctx context.Context, userID int64) (core.Preferences, error) {
	var (
		p         core.Preferences
		simulated sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, daily_limit_cents, require_categories, rollover_enabled, simulated_date
		FROM user_preferences WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.DailyLimit.Cents, &p.RequireCategories, &p.RolloverEnabled, &simulated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Preferences{}, core.NewNotFoundError("Preferences")
	}
	if err != nil {
		return core.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	if simulated.Valid && simulated.String != "" {
		date, err := core.ParseDate(simulated.String)
		if err == nil {
			p.SimulatedDate = &date
		}
	}
	return p, nil
}

func (r *Repository) SetDailyLimit(ctx context.Context, userID int64, limit core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, daily_limit_cents)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_limit_cents = excluded.daily_limit_cents,
			updated_at = CURRENT_TIMESTAMP
	`, userID, limit.Cents)
	if err != nil {
		return fmt.Errorf("set daily limit: %w", err)
	}
	return nil
}

func (r *Repository) SetRequireCategories(ctx context.Context, userID int64, required bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, require_categories)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			require_categories = excluded.require_categories,
			updated_at = CURRENT_TIMESTAMP
	`, userID, required)
	if err != nil {
		return fmt.Errorf("set category requirement: %w", err)
	}
	return nil
}

func (r *Repository) SetRolloverEnabled(ctx context.Context, userID int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, rollover_enabled)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			rollover_enabled = excluded.rollover_enabled,
			updated_at = CURRENT_TIMESTAMP
	`, userID, enabled)
	if err != nil {
		return fmt.Errorf("set rollover enabled: %w", err)
	}
	return nil
}

// SetSimulatedDate pins or clears (nil) the user's simulated day.
func (r *Repository) SetSimulatedDate(ctx context.Context, userID int64, date *core.Date) error {
	var value any
	if date != nil {
		value = date.String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, simulated_date)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			simulated_date = excluded.simulated_date,
			updated_at = CURRENT_TIMESTAMP
	`, userID, value)
	if err != nil {
		return fmt.Errorf("set simulated date: %w", err)
	}
	return nil
}

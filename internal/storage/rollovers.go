package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sprout/internal/core"
)

// UpsertRollover stores the rollover snapshot for (user, date). Reprocessing
// a transition overwrites the previous snapshot.
func (r *Repository) UpsertRollover(ctx context.Context, ro core.DailyRollover) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_rollovers (user_id, date, base_daily_limit_cents, amount_spent_cents, rollover_cents)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			base_daily_limit_cents = excluded.base_daily_limit_cents,
			amount_spent_cents = excluded.amount_spent_cents,
			rollover_cents = excluded.rollover_cents,
			updated_at = CURRENT_TIMESTAMP
	`, ro.UserID, ro.Date.String(), ro.BaseDailyLimit.Cents, ro.AmountSpent.Cents, ro.RolloverAmount.Cents)
	if err != nil {
		return fmt.Errorf("upsert rollover %s: %w", ro.Date, err)
	}
	return nil
}

func (r *Repository) RolloverByDate(ctx context.Context, userID int64, date core.Date) (core.DailyRollover, error) {
	var (
		ro  core.DailyRollover
		day string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, date, base_daily_limit_cents, amount_spent_cents, rollover_cents
		FROM daily_rollovers WHERE user_id = ? AND date = ?
	`, userID, date.String()).Scan(&ro.UserID, &day, &ro.BaseDailyLimit.Cents, &ro.AmountSpent.Cents, &ro.RolloverAmount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DailyRollover{}, core.NewNotFoundError("Rollover")
	}
	if err != nil {
		return core.DailyRollover{}, fmt.Errorf("get rollover %s: %w", date, err)
	}
	parsed, err := core.ParseDate(day)
	if err != nil {
		return core.DailyRollover{}, fmt.Errorf("parse rollover date %q: %w", day, err)
	}
	ro.Date = parsed
	return ro, nil
}

// RolloverHistory lists snapshots with date in [from, to], newest first.
func (r *Repository) RolloverHistory(ctx context.Context, userID int64, from, to core.Date) ([]core.DailyRollover, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, date, base_daily_limit_cents, amount_spent_cents, rollover_cents
		FROM daily_rollovers
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC
	`, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("rollover history: %w", err)
	}
	defer rows.Close()

	var history []core.DailyRollover
	for rows.Next() {
		var (
			ro  core.DailyRollover
			day string
		)
		if err := rows.Scan(&ro.UserID, &day, &ro.BaseDailyLimit.Cents, &ro.AmountSpent.Cents, &ro.RolloverAmount.Cents); err != nil {
			return nil, fmt.Errorf("scan rollover: %w", err)
		}
		date, err := core.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("parse rollover date %q: %w", day, err)
		}
		ro.Date = date
		history = append(history, ro)
	}
	return history, rows.Err()
}

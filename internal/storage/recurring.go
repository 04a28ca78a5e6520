package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sprout/internal/core"
)

func scanRecurring(scan func(dest ...any) error) (core.RecurringExpense, error) {
	var (
		re       core.RecurringExpense
		category sql.NullString
		start    string
		lastRun  sql.NullString
	)
	err := scan(&re.ID, &re.UserID, &re.Description, &re.Amount.Cents, &category,
		&re.Frequency, &start, &re.Active, &lastRun, &re.CreatedAt)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	re.Category = categoryFromDB(category)

	startDate, err := core.ParseDate(start)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	re.StartDate = startDate

	if lastRun.Valid && lastRun.String != "" {
		last, err := core.ParseDate(lastRun.String)
		if err != nil {
			return core.RecurringExpense{}, fmt.Errorf("parse last run %q: %w", lastRun.String, err)
		}
		re.LastRun = last
	}
	return re, nil
}

const recurringColumns = "id, user_id, description, amount_cents, category, frequency, start_date, active, last_run, created_at"

func (r *Repository) CreateRecurringExpense(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO recurring_expenses (user_id, description, amount_cents, category, frequency, start_date, active) VALUES (?, ?, ?, ?, ?, ?, ?)",
		re.UserID, re.Description, re.Amount.Cents, categoryToDB(re.Category), string(re.Frequency), re.StartDate.String(), re.Active,
	)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring expense id: %w", err)
	}
	return r.RecurringByID(ctx, re.UserID, id)
}

func (r *Repository) RecurringByID(ctx context.Context, userID, id int64) (core.RecurringExpense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	re, err := scanRecurring(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringExpense{}, core.NewNotFoundError("Recurring expense")
	}
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense %d: %w", id, err)
	}
	return re, nil
}

// ListRecurring returns the user's templates, newest first. activeOnly
// narrows to templates still materializing expenses.
func (r *Repository) ListRecurring(ctx context.Context, userID int64, activeOnly bool) ([]core.RecurringExpense, error) {
	query := "SELECT " + recurringColumns + " FROM recurring_expenses WHERE user_id = ?"
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var result []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		result = append(result, re)
	}
	return result, rows.Err()
}

// ListAllActiveRecurring returns active templates across every user, for the
// scheduled processor.
func (r *Repository) ListAllActiveRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_expenses WHERE active = 1 ORDER BY user_id, id",
	)
	if err != nil {
		return nil, fmt.Errorf("list active recurring expenses: %w", err)
	}
	defer rows.Close()

	var result []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		result = append(result, re)
	}
	return result, rows.Err()
}

func (r *Repository) UpdateRecurring(ctx context.Context, re core.RecurringExpense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_expenses
		SET description = ?, amount_cents = ?, category = ?, frequency = ?, start_date = ?, active = ?
		WHERE id = ? AND user_id = ?
	`, re.Description, re.Amount.Cents, categoryToDB(re.Category), string(re.Frequency), re.StartDate.String(), re.Active, re.ID, re.UserID)
	if err != nil {
		return fmt.Errorf("update recurring expense %d: %w", re.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("Recurring expense")
	}
	return nil
}

func (r *Repository) DeleteRecurring(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM recurring_expenses WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete recurring expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("Recurring expense")
	}
	return nil
}

// SetRecurringLastRun records the day a template last materialized.
func (r *Repository) SetRecurringLastRun(ctx context.Context, id int64, date core.Date) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE recurring_expenses SET last_run = ? WHERE id = ?", date.String(), id,
	)
	if err != nil {
		return fmt.Errorf("set recurring last run %d: %w", id, err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sprout/internal/core"
)

// DailySpend is one day's aggregate inside a queried window.
type DailySpend struct {
	Day        core.Date
	SpentCents int64
	Count      int
}

// CategorySpend aggregates a window's spending per category reference.
// Category is nil for uncategorized expenses.
type CategorySpend struct {
	Category   *core.CategoryRef
	SpentCents int64
	Count      int
}

func categoryToDB(ref *core.CategoryRef) any {
	if ref == nil {
		return nil
	}
	return ref.String()
}

func categoryFromDB(ns sql.NullString) *core.CategoryRef {
	if !ns.Valid {
		return nil
	}
	ref, err := core.ParseCategoryRef(ns.String)
	if err != nil {
		return nil
	}
	return &ref
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (user_id, amount_cents, description, category, timestamp) VALUES (?, ?, ?, ?, ?)",
		e.UserID, e.Amount.Cents, e.Description, categoryToDB(e.Category), timeToDB(e.Timestamp),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}
	e.ID = id
	return e, nil
}

func (r *Repository) ExpenseByID(ctx context.Context, userID, id int64) (core.Expense, error) {
	var (
		e        core.Expense
		category sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, amount_cents, description, category, timestamp FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Description, &category, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NewNotFoundError("Expense")
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	e.Category = categoryFromDB(category)
	return e, nil
}

// UpdateExpense rewrites amount, description and category of an owned row.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET amount_cents = ?, description = ?, category = ? WHERE id = ? AND user_id = ?",
		e.Amount.Cents, e.Description, categoryToDB(e.Category), e.ID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("Expense")
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("Expense")
	}
	return nil
}

// ListExpenses returns the user's expenses with timestamp in [start, end),
// newest first. A non-nil category narrows to that reference.
func (r *Repository) ListExpenses(ctx context.Context, userID int64, start, end time.Time, category *core.CategoryRef) ([]core.Expense, error) {
	query := "SELECT id, user_id, amount_cents, description, category, timestamp FROM expenses WHERE user_id = ? AND timestamp >= ? AND timestamp < ?"
	args := []any{userID, timeToDB(start), timeToDB(end)}
	if category != nil {
		query += " AND category = ?"
		args = append(args, category.String())
	}
	query += " ORDER BY timestamp DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e  core.Expense
			cat sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Description, &cat, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = categoryFromDB(cat)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SpentInRange sums spending with timestamp in [start, end).
func (r *Repository) SpentInRange(ctx context.Context, userID int64, start, end time.Time) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ? AND timestamp >= ? AND timestamp < ?",
		userID, timeToDB(start), timeToDB(end),
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum spending: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// DailySpending aggregates spending per calendar day inside [start, end).
// Days without expenses are absent from the result.
func (r *Repository) DailySpending(ctx context.Context, userID int64, start, end time.Time) ([]DailySpend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE(timestamp), COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		GROUP BY DATE(timestamp)
		ORDER BY DATE(timestamp)
	`, userID, timeToDB(start), timeToDB(end))
	if err != nil {
		return nil, fmt.Errorf("daily spending: %w", err)
	}
	defer rows.Close()

	var days []DailySpend
	for rows.Next() {
		var (
			day string
			d   DailySpend
		)
		if err := rows.Scan(&day, &d.SpentCents, &d.Count); err != nil {
			return nil, fmt.Errorf("scan daily spending: %w", err)
		}
		date, err := core.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		d.Day = date
		days = append(days, d)
	}
	return days, rows.Err()
}

// CategorySpending aggregates spending per category inside [start, end),
// largest total first.
func (r *Repository) CategorySpending(ctx context.Context, userID int64, start, end time.Time) ([]CategorySpend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC
	`, userID, timeToDB(start), timeToDB(end))
	if err != nil {
		return nil, fmt.Errorf("category spending: %w", err)
	}
	defer rows.Close()

	var result []CategorySpend
	for rows.Next() {
		var (
			cat sql.NullString
			cs  CategorySpend
		)
		if err := rows.Scan(&cat, &cs.SpentCents, &cs.Count); err != nil {
			return nil, fmt.Errorf("scan category spending: %w", err)
		}
		cs.Category = categoryFromDB(cat)
		result = append(result, cs)
	}
	return result, rows.Err()
}

// ClearCategoryRefs detaches every expense pointing at the given category
// and reports how many rows changed.
func (r *Repository) ClearCategoryRefs(ctx context.Context, userID int64, ref core.CategoryRef) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET category = NULL WHERE user_id = ? AND category = ?",
		userID, ref.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear category refs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sprout/internal/core"
)

// ListCategories returns the shared defaults plus the user's custom
// categories, name-ascending, with effective budgets resolved: a per-user
// override wins over the category's own budget.
func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	// created_at goes through strftime because a compound SELECT loses the
	// column decltype, and with it the driver's text-to-time conversion.
	rows, err := r.db.QueryContext(ctx, `
		SELECT 'default_' || dc.id AS ref, dc.name AS name, dc.icon, dc.color,
		       COALESCE(b.daily_budget_cents, dc.daily_budget_cents) AS budget,
		       strftime('%Y-%m-%d %H:%M:%S', dc.created_at) AS created_at
		FROM default_categories dc
		LEFT JOIN user_category_budgets b
		       ON b.user_id = ? AND b.category = 'default_' || dc.id
		UNION ALL
		SELECT 'custom_' || cc.id, cc.name, cc.icon, cc.color,
		       COALESCE(b.daily_budget_cents, cc.daily_budget_cents),
		       strftime('%Y-%m-%d %H:%M:%S', cc.created_at)
		FROM custom_categories cc
		LEFT JOIN user_category_budgets b
		       ON b.user_id = cc.user_id AND b.category = 'custom_' || cc.id
		WHERE cc.user_id = ?
		ORDER BY name ASC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			c       core.Category
			ref     string
			created string
		)
		if err := rows.Scan(&ref, &c.Name, &c.Icon, &c.Color, &c.DailyBudget.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		parsed, err := core.ParseCategoryRef(ref)
		if err != nil {
			return nil, fmt.Errorf("parse category ref %q: %w", ref, err)
		}
		c.Ref = parsed
		if t, err := timeFromDB(created); err == nil {
			c.CreatedAt = t
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryByRef resolves a single category visible to the user.
func (r *Repository) CategoryByRef(ctx context.Context, userID int64, ref core.CategoryRef) (core.Category, error) {
	var (
		c     core.Category
		query string
	)
	switch ref.Kind {
	case core.CategoryDefault:
		query = `
			SELECT dc.name, dc.icon, dc.color,
			       COALESCE(b.daily_budget_cents, dc.daily_budget_cents), dc.created_at
			FROM default_categories dc
			LEFT JOIN user_category_budgets b
			       ON b.user_id = ? AND b.category = 'default_' || dc.id
			WHERE dc.id = ?`
	case core.CategoryCustom:
		query = `
			SELECT cc.name, cc.icon, cc.color,
			       COALESCE(b.daily_budget_cents, cc.daily_budget_cents), cc.created_at
			FROM custom_categories cc
			LEFT JOIN user_category_budgets b
			       ON b.user_id = cc.user_id AND b.category = 'custom_' || cc.id
			WHERE cc.user_id = ? AND cc.id = ?`
	default:
		return core.Category{}, core.NewNotFoundError("Category")
	}

	err := r.db.QueryRowContext(ctx, query, userID, ref.ID).
		Scan(&c.Name, &c.Icon, &c.Color, &c.DailyBudget.Cents, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("Category")
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", ref, err)
	}
	c.Ref = ref
	return c, nil
}

// CreateCustomCategory inserts a user category. Names are unique per user.
func (r *Repository) CreateCustomCategory(ctx context.Context, userID int64, name, icon, color string, budget core.Money) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO custom_categories (user_id, name, icon, color, daily_budget_cents) VALUES (?, ?, ?, ?, ?)",
		userID, name, icon, color, budget.Cents,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Category{}, core.NewValidationError("A category with this name already exists", "name")
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category id: %w", err)
	}
	return r.CategoryByRef(ctx, userID, core.CustomRef(id))
}

// DeleteCustomCategory removes a user's custom category and returns the
// deleted row. Default categories cannot be deleted.
func (r *Repository) DeleteCustomCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	c, err := r.CategoryByRef(ctx, userID, core.CustomRef(id))
	if err != nil {
		return core.Category{}, err
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM custom_categories WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return core.Category{}, fmt.Errorf("delete category %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.NewNotFoundError("Category")
	}

	// The override row, if any, is meaningless without the category.
	_, err = r.db.ExecContext(ctx,
		"DELETE FROM user_category_budgets WHERE user_id = ? AND category = ?",
		userID, core.CustomRef(id).String(),
	)
	if err != nil {
		return core.Category{}, fmt.Errorf("delete category budget %d: %w", id, err)
	}
	return c, nil
}

// UpsertCategoryBudget sets the user's budget override for a category.
func (r *Repository) UpsertCategoryBudget(ctx context.Context, userID int64, ref core.CategoryRef, budget core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_category_budgets (user_id, category, daily_budget_cents)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			daily_budget_cents = excluded.daily_budget_cents,
			updated_at = CURRENT_TIMESTAMP
	`, userID, ref.String(), budget.Cents)
	if err != nil {
		return fmt.Errorf("upsert category budget %s: %w", ref, err)
	}
	return nil
}

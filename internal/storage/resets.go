package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sprout/internal/core"
)

func (r *Repository) CreatePasswordReset(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, timeToDB(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

// PasswordResetByToken returns an unexpired, unused reset token.
func (r *Repository) PasswordResetByToken(ctx context.Context, token string) (core.PasswordReset, error) {
	var pr core.PasswordReset
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, used
		FROM password_resets
		WHERE token = ? AND used = 0 AND expires_at > CURRENT_TIMESTAMP
	`, token).Scan(&pr.Token, &pr.UserID, &pr.ExpiresAt, &pr.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PasswordReset{}, core.NewNotFoundError("Reset token")
	}
	if err != nil {
		return core.PasswordReset{}, fmt.Errorf("get password reset: %w", err)
	}
	return pr, nil
}

func (r *Repository) MarkPasswordResetUsed(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE password_resets SET used = 1 WHERE token = ?", token,
	)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("Reset token")
	}
	return nil
}

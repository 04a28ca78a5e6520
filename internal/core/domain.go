package core

import (
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// DefaultDailyLimit is the daily spending limit assumed for users who have
// never set one (30.00).
var DefaultDailyLimit = Money{Cents: 3000}

// MaxDescriptionLen bounds expense descriptions.
const MaxDescriptionLen = 500

// MaxCategoryNameLen bounds category names.
const MaxCategoryNameLen = 100

type (
	Frequency string

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Session struct {
		Token     string
		UserID    int64
		Email     string
		CreatedAt time.Time
		ExpiresAt time.Time
	}

	Expense struct {
		ID          int64
		UserID      int64
		Amount      Money
		Description string
		Category    *CategoryRef // nil when uncategorized
		Timestamp   time.Time    // UTC instant
	}

	// Preferences is the per-user settings row, lazily created with defaults
	// on first access.
	Preferences struct {
		UserID            int64
		DailyLimit        Money
		RequireCategories bool
		RolloverEnabled   bool
		SimulatedDate     *Date // nil unless date simulation is active
	}

	// DailyRollover records, for one (user, date), how much unspent budget
	// carried into that date. Limit and spend are snapshotted at store time.
	DailyRollover struct {
		UserID         int64
		Date           Date
		BaseDailyLimit Money
		AmountSpent    Money
		RolloverAmount Money
	}

	// RecurringExpense is a template that materializes real expenses when due.
	RecurringExpense struct {
		ID          int64
		UserID      int64
		Description string
		Amount      Money
		Category    *CategoryRef
		Frequency   Frequency
		StartDate   Date
		Active      bool
		LastRun     Date // zero when never processed
		CreatedAt   time.Time
	}

	// PasswordReset is a single-use, expiring reset token.
	PasswordReset struct {
		Token     string
		UserID    int64
		ExpiresAt time.Time
		Used      bool
	}
)

// DefaultPreferences returns the documented defaults for a user with no
// stored preference row: 30.00 limit, categories required, rollover off.
func DefaultPreferences(userID int64) Preferences {
	return Preferences{
		UserID:            userID,
		DailyLimit:        DefaultDailyLimit,
		RequireCategories: true,
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Description) > MaxDescriptionLen {
		return NewValidationError("Description too long (max 500 characters)", "description")
	}
	if e.Timestamp.IsZero() {
		return NewValidationError("Timestamp is required", "timestamp")
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if strings.TrimSpace(re.Description) == "" {
		return NewValidationError("Description is required", "description")
	}
	if len(re.Description) > MaxDescriptionLen {
		return NewValidationError("Description too long (max 500 characters)", "description")
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if !re.Frequency.Valid() {
		return NewValidationError("Frequency must be daily, weekly, or monthly", "frequency")
	}
	if re.StartDate.IsZero() {
		return NewValidationError("Start date is required", "start_date")
	}
	return nil
}

package services

import (
	"context"
	"testing"

	"sprout/internal/core"
)

func TestPreferencesService_DailyLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("default created lazily", func(t *testing.T) {
		limit := env.prefs.DailyLimit(ctx, env.userID)
		if limit != core.DefaultDailyLimit {
			t.Errorf("DailyLimit() = %v, want default %v", limit, core.DefaultDailyLimit)
		}
		prefs, err := env.repo.GetPreferences(ctx, env.userID)
		if err != nil {
			t.Fatalf("preference row not created: %v", err)
		}
		if prefs.DailyLimit != core.DefaultDailyLimit {
			t.Errorf("stored limit = %v, want default", prefs.DailyLimit)
		}
	})

	t.Run("cached read survives an out-of-band write", func(t *testing.T) {
		if err := env.repo.SetDailyLimit(ctx, env.userID, core.Money{Cents: 9999}); err != nil {
			t.Fatalf("SetDailyLimit() error = %v", err)
		}
		if limit := env.prefs.DailyLimit(ctx, env.userID); limit != core.DefaultDailyLimit {
			t.Errorf("DailyLimit() = %v, want cached default", limit)
		}
	})

	t.Run("service write refreshes the cache", func(t *testing.T) {
		if err := env.prefs.SetDailyLimit(ctx, env.userID, core.Money{Cents: 4550}); err != nil {
			t.Fatalf("SetDailyLimit() error = %v", err)
		}
		if limit := env.prefs.DailyLimit(ctx, env.userID); limit.Cents != 4550 {
			t.Errorf("DailyLimit() = %v, want 45.50", limit)
		}
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		err := env.prefs.SetDailyLimit(ctx, env.userID, core.Money{Cents: -100})
		assertValidationError(t, err, "daily_limit must be positive")
	})
}

func TestPreferencesService_Today(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	today, err := env.prefs.Today(ctx, env.userID)
	if err != nil {
		t.Fatalf("Today() error = %v", err)
	}
	if !today.Equal(testToday) {
		t.Errorf("Today() = %s, want real day %s", today, testToday)
	}

	simulated := core.NewDate(2024, 2, 1)
	if err := env.repo.SetSimulatedDate(ctx, env.userID, &simulated); err != nil {
		t.Fatalf("SetSimulatedDate() error = %v", err)
	}
	today, err = env.prefs.Today(ctx, env.userID)
	if err != nil {
		t.Fatalf("Today() error = %v", err)
	}
	if !today.Equal(simulated) {
		t.Errorf("Today() = %s, want simulated %s", today, simulated)
	}

	got, err := env.prefs.SimulatedDate(ctx, env.userID)
	if err != nil {
		t.Fatalf("SimulatedDate() error = %v", err)
	}
	if got == nil || !got.Equal(simulated) {
		t.Errorf("SimulatedDate() = %v, want %s", got, simulated)
	}
}

func TestPreferencesService_RequireCategories(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	required, err := env.prefs.RequireCategories(ctx, env.userID)
	if err != nil {
		t.Fatalf("RequireCategories() error = %v", err)
	}
	if !required {
		t.Error("RequireCategories() = false, want default true")
	}

	if err := env.prefs.SetRequireCategories(ctx, env.userID, false); err != nil {
		t.Fatalf("SetRequireCategories() error = %v", err)
	}
	required, err = env.prefs.RequireCategories(ctx, env.userID)
	if err != nil {
		t.Fatalf("RequireCategories() error = %v", err)
	}
	if required {
		t.Error("RequireCategories() = true after disabling")
	}
}

func TestPreferencesService_RolloverEnabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if env.prefs.RolloverEnabled(ctx, env.userID) {
		t.Error("RolloverEnabled() = true, want default false")
	}
	if err := env.prefs.SetRolloverEnabled(ctx, env.userID, true); err != nil {
		t.Fatalf("SetRolloverEnabled() error = %v", err)
	}
	if !env.prefs.RolloverEnabled(ctx, env.userID) {
		t.Error("RolloverEnabled() = false after enabling")
	}
}

func TestPreferencesService_Projections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.addExpense(t, at(testToday, 10, 0), 1000, "Today", nil)
	env.addExpense(t, at(testToday.AddDays(-3), 10, 0), 2000, "This week", nil)
	env.addExpense(t, at(testToday.AddDays(-20), 10, 0), 500, "This month", nil)
	env.addExpense(t, at(testToday.AddDays(-100), 10, 0), 700, "This year", nil)

	got, err := env.prefs.Projections(ctx, env.userID)
	if err != nil {
		t.Fatalf("Projections() error = %v", err)
	}

	if got.DailyLimit != core.DefaultDailyLimit {
		t.Errorf("DailyLimit = %v, want default", got.DailyLimit)
	}

	tests := []struct {
		name        string
		projection  BudgetProjection
		wantBudget  int64
		wantSpent   int64
		wantPercent float64
	}{
		{"weekly", got.Weekly, 21000, 3000, 14.3},
		{"monthly", got.Monthly, 90000, 3500, 3.9},
		{"yearly", got.Yearly, 1095000, 4200, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.projection.Budget.Cents != tt.wantBudget {
				t.Errorf("budget = %d, want %d", tt.projection.Budget.Cents, tt.wantBudget)
			}
			if tt.projection.Spent.Cents != tt.wantSpent {
				t.Errorf("spent = %d, want %d", tt.projection.Spent.Cents, tt.wantSpent)
			}
			if tt.projection.PercentageUsed != tt.wantPercent {
				t.Errorf("percentage = %v, want %v", tt.projection.PercentageUsed, tt.wantPercent)
			}
		})
	}
}

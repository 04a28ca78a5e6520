package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sprout/internal/core"
)

func newExpenseService(env *testEnv) *ExpenseService {
	svc := NewExpenseService(env.repo, env.prefs, nil, "expense.export", testLogger())
	svc.now = fixedNow
	return svc
}

func TestExpenseService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newExpenseService(env)

	t.Run("valid expense with category", func(t *testing.T) {
		created, err := svc.Create(ctx, env.userID, core.Money{Cents: 1250}, "  Lunch at the bar  ", refPtr(core.DefaultRef(1)))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID == 0 {
			t.Error("Create() should assign an ID")
		}
		if created.Description != "Lunch at the bar" {
			t.Errorf("description = %q, want trimmed %q", created.Description, "Lunch at the bar")
		}
		if !core.DateOf(created.Timestamp).Equal(testToday) {
			t.Errorf("timestamp day = %s, want %s", core.DateOf(created.Timestamp), testToday)
		}
		if created.Category == nil || *created.Category != core.DefaultRef(1) {
			t.Errorf("category = %v, want default_1", created.Category)
		}
	})

	t.Run("missing category rejected while required", func(t *testing.T) {
		_, err := svc.Create(ctx, env.userID, core.Money{Cents: 500}, "Coffee", nil)
		assertValidationError(t, err, "Category is required")
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, env.userID, core.Money{Cents: 500}, "Coffee", refPtr(core.CustomRef(999)))
		assertValidationError(t, err, "Invalid category")
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, env.userID, core.Money{}, "Free sample", refPtr(core.DefaultRef(1)))
		assertValidationError(t, err, "Amount must be greater than 0")
	})

	t.Run("oversized description rejected", func(t *testing.T) {
		long := strings.Repeat("x", core.MaxDescriptionLen+1)
		_, err := svc.Create(ctx, env.userID, core.Money{Cents: 500}, long, refPtr(core.DefaultRef(1)))
		assertValidationError(t, err, "Description too long (max 500 characters)")
	})

	t.Run("missing category allowed once requirement is off", func(t *testing.T) {
		if err := env.prefs.SetRequireCategories(ctx, env.userID, false); err != nil {
			t.Fatalf("SetRequireCategories() error = %v", err)
		}
		created, err := svc.Create(ctx, env.userID, core.Money{Cents: 500}, "Coffee", nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.Category != nil {
			t.Errorf("category = %v, want nil", created.Category)
		}
	})
}

func TestExpenseService_Create_SimulatedDate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newExpenseService(env)

	simulated := core.NewDate(2024, 3, 1)
	if err := env.repo.SetSimulatedDate(ctx, env.userID, &simulated); err != nil {
		t.Fatalf("SetSimulatedDate() error = %v", err)
	}

	created, err := svc.Create(ctx, env.userID, core.Money{Cents: 800}, "Groceries", refPtr(core.DefaultRef(1)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !core.DateOf(created.Timestamp).Equal(simulated) {
		t.Errorf("timestamp day = %s, want simulated %s", core.DateOf(created.Timestamp), simulated)
	}
	// The time of day still comes from the wall clock.
	if created.Timestamp.Hour() != 14 || created.Timestamp.Minute() != 30 {
		t.Errorf("time of day = %02d:%02d, want 14:30", created.Timestamp.Hour(), created.Timestamp.Minute())
	}
}

func TestExpenseService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newExpenseService(env)

	original, err := svc.Create(ctx, env.userID, core.Money{Cents: 1000}, "Cinema", refPtr(core.DefaultRef(5)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("replaces amount description and category", func(t *testing.T) {
		updated, err := svc.Update(ctx, env.userID, original.ID, core.Money{Cents: 1450}, " Cinema and popcorn ", refPtr(core.DefaultRef(1)))
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Amount.Cents != 1450 {
			t.Errorf("amount = %d, want 1450", updated.Amount.Cents)
		}
		if updated.Description != "Cinema and popcorn" {
			t.Errorf("description = %q, want trimmed replacement", updated.Description)
		}
		if updated.Category == nil || *updated.Category != core.DefaultRef(1) {
			t.Errorf("category = %v, want default_1", updated.Category)
		}
		if !updated.Timestamp.Equal(original.Timestamp) {
			t.Errorf("timestamp changed from %v to %v", original.Timestamp, updated.Timestamp)
		}

		stored, err := env.repo.ExpenseByID(ctx, env.userID, original.ID)
		if err != nil {
			t.Fatalf("ExpenseByID() error = %v", err)
		}
		if stored.Amount.Cents != 1450 {
			t.Errorf("stored amount = %d, want 1450", stored.Amount.Cents)
		}
	})

	t.Run("unknown expense reports not found", func(t *testing.T) {
		_, err := svc.Update(ctx, env.userID, 9999, core.Money{Cents: 100}, "Ghost", nil)
		if !core.IsNotFound(err) {
			t.Errorf("Update() error = %v, want not found", err)
		}
	})

	t.Run("foreign expense reports not found", func(t *testing.T) {
		other, err := env.repo.CreateUser(ctx, "intruder@example.com", "not-a-real-hash")
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		_, err = svc.Update(ctx, other.ID, original.ID, core.Money{Cents: 100}, "Mine now", nil)
		if !core.IsNotFound(err) {
			t.Errorf("Update() error = %v, want not found", err)
		}
	})

	t.Run("invalid category rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, env.userID, original.ID, core.Money{Cents: 100}, "Cinema", refPtr(core.CustomRef(999)))
		assertValidationError(t, err, "Invalid category")
	})
}

func TestExpenseService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newExpenseService(env)

	created, err := svc.Create(ctx, env.userID, core.Money{Cents: 700}, "Bus ticket", refPtr(core.DefaultRef(2)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, env.userID, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.repo.ExpenseByID(ctx, env.userID, created.ID); !core.IsNotFound(err) {
		t.Errorf("expense still readable after delete, err = %v", err)
	}
	if err := svc.Delete(ctx, env.userID, created.ID); !core.IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestExpenseService_ListDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newExpenseService(env)

	morning := env.addExpense(t, at(testToday, 9, 0), 300, "Espresso", nil)
	noon := env.addExpense(t, at(testToday, 12, 30), 1200, "Lunch", nil)
	env.addExpense(t, at(testToday.AddDays(-1), 20, 0), 2500, "Dinner out", nil)

	today, err := svc.ListDay(ctx, env.userID, 0)
	if err != nil {
		t.Fatalf("ListDay() error = %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("ListDay() returned %d expenses, want 2", len(today))
	}
	if today[0].ID != noon.ID || today[1].ID != morning.ID {
		t.Errorf("ListDay() order = [%d %d], want newest first [%d %d]",
			today[0].ID, today[1].ID, noon.ID, morning.ID)
	}

	yesterday, err := svc.ListDay(ctx, env.userID, -1)
	if err != nil {
		t.Fatalf("ListDay(-1) error = %v", err)
	}
	if len(yesterday) != 1 || yesterday[0].Description != "Dinner out" {
		t.Errorf("ListDay(-1) = %v, want the single dinner expense", yesterday)
	}
}

func TestExpenseService_History(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newExpenseService(env)

	env.addExpense(t, at(testToday, 9, 0), 300, "Espresso", refPtr(core.DefaultRef(1)))
	env.addExpense(t, at(testToday, 19, 0), 1500, "Takeaway", nil)
	env.addExpense(t, at(testToday.AddDays(-1), 12, 0), 900, "Sandwich", nil)
	env.addExpense(t, at(testToday.AddDays(-6), 8, 0), 450, "Pastry", nil)
	env.addExpense(t, at(testToday.AddDays(-8), 10, 0), 9999, "Outside the window", nil)

	t.Run("default window groups by day newest first", func(t *testing.T) {
		days := svc.History(ctx, env.userID, 0, 0, nil)
		if len(days) != 3 {
			t.Fatalf("History() returned %d days, want 3", len(days))
		}
		if !days[0].Date.Equal(testToday) || !days[1].Date.Equal(testToday.AddDays(-1)) || !days[2].Date.Equal(testToday.AddDays(-6)) {
			t.Errorf("day order = [%s %s %s], want newest first", days[0].Date, days[1].Date, days[2].Date)
		}
		if len(days[0].Expenses) != 2 {
			t.Errorf("today has %d expenses, want 2", len(days[0].Expenses))
		}
		for _, day := range days {
			for _, e := range day.Expenses {
				if !core.DateOf(e.Timestamp).Equal(day.Date) {
					t.Errorf("expense %d grouped under %s but belongs to %s", e.ID, day.Date, core.DateOf(e.Timestamp))
				}
			}
		}
	})

	t.Run("short period narrows the window", func(t *testing.T) {
		days := svc.History(ctx, env.userID, 0, 2, nil)
		if len(days) != 2 {
			t.Fatalf("History(period=2) returned %d days, want 2", len(days))
		}
	})

	t.Run("category filter", func(t *testing.T) {
		days := svc.History(ctx, env.userID, 0, 7, refPtr(core.DefaultRef(1)))
		if len(days) != 1 || len(days[0].Expenses) != 1 {
			t.Fatalf("History(category) = %v, want one day with one expense", days)
		}
		if days[0].Expenses[0].Description != "Espresso" {
			t.Errorf("filtered expense = %q, want Espresso", days[0].Expenses[0].Description)
		}
	})
}

// assertValidationError checks err is a ValidationError carrying the message.
func assertValidationError(t *testing.T, err error, message string) {
	t.Helper()
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError %q", err, message)
	}
	if ve.Message != message {
		t.Errorf("validation message = %q, want %q", ve.Message, message)
	}
}

package services

import (
	"context"
	"testing"

	"sprout/internal/core"
)

func newSummaryService(env *testEnv) *SummaryService {
	return NewSummaryService(env.repo, env.prefs, env.prefs, testLogger())
}

func TestSummaryService_Summary_UntouchedWeek(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newSummaryService(env)

	got := svc.Summary(ctx, env.userID, 0)
	if got.Balance != core.DefaultDailyLimit {
		t.Errorf("Balance = %v, want full limit", got.Balance)
	}
	if got.Avg7 != float64(core.DefaultDailyLimit.Cents) {
		t.Errorf("Avg7 = %v, want %v", got.Avg7, float64(core.DefaultDailyLimit.Cents))
	}
	if got.State != core.PlantThriving {
		t.Errorf("State = %s, want thriving", got.State)
	}
}

func TestSummaryService_Summary_States(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		seed        func(t *testing.T, env *testEnv)
		wantBalance int64
		wantState   core.PlantState
	}{
		{
			name: "mild overspend wilts",
			seed: func(t *testing.T, env *testEnv) {
				env.addExpense(t, at(testToday, 12, 0), 3200, "Shoes", nil)
			},
			wantBalance: -200,
			wantState:   core.PlantWilting,
		},
		{
			name: "deep overspend kills",
			seed: func(t *testing.T, env *testEnv) {
				env.addExpense(t, at(testToday, 12, 0), 3600, "Concert", nil)
			},
			wantBalance: -600,
			wantState:   core.PlantDead,
		},
		{
			name: "positive day after a bad week struggles",
			seed: func(t *testing.T, env *testEnv) {
				for daysAgo := 1; daysAgo <= 3; daysAgo++ {
					env.addExpense(t, at(testToday.AddDays(-daysAgo), 12, 0), 8000, "Bad day", nil)
				}
				env.addExpense(t, at(testToday, 12, 0), 2500, "Modest day", nil)
			},
			wantBalance: 500,
			wantState:   core.PlantStruggling,
		},
		{
			name: "small surplus stays healthy",
			seed: func(t *testing.T, env *testEnv) {
				env.addExpense(t, at(testToday, 12, 0), 2500, "Groceries", nil)
			},
			wantBalance: 500,
			wantState:   core.PlantHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			svc := newSummaryService(env)
			tt.seed(t, env)

			got := svc.Summary(ctx, env.userID, 0)
			if got.Balance.Cents != tt.wantBalance {
				t.Errorf("Balance = %d, want %d", got.Balance.Cents, tt.wantBalance)
			}
			if got.State != tt.wantState {
				t.Errorf("State = %s, want %s", got.State, tt.wantState)
			}
		})
	}
}

func TestSummaryService_Summary_Offset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newSummaryService(env)

	overspent := testToday.AddDays(-2)
	env.addExpense(t, at(overspent, 12, 0), 3200, "Shoes", nil)

	back := svc.Summary(ctx, env.userID, -2)
	if back.Balance.Cents != -200 {
		t.Errorf("Summary(-2).Balance = %d, want -200", back.Balance.Cents)
	}

	// Two days later the overspend only drags the average.
	now := svc.Summary(ctx, env.userID, 0)
	if now.Balance != core.DefaultDailyLimit {
		t.Errorf("Summary(0).Balance = %v, want full limit", now.Balance)
	}
	wantAvg := float64(6*core.DefaultDailyLimit.Cents-200) / core.SummaryWindowDays
	if now.Avg7 != wantAvg {
		t.Errorf("Summary(0).Avg7 = %v, want %v", now.Avg7, wantAvg)
	}
}

func TestSummaryService_Summary_StorageFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newSummaryService(env)

	// A dead database must still produce a friendly dashboard.
	if err := env.repo.Close(); err != nil {
		t.Fatalf("close repository: %v", err)
	}

	got := svc.Summary(ctx, env.userID, 0)
	want := core.DefaultSummary()
	if got != want {
		t.Errorf("Summary() = %+v, want safe default %+v", got, want)
	}
}

func TestSummaryService_Summary_SimulatedDate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newSummaryService(env)

	simulated := testToday.AddDays(30)
	if err := env.repo.SetSimulatedDate(ctx, env.userID, &simulated); err != nil {
		t.Fatalf("SetSimulatedDate() error = %v", err)
	}
	env.addExpense(t, at(simulated, 12, 0), 3200, "Future shoes", nil)

	got := svc.Summary(ctx, env.userID, 0)
	if got.Balance.Cents != -200 {
		t.Errorf("Balance = %d, want -200 on the simulated day", got.Balance.Cents)
	}
}

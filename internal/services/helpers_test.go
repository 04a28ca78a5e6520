package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"sprout/internal/cache"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// testNow pins the wall clock for day-relative tests: a Friday afternoon.
var testNow = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

var testToday = core.DateOf(testNow)

func fixedNow() time.Time { return testNow }

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// testEnv wires a preferences service against an in-memory database with one
// seeded user, the way main assembles the real thing.
type testEnv struct {
	repo   *storage.Repository
	prefs  *PreferencesService
	userID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := storage.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(context.Background(), "gardener@example.com", "not-a-real-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	prefs := NewPreferencesService(repo, cache.NewLRUCache[core.Money](16, time.Hour), testLogger())
	prefs.now = fixedNow

	return &testEnv{repo: repo, prefs: prefs, userID: user.ID}
}

// at places a time of day on a calendar day, so seeded expenses get distinct
// timestamps inside the same day.
func at(day core.Date, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}

// addExpense inserts an expense directly, bypassing service-level checks.
func (env *testEnv) addExpense(t *testing.T, ts time.Time, cents int64, description string, category *core.CategoryRef) core.Expense {
	t.Helper()
	e, err := env.repo.CreateExpense(context.Background(), core.Expense{
		UserID:      env.userID,
		Amount:      core.Money{Cents: cents},
		Description: description,
		Category:    category,
		Timestamp:   ts,
	})
	if err != nil {
		t.Fatalf("insert expense: %v", err)
	}
	return e
}

func refPtr(ref core.CategoryRef) *core.CategoryRef {
	return &ref
}

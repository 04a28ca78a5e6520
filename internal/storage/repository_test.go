package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"sprout/internal/core"
)

// RepositoryTestSuite runs every test against a fresh in-memory database
// with migrations applied.
type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
}

func (suite *RepositoryTestSuite) SetupTest() {
	repo, err := NewRepository(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.repo = repo
}

func (suite *RepositoryTestSuite) TearDownTest() {
	if suite.repo != nil {
		suite.repo.Close()
	}
}

func (suite *RepositoryTestSuite) createUser(email string) core.User {
	user, err := suite.repo.CreateUser(context.Background(), email, "bcrypt-hash")
	require.NoError(suite.T(), err, "failed to create test user")
	return user
}

func (suite *RepositoryTestSuite) TestCreateUserRejectsDuplicateEmail() {
	ctx := context.Background()

	user := suite.createUser("ada@example.com")
	assert.NotZero(suite.T(), user.ID)
	assert.Equal(suite.T(), "ada@example.com", user.Email)
	assert.False(suite.T(), user.CreatedAt.IsZero())

	_, err := suite.repo.CreateUser(ctx, "ada@example.com", "other-hash")
	var vErr *core.ValidationError
	require.ErrorAs(suite.T(), err, &vErr)
	assert.Equal(suite.T(), "An account with this email already exists. Please use a different email or try logging in.", vErr.Message)
	assert.Equal(suite.T(), "email", vErr.Field)
}

func (suite *RepositoryTestSuite) TestUserLookup() {
	ctx := context.Background()
	created := suite.createUser("grace@example.com")

	byEmail, err := suite.repo.UserByEmail(ctx, "grace@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, byEmail.ID)
	assert.Equal(suite.T(), "bcrypt-hash", byEmail.PasswordHash)

	byID, err := suite.repo.UserByID(ctx, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "grace@example.com", byID.Email)

	_, err = suite.repo.UserByEmail(ctx, "nobody@example.com")
	assert.True(suite.T(), core.IsNotFound(err))
	_, err = suite.repo.UserByID(ctx, 9999)
	assert.True(suite.T(), core.IsNotFound(err))
}

func (suite *RepositoryTestSuite) TestUpdatePasswordAndListUserIDs() {
	ctx := context.Background()
	first := suite.createUser("first@example.com")
	second := suite.createUser("second@example.com")

	require.NoError(suite.T(), suite.repo.UpdatePassword(ctx, first.ID, "new-hash"))
	updated, err := suite.repo.UserByID(ctx, first.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "new-hash", updated.PasswordHash)

	err = suite.repo.UpdatePassword(ctx, 9999, "whatever")
	assert.True(suite.T(), core.IsNotFound(err))

	ids, err := suite.repo.ListUserIDs(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []int64{first.ID, second.ID}, ids)
}

func (suite *RepositoryTestSuite) TestSessionLifecycle() {
	ctx := context.Background()
	user := suite.createUser("sess@example.com")

	err := suite.repo.CreateSession(ctx, "tok_live", user.ID, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)

	session, err := suite.repo.SessionByToken(ctx, "tok_live")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, session.UserID)
	assert.Equal(suite.T(), "sess@example.com", session.Email)

	require.NoError(suite.T(), suite.repo.RenewSession(ctx, "tok_live", time.Now().Add(48*time.Hour)))
	renewed, err := suite.repo.SessionByToken(ctx, "tok_live")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), renewed.ExpiresAt.After(session.ExpiresAt), "renewal should push expiry forward")

	err = suite.repo.RenewSession(ctx, "tok_missing", time.Now().Add(time.Hour))
	assert.True(suite.T(), core.IsNotFound(err))

	require.NoError(suite.T(), suite.repo.DeleteSession(ctx, "tok_live"))
	_, err = suite.repo.SessionByToken(ctx, "tok_live")
	assert.True(suite.T(), core.IsNotFound(err))
}

func (suite *RepositoryTestSuite) TestExpiredSessionsAreInvisible() {
	ctx := context.Background()
	user := suite.createUser("expired@example.com")

	require.NoError(suite.T(), suite.repo.CreateSession(ctx, "tok_dead", user.ID, time.Now().Add(-time.Hour)))
	require.NoError(suite.T(), suite.repo.CreateSession(ctx, "tok_alive", user.ID, time.Now().Add(time.Hour)))

	_, err := suite.repo.SessionByToken(ctx, "tok_dead")
	assert.True(suite.T(), core.IsNotFound(err), "expired session should not resolve")

	purged, err := suite.repo.DeleteExpiredSessions(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), purged)

	_, err = suite.repo.SessionByToken(ctx, "tok_alive")
	assert.NoError(suite.T(), err)
}

func (suite *RepositoryTestSuite) TestExpenseCRUDIsUserScoped() {
	ctx := context.Background()
	owner := suite.createUser("owner@example.com")
	stranger := suite.createUser("stranger@example.com")

	food := core.DefaultRef(1)
	timestamp := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	created, err := suite.repo.CreateExpense(ctx, core.Expense{
		UserID:      owner.ID,
		Amount:      core.Money{Cents: 1250},
		Description: "lunch",
		Category:    &food,
		Timestamp:   timestamp,
	})
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), created.ID)

	got, err := suite.repo.ExpenseByID(ctx, owner.ID, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1250), got.Amount.Cents)
	assert.Equal(suite.T(), "lunch", got.Description)
	require.NotNil(suite.T(), got.Category)
	assert.Equal(suite.T(), "default_1", got.Category.String())
	assert.True(suite.T(), got.Timestamp.Equal(timestamp))

	_, err = suite.repo.ExpenseByID(ctx, stranger.ID, created.ID)
	assert.True(suite.T(), core.IsNotFound(err), "expenses must not leak across users")

	created.Amount = core.Money{Cents: 1500}
	created.Description = "late lunch"
	created.Category = nil
	require.NoError(suite.T(), suite.repo.UpdateExpense(ctx, created))
	updated, err := suite.repo.ExpenseByID(ctx, owner.ID, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1500), updated.Amount.Cents)
	assert.Nil(suite.T(), updated.Category)

	foreign := created
	foreign.UserID = stranger.ID
	assert.True(suite.T(), core.IsNotFound(suite.repo.UpdateExpense(ctx, foreign)))
	assert.True(suite.T(), core.IsNotFound(suite.repo.DeleteExpense(ctx, stranger.ID, created.ID)))

	require.NoError(suite.T(), suite.repo.DeleteExpense(ctx, owner.ID, created.ID))
	_, err = suite.repo.ExpenseByID(ctx, owner.ID, created.ID)
	assert.True(suite.T(), core.IsNotFound(err))
}

func (suite *RepositoryTestSuite) addExpense(userID int64, amountCents int64, description string, category *core.CategoryRef, at time.Time) core.Expense {
	e, err := suite.repo.CreateExpense(context.Background(), core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: amountCents},
		Description: description,
		Category:    category,
		Timestamp:   at,
	})
	require.NoError(suite.T(), err, "failed to create test expense")
	return e
}

func (suite *RepositoryTestSuite) TestListExpensesWindowIsHalfOpen() {
	ctx := context.Background()
	user := suite.createUser("window@example.com")
	day := core.NewDate(2025, time.June, 15)
	start, end := day.Bounds()

	transport := core.DefaultRef(2)
	suite.addExpense(user.ID, 100, "previous day", nil, start.Add(-time.Second))
	suite.addExpense(user.ID, 200, "first of day", nil, start)
	suite.addExpense(user.ID, 300, "last of day", &transport, end.Add(-time.Second))
	suite.addExpense(user.ID, 400, "next day", nil, end)

	expenses, err := suite.repo.ListExpenses(ctx, user.ID, start, end, nil)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 2)
	assert.Equal(suite.T(), "last of day", expenses[0].Description, "newest first")
	assert.Equal(suite.T(), "first of day", expenses[1].Description)

	filtered, err := suite.repo.ListExpenses(ctx, user.ID, start, end, &transport)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), filtered, 1)
	assert.Equal(suite.T(), "last of day", filtered[0].Description)

	spent, err := suite.repo.SpentInRange(ctx, user.ID, start, end)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(500), spent.Cents)

	empty, err := suite.repo.SpentInRange(ctx, user.ID, end.AddDate(0, 0, 5), end.AddDate(0, 0, 6))
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), empty.Cents, "empty window sums to zero")
}

func (suite *RepositoryTestSuite) TestDailySpendingGroupsByCalendarDay() {
	ctx := context.Background()
	user := suite.createUser("daily@example.com")

	day1 := core.NewDate(2025, time.June, 10)
	day2 := day1.AddDays(1)
	day4 := day1.AddDays(3)
	suite.addExpense(user.ID, 500, "coffee", nil, day1.At(time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)))
	suite.addExpense(user.ID, 700, "lunch", nil, day1.At(time.Date(0, 1, 1, 13, 0, 0, 0, time.UTC)))
	suite.addExpense(user.ID, 900, "dinner", nil, day2.At(time.Date(0, 1, 1, 20, 0, 0, 0, time.UTC)))
	suite.addExpense(user.ID, 1100, "groceries", nil, day4.At(time.Date(0, 1, 1, 11, 0, 0, 0, time.UTC)))

	start, _ := day1.Bounds()
	_, end := day4.Bounds()
	days, err := suite.repo.DailySpending(ctx, user.ID, start, end)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), days, 3, "days without spending are absent")

	assert.True(suite.T(), days[0].Day.Equal(day1))
	assert.Equal(suite.T(), int64(1200), days[0].SpentCents)
	assert.Equal(suite.T(), 2, days[0].Count)
	assert.True(suite.T(), days[1].Day.Equal(day2))
	assert.Equal(suite.T(), int64(900), days[1].SpentCents)
	assert.True(suite.T(), days[2].Day.Equal(day4))
}

func (suite *RepositoryTestSuite) TestCategorySpendingOrdersByTotal() {
	ctx := context.Background()
	user := suite.createUser("breakdown@example.com")

	food := core.DefaultRef(1)
	transport := core.DefaultRef(2)
	day := core.NewDate(2025, time.June, 20)
	noon := day.At(time.Date(0, 1, 1, 12, 0, 0, 0, time.UTC))
	suite.addExpense(user.ID, 2000, "dinner", &food, noon)
	suite.addExpense(user.ID, 1000, "brunch", &food, noon.Add(time.Minute))
	suite.addExpense(user.ID, 500, "bus", &transport, noon.Add(2*time.Minute))
	suite.addExpense(user.ID, 200, "misc", nil, noon.Add(3*time.Minute))

	start, end := day.Bounds()
	breakdown, err := suite.repo.CategorySpending(ctx, user.ID, start, end)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), breakdown, 3)

	require.NotNil(suite.T(), breakdown[0].Category)
	assert.Equal(suite.T(), "default_1", breakdown[0].Category.String())
	assert.Equal(suite.T(), int64(3000), breakdown[0].SpentCents)
	assert.Equal(suite.T(), 2, breakdown[0].Count)

	require.NotNil(suite.T(), breakdown[1].Category)
	assert.Equal(suite.T(), "default_2", breakdown[1].Category.String())

	assert.Nil(suite.T(), breakdown[2].Category, "uncategorized spending groups under nil")
	assert.Equal(suite.T(), int64(200), breakdown[2].SpentCents)
}

func (suite *RepositoryTestSuite) TestClearCategoryRefs() {
	ctx := context.Background()
	user := suite.createUser("detach@example.com")

	shopping := core.DefaultRef(3)
	other := core.DefaultRef(7)
	at := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	first := suite.addExpense(user.ID, 100, "socks", &shopping, at)
	second := suite.addExpense(user.ID, 200, "shoes", &shopping, at.Add(time.Minute))
	keep := suite.addExpense(user.ID, 300, "misc", &other, at.Add(2*time.Minute))

	cleared, err := suite.repo.ClearCategoryRefs(ctx, user.ID, shopping)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), cleared)

	for _, id := range []int64{first.ID, second.ID} {
		got, err := suite.repo.ExpenseByID(ctx, user.ID, id)
		require.NoError(suite.T(), err)
		assert.Nil(suite.T(), got.Category)
	}
	kept, err := suite.repo.ExpenseByID(ctx, user.ID, keep.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), kept.Category)
	assert.Equal(suite.T(), "default_7", kept.Category.String())
}

func (suite *RepositoryTestSuite) TestListCategoriesSeedsDefaults() {
	ctx := context.Background()
	user := suite.createUser("cats@example.com")

	categories, err := suite.repo.ListCategories(ctx, user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), categories, 7)

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
		assert.Equal(suite.T(), core.CategoryDefault, c.Ref.Kind)
		assert.False(suite.T(), c.CreatedAt.IsZero())
	}
	assert.Equal(suite.T(), []string{
		"Bills & Utilities", "Entertainment", "Food & Dining",
		"Health & Fitness", "Other", "Shopping", "Transportation",
	}, names, "categories are listed name-ascending")

	food, err := suite.repo.CategoryByRef(ctx, user.ID, core.DefaultRef(1))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Food & Dining", food.Name)
	assert.Equal(suite.T(), "🍽️", food.Icon)
	assert.Equal(suite.T(), "#FF6B6B", food.Color)
}

func (suite *RepositoryTestSuite) TestCustomCategoryLifecycle() {
	ctx := context.Background()
	owner := suite.createUser("custom@example.com")
	neighbor := suite.createUser("neighbor@example.com")

	coffee, err := suite.repo.CreateCustomCategory(ctx, owner.ID, "Coffee", "☕", "#8B4513", core.Money{Cents: 500})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), core.CategoryCustom, coffee.Ref.Kind)
	assert.Equal(suite.T(), "Coffee", coffee.Name)
	assert.Equal(suite.T(), int64(500), coffee.DailyBudget.Cents)

	_, err = suite.repo.CreateCustomCategory(ctx, owner.ID, "Coffee", "☕", "#8B4513", core.Money{})
	var vErr *core.ValidationError
	require.ErrorAs(suite.T(), err, &vErr)
	assert.Equal(suite.T(), "A category with this name already exists", vErr.Message)

	_, err = suite.repo.CreateCustomCategory(ctx, neighbor.ID, "Coffee", "☕", "#8B4513", core.Money{})
	assert.NoError(suite.T(), err, "name uniqueness is per user")

	_, err = suite.repo.CategoryByRef(ctx, neighbor.ID, coffee.Ref)
	assert.True(suite.T(), core.IsNotFound(err), "custom categories are private")

	all, err := suite.repo.ListCategories(ctx, owner.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 8)

	deleted, err := suite.repo.DeleteCustomCategory(ctx, owner.ID, coffee.Ref.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Coffee", deleted.Name)

	_, err = suite.repo.DeleteCustomCategory(ctx, owner.ID, coffee.Ref.ID)
	assert.True(suite.T(), core.IsNotFound(err))

	all, err = suite.repo.ListCategories(ctx, owner.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 7)
}

func (suite *RepositoryTestSuite) TestCategoryBudgetOverride() {
	ctx := context.Background()
	user := suite.createUser("budget@example.com")
	neighbor := suite.createUser("unaffected@example.com")
	food := core.DefaultRef(1)

	require.NoError(suite.T(), suite.repo.UpsertCategoryBudget(ctx, user.ID, food, core.Money{Cents: 2500}))
	got, err := suite.repo.CategoryByRef(ctx, user.ID, food)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2500), got.DailyBudget.Cents)

	categories, err := suite.repo.ListCategories(ctx, user.ID)
	require.NoError(suite.T(), err)
	for _, c := range categories {
		if c.Ref == food {
			assert.Equal(suite.T(), int64(2500), c.DailyBudget.Cents, "override applies in listing")
		}
	}

	other, err := suite.repo.CategoryByRef(ctx, neighbor.ID, food)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), other.DailyBudget.Cents, "overrides are per user")

	require.NoError(suite.T(), suite.repo.UpsertCategoryBudget(ctx, user.ID, food, core.Money{Cents: 1800}))
	got, err = suite.repo.CategoryByRef(ctx, user.ID, food)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1800), got.DailyBudget.Cents)
}

func (suite *RepositoryTestSuite) TestPreferencesUpsertFieldsIndependently() {
	ctx := context.Background()
	user := suite.createUser("prefs@example.com")

	_, err := suite.repo.GetPreferences(ctx, user.ID)
	assert.True(suite.T(), core.IsNotFound(err), "no row until something is set")

	require.NoError(suite.T(), suite.repo.SetDailyLimit(ctx, user.ID, core.Money{Cents: 4500}))
	prefs, err := suite.repo.GetPreferences(ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(4500), prefs.DailyLimit.Cents)
	assert.True(suite.T(), prefs.RequireCategories, "schema default")
	assert.False(suite.T(), prefs.RolloverEnabled, "schema default")
	assert.Nil(suite.T(), prefs.SimulatedDate)

	require.NoError(suite.T(), suite.repo.SetRolloverEnabled(ctx, user.ID, true))
	require.NoError(suite.T(), suite.repo.SetRequireCategories(ctx, user.ID, false))
	prefs, err = suite.repo.GetPreferences(ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(4500), prefs.DailyLimit.Cents, "later setters keep the limit")
	assert.True(suite.T(), prefs.RolloverEnabled)
	assert.False(suite.T(), prefs.RequireCategories)
}

func (suite *RepositoryTestSuite) TestSimulatedDateRoundTrip() {
	ctx := context.Background()
	user := suite.createUser("sim@example.com")

	pinned := core.NewDate(2025, time.March, 1)
	require.NoError(suite.T(), suite.repo.SetSimulatedDate(ctx, user.ID, &pinned))
	prefs, err := suite.repo.GetPreferences(ctx, user.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), prefs.SimulatedDate)
	assert.True(suite.T(), prefs.SimulatedDate.Equal(pinned))

	require.NoError(suite.T(), suite.repo.SetSimulatedDate(ctx, user.ID, nil))
	prefs, err = suite.repo.GetPreferences(ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), prefs.SimulatedDate)
}

func (suite *RepositoryTestSuite) TestRolloverUpsertOverwrites() {
	ctx := context.Background()
	user := suite.createUser("rollover@example.com")
	day := core.NewDate(2025, time.June, 16)

	require.NoError(suite.T(), suite.repo.UpsertRollover(ctx, core.DailyRollover{
		UserID:         user.ID,
		Date:           day,
		BaseDailyLimit: core.Money{Cents: 3000},
		AmountSpent:    core.Money{Cents: 1200},
		RolloverAmount: core.Money{Cents: 1800},
	}))
	got, err := suite.repo.RolloverByDate(ctx, user.ID, day)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1800), got.RolloverAmount.Cents)
	assert.Equal(suite.T(), int64(1200), got.AmountSpent.Cents)

	// Reprocessing the same transition replaces the snapshot.
	require.NoError(suite.T(), suite.repo.UpsertRollover(ctx, core.DailyRollover{
		UserID:         user.ID,
		Date:           day,
		BaseDailyLimit: core.Money{Cents: 3000},
		AmountSpent:    core.Money{Cents: 2100},
		RolloverAmount: core.Money{Cents: 900},
	}))
	got, err = suite.repo.RolloverByDate(ctx, user.ID, day)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(900), got.RolloverAmount.Cents)

	_, err = suite.repo.RolloverByDate(ctx, user.ID, day.AddDays(1))
	assert.True(suite.T(), core.IsNotFound(err))
}

func (suite *RepositoryTestSuite) TestRolloverHistoryRangeNewestFirst() {
	ctx := context.Background()
	user := suite.createUser("history@example.com")

	base := core.NewDate(2025, time.June, 10)
	for _, offset := range []int{-5, 0, 1, 2} {
		day := base.AddDays(offset)
		require.NoError(suite.T(), suite.repo.UpsertRollover(ctx, core.DailyRollover{
			UserID:         user.ID,
			Date:           day,
			BaseDailyLimit: core.Money{Cents: 3000},
			RolloverAmount: core.Money{Cents: int64(100 * (offset + 6))},
		}))
	}

	history, err := suite.repo.RolloverHistory(ctx, user.ID, base, base.AddDays(2))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), history, 3, "range is inclusive and bounded")
	assert.True(suite.T(), history[0].Date.Equal(base.AddDays(2)))
	assert.True(suite.T(), history[2].Date.Equal(base))
}

func (suite *RepositoryTestSuite) TestRecurringExpenseLifecycle() {
	ctx := context.Background()
	user := suite.createUser("recurring@example.com")
	other := suite.createUser("recurring2@example.com")

	entertainment := core.DefaultRef(5)
	created, err := suite.repo.CreateRecurringExpense(ctx, core.RecurringExpense{
		UserID:      user.ID,
		Description: "Gym membership",
		Amount:      core.Money{Cents: 4999},
		Category:    &entertainment,
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2025, time.January, 15),
		Active:      true,
	})
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), created.ID)
	assert.True(suite.T(), created.LastRun.IsZero(), "never processed yet")
	assert.False(suite.T(), created.CreatedAt.IsZero())

	ran := core.NewDate(2025, time.February, 15)
	require.NoError(suite.T(), suite.repo.SetRecurringLastRun(ctx, created.ID, ran))
	got, err := suite.repo.RecurringByID(ctx, user.ID, created.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.LastRun.Equal(ran))

	paused, err := suite.repo.CreateRecurringExpense(ctx, core.RecurringExpense{
		UserID:      user.ID,
		Description: "Paused subscription",
		Amount:      core.Money{Cents: 999},
		Frequency:   core.Weekly,
		StartDate:   core.NewDate(2025, time.January, 1),
		Active:      false,
	})
	require.NoError(suite.T(), err)

	active, err := suite.repo.ListRecurring(ctx, user.ID, true)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), active, 1)
	all, err := suite.repo.ListRecurring(ctx, user.ID, false)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)

	_, err = suite.repo.CreateRecurringExpense(ctx, core.RecurringExpense{
		UserID:      other.ID,
		Description: "Rent",
		Amount:      core.Money{Cents: 80000},
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2025, time.January, 1),
		Active:      true,
	})
	require.NoError(suite.T(), err)
	everywhere, err := suite.repo.ListAllActiveRecurring(ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), everywhere, 2, "active templates across all users")

	got.Description = "Gym membership (annual)"
	got.Active = false
	require.NoError(suite.T(), suite.repo.UpdateRecurring(ctx, got))
	updated, err := suite.repo.RecurringByID(ctx, user.ID, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Gym membership (annual)", updated.Description)
	assert.False(suite.T(), updated.Active)

	foreign := updated
	foreign.UserID = other.ID
	assert.True(suite.T(), core.IsNotFound(suite.repo.UpdateRecurring(ctx, foreign)))
	assert.True(suite.T(), core.IsNotFound(suite.repo.DeleteRecurring(ctx, other.ID, created.ID)))

	require.NoError(suite.T(), suite.repo.DeleteRecurring(ctx, user.ID, created.ID))
	require.NoError(suite.T(), suite.repo.DeleteRecurring(ctx, user.ID, paused.ID))
	remaining, err := suite.repo.ListRecurring(ctx, user.ID, false)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), remaining)
}

func (suite *RepositoryTestSuite) TestPasswordResetSingleUse() {
	ctx := context.Background()
	user := suite.createUser("reset@example.com")

	require.NoError(suite.T(), suite.repo.CreatePasswordReset(ctx, "reset_tok", user.ID, time.Now().Add(time.Hour)))
	reset, err := suite.repo.PasswordResetByToken(ctx, "reset_tok")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, reset.UserID)
	assert.False(suite.T(), reset.Used)

	require.NoError(suite.T(), suite.repo.MarkPasswordResetUsed(ctx, "reset_tok"))
	_, err = suite.repo.PasswordResetByToken(ctx, "reset_tok")
	assert.True(suite.T(), core.IsNotFound(err), "used tokens do not resolve")

	require.NoError(suite.T(), suite.repo.CreatePasswordReset(ctx, "stale_tok", user.ID, time.Now().Add(-time.Minute)))
	_, err = suite.repo.PasswordResetByToken(ctx, "stale_tok")
	assert.True(suite.T(), core.IsNotFound(err), "expired tokens do not resolve")
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

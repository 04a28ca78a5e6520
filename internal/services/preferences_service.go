package services

import (
	"context"
	"fmt"
	"time"

	"sprout/internal/cache"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// dailyLimitMaxAge bounds how stale a cached daily limit may be served. The
// cache is invalidated synchronously on writes, so the age only matters for
// writes that bypass this process.
const dailyLimitMaxAge = 10 * time.Minute

// PreferencesService owns the per-user settings row and implements
// core.Clock: a stored simulated date shifts "today" for every day-relative
// operation at once.
type PreferencesService struct {
	storage *storage.Repository
	limits  cache.Cache[core.Money]
	logger  *log.Logger
	now     func() time.Time
}

var _ core.Clock = (*PreferencesService)(nil)

func NewPreferencesService(repo *storage.Repository, limits cache.Cache[core.Money], logger *log.Logger) *PreferencesService {
	return &PreferencesService{
		storage: repo,
		limits:  limits,
		logger:  logger.WithComponent(log.ComponentPreferences),
		now:     time.Now,
	}
}

func limitKey(userID int64) string {
	return fmt.Sprintf("daily_limit_%d", userID)
}

// Today resolves the user's current day: the simulated date when one is set,
// the real UTC date otherwise. Lookup failures fall back to the real date so
// day resolution never blocks a request.
func (s *PreferencesService) Today(ctx context.Context, userID int64) (core.Date, error) {
	prefs, err := s.storage.GetPreferences(ctx, userID)
	if err != nil {
		if !core.IsNotFound(err) {
			s.logger.WarnContext(ctx, "preference lookup failed, using real date",
				log.FieldUserID, userID,
				log.FieldError, err)
		}
		return core.DateOf(s.now()), nil
	}
	if prefs.SimulatedDate != nil {
		return *prefs.SimulatedDate, nil
	}
	return core.DateOf(s.now()), nil
}

// DailyLimit returns the user's daily spending limit. It never fails: a
// missing row is created with the default, and a storage error falls back to
// the default without caching it.
func (s *PreferencesService) DailyLimit(ctx context.Context, userID int64) core.Money {
	key := limitKey(userID)
	if limit, ok := s.limits.Get(key, dailyLimitMaxAge); ok {
		return limit
	}

	prefs, err := s.storage.GetPreferences(ctx, userID)
	switch {
	case err == nil:
		s.limits.Set(key, prefs.DailyLimit)
		return prefs.DailyLimit
	case core.IsNotFound(err):
		if err := s.storage.SetDailyLimit(ctx, userID, core.DefaultDailyLimit); err != nil {
			s.logger.WarnContext(ctx, "failed to create default preference row",
				log.FieldUserID, userID,
				log.FieldError, err)
			return core.DefaultDailyLimit
		}
		s.limits.Set(key, core.DefaultDailyLimit)
		return core.DefaultDailyLimit
	default:
		s.logger.WarnContext(ctx, "daily limit lookup failed, using default",
			log.FieldUserID, userID,
			log.FieldError, err)
		return core.DefaultDailyLimit
	}
}

// SetDailyLimit stores a new limit and refreshes the cache so the next read
// observes the write.
func (s *PreferencesService) SetDailyLimit(ctx context.Context, userID int64, limit core.Money) error {
	if limit.Cents < 0 {
		return core.NewValidationError("daily_limit must be positive", "daily_limit")
	}
	if err := s.storage.SetDailyLimit(ctx, userID, limit); err != nil {
		return core.NewUnavailableError("set daily limit", err)
	}
	key := limitKey(userID)
	s.limits.Invalidate(key)
	s.limits.Set(key, limit)
	s.logger.InfoContext(ctx, "daily limit updated",
		log.FieldUserID, userID,
		log.FieldAmountCents, limit.Cents)
	return nil
}

// RequireCategories reports whether new expenses must carry a category,
// lazily creating the preference row with the default (true) when absent.
func (s *PreferencesService) RequireCategories(ctx context.Context, userID int64) (bool, error) {
	prefs, err := s.storage.GetPreferences(ctx, userID)
	switch {
	case err == nil:
		return prefs.RequireCategories, nil
	case core.IsNotFound(err):
		if err := s.storage.SetRequireCategories(ctx, userID, true); err != nil {
			return true, core.NewUnavailableError("init preferences", err)
		}
		return true, nil
	default:
		return true, core.NewUnavailableError("get preferences", err)
	}
}

func (s *PreferencesService) SetRequireCategories(ctx context.Context, userID int64, required bool) error {
	if err := s.storage.SetRequireCategories(ctx, userID, required); err != nil {
		return core.NewUnavailableError("set category requirement", err)
	}
	s.logger.InfoContext(ctx, "category requirement updated",
		log.FieldUserID, userID,
		"require_categories", required)
	return nil
}

// RolloverEnabled reports whether unspent budget carries across days. Errors
// read as disabled; the rollover subsystem is advisory and must not block.
func (s *PreferencesService) RolloverEnabled(ctx context.Context, userID int64) bool {
	prefs, err := s.storage.GetPreferences(ctx, userID)
	if err != nil {
		if !core.IsNotFound(err) {
			s.logger.WarnContext(ctx, "rollover flag lookup failed, treating as disabled",
				log.FieldUserID, userID,
				log.FieldError, err)
		}
		return false
	}
	return prefs.RolloverEnabled
}

func (s *PreferencesService) SetRolloverEnabled(ctx context.Context, userID int64, enabled bool) error {
	if err := s.storage.SetRolloverEnabled(ctx, userID, enabled); err != nil {
		return core.NewUnavailableError("set rollover enabled", err)
	}
	s.logger.InfoContext(ctx, "rollover setting updated",
		log.FieldUserID, userID,
		"enabled", enabled)
	return nil
}

// SimulatedDate returns the stored simulated date, or nil when simulation is
// off. Callers that change it must go through RolloverService so the
// departing day's rollover is processed first.
func (s *PreferencesService) SimulatedDate(ctx context.Context, userID int64) (*core.Date, error) {
	prefs, err := s.storage.GetPreferences(ctx, userID)
	if core.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewUnavailableError("get preferences", err)
	}
	return prefs.SimulatedDate, nil
}

func (s *PreferencesService) storeSimulatedDate(ctx context.Context, userID int64, date *core.Date) error {
	if err := s.storage.SetSimulatedDate(ctx, userID, date); err != nil {
		return core.NewUnavailableError("set simulated date", err)
	}
	return nil
}

// BudgetProjection extrapolates the daily limit over a window and pairs it
// with the actual trailing spend for the same number of days.
type BudgetProjection struct {
	Budget         core.Money
	Spent          core.Money
	PercentageUsed float64
}

type BudgetProjections struct {
	DailyLimit core.Money
	Weekly     BudgetProjection
	Monthly    BudgetProjection
	Yearly     BudgetProjection
}

// Projections computes weekly, monthly and yearly budget projections against
// trailing 7, 30 and 365 day spend, all ending at the user's current day.
func (s *PreferencesService) Projections(ctx context.Context, userID int64) (BudgetProjections, error) {
	limit := s.DailyLimit(ctx, userID)
	today, err := s.Today(ctx, userID)
	if err != nil {
		return BudgetProjections{}, err
	}

	out := BudgetProjections{DailyLimit: limit}
	windows := []struct {
		days int
		dst  *BudgetProjection
	}{
		{7, &out.Weekly},
		{30, &out.Monthly},
		{365, &out.Yearly},
	}
	for _, w := range windows {
		start, _ := today.AddDays(-(w.days - 1)).Bounds()
		_, end := today.Bounds()
		spent, err := s.storage.SpentInRange(ctx, userID, start, end)
		if err != nil {
			return BudgetProjections{}, core.NewUnavailableError("spent in range", err)
		}
		budget := core.Money{Cents: limit.Cents * int64(w.days)}
		*w.dst = BudgetProjection{
			Budget:         budget,
			Spent:          spent,
			PercentageUsed: percentageUsed(spent, budget),
		}
	}
	return out, nil
}

func percentageUsed(spent, budget core.Money) float64 {
	if budget.Cents <= 0 {
		return 0
	}
	return core.Round1(float64(spent.Cents) / float64(budget.Cents) * 100)
}

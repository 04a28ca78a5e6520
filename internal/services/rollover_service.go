package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// RolloverService carries unspent budget across day boundaries. All reads
// are advisory: a failure degrades to "no rollover" instead of failing the
// caller.
type RolloverService struct {
	storage *storage.Repository
	prefs   *PreferencesService
	logger  *log.Logger
	now     func() time.Time
}

func NewRolloverService(repo *storage.Repository, prefs *PreferencesService, logger *log.Logger) *RolloverService {
	return &RolloverService{
		storage: repo,
		prefs:   prefs,
		logger:  logger.WithComponent(log.ComponentRollover),
		now:     time.Now,
	}
}

// SpentOn returns the user's total spend on a date, zero on error.
func (s *RolloverService) SpentOn(ctx context.Context, userID int64, date core.Date) core.Money {
	start, end := date.Bounds()
	spent, err := s.storage.SpentInRange(ctx, userID, start, end)
	if err != nil {
		s.logger.WarnContext(ctx, "spend lookup failed, treating as zero",
			log.FieldUserID, userID,
			log.FieldDate, date.String(),
			log.FieldError, err)
		return core.Money{}
	}
	return spent
}

// RolloverFor returns the carry stored for a date regardless of whether
// rollover is currently enabled. Zero when no row exists or the read fails.
func (s *RolloverService) RolloverFor(ctx context.Context, userID int64, date core.Date) core.Money {
	ro, err := s.storage.RolloverByDate(ctx, userID, date)
	if err != nil {
		if !core.IsNotFound(err) {
			s.logger.WarnContext(ctx, "rollover lookup failed, treating as zero",
				log.FieldUserID, userID,
				log.FieldDate, date.String(),
				log.FieldError, err)
		}
		return core.Money{}
	}
	return ro.RolloverAmount
}

// Calculate returns the unspent budget of the given day: the daily limit
// plus any carry into that day, minus what was spent, floored at zero.
// Zero when rollover is disabled.
func (s *RolloverService) Calculate(ctx context.Context, userID int64, date core.Date) core.Money {
	if !s.prefs.RolloverEnabled(ctx, userID) {
		return core.Money{}
	}

	limit := s.prefs.DailyLimit(ctx, userID)
	spent := s.SpentOn(ctx, userID, date)
	existing := s.RolloverFor(ctx, userID, date)

	available := limit.Cents + existing.Cents
	rollover := available - spent.Cents
	if rollover < 0 {
		rollover = 0
	}
	return core.Money{Cents: rollover}
}

// Store upserts the rollover row for a date, snapshotting the current limit
// and that date's spend alongside the carry amount.
func (s *RolloverService) Store(ctx context.Context, userID int64, date core.Date, amount core.Money) error {
	ro := core.DailyRollover{
		UserID:         userID,
		Date:           date,
		BaseDailyLimit: s.prefs.DailyLimit(ctx, userID),
		AmountSpent:    s.SpentOn(ctx, userID, date),
		RolloverAmount: amount,
	}
	if err := s.storage.UpsertRollover(ctx, ro); err != nil {
		return core.NewUnavailableError("store rollover", err)
	}
	return nil
}

// ProcessEndOfDay computes the unspent budget of fromDate and stores it as
// the carry into the following day. A no-op when rollover is disabled.
// Calling it again for the same transition recomputes the same carry, so
// repeated triggers are harmless.
func (s *RolloverService) ProcessEndOfDay(ctx context.Context, userID int64, fromDate core.Date) error {
	if !s.prefs.RolloverEnabled(ctx, userID) {
		s.logger.DebugContext(ctx, "rollover disabled, skipping day transition",
			log.FieldUserID, userID,
			log.FieldDate, fromDate.String())
		return nil
	}

	rollover := s.Calculate(ctx, userID, fromDate)
	next := fromDate.AddDays(1)
	if err := s.Store(ctx, userID, next, rollover); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "processed end-of-day rollover",
		log.FieldUserID, userID,
		log.FieldDate, fromDate.String(),
		log.FieldRolloverCents, rollover.Cents)
	return nil
}

// EffectiveDailyBudget is the spendable budget for a date: the base limit,
// plus the stored carry when rollover is enabled.
func (s *RolloverService) EffectiveDailyBudget(ctx context.Context, userID int64, date core.Date) core.Money {
	base := s.prefs.DailyLimit(ctx, userID)
	if !s.prefs.RolloverEnabled(ctx, userID) {
		return base
	}
	carry := s.RolloverFor(ctx, userID, date)
	return core.Money{Cents: base.Cents + carry.Cents}
}

// CurrentBudget is the budget position for the user's current day.
type CurrentBudget struct {
	Date            core.Date
	BaseDailyLimit  core.Money
	RolloverAmount  core.Money // stored carry, reported even when disabled
	TotalAvailable  core.Money // base, plus carry when enabled
	AmountSpent     core.Money
	EffectiveBudget core.Money // max(0, total - spent)
	Enabled         bool
}

// CurrentBudget resolves the budget position for the user's current
// (possibly simulated) day.
func (s *RolloverService) CurrentBudget(ctx context.Context, userID int64) CurrentBudget {
	today, _ := s.prefs.Today(ctx, userID)

	base := s.prefs.DailyLimit(ctx, userID)
	carry := s.RolloverFor(ctx, userID, today)
	total := s.EffectiveDailyBudget(ctx, userID, today)
	spent := s.SpentOn(ctx, userID, today)

	remaining := total.Cents - spent.Cents
	if remaining < 0 {
		remaining = 0
	}

	return CurrentBudget{
		Date:            today,
		BaseDailyLimit:  base,
		RolloverAmount:  carry,
		TotalAvailable:  total,
		AmountSpent:     spent,
		EffectiveBudget: core.Money{Cents: remaining},
		Enabled:         s.prefs.RolloverEnabled(ctx, userID),
	}
}

// History returns the user's rollover rows for the trailing 30 days, newest
// first.
func (s *RolloverService) History(ctx context.Context, userID int64) ([]core.DailyRollover, error) {
	today, _ := s.prefs.Today(ctx, userID)
	history, err := s.storage.RolloverHistory(ctx, userID, today.AddDays(-30), today)
	if err != nil {
		return nil, core.NewUnavailableError("rollover history", err)
	}
	return history, nil
}

// SimulateDate moves the user's "today" to the given date. The day being
// left behind gets its rollover processed first; a processing failure is
// logged but never blocks the date change.
func (s *RolloverService) SimulateDate(ctx context.Context, userID int64, date core.Date) error {
	s.processDeparture(ctx, userID)
	return s.prefs.storeSimulatedDate(ctx, userID, &date)
}

// ClearSimulatedDate switches the user back to the real calendar, processing
// the simulated day being left behind first.
func (s *RolloverService) ClearSimulatedDate(ctx context.Context, userID int64) error {
	s.processDeparture(ctx, userID)
	return s.prefs.storeSimulatedDate(ctx, userID, nil)
}

func (s *RolloverService) processDeparture(ctx context.Context, userID int64) {
	previous, _ := s.prefs.Today(ctx, userID)
	if err := s.ProcessEndOfDay(ctx, userID, previous); err != nil {
		s.logger.ErrorContext(ctx, "day-transition rollover failed",
			log.FieldUserID, userID,
			log.FieldDate, previous.String(),
			log.FieldError, err)
	}
}

// SweepAll processes yesterday's rollover for every user with rollover
// enabled that has no carry row for the real current day yet. At most
// maxConcurrent users are processed in parallel. Returns how many users were
// processed; per-user failures are logged and skipped.
func (s *RolloverService) SweepAll(ctx context.Context, maxConcurrent int) (int, error) {
	userIDs, err := s.storage.ListUserIDs(ctx)
	if err != nil {
		return 0, core.NewUnavailableError("list users", err)
	}

	today := core.DateOf(s.now())
	yesterday := today.AddDays(-1)

	var g errgroup.Group
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}
	processed := make(chan int64, len(userIDs))

	for _, userID := range userIDs {
		g.Go(func() error {
			if !s.prefs.RolloverEnabled(ctx, userID) {
				return nil
			}
			if _, err := s.storage.RolloverByDate(ctx, userID, today); err == nil {
				return nil // already carried into today
			} else if !core.IsNotFound(err) {
				s.logger.WarnContext(ctx, "sweep rollover check failed",
					log.FieldUserID, userID,
					log.FieldError, err)
				return nil
			}
			if err := s.ProcessEndOfDay(ctx, userID, yesterday); err != nil {
				s.logger.ErrorContext(ctx, "sweep rollover failed",
					log.FieldUserID, userID,
					log.FieldError, err)
				return nil
			}
			processed <- userID
			return nil
		})
	}

	err = g.Wait()
	close(processed)
	return len(processed), err
}

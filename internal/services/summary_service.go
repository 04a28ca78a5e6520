package services

import (
	"context"

	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// SummaryService computes the 7-day plant summary shown on the home screen.
// It is the one endpoint that must never fail: every error path degrades to
// a safe snapshot served with HTTP 200.
type SummaryService struct {
	storage *storage.Repository
	prefs   *PreferencesService
	clock   core.Clock
	logger  *log.Logger
}

func NewSummaryService(repo *storage.Repository, prefs *PreferencesService, clock core.Clock, logger *log.Logger) *SummaryService {
	return &SummaryService{
		storage: repo,
		prefs:   prefs,
		clock:   clock,
		logger:  logger.WithComponent(log.ComponentSummary),
	}
}

// Summary computes the snapshot for the user's day shifted by offset. The
// trailing window always divides by seven: days before the account existed
// read as untouched full-limit days.
func (s *SummaryService) Summary(ctx context.Context, userID int64, offset int) core.Summary {
	today, err := s.clock.Today(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "day resolution failed, serving default summary",
			log.FieldUserID, userID,
			log.FieldError, err)
		return core.DefaultSummary()
	}
	day := today.AddDays(offset)
	limit := s.prefs.DailyLimit(ctx, userID)

	surpluses, ok := s.dailySurpluses(ctx, userID, day, limit)
	if !ok {
		return core.DefaultSummary()
	}

	var total int64
	for _, surplus := range surpluses {
		total += surplus
	}
	balance := core.Money{Cents: surpluses[len(surpluses)-1]}
	avg7 := float64(total) / core.SummaryWindowDays

	summary := core.NewSummary(balance, avg7, limit)
	s.logger.DebugContext(ctx, "computed summary",
		log.FieldUserID, userID,
		log.FieldDayOffset, offset,
		log.FieldPlantState, string(summary.State))
	return summary
}

// dailySurpluses returns limit-minus-spend for each of the seven days ending
// at day, oldest first. One aggregated query covers the whole window.
func (s *SummaryService) dailySurpluses(ctx context.Context, userID int64, day core.Date, limit core.Money) ([]int64, bool) {
	start, _ := day.AddDays(-(core.SummaryWindowDays - 1)).Bounds()
	_, end := day.Bounds()

	spends, err := s.storage.DailySpending(ctx, userID, start, end)
	if err != nil {
		s.logger.WarnContext(ctx, "daily spending query failed",
			log.FieldUserID, userID,
			log.FieldError, err)
		return nil, false
	}

	spentByDay := make(map[string]int64, len(spends))
	for _, d := range spends {
		spentByDay[d.Day.String()] = d.SpentCents
	}

	surpluses := make([]int64, 0, core.SummaryWindowDays)
	for i := core.SummaryWindowDays - 1; i >= 0; i-- {
		d := day.AddDays(-i)
		surpluses = append(surpluses, limit.Cents-spentByDay[d.String()])
	}
	return surpluses, true
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sprout/internal/amqp"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// ExpenseService handles expense entry and retrieval. Writes go to SQLite
// first; an export event is published afterwards on a best-effort basis so a
// missing broker never blocks expense entry.
type ExpenseService struct {
	storage     *storage.Repository
	prefs       *PreferencesService
	amqpClient  *amqp.Client
	exportQueue string
	logger      *log.Logger
	now         func() time.Time
}

func NewExpenseService(repo *storage.Repository, prefs *PreferencesService, amqpClient *amqp.Client, exportQueue string, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		storage:     repo,
		prefs:       prefs,
		amqpClient:  amqpClient,
		exportQueue: exportQueue,
		logger:      logger.WithComponent(log.ComponentExpense),
		now:         time.Now,
	}
}

// ExpenseDay groups one day's expenses for the history view.
type ExpenseDay struct {
	Date     core.Date
	Expenses []core.Expense
}

// Create records a new expense on the user's current day. The timestamp is
// the resolved day (simulated when simulation is active) combined with the
// current UTC clock time, so simulated entries keep a realistic time of day.
func (s *ExpenseService) Create(ctx context.Context, userID int64, amount core.Money, description string, category *core.CategoryRef) (core.Expense, error) {
	today, _ := s.prefs.Today(ctx, userID)

	e := core.Expense{
		UserID:      userID,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Category:    category,
		Timestamp:   today.At(s.now()),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkCategory(ctx, userID, category); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.logger.InfoContext(ctx, "expense created",
		log.FieldUserID, userID,
		log.FieldExpenseID, created.ID,
		log.FieldAmountCents, created.Amount.Cents)

	if err := s.publishExportEvent(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish export event",
			log.FieldExpenseID, created.ID,
			log.FieldError, err)
		// Expense is saved locally, do not fail the request.
	}
	return created, nil
}

// Update replaces amount, description and category of an owned expense. The
// timestamp is preserved. Unknown or foreign expense IDs report not found.
func (s *ExpenseService) Update(ctx context.Context, userID, id int64, amount core.Money, description string, category *core.CategoryRef) (core.Expense, error) {
	existing, err := s.storage.ExpenseByID(ctx, userID, id)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("load expense %d: %w", id, err)
	}

	existing.Amount = amount
	existing.Description = strings.TrimSpace(description)
	existing.Category = category
	if err := existing.Validate(); err != nil {
		return core.Expense{}, err
	}
	if category != nil {
		if err := s.checkCategory(ctx, userID, category); err != nil {
			return core.Expense{}, err
		}
	}

	if err := s.storage.UpdateExpense(ctx, existing); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "expense updated",
		log.FieldUserID, userID,
		log.FieldExpenseID, id)
	return existing, nil
}

// Delete removes an owned expense; unknown or foreign IDs report not found.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		if core.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "expense deleted",
		log.FieldUserID, userID,
		log.FieldExpenseID, id)
	return nil
}

// ListDay returns the expenses of the resolved day shifted by offset, newest
// first.
func (s *ExpenseService) ListDay(ctx context.Context, userID int64, offset int) ([]core.Expense, error) {
	today, _ := s.prefs.Today(ctx, userID)
	start, end := today.AddDays(offset).Bounds()

	expenses, err := s.storage.ListExpenses(ctx, userID, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// History returns the expenses of the period days ending at the offset day,
// grouped per calendar day with the newest day first. Only days that have
// expenses appear. Lookup failures degrade to an empty history so the view
// renders instead of erroring.
func (s *ExpenseService) History(ctx context.Context, userID int64, offset, period int, category *core.CategoryRef) []ExpenseDay {
	if period <= 0 {
		period = 7
	}
	today, _ := s.prefs.Today(ctx, userID)
	day := today.AddDays(offset)
	start, _ := day.AddDays(-(period - 1)).Bounds()
	_, end := day.Bounds()

	expenses, err := s.storage.ListExpenses(ctx, userID, start, end, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "history lookup failed, returning empty history",
			log.FieldUserID, userID,
			log.FieldError, err)
		return []ExpenseDay{}
	}

	grouped := make(map[core.Date][]core.Expense)
	for _, e := range expenses {
		d := core.DateOf(e.Timestamp)
		grouped[d] = append(grouped[d], e)
	}

	days := make([]ExpenseDay, 0, len(grouped))
	for d, list := range grouped {
		days = append(days, ExpenseDay{Date: d, Expenses: list})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.After(days[j].Date) })
	return days
}

// checkCategory enforces the category rules for expense writes: a missing
// category is rejected when the user's preferences require one, and a present
// reference must resolve to a visible category.
func (s *ExpenseService) checkCategory(ctx context.Context, userID int64, category *core.CategoryRef) error {
	if category == nil {
		required, err := s.prefs.RequireCategories(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "category requirement lookup failed, treating as required",
				log.FieldUserID, userID,
				log.FieldError, err)
		}
		if required {
			return core.NewValidationError("Category is required", "category_id")
		}
		return nil
	}
	if _, err := s.storage.CategoryByRef(ctx, userID, *category); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError("Invalid category", "category_id")
		}
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func (s *ExpenseService) publishExportEvent(ctx context.Context, e core.Expense) error {
	if s.amqpClient == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping export event")
		return nil
	}
	return s.amqpClient.PublishExport(ctx, s.exportQueue, amqp.NewExportMessage(e.UserID, e.ID))
}

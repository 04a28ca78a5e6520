package services

import (
	"context"
	"fmt"
	"time"

	"sprout/internal/amqp"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// RecurringService manages recurring expense templates and materializes the
// real expenses they describe. Materialization is idempotent per day: a
// template's last-run marker is advanced with each created expense, and the
// dueness checkers refuse a day the marker already covers.
type RecurringService struct {
	storage     *storage.Repository
	prefs       *PreferencesService
	amqpClient  *amqp.Client
	exportQueue string
	logger      *log.Logger
	now         func() time.Time
}

func NewRecurringService(repo *storage.Repository, prefs *PreferencesService, amqpClient *amqp.Client, exportQueue string, logger *log.Logger) *RecurringService {
	return &RecurringService{
		storage:     repo,
		prefs:       prefs,
		amqpClient:  amqpClient,
		exportQueue: exportQueue,
		logger:      logger.WithComponent(log.ComponentRecurring),
		now:         time.Now,
	}
}

// RecurringUpdate carries the fields of a partial template update. Nil
// pointers leave the current value alone; ClearCategory removes the category
// outright.
type RecurringUpdate struct {
	Description   *string
	Amount        *core.Money
	Frequency     *core.Frequency
	StartDate     *core.Date
	Category      *core.CategoryRef
	ClearCategory bool
	Active        *bool
}

// List returns the user's templates, newest first, inactive ones included.
func (s *RecurringService) List(ctx context.Context, userID int64) ([]core.RecurringExpense, error) {
	templates, err := s.storage.ListRecurring(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	return templates, nil
}

// Create registers a new active template.
func (s *RecurringService) Create(ctx context.Context, userID int64, description string, amount core.Money, frequency core.Frequency, startDate core.Date, category *core.CategoryRef) (core.RecurringExpense, error) {
	re := core.RecurringExpense{
		UserID:      userID,
		Description: description,
		Amount:      amount,
		Category:    category,
		Frequency:   frequency,
		StartDate:   startDate,
		Active:      true,
	}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.checkCategory(ctx, userID, category); err != nil {
		return core.RecurringExpense{}, err
	}

	created, err := s.storage.CreateRecurringExpense(ctx, re)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring: %w", err)
	}
	s.logger.InfoContext(ctx, "recurring expense created",
		log.FieldUserID, userID,
		log.FieldExpenseID, created.ID)
	return created, nil
}

// Update applies a partial change to an owned template; unknown or foreign
// IDs report not found.
func (s *RecurringService) Update(ctx context.Context, userID, id int64, upd RecurringUpdate) (core.RecurringExpense, error) {
	re, err := s.storage.RecurringByID(ctx, userID, id)
	if err != nil {
		if core.IsNotFound(err) {
			return core.RecurringExpense{}, err
		}
		return core.RecurringExpense{}, fmt.Errorf("load recurring %d: %w", id, err)
	}

	if upd.Description != nil {
		re.Description = *upd.Description
	}
	if upd.Amount != nil {
		re.Amount = *upd.Amount
	}
	if upd.Frequency != nil {
		re.Frequency = *upd.Frequency
	}
	if upd.StartDate != nil {
		re.StartDate = *upd.StartDate
	}
	if upd.ClearCategory {
		re.Category = nil
	} else if upd.Category != nil {
		re.Category = upd.Category
	}
	if upd.Active != nil {
		re.Active = *upd.Active
	}

	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if upd.Category != nil {
		if err := s.checkCategory(ctx, userID, re.Category); err != nil {
			return core.RecurringExpense{}, err
		}
	}

	if err := s.storage.UpdateRecurring(ctx, re); err != nil {
		if core.IsNotFound(err) {
			return core.RecurringExpense{}, err
		}
		return core.RecurringExpense{}, fmt.Errorf("update recurring %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "recurring expense updated",
		log.FieldUserID, userID,
		log.FieldExpenseID, id)
	return re, nil
}

// Delete removes an owned template; unknown or foreign IDs report not found.
func (s *RecurringService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteRecurring(ctx, userID, id); err != nil {
		if core.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("delete recurring %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "recurring expense deleted",
		log.FieldUserID, userID,
		log.FieldExpenseID, id)
	return nil
}

// ProcessUser materializes the calling user's due templates against their
// resolved day, so a simulated date drives recurring expenses the same way
// it drives everything else. Returns how many expenses were created.
func (s *RecurringService) ProcessUser(ctx context.Context, userID int64) (int, error) {
	day, _ := s.prefs.Today(ctx, userID)

	templates, err := s.storage.ListRecurring(ctx, userID, true)
	if err != nil {
		return 0, fmt.Errorf("process recurring: %w", err)
	}
	return s.processTemplates(ctx, templates, day), nil
}

// ProcessAll materializes due templates across every user against the real
// calendar day. It is the scheduled worker's entry point.
func (s *RecurringService) ProcessAll(ctx context.Context) (int, error) {
	day := core.DateOf(s.now())

	templates, err := s.storage.ListAllActiveRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("process recurring: %w", err)
	}
	count := s.processTemplates(ctx, templates, day)
	s.logger.InfoContext(ctx, "recurring processing pass finished",
		log.FieldDate, day.String(),
		log.FieldCount, count)
	return count, nil
}

func (s *RecurringService) processTemplates(ctx context.Context, templates []core.RecurringExpense, day core.Date) int {
	count := 0
	for _, tpl := range templates {
		created, err := s.processTemplate(ctx, tpl, day)
		if err != nil {
			s.logger.ErrorContext(ctx, "recurring template processing failed",
				log.FieldUserID, tpl.UserID,
				log.FieldExpenseID, tpl.ID,
				log.FieldError, err)
		}
		if created {
			count++
		}
	}
	return count
}

// processTemplate materializes one template if it is due on day. The created
// flag is true as soon as the expense row exists, even when the follow-up
// bookkeeping fails.
func (s *RecurringService) processTemplate(ctx context.Context, tpl core.RecurringExpense, day core.Date) (bool, error) {
	checker, err := GetDuenessChecker(tpl.Frequency)
	if err != nil {
		return false, err
	}
	if !checker.IsDue(tpl.LastRun, day, tpl.StartDate) {
		return false, nil
	}

	expense := core.Expense{
		UserID:      tpl.UserID,
		Amount:      tpl.Amount,
		Description: tpl.Description,
		Category:    tpl.Category,
		Timestamp:   day.At(s.now()),
	}
	created, err := s.storage.CreateExpense(ctx, expense)
	if err != nil {
		return false, fmt.Errorf("materialize template %d: %w", tpl.ID, err)
	}
	s.logger.InfoContext(ctx, "recurring expense materialized",
		log.FieldUserID, tpl.UserID,
		log.FieldExpenseID, created.ID,
		log.FieldDate, day.String())

	if err := s.storage.SetRecurringLastRun(ctx, tpl.ID, day); err != nil {
		// Without the marker the next pass will duplicate this expense.
		return true, fmt.Errorf("advance last run for template %d: %w", tpl.ID, err)
	}
	if err := s.publishExportEvent(ctx, created); err != nil {
		s.logger.WarnContext(ctx, "failed to publish export event",
			log.FieldExpenseID, created.ID,
			log.FieldError, err)
	}
	return true, nil
}

func (s *RecurringService) checkCategory(ctx context.Context, userID int64, category *core.CategoryRef) error {
	if category == nil {
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

func (s *RecurringService) publishExportEvent(ctx context.Context, e core.Expense) error {
	if s.amqpClient == nil {
		return nil
	}
	return s.amqpClient.PublishExport(ctx, s.exportQueue, amqp.NewExportMessage(e.UserID, e.ID))
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sprout/internal/cache"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

// categoryListMaxAge bounds how stale a cached category list may be served.
const categoryListMaxAge = 5 * time.Minute

func categoryListKey(userID int64) string {
	return fmt.Sprintf("categories_%d", userID)
}

// CategoryService manages the shared default catalog, per-user custom
// categories and per-user budget overrides.
type CategoryService struct {
	storage *storage.Repository
	prefs   *PreferencesService
	list    cache.Cache[[]core.Category]
	logger  *log.Logger
}

func NewCategoryService(repo *storage.Repository, prefs *PreferencesService, list cache.Cache[[]core.Category], logger *log.Logger) *CategoryService {
	return &CategoryService{
		storage: repo,
		prefs:   prefs,
		list:    list,
		logger:  logger.WithComponent(log.ComponentCategory),
	}
}

// BudgetChange records one applied budget override.
type BudgetChange struct {
	Ref    core.CategoryRef
	Name   string
	Budget core.Money
}

// BulkBudgetResult is the outcome of a bulk override update: the entries that
// were applied plus a warning per entry that was not.
type BulkBudgetResult struct {
	Updated  []BudgetChange
	Warnings []string
}

// TrackedCategory is one category's spending against its effective budget on
// a given day.
type TrackedCategory struct {
	Ref            core.CategoryRef
	Name           string
	Icon           string
	Color          string
	SpentToday     core.Money
	DailyBudget    core.Money
	Remaining      core.Money
	PercentageUsed float64
	IsOverBudget   bool
}

// BudgetTrackingReport splits the user's categories into budgeted and
// unbudgeted groups for one day. Spending on uncategorized expenses is not
// part of either group.
type BudgetTrackingReport struct {
	Budgeted             []TrackedCategory
	Unbudgeted           []TrackedCategory
	TotalBudget          core.Money
	TotalSpentBudgeted   core.Money
	TotalSpentUnbudgeted core.Money
}

// List returns the user's visible categories, name-ascending, with effective
// budgets resolved. It never fails: a database error falls back to the seeded
// default catalog so the entry form always has categories to offer.
func (s *CategoryService) List(ctx context.Context, userID int64) []core.Category {
	key := categoryListKey(userID)
	if categories, ok := s.list.Get(key, categoryListMaxAge); ok {
		return categories
	}

	categories, err := s.storage.ListCategories(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "category listing failed, serving default catalog",
			log.FieldUserID, userID,
			log.FieldError, err)
		return core.DefaultCatalog
	}
	s.list.Set(key, categories)
	return categories
}

// Create adds a custom category for the user. Missing icon and color fall
// back to the generic box and gray.
func (s *CategoryService) Create(ctx context.Context, userID int64, name, icon, color string, budget core.Money) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.NewValidationError("Category name is required", "name")
	}
	if len(name) > core.MaxCategoryNameLen {
		return core.Category{}, core.NewValidationError("Category name must be 100 characters or less", "name")
	}
	if budget.Cents < 0 {
		return core.Category{}, core.NewValidationError("daily_budget must be positive or zero", "daily_budget")
	}
	if icon == "" {
		icon = "📦"
	}
	if color == "" {
		color = "#A9A9A9"
	}

	created, err := s.storage.CreateCustomCategory(ctx, userID, name, icon, color, budget)
	if err != nil {
		return core.Category{}, err
	}
	s.list.Invalidate(categoryListKey(userID))
	s.logger.InfoContext(ctx, "custom category created",
		log.FieldUserID, userID,
		log.FieldCategory, created.Ref.String())
	return created, nil
}

// Delete removes a custom category. Expenses that reference it are detached
// first, so history keeps the rows but loses the label; the count of detached
// expenses is returned alongside the deleted category.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) (core.Category, int64, error) {
	ref := core.CustomRef(id)
	category, err := s.storage.CategoryByRef(ctx, userID, ref)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Category{}, 0, err
		}
		return core.Category{}, 0, fmt.Errorf("load category %s: %w", ref, err)
	}

	detached, err := s.storage.ClearCategoryRefs(ctx, userID, ref)
	if err != nil {
		return core.Category{}, 0, fmt.Errorf("detach expenses for %s: %w", ref, err)
	}
	if _, err := s.storage.DeleteCustomCategory(ctx, userID, id); err != nil {
		return core.Category{}, 0, fmt.Errorf("delete category %s: %w", ref, err)
	}

	s.list.Invalidate(categoryListKey(userID))
	s.logger.InfoContext(ctx, "custom category deleted",
		log.FieldUserID, userID,
		log.FieldCategory, ref.String(),
		log.FieldCount, detached)
	return category, detached, nil
}

// SetBudget stores a per-user budget override for one category and returns
// the category with the new effective budget.
func (s *CategoryService) SetBudget(ctx context.Context, userID int64, ref core.CategoryRef, budget core.Money) (core.Category, error) {
	if budget.Cents < 0 {
		return core.Category{}, core.NewValidationError("daily_budget must be positive or zero", "daily_budget")
	}

	category, err := s.storage.CategoryByRef(ctx, userID, ref)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Category{}, err
		}
		return core.Category{}, fmt.Errorf("load category %s: %w", ref, err)
	}
	if err := s.storage.UpsertCategoryBudget(ctx, userID, ref, budget); err != nil {
		return core.Category{}, err
	}

	s.list.Invalidate(categoryListKey(userID))
	category.DailyBudget = budget
	return category, nil
}

// SetBudgetsBulk applies a map of category reference to budget value. Entries
// are processed independently: bad entries produce warnings, good entries are
// stored, and a zero stores an explicit zero override. Entries are handled in
// reference order so warnings come out stable.
func (s *CategoryService) SetBudgetsBulk(ctx context.Context, userID int64, budgets map[string]float64) BulkBudgetResult {
	refs := make([]string, 0, len(budgets))
	for raw := range budgets {
		refs = append(refs, raw)
	}
	sort.Strings(refs)

	var result BulkBudgetResult
	for _, raw := range refs {
		value := budgets[raw]
		if value < 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Category %s: budget must be positive or zero", raw))
			continue
		}
		budget, err := core.MoneyFromFloat(value)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Category %s: invalid budget value", raw))
			continue
		}
		ref, err := core.ParseCategoryRef(raw)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Category %s: not found", raw))
			continue
		}
		category, err := s.storage.CategoryByRef(ctx, userID, ref)
		if err != nil {
			if core.IsNotFound(err) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Category %s: not found", raw))
			} else {
				s.logger.ErrorContext(ctx, "bulk budget lookup failed",
					log.FieldUserID, userID,
					log.FieldCategory, raw,
					log.FieldError, err)
				result.Warnings = append(result.Warnings, fmt.Sprintf("Category %s: failed to update budget", raw))
			}
			continue
		}
		if err := s.storage.UpsertCategoryBudget(ctx, userID, ref, budget); err != nil {
			s.logger.ErrorContext(ctx, "bulk budget upsert failed",
				log.FieldUserID, userID,
				log.FieldCategory, raw,
				log.FieldError, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Category %s: failed to update budget", raw))
			continue
		}
		result.Updated = append(result.Updated, BudgetChange{Ref: ref, Name: category.Name, Budget: budget})
	}

	if len(result.Updated) > 0 {
		s.list.Invalidate(categoryListKey(userID))
	}
	return result
}

// BudgetTracking reports, for the offset day, each category's spending
// against its effective budget. It never fails: a category lookup error
// degrades to an empty report and a spending lookup error to zero spending.
func (s *CategoryService) BudgetTracking(ctx context.Context, userID int64, offset int) BudgetTrackingReport {
	report := BudgetTrackingReport{
		Budgeted:   []TrackedCategory{},
		Unbudgeted: []TrackedCategory{},
	}

	today, _ := s.prefs.Today(ctx, userID)
	start, end := today.AddDays(offset).Bounds()

	categories, err := s.storage.ListCategories(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "budget tracking category lookup failed",
			log.FieldUserID, userID,
			log.FieldError, err)
		return report
	}

	spentByRef := make(map[core.CategoryRef]core.Money)
	spends, err := s.storage.CategorySpending(ctx, userID, start, end)
	if err != nil {
		s.logger.ErrorContext(ctx, "budget tracking spending lookup failed",
			log.FieldUserID, userID,
			log.FieldError, err)
	} else {
		for _, cs := range spends {
			if cs.Category == nil {
				continue
			}
			spentByRef[*cs.Category] = core.Money{Cents: cs.SpentCents}
		}
	}

	for _, c := range categories {
		spent := spentByRef[c.Ref]
		tracked := TrackedCategory{
			Ref:        c.Ref,
			Name:       c.Name,
			Icon:       c.Icon,
			Color:      c.Color,
			SpentToday: spent,
		}
		if c.DailyBudget.Cents > 0 {
			tracked.DailyBudget = c.DailyBudget
			tracked.Remaining = c.DailyBudget.Sub(spent)
			tracked.PercentageUsed = spent.Float64() / c.DailyBudget.Float64() * 100
			tracked.IsOverBudget = spent.Cents > c.DailyBudget.Cents
			report.TotalBudget = report.TotalBudget.Add(c.DailyBudget)
			report.TotalSpentBudgeted = report.TotalSpentBudgeted.Add(spent)
			report.Budgeted = append(report.Budgeted, tracked)
		} else {
			report.TotalSpentUnbudgeted = report.TotalSpentUnbudgeted.Add(spent)
			report.Unbudgeted = append(report.Unbudgeted, tracked)
		}
	}
	return report
}

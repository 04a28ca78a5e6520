package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sprout/internal/core"
	"sprout/internal/log"
	authmw "sprout/internal/middleware/auth"
	"sprout/internal/services"
)

type categoryJSON struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Icon        string     `json:"icon"`
	Color       string     `json:"color"`
	DailyBudget float64    `json:"daily_budget"`
	IsDefault   bool       `json:"is_default"`
	IsCustom    bool       `json:"is_custom"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type budgetedCategoryJSON struct {
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	CategoryIcon   string  `json:"category_icon"`
	CategoryColor  string  `json:"category_color"`
	SpentToday     float64 `json:"spent_today"`
	DailyBudget    float64 `json:"daily_budget"`
	RemainingToday float64 `json:"remaining_today"`
	PercentageUsed float64 `json:"percentage_used"`
	IsOverBudget   bool    `json:"is_over_budget"`
}

type unbudgetedCategoryJSON struct {
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	CategoryIcon  string  `json:"category_icon"`
	CategoryColor string  `json:"category_color"`
	SpentToday    float64 `json:"spent_today"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	out := categoryJSON{
		ID:          c.Ref.String(),
		Name:        c.Name,
		Icon:        c.Icon,
		Color:       c.Color,
		DailyBudget: c.DailyBudget.Float64(),
		IsDefault:   c.Ref.IsDefault(),
		IsCustom:    !c.Ref.IsDefault(),
	}
	if !c.CreatedAt.IsZero() {
		created := c.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

// parseBudgetValue accepts a budget as a number or a numeric string. Zero is
// a valid budget; range checks belong to the service.
func parseBudgetValue(v any) (core.Money, error) {
	switch n := v.(type) {
	case float64:
		return core.MoneyFromFloat(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return core.Money{}, errMalformed
		}
		return core.MoneyFromFloat(f)
	default:
		return core.Money{}, errMalformed
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.categories.List(r.Context(), authmw.UserID(r.Context()))

	payload := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		payload = append(payload, toCategoryJSON(c))
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleCreateCategory keeps the endpoint's legacy bare {error} shape for
// failures instead of the coded envelope.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No data provided"})
		return
	}

	name, _ := body["name"].(string)
	icon, _ := body["icon"].(string)
	color, _ := body["color"].(string)

	budget := core.Money{}
	if raw, ok := body["daily_budget"]; ok && raw != nil {
		parsed, err := parseBudgetValue(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "daily_budget must be a valid number"})
			return
		}
		budget = parsed
	}

	created, err := s.categories.Create(r.Context(), authmw.UserID(r.Context()), name, icon, color, budget)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Message})
			return
		}
		s.logger.ErrorContext(r.Context(), "Category creation failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create category"})
		return
	}

	// The create response never carries created_at.
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"category": categoryJSON{
			ID:          created.Ref.String(),
			Name:        created.Name,
			Icon:        created.Icon,
			Color:       created.Color,
			DailyBudget: created.DailyBudget.Float64(),
			IsDefault:   false,
			IsCustom:    true,
		},
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID := authmw.UserID(r.Context())

	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Custom category not found or you do not have permission to delete it",
			"success": false,
		})
		return
	}

	category, detached, err := s.categories.Delete(r.Context(), userID, id)
	if err != nil {
		if core.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":   "Custom category not found or you do not have permission to delete it",
				"success": false,
			})
			return
		}
		s.writeFamilyError(w, r, err, "Failed to delete custom category")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"message":          fmt.Sprintf("Custom category %q deleted successfully", category.Name),
		"expenses_updated": detached,
	})
}

func (s *Server) handleSetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	ref, err := core.ParseCategoryRef(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Category not found", "success": false})
		return
	}

	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, ok := body["daily_budget"]
	if !ok || raw == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "daily_budget is required", "success": false})
		return
	}
	budget, err := parseBudgetValue(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "daily_budget must be a valid number", "success": false})
		return
	}

	category, err := s.categories.SetBudget(r.Context(), authmw.UserID(r.Context()), ref, budget)
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to update category budget")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category_id":   category.Ref.String(),
		"category_name": category.Name,
		"daily_budget":  category.DailyBudget.Float64(),
		"success":       true,
		"message":       fmt.Sprintf("Budget for %s updated to $%.2f/day", category.Name, category.DailyBudget.Float64()),
	})
}

func (s *Server) handleBulkBudgets(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	rawBudgets, ok := body["budgets"].(map[string]any)
	if !ok || len(rawBudgets) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   `budgets object is required (format: {"category_id": daily_budget})`,
			"success": false,
		})
		return
	}

	// Convert entries up front; ones that are not numeric at all become
	// warnings alongside the per-entry warnings the service produces.
	budgets := make(map[string]float64, len(rawBudgets))
	var conversionWarnings []string
	for ref, value := range rawBudgets {
		switch v := value.(type) {
		case float64:
			budgets[ref] = v
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				conversionWarnings = append(conversionWarnings, fmt.Sprintf("Category %s: invalid budget value", ref))
				continue
			}
			budgets[ref] = f
		default:
			conversionWarnings = append(conversionWarnings, fmt.Sprintf("Category %s: invalid budget value", ref))
		}
	}

	result := s.categories.SetBudgetsBulk(r.Context(), authmw.UserID(r.Context()), budgets)
	warnings := append(result.Warnings, conversionWarnings...)

	if len(result.Updated) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "No categories were updated",
			"errors":  warnings,
			"success": false,
		})
		return
	}

	updated := make([]map[string]any, 0, len(result.Updated))
	for _, change := range result.Updated {
		updated = append(updated, map[string]any{
			"category_id":   change.Ref.String(),
			"category_name": change.Name,
			"daily_budget":  change.Budget.Float64(),
		})
	}

	response := map[string]any{
		"updated_categories": updated,
		"success":            true,
		"message":            fmt.Sprintf("Updated budgets for %d categories", len(updated)),
	}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleBudgetTracking(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "dayOffset", 0)
	if err != nil {
		// This endpoint degrades rather than erroring.
		s.writeBudgetTracking(w, services.BudgetTrackingReport{
			Budgeted:   []services.TrackedCategory{},
			Unbudgeted: []services.TrackedCategory{},
		})
		return
	}

	report := s.categories.BudgetTracking(r.Context(), authmw.UserID(r.Context()), offset)
	s.writeBudgetTracking(w, report)
}

func (s *Server) writeBudgetTracking(w http.ResponseWriter, report services.BudgetTrackingReport) {
	budgeted := make([]budgetedCategoryJSON, 0, len(report.Budgeted))
	for _, c := range report.Budgeted {
		budgeted = append(budgeted, budgetedCategoryJSON{
			CategoryID:     c.Ref.String(),
			CategoryName:   c.Name,
			CategoryIcon:   c.Icon,
			CategoryColor:  c.Color,
			SpentToday:     c.SpentToday.Float64(),
			DailyBudget:    c.DailyBudget.Float64(),
			RemainingToday: c.Remaining.Float64(),
			PercentageUsed: c.PercentageUsed,
			IsOverBudget:   c.IsOverBudget,
		})
	}

	unbudgeted := make([]unbudgetedCategoryJSON, 0, len(report.Unbudgeted))
	for _, c := range report.Unbudgeted {
		unbudgeted = append(unbudgeted, unbudgetedCategoryJSON{
			CategoryID:    c.Ref.String(),
			CategoryName:  c.Name,
			CategoryIcon:  c.Icon,
			CategoryColor: c.Color,
			SpentToday:    c.SpentToday.Float64(),
		})
	}

	totalSpentAll := report.TotalSpentBudgeted.Add(report.TotalSpentUnbudgeted)
	overallPercentage := 0.0
	if report.TotalBudget.Cents > 0 {
		overallPercentage = report.TotalSpentBudgeted.Float64() / report.TotalBudget.Float64() * 100
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"budgeted_categories":   budgeted,
		"unbudgeted_categories": unbudgeted,
		"summary": map[string]any{
			"total_budget":                report.TotalBudget.Float64(),
			"total_spent_budgeted":        report.TotalSpentBudgeted.Float64(),
			"total_spent_unbudgeted":      report.TotalSpentUnbudgeted.Float64(),
			"total_spent_all":             totalSpentAll.Float64(),
			"total_remaining":             report.TotalBudget.Sub(report.TotalSpentBudgeted).Float64(),
			"overall_percentage_used":     overallPercentage,
			"budgeted_categories_count":   len(budgeted),
			"unbudgeted_categories_count": len(unbudgeted),
		},
		"success": true,
	})
}

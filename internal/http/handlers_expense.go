package http

import (
	"net/http"
	"sync/atomic"
	"time"

	"sprout/internal/core"
	"sprout/internal/log"
	authmw "sprout/internal/middleware/auth"
)

type expenseJSON struct {
	ID          int64     `json:"id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// historyExpenseJSON adds the resolved category block; it is null for
// uncategorized expenses and for refs that no longer resolve.
type historyExpenseJSON struct {
	expenseJSON
	Category *categoryDetailJSON `json:"category"`
}

type historyDayJSON struct {
	Date     string               `json:"date"`
	Expenses []historyExpenseJSON `json:"expenses"`
}

// parseExpenseBody validates the shared create/update payload: amount is
// required and positive, description and category optional.
func parseExpenseBody(r *http.Request) (core.Money, string, *core.CategoryRef, error) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		return core.Money{}, "", nil, err
	}
	if len(body) == 0 {
		return core.Money{}, "", nil, core.NewValidationError("No data provided", "data")
	}

	raw, ok := body["amount"]
	if !ok || raw == nil {
		return core.Money{}, "", nil, core.NewValidationError("Amount is required", "amount")
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return core.Money{}, "", nil, err
	}

	description, _ := body["description"].(string)

	category, err := parseCategoryField(body["category_id"])
	if err != nil {
		return core.Money{}, "", nil, err
	}
	return amount, description, category, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "dayOffset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	expenses, err := s.expenses.ListDay(r.Context(), authmw.UserID(r.Context()), offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	payload := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, expenseJSON{
			ID:          e.ID,
			Amount:      e.Amount.Float64(),
			Description: e.Description,
			Timestamp:   e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	amount, description, category, err := parseExpenseBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.expenses.Create(r.Context(), authmw.UserID(r.Context()), amount, description, category); err != nil {
		s.writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalExpenses, 1)
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, r, core.NewNotFoundError("Expense"))
		return
	}

	amount, description, category, err := parseExpenseBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.expenses.Update(r.Context(), authmw.UserID(r.Context()), id, amount, description, category); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Expense updated successfully",
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, r, core.NewNotFoundError("Expense"))
		return
	}

	if err := s.expenses.Delete(r.Context(), authmw.UserID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Expense deleted successfully",
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "dayOffset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary := s.summaries.Summary(r.Context(), authmw.UserID(r.Context()), offset)
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":     summary.Balance.Float64(),
		"avg_7day":    core.Round2(summary.Avg7 / 100),
		"daily_limit": summary.DailyLimit.Float64(),
		"plant_state": string(summary.State),
		"plant_emoji": summary.State.Emoji(),
	})
}

// handleHistory serves the grouped expense history. The contract of this
// endpoint is to degrade: any unusable input or failed lookup answers an
// empty array with HTTP 200 so the view still renders.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := authmw.UserID(r.Context())

	offset, offsetErr := queryInt(r, "dayOffset", 0)
	period, periodErr := queryInt(r, "period", 7)
	if offsetErr != nil || periodErr != nil {
		writeJSON(w, http.StatusOK, []historyDayJSON{})
		return
	}

	var category *core.CategoryRef
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		ref, err := core.ParseCategoryRef(raw)
		if err != nil {
			s.logger.DebugContext(r.Context(), "History category filter unparseable",
				log.FieldUserID, userID,
				log.FieldCategory, raw)
			writeJSON(w, http.StatusOK, []historyDayJSON{})
			return
		}
		category = &ref
	}

	days := s.expenses.History(r.Context(), userID, offset, period, category)
	index := s.categoryIndex(r, userID)

	payload := make([]historyDayJSON, 0, len(days))
	for _, day := range days {
		entry := historyDayJSON{
			Date:     day.Date.String(),
			Expenses: make([]historyExpenseJSON, 0, len(day.Expenses)),
		}
		for _, e := range day.Expenses {
			entry.Expenses = append(entry.Expenses, historyExpenseJSON{
				expenseJSON: expenseJSON{
					ID:          e.ID,
					Amount:      e.Amount.Float64(),
					Description: e.Description,
					Timestamp:   e.Timestamp,
				},
				Category: categoryDetail(e.Category, index),
			})
		}
		payload = append(payload, entry)
	}
	writeJSON(w, http.StatusOK, payload)
}

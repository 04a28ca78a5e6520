package http

import (
	"net/http"

	"sprout/internal/core"
	authmw "sprout/internal/middleware/auth"
)

func (s *Server) handleGetRolloverSettings(w http.ResponseWriter, r *http.Request) {
	enabled := s.preferences.RolloverEnabled(r.Context(), authmw.UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"daily_rollover_enabled": enabled,
		"message":                "Rollover settings retrieved successfully",
	})
}

func (s *Server) handleSetRolloverSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		if err == errEmptyBody {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Request body is required", "success": false})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Request body is required", "success": false})
		return
	}

	enabled, _ := body["daily_rollover_enabled"].(bool)
	if err := s.preferences.SetRolloverEnabled(r.Context(), authmw.UserID(r.Context()), enabled); err != nil {
		s.writeFamilyError(w, r, err, "Failed to update rollover settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"daily_rollover_enabled": enabled,
		"message":                "Rollover settings updated successfully",
	})
}

func (s *Server) handleCurrentBudget(w http.ResponseWriter, r *http.Request) {
	budget := s.rollover.CurrentBudget(r.Context(), authmw.UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"date":             budget.Date.String(),
		"base_daily_limit": budget.BaseDailyLimit.Float64(),
		"rollover_amount":  budget.RolloverAmount.Float64(),
		"total_available":  budget.TotalAvailable.Float64(),
		"amount_spent":     budget.AmountSpent.Float64(),
		"effective_budget": budget.EffectiveBudget.Float64(),
		"rollover_enabled": budget.Enabled,
	})
}

func (s *Server) handleProcessDayTransition(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	rawDate, ok := body["from_date"]
	if !ok || rawDate == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "from_date is required", "success": false})
		return
	}
	str, ok := rawDate.(string)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid date format. Use YYYY-MM-DD", "success": false})
		return
	}
	fromDate, err := core.ParseDate(str)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid date format. Use YYYY-MM-DD", "success": false})
		return
	}

	if err := s.rollover.ProcessEndOfDay(r.Context(), authmw.UserID(r.Context()), fromDate); err != nil {
		s.writeFamilyError(w, r, err, "Failed to process day transition")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Rollover processed for transition from " + str,
		"from_date": str,
	})
}

func (s *Server) handleRolloverHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.rollover.History(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to retrieve rollover history")
		return
	}

	rows := make([]map[string]any, 0, len(history))
	for _, day := range history {
		rows = append(rows, map[string]any{
			"date":             day.Date.String(),
			"base_daily_limit": day.BaseDailyLimit.Float64(),
			"amount_spent":     day.AmountSpent.Float64(),
			"rollover_amount":  day.RolloverAmount.Float64(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": rows,
		"message": "Rollover history retrieved successfully",
	})
}

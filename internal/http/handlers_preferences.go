package http

import (
	"net/http"

	"sprout/internal/core"
	authmw "sprout/internal/middleware/auth"
	"sprout/internal/services"
)

type projectionJSON struct {
	Budget         float64 `json:"budget"`
	Spent          float64 `json:"spent"`
	PercentageUsed float64 `json:"percentage_used"`
}

func toProjectionJSON(p services.BudgetProjection) projectionJSON {
	return projectionJSON{
		Budget:         p.Budget.Float64(),
		Spent:          p.Spent.Float64(),
		PercentageUsed: p.PercentageUsed,
	}
}

func (s *Server) handleGetDailyLimit(w http.ResponseWriter, r *http.Request) {
	limit := s.preferences.DailyLimit(r.Context(), authmw.UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"daily_limit": limit.Float64(),
		"success":     true,
	})
}

func (s *Server) handleSetDailyLimit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, ok := body["daily_limit"]
	if !ok || raw == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "daily_limit is required", "success": false})
		return
	}
	limit, err := parseBudgetValue(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "daily_limit must be a valid number", "success": false})
		return
	}

	if err := s.preferences.SetDailyLimit(r.Context(), authmw.UserID(r.Context()), limit); err != nil {
		s.writeFamilyError(w, r, err, "Failed to update daily limit")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"daily_limit": limit.Float64(),
		"success":     true,
		"message":     "Daily spending limit updated successfully",
	})
}

func (s *Server) handleGetCategoryRequirement(w http.ResponseWriter, r *http.Request) {
	required, err := s.preferences.RequireCategories(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to get category requirement")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"require_categories": required,
		"success":            true,
	})
}

func (s *Server) handleSetCategoryRequirement(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, ok := body["require_categories"]
	if !ok || raw == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "require_categories is required", "success": false})
		return
	}
	required, ok := raw.(bool)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "require_categories must be a boolean", "success": false})
		return
	}

	if err := s.preferences.SetRequireCategories(r.Context(), authmw.UserID(r.Context()), required); err != nil {
		s.writeFamilyError(w, r, err, "Failed to update category requirement")
		return
	}

	message := "Category requirement disabled successfully"
	if required {
		message = "Category requirement enabled successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"require_categories": required,
		"success":            true,
		"message":            message,
	})
}

func (s *Server) handleGetDateSimulation(w http.ResponseWriter, r *http.Request) {
	date, err := s.preferences.SimulatedDate(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to get date simulation")
		return
	}

	var payload any
	if date != nil {
		payload = date.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"simulated_date": payload,
	})
}

func (s *Server) handleSetDateSimulation(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, _ := body["date"].(string)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "date is required", "success": false})
		return
	}
	date, err := core.ParseDate(raw)
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to enable date simulation")
		return
	}

	if err := s.rollover.SimulateDate(r.Context(), authmw.UserID(r.Context()), date); err != nil {
		s.writeFamilyError(w, r, err, "Failed to enable date simulation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"simulated_date": date.String(),
		"message":        "Date simulation enabled successfully",
	})
}

func (s *Server) handleClearDateSimulation(w http.ResponseWriter, r *http.Request) {
	if err := s.rollover.ClearSimulatedDate(r.Context(), authmw.UserID(r.Context())); err != nil {
		s.writeFamilyError(w, r, err, "Failed to disable date simulation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Date simulation disabled successfully",
	})
}

func (s *Server) handleBudgetProjections(w http.ResponseWriter, r *http.Request) {
	projections, err := s.preferences.Projections(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to load budget projections")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"daily_limit": projections.DailyLimit.Float64(),
		"weekly":      toProjectionJSON(projections.Weekly),
		"monthly":     toProjectionJSON(projections.Monthly),
		"yearly":      toProjectionJSON(projections.Yearly),
	})
}

package http

import (
	"fmt"
	"net/http"
	"strings"

	"sprout/internal/core"
	authmw "sprout/internal/middleware/auth"
	"sprout/internal/services"
)

// falsy mirrors the loose presence checks the API has always done on
// recurring payloads: nil, empty strings, zero numbers and false all
// count as missing.
func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	default:
		return false
	}
}

func recurringRow(re core.RecurringExpense, index map[core.CategoryRef]core.Category) map[string]any {
	row := map[string]any{
		"id":          re.ID,
		"description": re.Description,
		"amount":      re.Amount.Float64(),
		"frequency":   string(re.Frequency),
		"start_date":  re.StartDate.String(),
		"is_active":   re.Active,
		"created_at":  re.CreatedAt,
	}
	if detail := categoryDetail(re.Category, index); detail != nil {
		row["category"] = detail
	}
	return row
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	userID := authmw.UserID(r.Context())
	templates, err := s.recurring.List(r.Context(), userID)
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to load recurring expenses")
		return
	}

	index := s.categoryIndex(r, userID)
	rows := make([]map[string]any, 0, len(templates))
	for _, re := range templates {
		rows = append(rows, recurringRow(re, index))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"recurring_expenses": rows,
	})
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	for _, field := range []string{"description", "amount", "frequency", "start_date"} {
		if v, ok := body[field]; !ok || falsy(v) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "Missing required field: " + field,
				"success": false,
			})
			return
		}
	}

	description, _ := body["description"].(string)
	description = strings.TrimSpace(description)

	amount, err := parseAmount(body["amount"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid date or amount format", "success": false})
		return
	}

	rawFreq, _ := body["frequency"].(string)
	frequency := core.Frequency(strings.ToLower(rawFreq))

	rawDate, ok := body["start_date"].(string)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid date or amount format", "success": false})
		return
	}
	startDate, err := core.ParseDate(rawDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid date or amount format", "success": false})
		return
	}

	category, err := parseCategoryField(body["category_id"])
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to create recurring expense")
		return
	}

	created, err := s.recurring.Create(r.Context(), authmw.UserID(r.Context()), description, amount, frequency, startDate, category)
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to create recurring expense")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Recurring expense created successfully",
		"recurring_expense": map[string]any{
			"id":         created.ID,
			"created_at": created.CreatedAt,
		},
	})
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeFamilyError(w, r, core.NewNotFoundError("Recurring expense"), "")
		return
	}

	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No data provided", "success": false})
		return
	}

	var upd services.RecurringUpdate
	if v, ok := body["description"]; ok {
		str, _ := v.(string)
		str = strings.TrimSpace(str)
		upd.Description = &str
	}
	if v, ok := body["amount"]; ok {
		amount, err := parseAmount(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid date or amount format", "success": false})
			return
		}
		upd.Amount = &amount
	}
	if v, ok := body["frequency"]; ok {
		str, _ := v.(string)
		frequency := core.Frequency(strings.ToLower(str))
		upd.Frequency = &frequency
	}
	if v, ok := body["start_date"]; ok {
		str, _ := v.(string)
		startDate, err := core.ParseDate(str)
		if err != nil {
			s.writeFamilyError(w, r, err, "Failed to update recurring expense")
			return
		}
		upd.StartDate = &startDate
	}
	if v, ok := body["category_id"]; ok {
		category, err := parseCategoryField(v)
		if err != nil {
			s.writeFamilyError(w, r, err, "Failed to update recurring expense")
			return
		}
		if category == nil {
			upd.ClearCategory = true
		} else {
			upd.Category = category
		}
	}
	if v, ok := body["is_active"]; ok {
		active, ok := v.(bool)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "is_active must be a boolean", "success": false})
			return
		}
		upd.Active = &active
	}

	userID := authmw.UserID(r.Context())
	updated, err := s.recurring.Update(r.Context(), userID, id, upd)
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to update recurring expense")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"message":           "Recurring expense updated successfully",
		"recurring_expense": recurringRow(updated, s.categoryIndex(r, userID)),
	})
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeFamilyError(w, r, core.NewNotFoundError("Recurring expense"), "")
		return
	}

	if err := s.recurring.Delete(r.Context(), authmw.UserID(r.Context()), id); err != nil {
		s.writeFamilyError(w, r, err, "Failed to delete recurring expense")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Recurring expense deleted successfully",
	})
}

func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	processed, err := s.recurring.ProcessUser(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		s.writeFamilyError(w, r, err, "Failed to process recurring expenses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("Processed %d recurring expenses", processed),
		"processed_count": processed,
	})
}

package http

import (
	"net/http"

	"sprout/internal/log"
	authmw "sprout/internal/middleware/auth"
	"sprout/internal/services"
)

type dayExpenseJSON struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Time        string  `json:"time"`
}

type dailySpendingRowJSON struct {
	Date        string           `json:"date"`
	Amount      float64          `json:"amount"`
	Count       int              `json:"count"`
	BudgetLimit float64          `json:"budget_limit"`
	Expenses    []dayExpenseJSON `json:"expenses"`
}

type breakdownExpenseJSON struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
}

type breakdownRowJSON struct {
	Category   string                 `json:"category"`
	Amount     float64                `json:"amount"`
	Count      int                    `json:"count"`
	Percentage float64                `json:"percentage"`
	Color      string                 `json:"color"`
	Expenses   []breakdownExpenseJSON `json:"expenses"`
}

type heatmapCellJSON struct {
	Date       *string `json:"date"`
	DayName    string  `json:"day_name"`
	DayNumber  *int    `json:"day_number"`
	MonthName  string  `json:"month_name"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
	Intensity  float64 `json:"intensity"`
	ColorLevel int     `json:"color_level"`
	Expenses   []any   `json:"expenses"`
}

func (s *Server) analyticsWindow(w http.ResponseWriter, r *http.Request) (days, offset int, ok bool) {
	days, err := queryInt(r, "days", services.ClampDays(0))
	if err != nil {
		s.writeError(w, r, err)
		return 0, 0, false
	}
	offset, err = queryInt(r, "dayOffset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return 0, 0, false
	}
	return days, offset, true
}

func (s *Server) writeAnalyticsError(w http.ResponseWriter, r *http.Request, err error, message string) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "analytics request failed",
		log.FieldError, err,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   message,
		"details": err.Error(),
	})
}

func (s *Server) handleDailySpending(w http.ResponseWriter, r *http.Request) {
	days, offset, ok := s.analyticsWindow(w, r)
	if !ok {
		return
	}

	report, err := s.analytics.DailySpending(r.Context(), authmw.UserID(r.Context()), days, offset)
	if err != nil {
		s.writeAnalyticsError(w, r, err, "Failed to load analytics data")
		return
	}

	rows := make([]dailySpendingRowJSON, 0, len(report.Rows))
	for _, row := range report.Rows {
		expenses := make([]dayExpenseJSON, 0, len(row.Expenses))
		for _, e := range row.Expenses {
			expenses = append(expenses, dayExpenseJSON{Amount: e.Amount, Description: e.Description, Time: e.Time})
		}
		rows = append(rows, dailySpendingRowJSON{
			Date:        row.Date.String(),
			Amount:      row.Amount.Float64(),
			Count:       row.Count,
			BudgetLimit: row.BudgetLimit.Float64(),
			Expenses:    expenses,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    rows,
		"summary": map[string]any{
			"total_days":         report.Summary.TotalDays,
			"total_spent":        report.Summary.TotalSpent.Float64(),
			"average_daily":      report.Summary.AverageDaily,
			"daily_budget_limit": report.Summary.DailyBudgetLimit.Float64(),
			"days_over_budget":   report.Summary.DaysOverBudget,
			"days_under_budget":  report.Summary.DaysUnderBudget,
			"days_no_spending":   report.Summary.DaysNoSpending,
			"days_with_spending": report.Summary.DaysWithSpending,
		},
	})
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	days, offset, ok := s.analyticsWindow(w, r)
	if !ok {
		return
	}

	report, err := s.analytics.CategoryBreakdown(r.Context(), authmw.UserID(r.Context()), days, offset)
	if err != nil {
		s.writeAnalyticsError(w, r, err, "Failed to load category breakdown data")
		return
	}

	rows := make([]breakdownRowJSON, 0, len(report.Rows))
	for _, row := range report.Rows {
		expenses := make([]breakdownExpenseJSON, 0, len(row.Expenses))
		for _, e := range row.Expenses {
			expenses = append(expenses, breakdownExpenseJSON{Amount: e.Amount, Description: e.Description, Date: e.Date, Time: e.Time})
		}
		rows = append(rows, breakdownRowJSON{
			Category:   row.Category,
			Amount:     row.Amount,
			Count:      row.Count,
			Percentage: row.Percentage,
			Color:      row.Color,
			Expenses:   expenses,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    rows,
		"summary": map[string]any{
			"total_categories": len(rows),
			"total_spent":      report.TotalSpent,
			"days_analyzed":    report.DaysAnalyzed,
		},
	})
}

func (s *Server) handleWeeklyHeatmap(w http.ResponseWriter, r *http.Request) {
	days, offset, ok := s.analyticsWindow(w, r)
	if !ok {
		return
	}

	report, err := s.analytics.WeeklyHeatmap(r.Context(), authmw.UserID(r.Context()), days, offset)
	if err != nil {
		s.writeAnalyticsError(w, r, err, "Failed to load heatmap data")
		return
	}

	weeks := make([][]heatmapCellJSON, 0, len(report.Weeks))
	for _, week := range report.Weeks {
		cells := make([]heatmapCellJSON, 0, len(week))
		for _, cell := range week {
			out := heatmapCellJSON{
				DayName:    cell.DayName,
				DayNumber:  cell.DayNumber,
				MonthName:  cell.MonthName,
				Amount:     cell.Amount,
				Count:      cell.Count,
				Intensity:  cell.Intensity,
				ColorLevel: cell.ColorLevel,
				Expenses:   []any{},
			}
			if cell.Date != nil {
				date := cell.Date.String()
				out.Date = &date
			}
			cells = append(cells, out)
		}
		weeks = append(weeks, cells)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    weeks,
		"summary": map[string]any{
			"total_weeks":             report.Summary.TotalWeeks,
			"total_days":              report.Summary.TotalDays,
			"max_spending":            report.Summary.MaxSpending,
			"avg_spending":            report.Summary.AvgSpending,
			"start_date":              report.Summary.StartDate.String(),
			"end_date":                report.Summary.EndDate.String(),
			"processing_time_seconds": report.Summary.ProcessingTime,
		},
	})
}

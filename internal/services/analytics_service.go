package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

const (
	analyticsDefaultDays = 30
	analyticsMaxDays     = 365
)

// uncategorizedColor labels expenses whose category is missing or was
// deleted.
const uncategorizedColor = "#6c757d"

// AnalyticsService builds the spending charts: daily series, category
// breakdown and the weekly heatmap. All three resolve their window through
// the preference clock, so date simulation shifts every chart the same way.
type AnalyticsService struct {
	storage *storage.Repository
	prefs   *PreferencesService
	logger  *log.Logger
	now     func() time.Time
}

func NewAnalyticsService(repo *storage.Repository, prefs *PreferencesService, logger *log.Logger) *AnalyticsService {
	return &AnalyticsService{
		storage: repo,
		prefs:   prefs,
		logger:  logger.WithComponent(log.ComponentAnalytics),
		now:     time.Now,
	}
}

// ClampDays sanitizes the days query parameter: non-positive values take the
// default window, oversized ones are capped.
func ClampDays(days int) int {
	if days <= 0 {
		return analyticsDefaultDays
	}
	if days > analyticsMaxDays {
		return analyticsMaxDays
	}
	return days
}

// DayDetail is one expense inside a daily spending row.
type DayDetail struct {
	Amount      float64
	Description string
	Time        string
}

// DailySpendingRow is one day of the spending chart. Days without expenses
// are present with zero amounts.
type DailySpendingRow struct {
	Date        core.Date
	Amount      core.Money
	Count       int
	BudgetLimit core.Money
	Expenses    []DayDetail
}

type DailySpendingSummary struct {
	TotalDays        int
	TotalSpent       core.Money
	AverageDaily     float64
	DailyBudgetLimit core.Money
	DaysOverBudget   int
	DaysUnderBudget  int
	DaysNoSpending   int
	DaysWithSpending int
}

type DailySpendingReport struct {
	Rows    []DailySpendingRow
	Summary DailySpendingSummary
}

// DailySpending returns one row per day of the window ending at the offset
// day, oldest first, with per-day expense detail and aggregate counts.
func (s *AnalyticsService) DailySpending(ctx context.Context, userID int64, days, offset int) (DailySpendingReport, error) {
	days = ClampDays(days)
	today, _ := s.prefs.Today(ctx, userID)
	day := today.AddDays(offset)
	first := day.AddDays(-(days - 1))

	start, _ := first.Bounds()
	_, end := day.Bounds()
	expenses, err := s.storage.ListExpenses(ctx, userID, start, end, nil)
	if err != nil {
		return DailySpendingReport{}, fmt.Errorf("daily spending window: %w", err)
	}
	limit := s.prefs.DailyLimit(ctx, userID)

	type dayBucket struct {
		amount  core.Money
		details []DayDetail
	}
	buckets := make(map[core.Date]*dayBucket)
	// ListExpenses is newest-first; walk backwards so detail lists read
	// chronologically.
	for i := len(expenses) - 1; i >= 0; i-- {
		e := expenses[i]
		d := core.DateOf(e.Timestamp)
		b := buckets[d]
		if b == nil {
			b = &dayBucket{}
			buckets[d] = b
		}
		b.amount = b.amount.Add(e.Amount)
		b.details = append(b.details, DayDetail{
			Amount:      e.Amount.Float64(),
			Description: e.Description,
			Time:        e.Timestamp.UTC().Format("15:04"),
		})
	}

	report := DailySpendingReport{Rows: make([]DailySpendingRow, 0, days)}
	var total core.Money
	for i := 0; i < days; i++ {
		d := first.AddDays(i)
		row := DailySpendingRow{
			Date:        d,
			BudgetLimit: limit,
			Expenses:    []DayDetail{},
		}
		if b, ok := buckets[d]; ok {
			row.Amount = b.amount
			row.Count = len(b.details)
			row.Expenses = b.details
			report.Summary.DaysWithSpending++
		}
		total = total.Add(row.Amount)
		if row.Amount.Cents > limit.Cents {
			report.Summary.DaysOverBudget++
		}
		report.Rows = append(report.Rows, row)
	}

	report.Summary.TotalDays = days
	report.Summary.TotalSpent = total
	report.Summary.AverageDaily = core.Round2(total.Float64() / float64(days))
	report.Summary.DailyBudgetLimit = limit
	report.Summary.DaysUnderBudget = report.Summary.DaysWithSpending - report.Summary.DaysOverBudget
	report.Summary.DaysNoSpending = days - report.Summary.DaysWithSpending
	return report, nil
}

// BreakdownExpense is one expense inside a category breakdown row.
type BreakdownExpense struct {
	Amount      float64
	Description string
	Date        string
	Time        string
}

// CategoryBreakdownRow aggregates a window's spending for one category name.
type CategoryBreakdownRow struct {
	Category   string
	Amount     float64
	Count      int
	Percentage float64
	Color      string
	Expenses   []BreakdownExpense
}

type CategoryBreakdownReport struct {
	Rows         []CategoryBreakdownRow
	TotalSpent   float64
	DaysAnalyzed int
}

// CategoryBreakdown totals the window's spending per category, largest
// first. Expenses without a resolvable category group under "Uncategorized".
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID int64, days, offset int) (CategoryBreakdownReport, error) {
	days = ClampDays(days)
	today, _ := s.prefs.Today(ctx, userID)
	day := today.AddDays(offset)

	start, _ := day.AddDays(-(days - 1)).Bounds()
	_, end := day.Bounds()
	expenses, err := s.storage.ListExpenses(ctx, userID, start, end, nil)
	if err != nil {
		return CategoryBreakdownReport{}, fmt.Errorf("breakdown window: %w", err)
	}
	categories, err := s.storage.ListCategories(ctx, userID)
	if err != nil {
		return CategoryBreakdownReport{}, fmt.Errorf("breakdown categories: %w", err)
	}
	byRef := make(map[core.CategoryRef]core.Category, len(categories))
	for _, c := range categories {
		byRef[c.Ref] = c
	}

	type group struct {
		amount   core.Money
		color    string
		expenses []BreakdownExpense
	}
	groups := make(map[string]*group)
	var order []string
	var total core.Money

	for i := len(expenses) - 1; i >= 0; i-- {
		e := expenses[i]
		name := "Uncategorized"
		color := uncategorizedColor
		if e.Category != nil {
			if c, ok := byRef[*e.Category]; ok {
				name = c.Name
				color = c.Color
			}
		}
		g := groups[name]
		if g == nil {
			g = &group{color: color}
			groups[name] = g
			order = append(order, name)
		}
		g.amount = g.amount.Add(e.Amount)
		g.expenses = append(g.expenses, BreakdownExpense{
			Amount:      e.Amount.Float64(),
			Description: e.Description,
			Date:        core.DateOf(e.Timestamp).String(),
			Time:        e.Timestamp.UTC().Format("15:04"),
		})
		total = total.Add(e.Amount)
	}

	report := CategoryBreakdownReport{
		Rows:         make([]CategoryBreakdownRow, 0, len(order)),
		TotalSpent:   total.Float64(),
		DaysAnalyzed: days,
	}
	for _, name := range order {
		g := groups[name]
		row := CategoryBreakdownRow{
			Category: name,
			Amount:   g.amount.Float64(),
			Count:    len(g.expenses),
			Color:    g.color,
			Expenses: g.expenses,
		}
		if total.Cents > 0 {
			row.Percentage = core.Round1(g.amount.Float64() / total.Float64() * 100)
		}
		report.Rows = append(report.Rows, row)
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Amount > report.Rows[j].Amount
	})
	return report, nil
}

// HeatmapCell is one day cell of the heatmap grid. Padding cells at the end
// of the final week carry a nil date.
type HeatmapCell struct {
	Date       *core.Date
	DayName    string
	DayNumber  *int
	MonthName  string
	Amount     float64
	Count      int
	Intensity  float64
	ColorLevel int
}

type HeatmapSummary struct {
	TotalWeeks     int
	TotalDays      int
	MaxSpending    float64
	AvgSpending    float64
	StartDate      core.Date
	EndDate        core.Date
	ProcessingTime float64
}

type WeeklyHeatmapReport struct {
	Weeks   [][]HeatmapCell
	Summary HeatmapSummary
}

// WeeklyHeatmap renders the window as calendar weeks of seven day cells with
// spend intensity scaled against the window's busiest day. The final week is
// padded with empty cells.
func (s *AnalyticsService) WeeklyHeatmap(ctx context.Context, userID int64, days, offset int) (WeeklyHeatmapReport, error) {
	started := s.now()
	days = ClampDays(days)
	today, _ := s.prefs.Today(ctx, userID)
	day := today.AddDays(offset)
	first := day.AddDays(-(days - 1))

	start, _ := first.Bounds()
	_, end := day.Bounds()
	daily, err := s.storage.DailySpending(ctx, userID, start, end)
	if err != nil {
		return WeeklyHeatmapReport{}, fmt.Errorf("heatmap window: %w", err)
	}
	byDay := make(map[core.Date]storage.DailySpend, len(daily))
	for _, d := range daily {
		byDay[d.Day] = d
	}

	var (
		maxSpending float64
		spentTotal  float64
		spentDays   int
	)
	for _, d := range daily {
		amount := core.Money{Cents: d.SpentCents}.Float64()
		if amount <= 0 {
			continue
		}
		spentTotal += amount
		spentDays++
		if amount > maxSpending {
			maxSpending = amount
		}
	}

	report := WeeklyHeatmapReport{}
	for weekStart := 0; weekStart < days; weekStart += 7 {
		week := make([]HeatmapCell, 0, 7)
		for j := 0; j < 7; j++ {
			i := weekStart + j
			if i >= days {
				week = append(week, HeatmapCell{})
				continue
			}
			d := first.AddDays(i)
			cell := HeatmapCell{
				DayName:   d.Weekday().String()[:3],
				MonthName: d.Month().String()[:3],
			}
			date := d
			cell.Date = &date
			dayNumber := d.Day()
			cell.DayNumber = &dayNumber

			if spend, ok := byDay[d]; ok && spend.SpentCents > 0 {
				amount := core.Money{Cents: spend.SpentCents}.Float64()
				intensity := 1.0
				if maxSpending > 0 {
					intensity = amount / maxSpending
					if intensity > 1 {
						intensity = 1
					}
				}
				cell.Amount = core.Round2(amount)
				cell.Count = spend.Count
				cell.Intensity = core.Round2(intensity)
				switch {
				case intensity <= 0.25:
					cell.ColorLevel = 1
				case intensity <= 0.5:
					cell.ColorLevel = 2
				case intensity <= 0.75:
					cell.ColorLevel = 3
				default:
					cell.ColorLevel = 4
				}
			}
			week = append(week, cell)
		}
		report.Weeks = append(report.Weeks, week)
	}

	avg := 0.0
	if spentDays > 0 {
		avg = spentTotal / float64(spentDays)
	}
	report.Summary = HeatmapSummary{
		TotalWeeks:     len(report.Weeks),
		TotalDays:      days,
		MaxSpending:    core.Round2(maxSpending),
		AvgSpending:    core.Round2(avg),
		StartDate:      first,
		EndDate:        day,
		ProcessingTime: core.Round2(s.now().Sub(started).Seconds()),
	}
	return report, nil
}

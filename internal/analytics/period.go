// Package analytics computes dashboard figures from already-loaded rows.
// Nothing here performs I/O; callers pass the rows and the current time.
package analytics

import (
	"fmt"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

// Period is a half-open date range [Start, End).
type Period struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// ParsePeriod resolves week, month, quarter or year around now (UTC).
// An empty name means month. Weeks start on Monday.
func ParsePeriod(name string, now time.Time) (Period, error) {
	day := startOfDay(now)
	switch name {
	case "", "month":
		start := startOfMonth(day)
		return Period{Name: "month", Start: start, End: start.AddDate(0, 1, 0)}, nil
	case "week":
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Period{Name: "week", Start: start, End: start.AddDate(0, 0, 7)}, nil
	case "quarter":
		q := (int(day.Month()) - 1) / 3
		start := time.Date(day.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Period{Name: "quarter", Start: start, End: start.AddDate(0, 3, 0)}, nil
	case "year":
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return Period{Name: "year", Start: start, End: start.AddDate(1, 0, 0)}, nil
	}
	return Period{}, fmt.Errorf("unknown period %q", name)
}

// BudgetWindow is the window of a budget's period that contains now.
func BudgetWindow(p domain.BudgetPeriod, now time.Time) Period {
	var name string
	switch p {
	case domain.BudgetWeekly:
		name = "week"
	case domain.BudgetYearly:
		name = "year"
	default:
		name = "month"
	}
	period, _ := ParsePeriod(name, now)
	return period
}

// LoadRange is the transaction date range a dashboard for p needs: the
// period itself, the trend months and every budget window.
func LoadRange(p Period, now time.Time, trendMonths int) (time.Time, time.Time) {
	start := p.Start
	if ts := startOfMonth(now).AddDate(0, -(trendMonths - 1), 0); ts.Before(start) {
		start = ts
	}
	if ys := BudgetWindow(domain.BudgetYearly, now).Start; ys.Before(start) {
		start = ys
	}
	if ws := BudgetWindow(domain.BudgetWeekly, now).Start; ws.Before(start) {
		start = ws
	}
	end := p.End
	if e := startOfDay(now).AddDate(0, 0, 1); e.After(end) {
		end = e
	}
	return start, end
}
